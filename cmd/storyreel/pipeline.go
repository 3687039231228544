package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"storyreel/internal/backgrounds"
	"storyreel/internal/compose"
	"storyreel/internal/config"
	"storyreel/internal/jobs"
	"storyreel/internal/label"
	"storyreel/internal/library"
	"storyreel/internal/media/engine"
	"storyreel/internal/media/ffprobe"
	"storyreel/internal/notifications"
	"storyreel/internal/publish"
	"storyreel/internal/render"
	"storyreel/internal/stories"
	"storyreel/internal/timeline"
	"storyreel/internal/transcribe"
	"storyreel/internal/voice"
	"storyreel/internal/workflow"
	"storyreel/internal/workpool"
)

// pipeline is the assembled render stack shared by generate and serve.
type pipeline struct {
	cfg        *config.Config
	logger     *slog.Logger
	library    *library.Library
	jobs       *jobs.Store
	notifier   notifications.Service
	controller *render.Controller
	workflow   *workflow.Manager
}

// pipelineOptions are the per-command knobs of buildPipeline. A zero Seed
// keeps background clip order random.
type pipelineOptions struct {
	Workers int
	Seed    uint64
}

func buildPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts pipelineOptions) (*pipeline, error) {
	store, err := jobs.Open(cfg)
	if err != nil {
		return nil, err
	}

	pool := workpool.New(cfg.RenderWorkers())
	eng := engine.New(cfg.Render.FFmpegBinary, logger)
	prober := ffprobe.Prober{Binary: cfg.Render.FFprobeBinary}

	transcriber, err := transcribe.New(cfg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	publisher, err := publish.New(ctx, cfg.Publish, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	trackOpts := []timeline.Option{
		timeline.WithLogger(logger),
		timeline.WithSelector(clipSelector(opts.Seed)),
		timeline.WithAudioFormat(timeline.AudioFormat{
			SampleRate: cfg.Audio.SampleRate,
			Channels:   cfg.Audio.Channels,
			Bitrate:    cfg.Audio.Bitrate,
		}),
	}
	if cfg.Render.ParallelBackgrounds {
		trackOpts = append(trackOpts, timeline.WithParallelPrefetch(pool))
	}

	fast, safe := engine.ProfilesFromConfig(cfg.Render)
	composer := compose.New(eng,
		compose.WithProfiles(fast, safe),
		compose.WithGeometry(compose.Geometry{Width: cfg.Video.Width, Height: cfg.Video.Height, FPS: cfg.Video.FPS}),
		compose.WithFallbackDuration(cfg.Video.FallbackSeconds),
		compose.WithPool(pool),
		compose.WithLogger(logger),
	)

	notifier := notifications.NewService(cfg)
	deps := render.Dependencies{
		Voices:      voice.NewClient(voice.ConfigFromSettings(cfg), voice.WithLogger(logger)),
		Transcriber: transcriber,
		Labels:      label.NewGenerator(eng, cfg.Label, cfg.Paths.AssetsDir, logger),
		Prober:      prober,
		Tracks:      timeline.NewAssembler(eng, prober, trackOpts...),
		Composer:    composer,
		Store:       store,
		Notifier:    notifier,
	}
	if publisher != nil {
		deps.Publisher = publisher
	}
	controller, err := render.NewController(deps, render.Options{
		Pool:            pool,
		MaxWords:        cfg.Captions.MaxWords,
		MaxGap:          cfg.Captions.MaxGapSeconds,
		TitleGap:        cfg.Captions.TitleGapSeconds,
		QuarantineGrace: time.Duration(cfg.Render.QuarantineGraceMinutes) * time.Minute,
		Logger:          logger,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	lib := library.New(cfg.Paths.StoriesDir, cfg.Paths.VideoConfigsDir, logger)
	return &pipeline{
		cfg:        cfg,
		logger:     logger,
		library:    lib,
		jobs:       store,
		notifier:   notifier,
		controller: controller,
		workflow:   workflow.NewManager(cfg, lib, controller, logger, workflow.WithWorkers(opts.Workers), workflow.WithRecorder(store)),
	}, nil
}

func clipSelector(seed uint64) timeline.Selector {
	if seed == 0 {
		return timeline.RandomSelector{}
	}
	return timeline.SeededSelector{Seed: seed}
}

func (p *pipeline) Close() error {
	return p.jobs.Close()
}

// sweep runs a quarantine pass over the configured working directories.
func (p *pipeline) sweep(ctx context.Context) {
	p.controller.Sweep(ctx, render.DirectoriesFromConfig(p.cfg))
}

func newStoryFetcher(cfg *config.Config, lib *library.Library, notifier notifications.Service, logger *slog.Logger) (*stories.Fetcher, error) {
	httpCfg := stories.HTTPConfig{
		BaseURL:   cfg.Reddit.BaseURL,
		Listing:   cfg.Reddit.Listing,
		Limit:     cfg.Reddit.Limit,
		UserAgent: cfg.Reddit.UserAgent,
		Client:    &http.Client{Timeout: time.Duration(cfg.Reddit.TimeoutSeconds) * time.Second},
	}
	var source stories.Source
	switch cfg.Reddit.Source {
	case "rss":
		source = stories.NewFeedSource(httpCfg)
	case "api":
		api, err := stories.NewAPISource(httpCfg)
		if err != nil {
			return nil, err
		}
		source = api
	default:
		source = stories.NewJSONSource(httpCfg)
	}
	opts := []stories.Option{
		stories.WithPostDelay(time.Duration(cfg.Reddit.PostDelayMillis) * time.Millisecond),
		stories.WithNotifier(notifier),
	}
	if cfg.Reddit.ExtractLinks {
		opts = append(opts, stories.WithLinkExtractor(stories.NewReadabilityExtractor(httpCfg)))
	}
	return stories.NewFetcher(source, lib.Stories, logger, opts...), nil
}

func newBackgroundLibrary(cfg *config.Config, logger *slog.Logger) *backgrounds.Library {
	eng := engine.New(cfg.Render.FFmpegBinary, logger)
	return backgrounds.NewLibrary(
		cfg.Paths.BackgroundDir,
		cfg.Backgrounds.ClipSeconds,
		eng,
		backgrounds.NewYtDlp(cfg.Backgrounds.YtDlpBinary, logger),
		logger,
	)
}
