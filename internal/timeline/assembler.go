package timeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"storyreel/internal/logging"
	"storyreel/internal/media/engine"
	"storyreel/internal/services"
	"storyreel/internal/workpool"
)

// durationTolerance absorbs float noise when comparing accumulated clip
// durations against a target.
const durationTolerance = 1e-6

// AudioClip is an audio file on disk and its probed duration in seconds.
type AudioClip struct {
	Path     string
	Duration float64
}

// ClipSpec is a background file used over [0, Duration].
type ClipSpec struct {
	Path     string
	Duration float64
}

// BackgroundTrack is the ordered clip list of a stitched background.
type BackgroundTrack struct {
	Clips    []ClipSpec
	Duration float64
}

// Segments converts the track into engine input.
func (t BackgroundTrack) Segments() []engine.VideoSegment {
	segments := make([]engine.VideoSegment, len(t.Clips))
	for i, clip := range t.Clips {
		segments[i] = engine.VideoSegment{Path: clip.Path, Duration: clip.Duration}
	}
	return segments
}

// AudioRenderer concatenates audio parts into one file.
type AudioRenderer interface {
	ConcatAudio(ctx context.Context, spec engine.AudioSpec) error
}

// DurationProber reports the duration of a media file in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// AudioFormat controls the encoding of the merged audio track and its
// generated silence.
type AudioFormat struct {
	SampleRate int
	Channels   int
	Bitrate    string
}

// Assembler builds audio and background tracks.
type Assembler struct {
	renderer AudioRenderer
	prober   DurationProber
	selector Selector
	pool     *workpool.Pool
	parallel bool
	format   AudioFormat
	logger   *slog.Logger
}

// Option customizes an Assembler.
type Option func(*Assembler)

// WithSelector replaces the random clip selector.
func WithSelector(selector Selector) Option {
	return func(a *Assembler) {
		if selector != nil {
			a.selector = selector
		}
	}
}

// WithParallelPrefetch probes candidate clips in batches of the pool size.
func WithParallelPrefetch(pool *workpool.Pool) Option {
	return func(a *Assembler) {
		if pool != nil {
			a.pool = pool
			a.parallel = true
		}
	}
}

// WithAudioFormat sets the merged track encoding.
func WithAudioFormat(format AudioFormat) Option {
	return func(a *Assembler) {
		a.format = format
	}
}

// WithLogger sets the assembler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) {
		a.logger = logger
	}
}

// NewAssembler constructs an Assembler.
func NewAssembler(renderer AudioRenderer, prober DurationProber, opts ...Option) *Assembler {
	a := &Assembler{
		renderer: renderer,
		prober:   prober,
		selector: RandomSelector{},
		format:   AudioFormat{SampleRate: 44100, Channels: 1, Bitrate: "128k"},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.NewComponentLogger(a.logger, "timeline")
	return a
}

// BuildAudioTrack concatenates title, silence and body into outPath and
// returns the clip re-read from disk.
func (a *Assembler) BuildAudioTrack(ctx context.Context, title, body AudioClip, silence float64, outPath string) (AudioClip, error) {
	if title.Path == "" || body.Path == "" {
		return AudioClip{}, services.Wrap(services.ErrValidation, "timeline", "build audio track", "title and body clips are required", nil)
	}
	if silence < 0 || math.IsNaN(silence) || math.IsInf(silence, 0) {
		return AudioClip{}, services.Wrap(services.ErrValidation, "timeline", "build audio track", fmt.Sprintf("invalid silence duration %v", silence), nil)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return AudioClip{}, services.Wrap(services.ErrFileSystem, "timeline", "build audio track", "create output directory", err)
	}

	spec := engine.AudioSpec{
		Parts: []engine.AudioPart{
			{Path: title.Path},
			{SilenceSeconds: silence},
			{Path: body.Path},
		},
		Output:     outPath,
		SampleRate: a.format.SampleRate,
		Channels:   a.format.Channels,
		Bitrate:    a.format.Bitrate,
	}
	if err := a.renderer.ConcatAudio(ctx, spec); err != nil {
		return AudioClip{}, err
	}

	duration, err := a.prober.Duration(ctx, outPath)
	if err != nil {
		return AudioClip{}, services.Wrap(services.ErrEncoding, "timeline", "build audio track", "probe merged audio", err)
	}
	logging.WithContext(ctx, a.logger).Info("audio track assembled",
		logging.String("path", outPath),
		logging.Float64("title_seconds", title.Duration),
		logging.Float64("silence_seconds", silence),
		logging.Float64("body_seconds", body.Duration),
		logging.Float64("duration_seconds", duration),
	)
	return AudioClip{Path: outPath, Duration: duration}, nil
}

type probedClip struct {
	path     string
	duration float64
	err      error
}

// BuildBackgroundTrack stitches clips from folder until target seconds are
// covered. Each clip is used at most once; the last is trimmed.
func (a *Assembler) BuildBackgroundTrack(ctx context.Context, folder string, target float64) (BackgroundTrack, error) {
	if target <= 0 || math.IsNaN(target) || math.IsInf(target, 0) {
		return BackgroundTrack{}, services.Wrap(services.ErrValidation, "timeline", "build background track", fmt.Sprintf("invalid target duration %v", target), nil)
	}
	candidates, err := a.selector.Candidates(ctx, folder)
	if err != nil {
		return BackgroundTrack{}, err
	}
	if len(candidates) == 0 {
		return BackgroundTrack{}, services.Wrap(services.ErrResourceExhausted, "timeline", "build background track", "no usable media in "+folder, nil)
	}

	logger := logging.WithContext(ctx, a.logger)
	batchSize := 1
	if a.parallel {
		batchSize = a.pool.Size()
	}

	var track BackgroundTrack
	for start := 0; start < len(candidates); start += batchSize {
		batch := candidates[start:min(start+batchSize, len(candidates))]
		probed, err := a.probeBatch(ctx, batch)
		if err != nil {
			return BackgroundTrack{}, err
		}
		for _, clip := range probed {
			if clip.err != nil || clip.duration <= 0 {
				attrs := []logging.Attr{
					logging.String("path", clip.path),
					logging.String(logging.FieldErrorHint, "remove or re-encode the clip"),
					logging.String(logging.FieldImpact, "clip skipped"),
				}
				if clip.err != nil {
					attrs = append(attrs, logging.Error(clip.err))
				}
				logging.WarnWithContext(logger, "background clip unusable", "background_clip_skipped", attrs...)
				continue
			}
			remaining := target - track.Duration
			if clip.duration >= remaining-durationTolerance {
				track.Clips = append(track.Clips, ClipSpec{Path: clip.path, Duration: remaining})
				track.Duration = target
				logger.Info("background track assembled",
					logging.String("folder", folder),
					logging.Int("clips", len(track.Clips)),
					logging.Float64("duration_seconds", track.Duration),
				)
				return track, nil
			}
			track.Clips = append(track.Clips, ClipSpec{Path: clip.path, Duration: clip.duration})
			track.Duration += clip.duration
		}
	}

	message := fmt.Sprintf("background clips exhausted after %.3fs of %.3fs", track.Duration, target)
	if len(track.Clips) == 0 {
		message = "no usable media in " + folder
	}
	return BackgroundTrack{}, services.Wrap(services.ErrResourceExhausted, "timeline", "build background track", message, nil)
}

func (a *Assembler) probeBatch(ctx context.Context, paths []string) ([]probedClip, error) {
	if len(paths) == 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		duration, err := a.prober.Duration(ctx, paths[0])
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return []probedClip{{path: paths[0], duration: duration, err: err}}, nil
	}
	results, err := workpool.Map(ctx, a.pool, paths, func(ctx context.Context, _ int, path string) (probedClip, error) {
		duration, err := a.prober.Duration(ctx, path)
		if err != nil && ctx.Err() != nil {
			return probedClip{}, ctx.Err()
		}
		return probedClip{path: path, duration: duration, err: err}, nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
