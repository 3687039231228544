package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"storyreel/internal/captions"
	"storyreel/internal/compose"
	"storyreel/internal/logging"
	"storyreel/internal/notifications"
	"storyreel/internal/services"
	"storyreel/internal/timeline"
	"storyreel/internal/workpool"
)

// Dependencies are the collaborators a Controller drives. Store, Notifier,
// Publisher and Labels are optional.
type Dependencies struct {
	Voices      Synthesizer
	Transcriber Transcriber
	Labels      LabelRenderer
	Prober      DurationProber
	Tracks      TrackBuilder
	Composer    Compositor
	Store       JobStore
	Notifier    notifications.Service
	Publisher   Publisher
}

// Options tune caption chunking, concurrency and sweeping.
type Options struct {
	Pool            *workpool.Pool
	MaxWords        int
	MaxGap          float64
	TitleGap        float64
	QuarantineGrace time.Duration
	Logger          *slog.Logger
}

// Controller runs render jobs.
type Controller struct {
	deps   Dependencies
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	active map[string]struct{}
}

// NewController validates dependencies and returns a Controller.
func NewController(deps Dependencies, opts Options) (*Controller, error) {
	var missing []string
	if deps.Voices == nil {
		missing = append(missing, "voices")
	}
	if deps.Transcriber == nil {
		missing = append(missing, "transcriber")
	}
	if deps.Prober == nil {
		missing = append(missing, "prober")
	}
	if deps.Tracks == nil {
		missing = append(missing, "tracks")
	}
	if deps.Composer == nil {
		missing = append(missing, "composer")
	}
	if len(missing) > 0 {
		return nil, services.Wrap(services.ErrConfiguration, "render", "new controller", "missing dependencies: "+strings.Join(missing, ", "), nil)
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(nil)
	}
	if opts.Pool == nil {
		opts.Pool = workpool.New(0)
	}
	if opts.MaxWords <= 0 {
		opts.MaxWords = 3
	}
	if opts.TitleGap <= 0 {
		opts.TitleGap = captions.DefaultTitleGap
	}
	return &Controller{
		deps:   deps,
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "render"),
		now:    time.Now,
		active: make(map[string]struct{}),
	}, nil
}

// jobRun is the mutable state of one job.
type jobRun struct {
	job      Job
	state    State
	registry *Registry

	jobDir   string
	output   string
	voice    string
	title    timeline.AudioClip
	body     timeline.AudioClip
	audio    timeline.AudioClip
	draft    string
	segments []captions.Segment
}

type stageFunc func(ctx context.Context, run *jobRun) error

// Run executes job to completion. Cleanup of job artifacts always runs.
func (c *Controller) Run(ctx context.Context, job Job) Result {
	started := c.now()
	if strings.TrimSpace(job.ID) == "" {
		job.ID = uuid.NewString()
	}
	ctx = services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, c.logger)
	persistCtx := context.WithoutCancel(ctx)

	c.setActive(job.ID, true)
	defer c.setActive(job.ID, false)

	run := &jobRun{job: job, state: StateInit, registry: NewRegistry(c.logger)}
	logger.Info("render job started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("title", job.Title),
		logging.String("source", job.Source),
	)
	if c.deps.Store != nil {
		if err := c.deps.Store.Begin(persistCtx, JobRecord{
			ID:         job.ID,
			Title:      job.Title,
			Source:     job.Source,
			OutputPath: job.OutputPath,
			CreatedAt:  started,
		}); err != nil {
			logger.Warn("failed to record job start", logging.Error(err))
		}
	}

	c.Sweep(ctx, job.Dirs)
	err := c.execute(ctx, run)
	failedIn := run.state
	run.registry.Release(ctx)
	if err == nil {
		c.transition(persistCtx, run, StateCleanedUp)
	} else {
		c.transition(persistCtx, run, StateFailed)
	}
	c.Sweep(ctx, job.Dirs)

	result := Result{
		JobID:   job.ID,
		Title:   job.Title,
		Err:     err,
		Elapsed: c.now().Sub(started),
		State:   run.state,
	}
	if err != nil {
		result.FailedIn = failedIn
		c.reportFailure(persistCtx, logger, result)
	} else {
		result.OutputPath = run.output
		result.PublishedURL = c.publish(ctx, logger, job.ID, run.output)
		c.reportSuccess(persistCtx, logger, result)
	}
	if c.deps.Store != nil {
		if err := c.deps.Store.Finish(persistCtx, result); err != nil {
			logger.Warn("failed to record job result", logging.Error(err))
		}
	}
	return result
}

// Active returns the IDs of jobs currently running on this controller.
func (c *Controller) Active() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.active))
	for id := range c.active {
		ids = append(ids, id)
	}
	return ids
}

func (c *Controller) setActive(id string, active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if active {
		c.active[id] = struct{}{}
	} else {
		delete(c.active, id)
	}
}

func (c *Controller) execute(ctx context.Context, run *jobRun) error {
	if err := c.runStage(ctx, run, StateInit, c.initialize); err != nil {
		return err
	}
	stages := []struct {
		next State
		fn   stageFunc
	}{
		{StateVoicesReady, c.synthesizeVoices},
		{StateAudioReady, c.buildAudio},
		{StateDraftRendered, c.renderDraft},
		{StateCaptionsBuilt, c.buildCaptions},
		{StateFinalRendered, c.renderFinal},
	}
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.runStage(ctx, run, stage.next, stage.fn); err != nil {
			return err
		}
	}
	return nil
}

// runStage runs fn and moves the job to next when it succeeds. INIT runs
// without a transition.
func (c *Controller) runStage(ctx context.Context, run *jobRun, next State, fn stageFunc) error {
	stageCtx := services.WithStage(ctx, strings.ToLower(string(next)))
	logger := logging.WithContext(stageCtx, c.logger)
	started := c.now()
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("from_state", string(run.state)),
	)
	if err := fn(stageCtx, run); err != nil {
		return err
	}
	if next != StateInit {
		c.transition(context.WithoutCancel(ctx), run, next)
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("state", string(run.state)),
		logging.Duration("elapsed", c.now().Sub(started)),
	)
	return nil
}

func (c *Controller) transition(ctx context.Context, run *jobRun, next State) {
	if !run.state.CanTransition(next) {
		logging.WithContext(ctx, c.logger).Error("invalid state transition",
			logging.String("from_state", string(run.state)),
			logging.String("to_state", string(next)),
		)
		return
	}
	run.state = next
	if c.deps.Store == nil {
		return
	}
	if err := c.deps.Store.Transition(ctx, run.job.ID, next); err != nil {
		logging.WithContext(ctx, c.logger).Warn("failed to persist state transition",
			logging.String("state", string(next)),
			logging.Error(err),
		)
	}
}

func (c *Controller) initialize(_ context.Context, run *jobRun) error {
	job := run.job
	if strings.TrimSpace(job.Title) == "" || strings.TrimSpace(job.Body) == "" {
		return services.Wrap(services.ErrValidation, "render", "init", "title and body text are required", nil)
	}
	if strings.TrimSpace(job.BackgroundFolder) == "" {
		return services.Wrap(services.ErrValidation, "render", "init", "background folder is required", nil)
	}
	if job.PauseSeconds < 0 {
		return services.Wrap(services.ErrValidation, "render", "init", fmt.Sprintf("pause must not be negative (got %v)", job.PauseSeconds), nil)
	}
	if err := job.Dirs.Ensure(); err != nil {
		return err
	}
	output, err := job.Dirs.CanonicalOutputPath(job.OutputPath, job.Title)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return services.Wrap(services.ErrFileSystem, "render", "init", "create output directory", err)
	}
	run.output = output

	run.jobDir = run.registry.Track(job.Dirs.JobDir(job.ID))
	if err := os.MkdirAll(run.jobDir, 0o755); err != nil {
		return services.Wrap(services.ErrFileSystem, "render", "init", "create job directory", err)
	}
	return nil
}

type narration struct {
	text string
	dest string
}

func (c *Controller) synthesizeVoices(ctx context.Context, run *jobRun) error {
	voice, err := c.deps.Voices.ResolveVoice(run.job.Voice)
	if err != nil {
		return err
	}
	run.voice = voice

	parts := []narration{
		{text: run.job.Title, dest: run.registry.Track(filepath.Join(run.jobDir, "title.mp3"))},
		{text: run.job.Body, dest: run.registry.Track(filepath.Join(run.jobDir, "body.mp3"))},
	}
	clips, err := workpool.Map(ctx, c.opts.Pool, parts, func(ctx context.Context, _ int, part narration) (timeline.AudioClip, error) {
		if err := c.deps.Voices.Synthesize(ctx, voice, part.text, part.dest); err != nil {
			return timeline.AudioClip{}, err
		}
		duration, err := c.deps.Prober.Duration(ctx, part.dest)
		if err != nil {
			return timeline.AudioClip{}, services.Wrap(services.ErrResourceExhausted, "render", "voices", "synthesized audio is unreadable", err)
		}
		return timeline.AudioClip{Path: part.dest, Duration: duration}, nil
	})
	if err != nil {
		return err
	}
	run.title, run.body = clips[0], clips[1]
	logging.WithContext(ctx, c.logger).Info("narration ready",
		logging.String("voice", voice),
		logging.Float64("title_seconds", run.title.Duration),
		logging.Float64("body_seconds", run.body.Duration),
	)
	return nil
}

func (c *Controller) buildAudio(ctx context.Context, run *jobRun) error {
	out := run.registry.Track(filepath.Join(run.jobDir, "merged-"+run.job.ID+".mp3"))
	audio, err := c.deps.Tracks.BuildAudioTrack(ctx, run.title, run.body, run.job.PauseSeconds, out)
	if err != nil {
		return err
	}
	run.audio = audio
	return nil
}

func (c *Controller) renderDraft(ctx context.Context, run *jobRun) error {
	duration := c.deps.Composer.Duration(run.audio)
	background, err := c.deps.Tracks.BuildBackgroundTrack(ctx, run.job.BackgroundFolder, duration)
	if err != nil {
		return err
	}

	var label *compose.Label
	if c.deps.Labels != nil {
		path, err := c.deps.Labels.Render(ctx, run.jobDir, run.job.ID, run.job.Title)
		if err != nil {
			return err
		}
		label = &compose.Label{
			Path:     run.registry.Track(path),
			Scale:    run.job.LabelScale,
			Duration: run.title.Duration,
		}
	}

	run.draft = run.registry.Track(filepath.Join(run.jobDir, run.job.ID+"_draft.mp4"))
	return c.deps.Composer.RenderDraft(ctx, compose.DraftSpec{
		Background: background,
		Audio:      run.audio,
		Label:      label,
		Output:     run.draft,
	})
}

func (c *Controller) buildCaptions(ctx context.Context, run *jobRun) error {
	words, err := c.deps.Transcriber.Transcribe(ctx, run.audio.Path)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return services.Wrap(services.ErrResourceExhausted, "render", "captions", "transcription returned no words", nil)
	}
	segments := captions.Chunk(captions.RoundWords(words), captions.ChunkOptions{
		MaxWords:   c.opts.MaxWords,
		MaxGap:     c.opts.MaxGap,
		Capitalize: run.job.Style.Capitalize,
	})
	run.segments = captions.StripLeadingTitle(segments, c.opts.TitleGap)
	logging.WithContext(ctx, c.logger).Info("captions built",
		logging.Int("words", len(words)),
		logging.Int("segments", len(segments)),
		logging.Int("kept_segments", len(run.segments)),
	)
	return nil
}

func (c *Controller) renderFinal(ctx context.Context, run *jobRun) error {
	partial := run.registry.Track(partialPath(run.output, run.job.ID))
	if err := c.deps.Composer.RenderFinal(ctx, compose.FinalSpec{
		DraftPath:  run.draft,
		Audio:      run.audio,
		Segments:   run.segments,
		Style:      run.job.Style,
		CaptionDir: run.registry.Track(filepath.Join(run.jobDir, "captions")),
		Output:     partial,
	}); err != nil {
		return err
	}
	if err := os.Rename(partial, run.output); err != nil {
		return services.Wrap(services.ErrFileSystem, "render", "final", "move video into place", err)
	}
	run.registry.Forget(partial)

	if err := os.Remove(run.draft); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "failed to remove draft", "draft_cleanup_failed",
			logging.String("path", run.draft),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "job cleanup will retry"),
			logging.String(logging.FieldImpact, "none"),
		)
	}
	return nil
}

// partialPath is the in-progress name of a job's output; it sits beside
// the final file so the closing rename stays on one filesystem.
func partialPath(output, jobID string) string {
	dir, base := filepath.Split(output)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	short := jobID
	if len(short) > 8 {
		short = short[:8]
	}
	return filepath.Join(dir, base+"."+short+".partial.mp4")
}

// Sweep quarantines stale transient artifacts under dirs. Directories of jobs
// running on this controller are skipped. It is a no-op without a quarantine
// directory or grace period.
func (c *Controller) Sweep(ctx context.Context, dirs WorkingDirectories) {
	if c.opts.QuarantineGrace <= 0 || strings.TrimSpace(dirs.Quarantine) == "" {
		return
	}
	c.mu.Lock()
	active := make(map[string]struct{}, len(c.active))
	for id := range c.active {
		active[id] = struct{}{}
	}
	c.mu.Unlock()

	result := Sweep(ctx, SweepOptions{
		Dirs:       []string{dirs.Root, dirs.Output},
		Quarantine: dirs.Quarantine,
		MaxAge:     c.opts.QuarantineGrace,
		Active:     active,
		Logger:     c.logger,
		Now:        c.now,
	})
	if len(result.Moved) > 0 {
		logging.WithContext(ctx, c.logger).Info("quarantine sweep finished",
			logging.Int("moved", len(result.Moved)),
			logging.Int("errors", len(result.Errors)),
		)
	}
}

func (c *Controller) publish(ctx context.Context, logger *slog.Logger, jobID, output string) string {
	if c.deps.Publisher == nil {
		return ""
	}
	url, err := c.deps.Publisher.Publish(ctx, jobID, output)
	if err != nil {
		logging.WarnWithContext(logger, "failed to publish video", "publish_failed",
			logging.String("path", output),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check publish.bucket and credentials"),
			logging.String(logging.FieldImpact, "video is only available locally"),
		)
		return ""
	}
	return url
}

func (c *Controller) reportSuccess(ctx context.Context, logger *slog.Logger, result Result) {
	logger.Info("render job completed",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.String("output", result.OutputPath),
		logging.Duration("elapsed", result.Elapsed),
	)
	if err := c.deps.Notifier.Publish(ctx, notifications.EventJobCompleted, notifications.Payload{
		"title":   result.Title,
		"output":  result.OutputPath,
		"elapsed": result.Elapsed,
	}); err != nil {
		logger.Debug("completion notification failed", logging.Error(err))
	}
}

func (c *Controller) reportFailure(ctx context.Context, logger *slog.Logger, result Result) {
	logging.ErrorWithContext(logger, "render job failed", "job_failed",
		logging.String("failed_in", string(result.FailedIn)),
		logging.String(logging.FieldErrorKind, services.Kind(result.Err)),
		logging.String(logging.FieldErrorHint, failureHint(result.Err)),
		logging.Duration("elapsed", result.Elapsed),
		logging.Error(result.Err),
	)
	if err := c.deps.Notifier.Publish(ctx, notifications.EventJobFailed, notifications.Payload{
		"title": result.Title,
		"stage": string(result.FailedIn),
		"error": result.Err,
	}); err != nil {
		logger.Debug("failure notification failed", logging.Error(err))
	}
}

func failureHint(err error) string {
	switch {
	case errors.Is(err, services.ErrResourceExhausted):
		return "add background clips or check the synthesis and transcription output"
	case errors.Is(err, services.ErrTimeout):
		return "the external service timed out; retry the job"
	case errors.Is(err, services.ErrExternalService):
		return "check API keys and service availability"
	case errors.Is(err, services.ErrEncoding):
		return "inspect the ffmpeg output in the debug log"
	case errors.Is(err, services.ErrFileSystem):
		return "check directory permissions and free space"
	case errors.Is(err, services.ErrValidation):
		return "fix the job parameters"
	case errors.Is(err, context.Canceled):
		return "job was canceled"
	default:
		return "see the error message"
	}
}
