package compose

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"storyreel/internal/captions"
	"storyreel/internal/logging"
	"storyreel/internal/media/engine"
	"storyreel/internal/services"
	"storyreel/internal/timeline"
	"storyreel/internal/workpool"
)

// Renderer encodes composition passes.
type Renderer interface {
	RenderDraft(ctx context.Context, spec engine.DraftSpec, profile engine.Profile) error
	RenderCaptions(ctx context.Context, spec engine.CaptionSpec, profile engine.Profile) error
}

// Geometry is the output frame size and rate.
type Geometry struct {
	Width  int
	Height int
	FPS    int
}

// Label is the title label image, centered, scaled by Scale and shown from
// the start of the video for Duration seconds.
type Label struct {
	Path     string
	Scale    float64
	Duration float64
}

// DraftSpec is the input of the draft pass.
type DraftSpec struct {
	Background timeline.BackgroundTrack
	Audio      timeline.AudioClip
	Label      *Label
	Output     string
}

// FinalSpec is the input of the caption pass. CaptionDir receives the
// caption text files.
type FinalSpec struct {
	DraftPath  string
	Audio      timeline.AudioClip
	Segments   []captions.Segment
	Style      Style
	CaptionDir string
	Output     string
}

// Composer runs the draft and caption passes.
type Composer struct {
	renderer Renderer
	fast     engine.Profile
	safe     engine.Profile
	geometry Geometry
	fallback float64
	pool     *workpool.Pool
	logger   *slog.Logger
}

// Option customizes a Composer.
type Option func(*Composer)

// WithProfiles sets the fast and safe encoder profiles.
func WithProfiles(fast, safe engine.Profile) Option {
	return func(c *Composer) {
		c.fast = fast
		c.safe = safe
	}
}

// WithGeometry sets the output frame size and rate.
func WithGeometry(geometry Geometry) Option {
	return func(c *Composer) {
		c.geometry = geometry
	}
}

// WithFallbackDuration sets the video-only length used when the audio
// duration is unknown.
func WithFallbackDuration(seconds float64) Option {
	return func(c *Composer) {
		if seconds > 0 {
			c.fallback = seconds
		}
	}
}

// WithPool sets the pool used to build caption overlays.
func WithPool(pool *workpool.Pool) Option {
	return func(c *Composer) {
		c.pool = pool
	}
}

// WithLogger sets the composer logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Composer) {
		c.logger = logger
	}
}

// New constructs a Composer.
func New(renderer Renderer, opts ...Option) *Composer {
	c := &Composer{
		renderer: renderer,
		fast:     engine.Profile{Name: engine.ProfileFast, VideoCodec: "libx264", AudioCodec: "aac", Preset: "ultrafast", CRF: 28},
		safe:     engine.Profile{Name: engine.ProfileSafe, VideoCodec: "libx264", AudioCodec: "aac", Preset: "medium", CRF: 23},
		geometry: Geometry{Width: 1080, Height: 1920, FPS: 30},
		fallback: 10,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "compose")
	return c
}

// Duration is the composition length for an audio track: its duration, or
// the fallback when that is unknown.
func (c *Composer) Duration(audio timeline.AudioClip) float64 {
	if audio.Duration > 0 {
		return audio.Duration
	}
	return c.fallback
}

// RenderDraft renders background, bound audio and label to spec.Output.
func (c *Composer) RenderDraft(ctx context.Context, spec DraftSpec) error {
	if len(spec.Background.Clips) == 0 {
		return services.Wrap(services.ErrValidation, "compose", "render draft", "background track is empty", nil)
	}
	draft := engine.DraftSpec{
		Backgrounds: spec.Background.Segments(),
		AudioPath:   c.audioPath(spec.Audio),
		Width:       c.geometry.Width,
		Height:      c.geometry.Height,
		FPS:         c.geometry.FPS,
		Duration:    c.Duration(spec.Audio),
		Output:      spec.Output,
	}
	if spec.Label != nil && spec.Label.Path != "" && spec.Label.Duration > 0 {
		draft.Label = &engine.ImageOverlay{
			Path:  spec.Label.Path,
			Scale: spec.Label.Scale,
			Start: 0,
			End:   min(spec.Label.Duration, draft.Duration),
		}
	}
	return c.encode(ctx, "draft", spec.Output, func(profile engine.Profile) error {
		return c.renderer.RenderDraft(ctx, draft, profile)
	})
}

// RenderFinal burns caption overlays into the draft and writes spec.Output.
func (c *Composer) RenderFinal(ctx context.Context, spec FinalSpec) error {
	if spec.DraftPath == "" {
		return services.Wrap(services.ErrValidation, "compose", "render final", "draft path is empty", nil)
	}
	if _, err := os.Stat(spec.DraftPath); err != nil {
		return services.Wrap(services.ErrFileSystem, "compose", "render final", "draft is not readable", err)
	}
	captionDir := spec.CaptionDir
	if captionDir == "" {
		captionDir = filepath.Join(filepath.Dir(spec.DraftPath), "captions")
	}
	overlays, err := BuildOverlays(ctx, c.pool, spec.Segments, spec.Style, captionDir)
	if err != nil {
		return err
	}
	final := engine.CaptionSpec{
		VideoPath: spec.DraftPath,
		AudioPath: c.audioPath(spec.Audio),
		Overlays:  overlays,
		FPS:       c.geometry.FPS,
		Duration:  c.Duration(spec.Audio),
		Output:    spec.Output,
	}
	logging.WithContext(ctx, c.logger).Debug("caption overlays built",
		logging.Int("segments", len(spec.Segments)),
		logging.Int("overlays", len(overlays)),
	)
	return c.encode(ctx, "final", spec.Output, func(profile engine.Profile) error {
		return c.renderer.RenderCaptions(ctx, final, profile)
	})
}

func (c *Composer) audioPath(audio timeline.AudioClip) string {
	if audio.Duration <= 0 {
		return ""
	}
	return audio.Path
}

// encode runs attempt with the fast profile, then once with the safe profile
// if the encoder failed. Output of a failed attempt is removed.
func (c *Composer) encode(ctx context.Context, pass, output string, attempt func(engine.Profile) error) error {
	logger := logging.WithContext(ctx, c.logger)
	started := time.Now()

	err := attempt(c.fast)
	if err == nil {
		logger.Info("composition pass rendered",
			logging.String("pass", pass),
			logging.String("profile", c.fast.Name),
			logging.String("output", output),
			logging.Duration("elapsed", time.Since(started)),
		)
		return nil
	}
	c.removePartial(logger, output)
	if !errors.Is(err, services.ErrEncoding) {
		return err
	}

	logging.WarnWithContext(logger, "fast encode failed; retrying with safe profile", "encode_retry",
		logging.String("pass", pass),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check ffmpeg stderr in the debug log"),
		logging.String(logging.FieldImpact, "render continues with slower encoder settings"),
	)
	if retryErr := attempt(c.safe); retryErr != nil {
		c.removePartial(logger, output)
		return retryErr
	}
	logger.Info("composition pass rendered",
		logging.String("pass", pass),
		logging.String("profile", c.safe.Name),
		logging.String("output", output),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func (c *Composer) removePartial(logger *slog.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logging.WarnWithContext(logger, "failed to remove partial output", "partial_output_cleanup_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the file manually"),
			logging.String(logging.FieldImpact, "stale partial file left on disk"),
		)
	}
}
