package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"storyreel/internal/logging"
	"storyreel/internal/services"
)

// CommandRunner executes binary with args and returns combined output.
type CommandRunner func(ctx context.Context, binary string, args ...string) ([]byte, error)

// Engine runs ffmpeg graphs.
type Engine struct {
	binary string
	logger *slog.Logger
	runner CommandRunner
}

// Option customizes an Engine.
type Option func(*Engine)

// WithCommandRunner replaces process execution (for testing).
func WithCommandRunner(runner CommandRunner) Option {
	return func(e *Engine) {
		if runner != nil {
			e.runner = runner
		}
	}
}

// New constructs an Engine that invokes the given ffmpeg binary.
func New(binary string, logger *slog.Logger, opts ...Option) *Engine {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	e := &Engine{
		binary: binary,
		logger: logging.NewComponentLogger(logger, "engine"),
		runner: execRunner,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ConcatAudio renders spec.Parts, in order, to spec.Output.
func (e *Engine) ConcatAudio(ctx context.Context, spec AudioSpec) error {
	stream, err := BuildAudio(spec)
	if err != nil {
		return services.Wrap(services.ErrValidation, "engine", "concat audio", "", err)
	}
	return e.Run(ctx, "concat_audio", stream)
}

// RenderDraft renders the caption-free composition.
func (e *Engine) RenderDraft(ctx context.Context, spec DraftSpec, profile Profile) error {
	stream, err := BuildDraft(spec, profile)
	if err != nil {
		return services.Wrap(services.ErrValidation, "engine", "render draft", "", err)
	}
	return e.Run(ctx, "render_draft_"+profile.Name, stream)
}

// RenderCaptions burns caption overlays into a rendered draft.
func (e *Engine) RenderCaptions(ctx context.Context, spec CaptionSpec, profile Profile) error {
	stream, err := BuildCaptions(spec, profile)
	if err != nil {
		return services.Wrap(services.ErrValidation, "engine", "render captions", "", err)
	}
	return e.Run(ctx, "render_captions_"+profile.Name, stream)
}

// RenderLabel renders a label image.
func (e *Engine) RenderLabel(ctx context.Context, spec LabelSpec) error {
	stream, err := BuildLabel(spec)
	if err != nil {
		return services.Wrap(services.ErrValidation, "engine", "render label", "", err)
	}
	return e.Run(ctx, "render_label", stream)
}

// Split cuts a long video into fixed-length clips.
func (e *Engine) Split(ctx context.Context, spec SplitSpec) error {
	stream, err := BuildSplit(spec)
	if err != nil {
		return services.Wrap(services.ErrValidation, "engine", "split", "", err)
	}
	return e.Run(ctx, "split", stream)
}

// Run executes a compiled ffmpeg-go stream. Failures are tagged
// services.ErrEncoding; cancellation is returned as the context error.
func (e *Engine) Run(ctx context.Context, operation string, stream *ffmpeg.Stream) error {
	args := append([]string{"-hide_banner", "-loglevel", "error", "-nostdin"}, stream.GetArgs()...)
	logger := logging.WithContext(ctx, e.logger)
	logger.Debug("ffmpeg invocation",
		logging.String("operation", operation),
		logging.String("command", e.binary+" "+strings.Join(args, " ")),
	)

	started := time.Now()
	output, err := e.runner(ctx, e.binary, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return services.Wrap(services.ErrEncoding, "engine", operation, tail(string(output), 400), err)
	}
	logger.Debug("ffmpeg finished",
		logging.String("operation", operation),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func execRunner(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return output, fmt.Errorf("%s exited with status %d", binary, exitErr.ExitCode())
		}
		return output, err
	}
	return output, nil
}

func tail(text string, limit int) string {
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return text
	}
	return "..." + text[len(text)-limit:]
}
