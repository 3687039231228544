package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"storyreel/internal/captions"
	"storyreel/internal/config"
	"storyreel/internal/services"
)

const stageName = "transcribe"

// Transcriber returns word timings for an audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]captions.WordTimestamp, error)
}

// New selects the configured backend.
func New(cfg *config.Config, logger *slog.Logger) (Transcriber, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "new", "config is nil", nil)
	}
	switch cfg.Transcription.Provider {
	case "", "openai":
		return NewOpenAI(OpenAIConfig{
			APIKey:         cfg.Transcription.APIKey,
			BaseURL:        cfg.Transcription.BaseURL,
			Model:          cfg.Transcription.Model,
			Language:       cfg.Transcription.Language,
			TimeoutSeconds: cfg.Transcription.TimeoutSeconds,
		}, WithLogger(logger)), nil
	case "whisperx":
		return NewWhisperX(WhisperXConfig{
			Model:       cfg.Transcription.WhisperXModel,
			CUDAEnabled: cfg.Transcription.WhisperXCUDAEnabled,
			Language:    cfg.Transcription.Language,
		}), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, stageName, "new",
			fmt.Sprintf("unknown provider %q", cfg.Transcription.Provider), nil)
	}
}

// normalizeWords trims words, drops blanks and untimed entries, and orders
// the result by start time.
func normalizeWords(words []captions.WordTimestamp) []captions.WordTimestamp {
	out := make([]captions.WordTimestamp, 0, len(words))
	for _, w := range words {
		w.Word = strings.TrimSpace(w.Word)
		if w.Word == "" || w.End < w.Start {
			continue
		}
		out = append(out, w)
	}
	slices.SortStableFunc(out, func(a, b captions.WordTimestamp) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		}
		return 0
	})
	return out
}

func emptyTranscript(path string) error {
	return services.Wrap(services.ErrResourceExhausted, stageName, "transcribe", "no words recognized in "+path, nil)
}
