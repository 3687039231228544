package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"storyreel/internal/captions"
	"storyreel/internal/services"
)

// WhisperX defaults.
const (
	DefaultWhisperXModel = "large-v3"
	UVXCommand           = "uvx"
	cudaIndexURL         = "https://download.pytorch.org/whl/cu128"
	pypiIndexURL         = "https://pypi.org/simple"
)

// WhisperXConfig captures the local WhisperX settings.
type WhisperXConfig struct {
	Model       string
	CUDAEnabled bool
	Language    string
}

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// WhisperX runs the whisperx CLI through uvx and reads its JSON output.
type WhisperX struct {
	cfg    WhisperXConfig
	runner CommandRunner
}

// NewWhisperX constructs the local transcriber.
func NewWhisperX(cfg WhisperXConfig) *WhisperX {
	if cfg.Model == "" {
		cfg.Model = DefaultWhisperXModel
	}
	return &WhisperX{cfg: cfg, runner: runCommand}
}

// WithCommandRunner sets a custom command runner (for testing).
func (w *WhisperX) WithCommandRunner(runner CommandRunner) *WhisperX {
	if runner != nil {
		w.runner = runner
	}
	return w
}

// Transcribe runs whisperx next to the audio file and parses its words.
func (w *WhisperX) Transcribe(ctx context.Context, audioPath string) ([]captions.WordTimestamp, error) {
	if strings.TrimSpace(audioPath) == "" {
		return nil, services.Wrap(services.ErrValidation, stageName, "whisperx", "audio path is empty", nil)
	}
	outputDir, err := os.MkdirTemp(filepath.Dir(audioPath), "whisperx-")
	if err != nil {
		return nil, services.Wrap(services.ErrFileSystem, stageName, "whisperx", "create output dir", err)
	}
	defer os.RemoveAll(outputDir)

	if err := w.runner(ctx, UVXCommand, w.buildArgs(audioPath, outputDir)...); err != nil {
		return nil, services.Wrap(services.ErrExternalService, stageName, "whisperx", "run", err)
	}
	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	words, err := LoadWhisperXWords(filepath.Join(outputDir, base+".json"))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, stageName, "whisperx", "read output", err)
	}
	words = normalizeWords(words)
	if len(words) == 0 {
		return nil, emptyTranscript(audioPath)
	}
	return words, nil
}

func (w *WhisperX) buildArgs(source, outputDir string) []string {
	args := make([]string, 0, 24)
	if w.cfg.CUDAEnabled {
		args = append(args, "--index-url", cudaIndexURL, "--extra-index-url", pypiIndexURL)
	} else {
		args = append(args, "--index-url", pypiIndexURL)
	}
	args = append(args,
		"whisperx",
		source,
		"--model", w.cfg.Model,
		"--output_dir", outputDir,
		"--output_format", "json",
		"--vad_method", "silero",
	)
	if lang := strings.TrimSpace(w.cfg.Language); lang != "" {
		args = append(args, "--language", lang)
	}
	if w.cfg.CUDAEnabled {
		args = append(args, "--device", "cuda")
	} else {
		args = append(args, "--device", "cpu", "--compute_type", "float32")
	}
	return args
}

// whisperXWord has optional timings; words whisperx could not align carry
// neither start nor end.
type whisperXWord struct {
	Word  string   `json:"word"`
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
}

type whisperXPayload struct {
	Segments []struct {
		Words []whisperXWord `json:"words"`
	} `json:"segments"`
}

// LoadWhisperXWords reads the aligned words from a whisperx JSON file.
// Unaligned words are dropped.
func LoadWhisperXWords(jsonPath string) ([]captions.WordTimestamp, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}
	var words []captions.WordTimestamp
	for _, seg := range payload.Segments {
		for _, word := range seg.Words {
			if word.Start == nil || word.End == nil {
				continue
			}
			words = append(words, captions.WordTimestamp{Word: word.Word, Start: *word.Start, End: *word.End})
		}
	}
	return words, nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
