package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"storyreel/internal/captions"
	"storyreel/internal/logging"
	"storyreel/internal/services"
	"storyreel/internal/services/httpretry"
)

const defaultOpenAITimeout = 120 * time.Second

// OpenAIConfig captures the transcription API settings.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Language       string
	TimeoutSeconds int
}

// OpenAI transcribes through the /audio/transcriptions endpoint.
type OpenAI struct {
	cfg        OpenAIConfig
	httpClient *http.Client
	policy     httpretry.Policy
	timeout    time.Duration
	logger     *slog.Logger
}

// Option customizes the OpenAI client.
type Option func(*OpenAI)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *OpenAI) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithRetryPolicy overrides the retry policy.
func WithRetryPolicy(policy httpretry.Policy) Option {
	return func(o *OpenAI) { o.policy = policy }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *OpenAI) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOpenAI constructs the API-backed transcriber.
func NewOpenAI(cfg OpenAIConfig, opts ...Option) *OpenAI {
	timeout := defaultOpenAITimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	o := &OpenAI{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		policy:     httpretry.Default(),
		timeout:    timeout,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type verboseResponse struct {
	Text  string                   `json:"text"`
	Words []captions.WordTimestamp `json:"words"`
}

// Transcribe uploads audioPath and returns its words.
func (o *OpenAI) Transcribe(ctx context.Context, audioPath string) ([]captions.WordTimestamp, error) {
	if strings.TrimSpace(audioPath) == "" {
		return nil, services.Wrap(services.ErrValidation, stageName, "transcribe", "audio path is empty", nil)
	}
	if o.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "transcribe", "transcription.api_key is not set", nil)
	}
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, services.Wrap(services.ErrFileSystem, stageName, "transcribe", "read audio", err)
	}

	start := time.Now()
	var parsed verboseResponse
	err = o.policy.Do(ctx, "transcription request", func(ctx context.Context) error {
		resp, err := o.request(ctx, filepath.Base(audioPath), audio)
		if err != nil {
			return err
		}
		parsed = resp
		return nil
	})
	if err != nil {
		return nil, services.WrapNetwork(stageName, "transcribe", err)
	}
	words := normalizeWords(parsed.Words)
	if len(words) == 0 {
		return nil, emptyTranscript(audioPath)
	}
	logging.WithContext(ctx, o.logger).Info("narration transcribed",
		logging.String("provider", "openai"),
		logging.Int("words", len(words)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return words, nil
}

func (o *OpenAI) request(ctx context.Context, fileName string, audio []byte) (verboseResponse, error) {
	var parsed verboseResponse
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", fileName)
	if err != nil {
		return parsed, fmt.Errorf("build form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return parsed, fmt.Errorf("build form: %w", err)
	}
	fields := [][2]string{
		{"model", o.cfg.Model},
		{"response_format", "verbose_json"},
		{"timestamp_granularities[]", "word"},
	}
	if o.cfg.Language != "" {
		fields = append(fields, [2]string{"language", o.cfg.Language})
	}
	for _, field := range fields {
		if err := form.WriteField(field[0], field[1]); err != nil {
			return parsed, fmt.Errorf("build form: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return parsed, fmt.Errorf("build form: %w", err)
	}

	endpoint, err := url.JoinPath(o.cfg.BaseURL, "audio", "transcriptions")
	if err != nil {
		return parsed, fmt.Errorf("build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return parsed, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return parsed, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return parsed, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return parsed, httpretry.NewStatusError(resp, data)
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return parsed, fmt.Errorf("decode response: %w (payload snippet: %s)", err, httpretry.Snippet(string(data)))
	}
	return parsed, nil
}
