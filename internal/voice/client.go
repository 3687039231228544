package voice

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"storyreel/internal/config"
	"storyreel/internal/fileutil"
	"storyreel/internal/logging"
	"storyreel/internal/services"
	"storyreel/internal/services/httpretry"
)

const (
	stageName          = "voice"
	defaultHTTPTimeout = 60 * time.Second
	// RandomVoice selects one of the configured voices per job.
	RandomVoice = "random"
)

// Config captures the runtime settings required to talk to the TTS API.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	OutputFormat   string
	DefaultVoice   string
	Voices         map[string]string
	CacheDir       string
	TimeoutSeconds int
	MaxAttempts    int
}

// ConfigFromSettings maps the voice section and cache directory.
func ConfigFromSettings(cfg *config.Config) Config {
	return Config{
		APIKey:         cfg.Voice.APIKey,
		BaseURL:        cfg.Voice.BaseURL,
		Model:          cfg.Voice.Model,
		OutputFormat:   cfg.Voice.OutputFormat,
		DefaultVoice:   cfg.Voice.DefaultVoice,
		Voices:         cfg.Voice.Voices,
		CacheDir:       cfg.Paths.VoiceCacheDir,
		TimeoutSeconds: cfg.Voice.TimeoutSeconds,
		MaxAttempts:    cfg.Voice.RetryMaxAttempts,
	}
}

// Client synthesizes speech and caches the results.
type Client struct {
	cfg        Config
	httpClient *http.Client
	policy     httpretry.Policy
	timeout    time.Duration
	logger     *slog.Logger
	pick       func(n int) int
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryPolicy overrides the retry policy.
func WithRetryPolicy(policy httpretry.Policy) Option {
	return func(c *Client) { c.policy = policy }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPicker replaces the random index source used for "random" voices.
func WithPicker(pick func(n int) int) Option {
	return func(c *Client) {
		if pick != nil {
			c.pick = pick
		}
	}
}

// NewClient constructs a TTS client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.elevenlabs.io"
	}
	if cfg.Model == "" {
		cfg.Model = "eleven_multilingual_v2"
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "mp3_44100_128"
	}
	policy := httpretry.Default()
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		policy:     policy,
		timeout:    timeout,
		logger:     logging.NewNop(),
		pick:       rand.IntN,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// ResolveVoice maps a voice name to a provider voice ID. An empty name uses
// the configured default. Names missing from the voice map are treated as
// raw voice IDs.
func (c *Client) ResolveVoice(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.TrimSpace(c.cfg.DefaultVoice)
	}
	if name == "" {
		return "", services.Wrap(services.ErrConfiguration, stageName, "resolve voice", "no voice selected and no default configured", nil)
	}
	if strings.EqualFold(name, RandomVoice) {
		ids := c.voiceIDs()
		if len(ids) == 0 {
			return "", services.Wrap(services.ErrConfiguration, stageName, "resolve voice", "voice.voices is empty; random selection needs at least one voice", nil)
		}
		return ids[c.pick(len(ids))], nil
	}
	for key, id := range c.cfg.Voices {
		if strings.EqualFold(key, name) {
			return id, nil
		}
	}
	return name, nil
}

func (c *Client) voiceIDs() []string {
	ids := make([]string, 0, len(c.cfg.Voices))
	for _, id := range c.cfg.Voices {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// CacheKey identifies synthesized audio for a voice, model and text.
func CacheKey(voiceID, model, text string) string {
	sum := sha256.Sum256([]byte(voiceID + "\x00" + model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// Synthesize writes narration for text to dest, reusing cached audio when
// available.
func (c *Client) Synthesize(ctx context.Context, voiceID, text, dest string) error {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return services.Wrap(services.ErrValidation, stageName, "synthesize", "text is empty", nil)
	case strings.TrimSpace(voiceID) == "":
		return services.Wrap(services.ErrValidation, stageName, "synthesize", "voice id is empty", nil)
	case strings.TrimSpace(dest) == "":
		return services.Wrap(services.ErrValidation, stageName, "synthesize", "destination is empty", nil)
	}
	logger := logging.WithContext(ctx, c.logger)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return services.Wrap(services.ErrFileSystem, stageName, "synthesize", "create destination directory", err)
	}

	cachePath := c.cachePath(voiceID, text)
	if cachePath != "" {
		if info, err := os.Stat(cachePath); err == nil && info.Size() > 0 {
			if err := fileutil.CopyFile(cachePath, dest); err != nil {
				return services.Wrap(services.ErrFileSystem, stageName, "synthesize", "copy cached audio", err)
			}
			logger.Debug("voice cache hit", logging.String("cache_path", cachePath), logging.String("dest", dest))
			return nil
		}
	}

	if c.cfg.APIKey == "" {
		return services.Wrap(services.ErrConfiguration, stageName, "synthesize", "voice.api_key is not set", nil)
	}
	start := time.Now()
	var audio []byte
	err := c.policy.Do(ctx, "tts request", func(ctx context.Context) error {
		data, err := c.request(ctx, voiceID, text)
		if err != nil {
			return err
		}
		audio = data
		return nil
	})
	if err != nil {
		return services.WrapNetwork(stageName, "synthesize", err)
	}
	if len(audio) == 0 {
		return services.Wrap(services.ErrResourceExhausted, stageName, "synthesize", "provider returned empty audio", nil)
	}

	if cachePath != "" {
		if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err == nil {
			if err := fileutil.WriteFileAtomic(cachePath, audio, 0o644); err != nil {
				logging.WarnWithContext(logger, "failed to cache synthesized audio", "voice_cache_write_failed",
					logging.String("cache_path", cachePath),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check voice_cache_dir permissions"),
					logging.String(logging.FieldImpact, "narration will be synthesized again next time"),
				)
			}
		}
	}
	if err := fileutil.WriteFileAtomic(dest, audio, 0o644); err != nil {
		return services.Wrap(services.ErrFileSystem, stageName, "synthesize", "write audio", err)
	}
	logger.Info("narration synthesized",
		logging.String("voice_id", voiceID),
		logging.Int("characters", len([]rune(text))),
		logging.Int("bytes", len(audio)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (c *Client) cachePath(voiceID, text string) string {
	dir := strings.TrimSpace(c.cfg.CacheDir)
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, CacheKey(voiceID, c.cfg.Model, text)+".mp3")
}

type ttsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

func (c *Client) request(ctx context.Context, voiceID, text string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint, err := url.JoinPath(c.cfg.BaseURL, "v1", "text-to-speech", voiceID)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}
	endpoint += "?output_format=" + url.QueryEscape(c.cfg.OutputFormat)
	encoded, err := json.Marshal(ttsRequest{Text: text, ModelID: c.cfg.Model})
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, httpretry.NewStatusError(resp, body)
	}
	return body, nil
}
