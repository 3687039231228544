package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	WorkDir         string `toml:"work_dir"`
	OutputDir       string `toml:"output_dir"`
	QuarantineDir   string `toml:"quarantine_dir"`
	BackgroundDir   string `toml:"background_dir"`
	VoiceCacheDir   string `toml:"voice_cache_dir"`
	AssetsDir       string `toml:"assets_dir"`
	StoriesDir      string `toml:"stories_dir"`
	VideoConfigsDir string `toml:"video_configs_dir"`
	LogDir          string `toml:"log_dir"`
	APIBind         string `toml:"api_bind"`
	APIToken        string `toml:"api_token"`
}

// Voice contains text-to-speech settings. Voices maps friendly names to
// provider voice identifiers.
type Voice struct {
	APIKey           string            `toml:"api_key"`
	BaseURL          string            `toml:"base_url"`
	Model            string            `toml:"model"`
	OutputFormat     string            `toml:"output_format"`
	DefaultVoice     string            `toml:"default_voice"`
	Voices           map[string]string `toml:"voices"`
	TimeoutSeconds   int               `toml:"timeout_seconds"`
	RetryMaxAttempts int               `toml:"retry_max_attempts"`
}

// Transcription selects and configures the word-level transcription backend.
type Transcription struct {
	Provider            string `toml:"provider"`
	APIKey              string `toml:"api_key"`
	BaseURL             string `toml:"base_url"`
	Model               string `toml:"model"`
	Language            string `toml:"language"`
	TimeoutSeconds      int    `toml:"timeout_seconds"`
	WhisperXModel       string `toml:"whisperx_model"`
	WhisperXCUDAEnabled bool   `toml:"whisperx_cuda_enabled"`
}

// Audio contains narration track settings.
type Audio struct {
	PauseSeconds float64 `toml:"pause_seconds"`
	SampleRate   int     `toml:"sample_rate"`
	Channels     int     `toml:"channels"`
	Bitrate      string  `toml:"bitrate"`
}

// Video contains output geometry and the video-only fallback length.
type Video struct {
	Width           int     `toml:"width"`
	Height          int     `toml:"height"`
	FPS             int     `toml:"fps"`
	FallbackSeconds float64 `toml:"fallback_seconds"`
}

// Captions contains chunking and styling defaults for caption overlays.
type Captions struct {
	MaxWords        int     `toml:"max_words"`
	MaxGapSeconds   float64 `toml:"max_gap_seconds"`
	TitleGapSeconds float64 `toml:"title_gap_seconds"`
	Capitalize      bool    `toml:"capitalize"`
	FontPath        string  `toml:"font_path"`
	FontSize        int     `toml:"font_size"`
	Color           string  `toml:"color"`
	BackgroundColor string  `toml:"background_color"`
	PositionX       string  `toml:"position_x"`
	PositionY       string  `toml:"position_y"`
	BoxWidth        int     `toml:"box_width"`
}

// Label contains settings for the title label overlay.
type Label struct {
	Username      string  `toml:"username"`
	AvatarPath    string  `toml:"avatar_path"`
	FontPath      string  `toml:"font_path"`
	GlyphFontPath string  `toml:"glyph_font_path"` // icons; many text fonts lack them
	Width         int     `toml:"width"`
	Height        int     `toml:"height"`
	Scale         float64 `toml:"scale"`
	LikeCount     string  `toml:"like_count"`
	ShareCount    string  `toml:"share_count"`
}

// Render contains media engine and concurrency settings.
type Render struct {
	Workers                int    `toml:"workers"`
	ParallelBackgrounds    bool   `toml:"parallel_backgrounds"`
	FFmpegBinary           string `toml:"ffmpeg_binary"`
	FFprobeBinary          string `toml:"ffprobe_binary"`
	VideoCodec             string `toml:"video_codec"`
	AudioCodec             string `toml:"audio_codec"`
	FastPreset             string `toml:"fast_preset"`
	FastCRF                int    `toml:"fast_crf"`
	SafePreset             string `toml:"safe_preset"`
	SafeCRF                int    `toml:"safe_crf"`
	Threads                int    `toml:"threads"`
	QuarantineGraceMinutes int    `toml:"quarantine_grace_minutes"`
}

// Reddit contains content acquisition settings.
type Reddit struct {
	BaseURL             string   `toml:"base_url"`
	Source              string   `toml:"source"`
	Subreddits          []string `toml:"subreddits"`
	Listing             string   `toml:"listing"`
	Limit               int      `toml:"limit"`
	UserAgent           string   `toml:"user_agent"`
	TimeoutSeconds      int      `toml:"timeout_seconds"`
	PollIntervalSeconds int      `toml:"poll_interval_seconds"`
	PostDelayMillis     int      `toml:"post_delay_millis"`
	ExtractLinks        bool     `toml:"extract_links"`
}

// Publish contains optional upload settings for finished videos. Target
// selects S3 or YouTube.
type Publish struct {
	Enabled               bool   `toml:"enabled"`
	Target                string `toml:"target"`
	Bucket                string `toml:"bucket"`
	Prefix                string `toml:"prefix"`
	Region                string `toml:"region"`
	Endpoint              string `toml:"endpoint"`
	UsePathStyle          bool   `toml:"use_path_style"`
	PresignMinutes        int    `toml:"presign_minutes"`
	YouTubeServiceAccount string `toml:"youtube_service_account"`
	YouTubePrivacy        string `toml:"youtube_privacy"`
	YouTubeCategory       string `toml:"youtube_category"`
}

// Intake contains optional Kafka settings for queued render requests.
type Intake struct {
	Enabled bool     `toml:"enabled"`
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
	GroupID string   `toml:"group_id"`
}

// Backgrounds contains background library import settings.
type Backgrounds struct {
	ClipSeconds float64 `toml:"clip_seconds"`
	YtDlpBinary string  `toml:"ytdlp_binary"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	JobCompleted   bool   `toml:"job_completed"`
	JobFailed      bool   `toml:"job_failed"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for storyreel.
//
// Configuration sections by subsystem:
//   - Paths: working, output, quarantine and library directories
//   - Voice: ElevenLabs text-to-speech
//   - Transcription: OpenAI Whisper or local WhisperX word timestamps
//   - Audio, Video, Captions, Label: composition defaults
//   - Render: ffmpeg binaries, encoder profiles, worker pool
//   - Reddit: story acquisition
//   - Publish, Intake: optional S3 upload and Kafka job intake
//   - Backgrounds: background clip library import
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Voice         Voice         `toml:"voice"`
	Transcription Transcription `toml:"transcription"`
	Audio         Audio         `toml:"audio"`
	Video         Video         `toml:"video"`
	Captions      Captions      `toml:"captions"`
	Label         Label         `toml:"label"`
	Render        Render        `toml:"render"`
	Reddit        Reddit        `toml:"reddit"`
	Publish       Publish       `toml:"publish"`
	Intake        Intake        `toml:"intake"`
	Backgrounds   Backgrounds   `toml:"backgrounds"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file beside the config file or in the
// working directory is loaded first; existing environment variables win.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	loadDotEnv(resolvedPath)

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func loadDotEnv(configPath string) {
	candidates := []string{".env"}
	if configPath != "" {
		candidates = append([]string{filepath.Join(filepath.Dir(configPath), ".env")}, candidates...)
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err != nil || info.IsDir() {
			continue
		}
		_ = godotenv.Load(candidate)
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("storyreel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a render job writes into.
// The background directory is created on a best-effort basis; an empty one
// surfaces later as a resource error rather than a startup failure.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{
		c.Paths.WorkDir,
		c.Paths.OutputDir,
		c.Paths.QuarantineDir,
		c.Paths.VoiceCacheDir,
		c.Paths.StoriesDir,
		c.Paths.VideoConfigsDir,
		c.Paths.LogDir,
	} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.BackgroundDir) != "" {
		_ = os.MkdirAll(c.Paths.BackgroundDir, 0o755)
	}
	return nil
}

// RenderWorkers returns the worker pool size: the configured value, or
// min(NumCPU, 8) when unset.
func (c *Config) RenderWorkers() int {
	if c.Render.Workers > 0 {
		return c.Render.Workers
	}
	return min(runtime.NumCPU(), maxAutoWorkers)
}

// JobsDatabasePath returns the SQLite job history location.
func (c *Config) JobsDatabasePath() string {
	return filepath.Join(c.Paths.WorkDir, "jobs.db")
}

// LockPath returns the lock file guarding a working directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.WorkDir, "storyreel.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
