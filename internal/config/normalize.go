package config

import (
	"fmt"
	"os"
	"strings"

	"storyreel/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeVoice()
	if err := c.normalizeTranscription(); err != nil {
		return err
	}
	if err := c.normalizeStyle(); err != nil {
		return err
	}
	c.normalizeRender()
	c.normalizeReddit()
	c.normalizeIntegrations()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("STORYREEL_WORK_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.WorkDir = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("STORYREEL_OUTPUT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.OutputDir = strings.TrimSpace(value)
	}

	fields := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.work_dir", &c.Paths.WorkDir, defaultWorkDir},
		{"paths.output_dir", &c.Paths.OutputDir, defaultOutputDir},
		{"paths.quarantine_dir", &c.Paths.QuarantineDir, defaultQuarantineDir},
		{"paths.background_dir", &c.Paths.BackgroundDir, defaultBackgroundDir},
		{"paths.voice_cache_dir", &c.Paths.VoiceCacheDir, defaultVoiceCacheDir},
		{"paths.assets_dir", &c.Paths.AssetsDir, defaultAssetsDir},
		{"paths.stories_dir", &c.Paths.StoriesDir, defaultStoriesDir},
		{"paths.video_configs_dir", &c.Paths.VideoConfigsDir, defaultVideoConfigsDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}

	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		c.Paths.APIToken = strings.TrimSpace(os.Getenv("STORYREEL_API_TOKEN"))
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeVoice() {
	c.Voice.APIKey = strings.TrimSpace(c.Voice.APIKey)
	if c.Voice.APIKey == "" {
		if value, ok := os.LookupEnv("ELEVENLABS_API_KEY"); ok {
			c.Voice.APIKey = strings.TrimSpace(value)
		}
	}
	c.Voice.BaseURL = strings.TrimRight(strings.TrimSpace(c.Voice.BaseURL), "/")
	if c.Voice.BaseURL == "" {
		c.Voice.BaseURL = defaultVoiceBaseURL
	}
	c.Voice.Model = strings.TrimSpace(c.Voice.Model)
	if c.Voice.Model == "" {
		c.Voice.Model = defaultVoiceModel
	}
	c.Voice.OutputFormat = strings.TrimSpace(c.Voice.OutputFormat)
	if c.Voice.OutputFormat == "" {
		c.Voice.OutputFormat = defaultVoiceOutputFormat
	}
	c.Voice.DefaultVoice = strings.TrimSpace(c.Voice.DefaultVoice)
	if c.Voice.DefaultVoice == "" {
		c.Voice.DefaultVoice = defaultVoiceName
	}
	voices := make(map[string]string, len(c.Voice.Voices))
	for name, id := range c.Voice.Voices {
		name = strings.ToLower(strings.TrimSpace(name))
		id = strings.TrimSpace(id)
		if name == "" || id == "" {
			continue
		}
		voices[name] = id
	}
	c.Voice.Voices = voices
}

func (c *Config) normalizeTranscription() error {
	c.Transcription.Provider = strings.ToLower(strings.TrimSpace(c.Transcription.Provider))
	if c.Transcription.Provider == "" {
		c.Transcription.Provider = defaultTranscriptionProvider
	}
	c.Transcription.APIKey = strings.TrimSpace(c.Transcription.APIKey)
	if c.Transcription.APIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.Transcription.APIKey = strings.TrimSpace(value)
		}
	}
	c.Transcription.BaseURL = strings.TrimRight(strings.TrimSpace(c.Transcription.BaseURL), "/")
	if c.Transcription.BaseURL == "" {
		c.Transcription.BaseURL = defaultTranscriptionBaseURL
	}
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultTranscriptionModel
	}
	c.Transcription.WhisperXModel = strings.TrimSpace(c.Transcription.WhisperXModel)
	if c.Transcription.WhisperXModel == "" {
		c.Transcription.WhisperXModel = defaultWhisperXModel
	}
	lang, err := language.Normalize(c.Transcription.Language)
	if err != nil {
		return fmt.Errorf("transcription.language: %w", err)
	}
	c.Transcription.Language = lang
	return nil
}

func (c *Config) normalizeStyle() error {
	var err error
	if c.Captions.FontPath = strings.TrimSpace(c.Captions.FontPath); c.Captions.FontPath != "" {
		if c.Captions.FontPath, err = expandPath(c.Captions.FontPath); err != nil {
			return fmt.Errorf("captions.font_path: %w", err)
		}
	}
	if c.Label.FontPath = strings.TrimSpace(c.Label.FontPath); c.Label.FontPath == "" {
		c.Label.FontPath = c.Captions.FontPath
	} else if c.Label.FontPath, err = expandPath(c.Label.FontPath); err != nil {
		return fmt.Errorf("label.font_path: %w", err)
	}
	if c.Label.GlyphFontPath = strings.TrimSpace(c.Label.GlyphFontPath); c.Label.GlyphFontPath == "" {
		c.Label.GlyphFontPath = c.Label.FontPath
	} else if c.Label.GlyphFontPath, err = expandPath(c.Label.GlyphFontPath); err != nil {
		return fmt.Errorf("label.glyph_font_path: %w", err)
	}
	if c.Label.AvatarPath = strings.TrimSpace(c.Label.AvatarPath); c.Label.AvatarPath != "" {
		if c.Label.AvatarPath, err = expandPath(c.Label.AvatarPath); err != nil {
			return fmt.Errorf("label.avatar_path: %w", err)
		}
	}
	c.Captions.Color = strings.TrimSpace(c.Captions.Color)
	if c.Captions.Color == "" {
		c.Captions.Color = "white"
	}
	c.Captions.BackgroundColor = strings.TrimSpace(c.Captions.BackgroundColor)
	c.Captions.PositionX = strings.ToLower(strings.TrimSpace(c.Captions.PositionX))
	if c.Captions.PositionX == "" {
		c.Captions.PositionX = "center"
	}
	c.Captions.PositionY = strings.ToLower(strings.TrimSpace(c.Captions.PositionY))
	if c.Captions.PositionY == "" {
		c.Captions.PositionY = "0.85"
	}
	c.Label.Username = strings.TrimSpace(c.Label.Username)
	return nil
}

func (c *Config) normalizeRender() {
	if value, ok := os.LookupEnv("FFMPEG_PATH"); ok && strings.TrimSpace(value) != "" && strings.TrimSpace(c.Render.FFmpegBinary) == "ffmpeg" {
		c.Render.FFmpegBinary = strings.TrimSpace(value)
	}
	c.Render.FFmpegBinary = strings.TrimSpace(c.Render.FFmpegBinary)
	if c.Render.FFmpegBinary == "" {
		c.Render.FFmpegBinary = "ffmpeg"
	}
	c.Render.FFprobeBinary = strings.TrimSpace(c.Render.FFprobeBinary)
	if c.Render.FFprobeBinary == "" {
		c.Render.FFprobeBinary = "ffprobe"
	}
	c.Render.VideoCodec = strings.TrimSpace(c.Render.VideoCodec)
	c.Render.AudioCodec = strings.TrimSpace(c.Render.AudioCodec)
	c.Render.FastPreset = strings.TrimSpace(c.Render.FastPreset)
	c.Render.SafePreset = strings.TrimSpace(c.Render.SafePreset)
	c.Backgrounds.YtDlpBinary = strings.TrimSpace(c.Backgrounds.YtDlpBinary)
	if c.Backgrounds.YtDlpBinary == "" {
		c.Backgrounds.YtDlpBinary = "yt-dlp"
	}
}

func (c *Config) normalizeReddit() {
	c.Reddit.BaseURL = strings.TrimRight(strings.TrimSpace(c.Reddit.BaseURL), "/")
	if c.Reddit.BaseURL == "" {
		c.Reddit.BaseURL = defaultRedditBaseURL
	}
	c.Reddit.Source = strings.ToLower(strings.TrimSpace(c.Reddit.Source))
	if c.Reddit.Source == "" {
		c.Reddit.Source = "json"
	}
	c.Reddit.Listing = strings.ToLower(strings.TrimSpace(c.Reddit.Listing))
	if c.Reddit.Listing == "" {
		c.Reddit.Listing = defaultRedditListing
	}
	c.Reddit.UserAgent = strings.TrimSpace(c.Reddit.UserAgent)
	if c.Reddit.UserAgent == "" {
		c.Reddit.UserAgent = defaultRedditUserAgent
	}
	subs := make([]string, 0, len(c.Reddit.Subreddits))
	seen := make(map[string]struct{}, len(c.Reddit.Subreddits))
	for _, sub := range c.Reddit.Subreddits {
		sub = strings.TrimPrefix(strings.TrimSpace(sub), "r/")
		key := strings.ToLower(sub)
		if sub == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		subs = append(subs, sub)
	}
	c.Reddit.Subreddits = subs
}

func (c *Config) normalizeIntegrations() {
	c.Publish.Target = strings.ToLower(strings.TrimSpace(c.Publish.Target))
	if c.Publish.Target == "" {
		c.Publish.Target = "s3"
	}
	c.Publish.YouTubePrivacy = strings.ToLower(strings.TrimSpace(c.Publish.YouTubePrivacy))
	if c.Publish.YouTubePrivacy == "" {
		c.Publish.YouTubePrivacy = "private"
	}
	c.Publish.YouTubeCategory = strings.TrimSpace(c.Publish.YouTubeCategory)
	c.Publish.Bucket = strings.TrimSpace(c.Publish.Bucket)
	c.Publish.Prefix = strings.Trim(strings.TrimSpace(c.Publish.Prefix), "/")
	c.Publish.Region = strings.TrimSpace(c.Publish.Region)
	c.Publish.Endpoint = strings.TrimSpace(c.Publish.Endpoint)

	if len(c.Intake.Brokers) == 0 {
		if value, ok := os.LookupEnv("KAFKA_BROKERS"); ok && strings.TrimSpace(value) != "" {
			c.Intake.Brokers = strings.Split(value, ",")
		}
	}
	brokers := make([]string, 0, len(c.Intake.Brokers))
	for _, broker := range c.Intake.Brokers {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	c.Intake.Brokers = brokers
	c.Intake.Topic = strings.TrimSpace(c.Intake.Topic)
	c.Intake.GroupID = strings.TrimSpace(c.Intake.GroupID)

	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
