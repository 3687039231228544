package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Validate ensures the configuration is usable. Credentials for external
// services are checked by the commands that need them, not here.
func (c *Config) Validate() error {
	if err := c.validateVoice(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateComposition(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateReddit(); err != nil {
		return err
	}
	if err := c.validateIntegrations(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateVoice() error {
	if err := ensurePositiveMap(map[string]int{
		"voice.timeout_seconds":    c.Voice.TimeoutSeconds,
		"voice.retry_max_attempts": c.Voice.RetryMaxAttempts,
	}); err != nil {
		return err
	}
	name := strings.ToLower(c.Voice.DefaultVoice)
	if name != defaultVoiceName && len(c.Voice.Voices) > 0 {
		if _, ok := c.Voice.Voices[name]; !ok {
			return fmt.Errorf("voice.default_voice %q is not defined in voice.voices", c.Voice.DefaultVoice)
		}
	}
	return nil
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.Provider {
	case "openai", "whisperx":
	default:
		return fmt.Errorf("transcription.provider must be \"openai\" or \"whisperx\", got %q", c.Transcription.Provider)
	}
	if c.Transcription.TimeoutSeconds <= 0 {
		return errors.New("transcription.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateComposition() error {
	if err := ensurePositiveMap(map[string]int{
		"audio.sample_rate":  c.Audio.SampleRate,
		"audio.channels":     c.Audio.Channels,
		"video.width":        c.Video.Width,
		"video.height":       c.Video.Height,
		"video.fps":          c.Video.FPS,
		"captions.max_words": c.Captions.MaxWords,
		"captions.font_size": c.Captions.FontSize,
		"captions.box_width": c.Captions.BoxWidth,
		"label.width":        c.Label.Width,
		"label.height":       c.Label.Height,
	}); err != nil {
		return err
	}
	if c.Audio.PauseSeconds < 0 {
		return errors.New("audio.pause_seconds must be >= 0")
	}
	if c.Video.FallbackSeconds <= 0 {
		return errors.New("video.fallback_seconds must be positive")
	}
	if c.Captions.MaxGapSeconds < 0 {
		return errors.New("captions.max_gap_seconds must be >= 0")
	}
	if c.Captions.TitleGapSeconds <= 0 {
		return errors.New("captions.title_gap_seconds must be positive")
	}
	if !validAnchor(c.Captions.PositionX, "left", "center", "right") {
		return fmt.Errorf("captions.position_x must be left, center, right, a fraction or a pixel offset, got %q", c.Captions.PositionX)
	}
	if !validAnchor(c.Captions.PositionY, "top", "center", "bottom") {
		return fmt.Errorf("captions.position_y must be top, center, bottom, a fraction or a pixel offset, got %q", c.Captions.PositionY)
	}
	if c.Label.Scale <= 0 || c.Label.Scale > 1 {
		return errors.New("label.scale must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.Workers < 0 {
		return errors.New("render.workers must be >= 0 (0 selects min(cpus, 8))")
	}
	if c.Render.Threads < 0 {
		return errors.New("render.threads must be >= 0")
	}
	if c.Render.VideoCodec == "" {
		return errors.New("render.video_codec must be set")
	}
	if c.Render.AudioCodec == "" {
		return errors.New("render.audio_codec must be set")
	}
	if c.Render.FastCRF < 0 || c.Render.FastCRF > 51 {
		return errors.New("render.fast_crf must be between 0 and 51")
	}
	if c.Render.SafeCRF < 0 || c.Render.SafeCRF > 51 {
		return errors.New("render.safe_crf must be between 0 and 51")
	}
	if c.Render.QuarantineGraceMinutes < 0 {
		return errors.New("render.quarantine_grace_minutes must be >= 0")
	}
	if c.Backgrounds.ClipSeconds <= 0 {
		return errors.New("backgrounds.clip_seconds must be positive")
	}
	return nil
}

func (c *Config) validateReddit() error {
	switch c.Reddit.Source {
	case "json", "rss", "api":
	default:
		return fmt.Errorf("reddit.source must be json, rss or api, got %q", c.Reddit.Source)
	}
	switch c.Reddit.Listing {
	case "hot", "new", "rising", "top":
	default:
		return fmt.Errorf("reddit.listing must be one of hot, new, rising, top, got %q", c.Reddit.Listing)
	}
	if err := ensurePositiveMap(map[string]int{
		"reddit.limit":           c.Reddit.Limit,
		"reddit.timeout_seconds": c.Reddit.TimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Reddit.PollIntervalSeconds < 0 {
		return errors.New("reddit.poll_interval_seconds must be >= 0")
	}
	if c.Reddit.PostDelayMillis < 0 {
		return errors.New("reddit.post_delay_millis must be >= 0")
	}
	return nil
}

func (c *Config) validateIntegrations() error {
	if c.Publish.Enabled {
		switch c.Publish.Target {
		case "s3":
			if c.Publish.Bucket == "" {
				return errors.New("publish.bucket must be set when publish.target is s3")
			}
		case "youtube":
			if c.Publish.YouTubeServiceAccount == "" {
				return errors.New("publish.youtube_service_account must be set when publish.target is youtube")
			}
			switch c.Publish.YouTubePrivacy {
			case "private", "unlisted", "public":
			default:
				return fmt.Errorf("publish.youtube_privacy must be private, unlisted or public, got %q", c.Publish.YouTubePrivacy)
			}
		default:
			return fmt.Errorf("publish.target must be s3 or youtube, got %q", c.Publish.Target)
		}
	}
	if c.Publish.PresignMinutes < 0 {
		return errors.New("publish.presign_minutes must be >= 0")
	}
	if c.Intake.Enabled {
		if len(c.Intake.Brokers) == 0 {
			return errors.New("intake.brokers must be set when intake.enabled is true (or set KAFKA_BROKERS)")
		}
		if c.Intake.Topic == "" {
			return errors.New("intake.topic must be set when intake.enabled is true")
		}
		if c.Intake.GroupID == "" {
			return errors.New("intake.group_id must be set when intake.enabled is true")
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}

func validAnchor(value string, keywords ...string) bool {
	for _, keyword := range keywords {
		if value == keyword {
			return true
		}
	}
	number, err := strconv.ParseFloat(value, 64)
	return err == nil && number >= 0
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
