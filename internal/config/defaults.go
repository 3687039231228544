package config

const (
	defaultConfigPath       = "~/.config/storyreel/config.toml"
	defaultWorkDir          = "~/.local/share/storyreel/work"
	defaultOutputDir        = "~/.local/share/storyreel/output"
	defaultQuarantineDir    = "~/.local/share/storyreel/quarantine"
	defaultBackgroundDir    = "~/.local/share/storyreel/backgrounds"
	defaultVoiceCacheDir    = "~/.cache/storyreel/voices"
	defaultAssetsDir        = "~/.local/share/storyreel/assets"
	defaultStoriesDir       = "~/.local/share/storyreel/stories"
	defaultVideoConfigsDir  = "~/.local/share/storyreel/videos"
	defaultLogDir           = "~/.local/share/storyreel/logs"
	defaultAPIBind          = "127.0.0.1:7490"
	defaultLogRetentionDays = 30
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"

	defaultVoiceBaseURL      = "https://api.elevenlabs.io"
	defaultVoiceModel        = "eleven_multilingual_v2"
	defaultVoiceOutputFormat = "mp3_44100_128"
	defaultVoiceName         = "random"

	defaultTranscriptionProvider = "openai"
	defaultTranscriptionBaseURL  = "https://api.openai.com/v1"
	defaultTranscriptionModel    = "whisper-1"
	defaultWhisperXModel         = "large-v3"

	defaultRedditBaseURL   = "https://www.reddit.com"
	defaultRedditUserAgent = "storyreel/1.0 (story video generator)"
	defaultRedditListing   = "rising"

	maxAutoWorkers = 8
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:         defaultWorkDir,
			OutputDir:       defaultOutputDir,
			QuarantineDir:   defaultQuarantineDir,
			BackgroundDir:   defaultBackgroundDir,
			VoiceCacheDir:   defaultVoiceCacheDir,
			AssetsDir:       defaultAssetsDir,
			StoriesDir:      defaultStoriesDir,
			VideoConfigsDir: defaultVideoConfigsDir,
			LogDir:          defaultLogDir,
			APIBind:         defaultAPIBind,
		},
		Voice: Voice{
			BaseURL:          defaultVoiceBaseURL,
			Model:            defaultVoiceModel,
			OutputFormat:     defaultVoiceOutputFormat,
			DefaultVoice:     defaultVoiceName,
			Voices:           map[string]string{},
			TimeoutSeconds:   60,
			RetryMaxAttempts: 3,
		},
		Transcription: Transcription{
			Provider:       defaultTranscriptionProvider,
			BaseURL:        defaultTranscriptionBaseURL,
			Model:          defaultTranscriptionModel,
			Language:       "en",
			TimeoutSeconds: 120,
			WhisperXModel:  defaultWhisperXModel,
		},
		Audio: Audio{
			PauseSeconds: 1.0,
			SampleRate:   44100,
			Channels:     1,
			Bitrate:      "128k",
		},
		Video: Video{
			Width:           1080,
			Height:          1920,
			FPS:             30,
			FallbackSeconds: 10,
		},
		Captions: Captions{
			MaxWords:        3,
			MaxGapSeconds:   0.05,
			TitleGapSeconds: 0.99,
			Capitalize:      true,
			FontSize:        72,
			Color:           "white",
			PositionX:       "center",
			PositionY:       "0.85",
			BoxWidth:        864,
		},
		Label: Label{
			Username:   "@storiesbyjt",
			Width:      660,
			Height:     220,
			Scale:      0.8,
			LikeCount:  "99+",
			ShareCount: "9999+",
		},
		Render: Render{
			FFmpegBinary:           "ffmpeg",
			FFprobeBinary:          "ffprobe",
			VideoCodec:             "libx264",
			AudioCodec:             "aac",
			FastPreset:             "ultrafast",
			FastCRF:                28,
			SafePreset:             "medium",
			SafeCRF:                23,
			Threads:                4,
			QuarantineGraceMinutes: 10,
		},
		Reddit: Reddit{
			BaseURL:         defaultRedditBaseURL,
			Source:          "json",
			Listing:         defaultRedditListing,
			Limit:           10,
			UserAgent:       defaultRedditUserAgent,
			TimeoutSeconds:  20,
			PostDelayMillis: 500,
		},
		Publish: Publish{
			Target:          "s3",
			Prefix:          "videos",
			YouTubePrivacy:  "private",
			YouTubeCategory: "24",
		},
		Intake: Intake{
			Topic:   "storyreel.render",
			GroupID: "storyreel",
		},
		Backgrounds: Backgrounds{
			ClipSeconds: 10,
			YtDlpBinary: "yt-dlp",
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			JobCompleted:   true,
			JobFailed:      true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
