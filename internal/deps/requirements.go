package deps

import "storyreel/internal/config"

// Requirements lists the binaries the given configuration needs.
func Requirements(cfg *config.Config) []Requirement {
	reqs := []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Render.FFmpegBinary,
			Description: "Required for audio assembly, composition and labels",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Render.FFprobeBinary,
			Description: "Required for media duration probing",
		},
		{
			Name:        "yt-dlp",
			Command:     cfg.Backgrounds.YtDlpBinary,
			Description: "Downloads source videos for the background library",
			Optional:    true,
		},
	}
	if cfg.Transcription.Provider == "whisperx" {
		reqs = append(reqs, Requirement{
			Name:        "uvx",
			Command:     "uvx",
			Description: "Required for WhisperX word timestamps",
		})
	}
	return reqs
}
