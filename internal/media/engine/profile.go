package engine

import (
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"storyreel/internal/config"
)

// Profile is one set of encoder parameters.
type Profile struct {
	Name         string
	VideoCodec   string
	AudioCodec   string
	AudioBitrate string
	Preset       string
	CRF          int
	Threads      int
}

// Profile names.
const (
	ProfileFast = "fast"
	ProfileSafe = "safe"
)

// ProfilesFromConfig returns the fast and safe encoder profiles.
func ProfilesFromConfig(cfg config.Render) (fast Profile, safe Profile) {
	fast = Profile{
		Name:         ProfileFast,
		VideoCodec:   cfg.VideoCodec,
		AudioCodec:   cfg.AudioCodec,
		AudioBitrate: "192k",
		Preset:       cfg.FastPreset,
		CRF:          cfg.FastCRF,
		Threads:      cfg.Threads,
	}
	safe = Profile{
		Name:         ProfileSafe,
		VideoCodec:   cfg.VideoCodec,
		AudioCodec:   cfg.AudioCodec,
		AudioBitrate: "192k",
		Preset:       cfg.SafePreset,
		CRF:          cfg.SafeCRF,
		Threads:      cfg.Threads,
	}
	return fast, safe
}

func (p Profile) outputArgs(fps int, duration float64) ffmpeg.KwArgs {
	args := ffmpeg.KwArgs{
		"c:v":      p.VideoCodec,
		"c:a":      p.AudioCodec,
		"pix_fmt":  "yuv420p",
		"movflags": "+faststart",
	}
	if p.Preset != "" {
		args["preset"] = p.Preset
	}
	if p.CRF > 0 {
		args["crf"] = strconv.Itoa(p.CRF)
	}
	if p.AudioBitrate != "" {
		args["b:a"] = p.AudioBitrate
	}
	if p.Threads > 0 {
		args["threads"] = strconv.Itoa(p.Threads)
	}
	if fps > 0 {
		args["r"] = strconv.Itoa(fps)
	}
	if duration > 0 {
		args["t"] = seconds(duration)
	}
	return args
}

func seconds(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}
