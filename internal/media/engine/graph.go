package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// BuildAudio returns the ffmpeg stream that concatenates spec.Parts.
func BuildAudio(spec AudioSpec) (*ffmpeg.Stream, error) {
	if strings.TrimSpace(spec.Output) == "" {
		return nil, errors.New("audio output path is empty")
	}
	layout := channelLayout(spec.Channels)
	format := ffmpeg.KwArgs{"sample_rates": strconv.Itoa(spec.SampleRate), "channel_layouts": layout}

	inputs := make([]*ffmpeg.Stream, 0, len(spec.Parts))
	for _, part := range spec.Parts {
		var stream *ffmpeg.Stream
		switch {
		case part.Path != "":
			stream = ffmpeg.Input(part.Path).Audio()
		case part.SilenceSeconds > 0:
			source := fmt.Sprintf("anullsrc=r=%d:cl=%s", spec.SampleRate, layout)
			stream = ffmpeg.Input(source, ffmpeg.KwArgs{"f": "lavfi", "t": seconds(part.SilenceSeconds)}).Audio()
		default:
			continue
		}
		inputs = append(inputs, stream.Filter("aformat", nil, format))
	}
	if len(inputs) == 0 {
		return nil, errors.New("audio track has no parts")
	}

	merged := inputs[0]
	if len(inputs) > 1 {
		merged = ffmpeg.Concat(inputs, ffmpeg.KwArgs{"v": 0, "a": 1})
	}
	out := ffmpeg.KwArgs{
		"c:a": "libmp3lame",
		"ar":  strconv.Itoa(spec.SampleRate),
		"ac":  strconv.Itoa(max(spec.Channels, 1)),
	}
	if spec.Bitrate != "" {
		out["b:a"] = spec.Bitrate
	}
	return merged.Output(spec.Output, out).OverWriteOutput(), nil
}

// BuildDraft returns the ffmpeg stream for the draft composition.
func BuildDraft(spec DraftSpec, profile Profile) (*ffmpeg.Stream, error) {
	if len(spec.Backgrounds) == 0 {
		return nil, errors.New("draft has no background segments")
	}
	width, height := strconv.Itoa(spec.Width), strconv.Itoa(spec.Height)

	parts := make([]*ffmpeg.Stream, 0, len(spec.Backgrounds))
	for _, segment := range spec.Backgrounds {
		part := ffmpeg.Input(segment.Path, ffmpeg.KwArgs{"t": seconds(segment.Duration)}).Video().
			Filter("scale", ffmpeg.Args{width, height}, ffmpeg.KwArgs{"force_original_aspect_ratio": "increase"}).
			Filter("crop", ffmpeg.Args{width, height}).
			Filter("setsar", ffmpeg.Args{"1"})
		if spec.FPS > 0 {
			part = part.Filter("fps", ffmpeg.Args{strconv.Itoa(spec.FPS)})
		}
		parts = append(parts, part)
	}

	video := parts[0]
	if len(parts) > 1 {
		video = ffmpeg.Concat(parts, ffmpeg.KwArgs{"v": 1, "a": 0})
	}

	if label := spec.Label; label != nil && label.Path != "" && label.End > label.Start {
		scale := strconv.FormatFloat(label.Scale, 'f', -1, 64)
		image := ffmpeg.Input(label.Path, ffmpeg.KwArgs{"loop": "1", "t": seconds(label.End)}).
			Filter("scale", ffmpeg.Args{"iw*" + scale, "ih*" + scale})
		video = ffmpeg.Filter([]*ffmpeg.Stream{video, image}, "overlay", nil, ffmpeg.KwArgs{
			"x":          "(W-w)/2",
			"y":          "(H-h)/2",
			"eof_action": "pass",
			"enable":     fmt.Sprintf("between(t,%s,%s)", seconds(label.Start), seconds(label.End)),
		})
	}

	return output(video, spec.AudioPath, spec.Output, profile.outputArgs(spec.FPS, spec.Duration)), nil
}

// BuildCaptions returns the ffmpeg stream that burns spec.Overlays, in order,
// into the draft video and re-binds the audio track.
func BuildCaptions(spec CaptionSpec, profile Profile) (*ffmpeg.Stream, error) {
	if strings.TrimSpace(spec.VideoPath) == "" {
		return nil, errors.New("caption pass needs a draft video")
	}
	video := ffmpeg.Input(spec.VideoPath).Video()
	for _, overlay := range spec.Overlays {
		if strings.TrimSpace(overlay.TextFile) == "" {
			continue
		}
		video = video.Filter("drawtext", nil, drawtextArgs(overlay))
	}
	return output(video, spec.AudioPath, spec.Output, profile.outputArgs(spec.FPS, spec.Duration)), nil
}

// output binds audioPath as the audio layer of video. An empty audioPath
// produces a video-only file.
func output(video *ffmpeg.Stream, audioPath, file string, args ffmpeg.KwArgs) *ffmpeg.Stream {
	streams := []*ffmpeg.Stream{video}
	if strings.TrimSpace(audioPath) != "" {
		streams = append(streams, ffmpeg.Input(audioPath).Audio())
	} else {
		delete(args, "c:a")
		delete(args, "b:a")
		args["an"] = ""
	}
	return ffmpeg.Output(streams, file, args).OverWriteOutput()
}

// BuildSplit returns the ffmpeg stream that cuts spec.Input into clips.
func BuildSplit(spec SplitSpec) (*ffmpeg.Stream, error) {
	if spec.SegmentSeconds <= 0 {
		return nil, errors.New("segment length must be positive")
	}
	if !strings.Contains(spec.Pattern, "%") {
		return nil, fmt.Errorf("split pattern %q needs a numeric placeholder", spec.Pattern)
	}
	return ffmpeg.Input(spec.Input).Output(spec.Pattern, ffmpeg.KwArgs{
		"c:v":                    "libx264",
		"an":                     "",
		"f":                      "segment",
		"segment_time":           seconds(spec.SegmentSeconds),
		"reset_timestamps":       "1",
		"force_key_frames":       fmt.Sprintf("expr:gte(t,n_forced*%s)", seconds(spec.SegmentSeconds)),
		"segment_format_options": "movflags=+faststart",
	}).OverWriteOutput(), nil
}

func drawtextArgs(overlay TextOverlay) ffmpeg.KwArgs {
	args := ffmpeg.KwArgs{
		"textfile":  overlay.TextFile,
		"expansion": "none",
		"fontsize":  strconv.Itoa(overlay.FontSize),
		"fontcolor": overlay.Color,
		"x":         overlay.X,
		"y":         overlay.Y,
		"enable":    fmt.Sprintf("between(t,%s,%s)", seconds(overlay.Start), seconds(overlay.End)),
	}
	if overlay.FontFile != "" {
		args["fontfile"] = overlay.FontFile
	}
	if overlay.BoxColor != "" {
		args["box"] = "1"
		args["boxcolor"] = overlay.BoxColor
		args["boxborderw"] = "12"
	} else {
		args["borderw"] = "3"
		args["bordercolor"] = "black"
	}
	return args
}

func channelLayout(channels int) string {
	if channels == 2 {
		return "stereo"
	}
	return "mono"
}

// BuildLabel returns the ffmpeg stream that renders spec to a single frame.
func BuildLabel(spec LabelSpec) (*ffmpeg.Stream, error) {
	if spec.Width <= 0 || spec.Height <= 0 {
		return nil, fmt.Errorf("invalid label size %dx%d", spec.Width, spec.Height)
	}
	if strings.TrimSpace(spec.Output) == "" {
		return nil, errors.New("label output path is empty")
	}
	background := spec.Background
	if background == "" {
		background = "white"
	}
	canvas := ffmpeg.Input(fmt.Sprintf("color=c=%s:s=%dx%d:d=1", background, spec.Width, spec.Height),
		ffmpeg.KwArgs{"f": "lavfi"}).Video()
	if spec.AvatarPath != "" && spec.AvatarSize > 0 {
		size := strconv.Itoa(spec.AvatarSize)
		avatar := ffmpeg.Input(spec.AvatarPath).Video().Filter("scale", ffmpeg.Args{size, size})
		canvas = ffmpeg.Filter([]*ffmpeg.Stream{canvas, avatar}, "overlay", nil, ffmpeg.KwArgs{
			"x": strconv.Itoa(spec.AvatarX),
			"y": strconv.Itoa(spec.AvatarY),
		})
	}
	for _, text := range spec.Texts {
		if strings.TrimSpace(text.TextFile) == "" {
			continue
		}
		args := ffmpeg.KwArgs{
			"textfile":  text.TextFile,
			"expansion": "none",
			"fontsize":  strconv.Itoa(text.FontSize),
			"fontcolor": text.Color,
			"x":         strconv.Itoa(text.X),
			"y":         strconv.Itoa(text.Y),
		}
		if text.FontFile != "" {
			args["fontfile"] = text.FontFile
		}
		canvas = canvas.Filter("drawtext", nil, args)
	}
	return canvas.Output(spec.Output, ffmpeg.KwArgs{"frames:v": "1"}).OverWriteOutput(), nil
}
