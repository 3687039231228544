package engine

// AudioPart is one piece of a concatenated audio track: a file, or silence
// of SilenceSeconds when Path is empty.
type AudioPart struct {
	Path           string
	SilenceSeconds float64
}

// AudioSpec concatenates parts, in order, into a compressed audio file.
type AudioSpec struct {
	Parts      []AudioPart
	Output     string
	SampleRate int
	Channels   int
	Bitrate    string
}

// VideoSegment is a background file used over [0, Duration].
type VideoSegment struct {
	Path     string
	Duration float64
}

// ImageOverlay is a still image centered on the frame, scaled by Scale and
// visible during [Start, End].
type ImageOverlay struct {
	Path  string
	Scale float64
	Start float64
	End   float64
}

// DraftSpec describes the caption-free composition: stitched background,
// bound audio and an optional label overlay.
type DraftSpec struct {
	Backgrounds []VideoSegment
	AudioPath   string
	Label       *ImageOverlay
	Width       int
	Height      int
	FPS         int
	Duration    float64
	Output      string
}

// TextOverlay is one timed caption. TextFile holds the caption text, which
// keeps arbitrary punctuation out of the filter graph. X and Y are ffmpeg
// drawtext expressions.
type TextOverlay struct {
	TextFile string
	Start    float64
	End      float64
	X        string
	Y        string
	FontFile string
	FontSize int
	Color    string
	BoxColor string
}

// CaptionSpec describes the caption pass over a rendered draft. Overlays are
// applied in slice order.
type CaptionSpec struct {
	VideoPath string
	AudioPath string
	Overlays  []TextOverlay
	FPS       int
	Duration  float64
	Output    string
}

// SplitSpec cuts a long video into fixed-length clips named by Pattern, a
// printf-style template such as "clip-%03d.mp4".
type SplitSpec struct {
	Input          string
	SegmentSeconds float64
	Pattern        string
}

// LabelText is one line of text drawn on a label canvas at pixel X, Y.
type LabelText struct {
	TextFile string
	X        int
	Y        int
	FontFile string
	FontSize int
	Color    string
}

// LabelSpec renders a single still image: a solid canvas, an optional
// square avatar, and text lines drawn in order.
type LabelSpec struct {
	Width      int
	Height     int
	Background string
	AvatarPath string
	AvatarSize int
	AvatarX    int
	AvatarY    int
	Texts      []LabelText
	Output     string
}
