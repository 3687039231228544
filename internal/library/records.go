package library

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Story is a scraped post.
type Story struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Subreddit   string `json:"subreddit"`
	Timestamp   string `json:"timestamp"`
	Score       string `json:"score"`
	Author      string `json:"author"`
	NumComments string `json:"num_comments"`
	Content     string `json:"content"`
	ScrapeDate  string `json:"scrape_date"`
}

// Validate checks the fields a render needs.
func (s Story) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("story title is required")
	}
	if strings.TrimSpace(s.Content) == "" {
		return fmt.Errorf("story content is required")
	}
	return nil
}

// VideoConfig holds per-video rendering choices. The folder and file name
// fields for temporary voices and audio are accepted for compatibility and
// ignored; jobs use their own working directories.
type VideoConfig struct {
	MainText              string   `json:"main_text"`
	TitleText             string   `json:"title_text"`
	VideoOutputPath       string   `json:"video_output_path"`
	BackgroundClipsFolder string   `json:"background_clips_folder"`
	TempVoicesFolder      string   `json:"temp_voices_folder,omitempty"`
	TempAudioFolder       string   `json:"temp_audio_folder,omitempty"`
	Capitalize            *bool    `json:"capitalize,omitempty"`
	AudioTempName         string   `json:"audio_temp_name,omitempty"`
	PauseDuration         *float64 `json:"pause_duration,omitempty"`
	BackgroundAudioPath   string   `json:"background_audio_path,omitempty"`
	VoiceName             string   `json:"voice_name"`
	VoiceTitleOutputName  string   `json:"voice_title_output_name,omitempty"`
	VoiceTextOutputName   string   `json:"voice_text_output_name,omitempty"`
	LabelName             string   `json:"label_name,omitempty"`
	FontPath              string   `json:"font_path"`
	FontSize              int      `json:"font_size"`
	Color                 string   `json:"color"`
	Position              Position `json:"position"`
	CaptionBoxWidth       int      `json:"caption_box_width"`
}

// Validate checks numeric ranges.
func (v VideoConfig) Validate() error {
	if v.PauseDuration != nil && *v.PauseDuration < 0 {
		return fmt.Errorf("pause_duration must be >= 0")
	}
	if v.FontSize < 0 {
		return fmt.Errorf("font_size must be >= 0")
	}
	if v.CaptionBoxWidth < 0 {
		return fmt.Errorf("caption_box_width must be >= 0")
	}
	return nil
}

// Position is a caption position given either as a single keyword
// ("center") or as an [x, y] pair whose members are keywords, fractions or
// pixel offsets.
type Position struct {
	X string
	Y string
}

// IsZero reports whether no position was given.
func (p Position) IsZero() bool {
	return p.X == "" && p.Y == ""
}

// UnmarshalJSON accepts "center", ["center", 0.8] and ["left", "bottom"].
func (p *Position) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*p = Position{X: single}
		if strings.EqualFold(strings.TrimSpace(single), "center") {
			p.Y = single
		}
		return nil
	}
	var pair []any
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("position must be a string or [x, y]: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("position must have two members, got %d", len(pair))
	}
	values := make([]string, 2)
	for i, member := range pair {
		switch v := member.(type) {
		case string:
			values[i] = v
		case float64:
			values[i] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return fmt.Errorf("position member %d has unsupported type %T", i, member)
		}
	}
	*p = Position{X: values[0], Y: values[1]}
	return nil
}

// MarshalJSON writes the pair form, or a bare string for a single keyword.
func (p Position) MarshalJSON() ([]byte, error) {
	if p.Y == "" || (p.X == p.Y && strings.EqualFold(p.X, "center")) {
		return json.Marshal(p.X)
	}
	return json.Marshal([]string{p.X, p.Y})
}
