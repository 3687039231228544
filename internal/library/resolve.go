package library

import (
	"path/filepath"
	"strings"

	"storyreel/internal/captions"
	"storyreel/internal/compose"
	"storyreel/internal/config"
	"storyreel/internal/render"
	"storyreel/internal/services"
)

// Resolve builds a render job from a named story and a video config. The
// story supplies the narration (title and body) and the output name; the
// video config supplies voice, pause, background folder and caption style,
// each falling back to the configured defaults.
func Resolve(cfg *config.Config, storyName string, story Story, video VideoConfig) (render.Job, error) {
	var job render.Job
	name, err := NormalizeName(storyName)
	if err != nil {
		return job, services.Wrap(services.ErrValidation, "library", "resolve", "", err)
	}
	title := firstNonEmpty(story.Title, video.TitleText)
	body := firstNonEmpty(story.Content, video.MainText)
	if title == "" || body == "" {
		return job, services.Wrap(services.ErrValidation, "library", "resolve", "story "+name+" has no title or content", nil)
	}
	if err := video.Validate(); err != nil {
		return job, services.Wrap(services.ErrValidation, "library", "resolve", "", err)
	}

	style, err := compose.StyleFromConfig(cfg.Captions)
	if err != nil {
		return job, services.Wrap(services.ErrConfiguration, "library", "resolve", "caption defaults", err)
	}
	if video.FontPath != "" {
		style.FontFile = video.FontPath
	}
	if video.FontSize > 0 {
		style.FontSize = video.FontSize
	}
	if video.Color != "" {
		style.Color = video.Color
	}
	if video.CaptionBoxWidth > 0 {
		style.BoxWidth = video.CaptionBoxWidth
	}
	if !video.Position.IsZero() {
		y := video.Position.Y
		if y == "" {
			y = cfg.Captions.PositionY
		}
		position, err := captions.ParsePosition(video.Position.X, y)
		if err != nil {
			return job, services.Wrap(services.ErrValidation, "library", "resolve", "position", err)
		}
		style.Position = position
	}
	if video.Capitalize != nil {
		style.Capitalize = *video.Capitalize
	}

	pause := cfg.Audio.PauseSeconds
	if video.PauseDuration != nil {
		pause = *video.PauseDuration
	}

	job = render.Job{
		Title:            title,
		Body:             body,
		Source:           "library:" + name,
		OutputPath:       name,
		BackgroundFolder: backgroundFolder(cfg.Paths.BackgroundDir, video.BackgroundClipsFolder),
		Voice:            firstNonEmpty(video.VoiceName, cfg.Voice.DefaultVoice),
		PauseSeconds:     pause,
		Style:            style,
		LabelScale:       cfg.Label.Scale,
		Dirs:             render.DirectoriesFromConfig(cfg),
	}
	return job, nil
}

// backgroundFolder resolves a video config folder against the background
// library. An empty folder uses the library root.
func backgroundFolder(root, folder string) string {
	folder = strings.TrimSpace(folder)
	switch {
	case folder == "":
		return root
	case strings.HasPrefix(folder, "~"):
		if expanded, err := config.ExpandPath(folder); err == nil {
			return expanded
		}
		return folder
	case filepath.IsAbs(folder):
		return folder
	default:
		return filepath.Join(root, folder)
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
