package workflow

import (
	"strings"

	"storyreel/internal/library"
	"storyreel/internal/render"
	"storyreel/internal/services"
	"storyreel/internal/textutil"
)

// Request asks for one video. Either Story names a stored story, or Title and
// Body carry the narration inline. Video optionally names a stored video
// config; the inline fields override it.
type Request struct {
	Story            string `json:"story,omitempty"`
	Video            string `json:"video,omitempty"`
	Title            string `json:"title,omitempty"`
	Body             string `json:"body,omitempty"`
	BackgroundFolder string `json:"background_folder,omitempty"`
	Voice            string `json:"voice,omitempty"`
	Output           string `json:"output,omitempty"`
	Source           string `json:"-"`
}

// Validate checks that the request names its narration.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Story) != "" {
		return nil
	}
	if strings.TrimSpace(r.Title) == "" || strings.TrimSpace(r.Body) == "" {
		return services.Wrap(services.ErrValidation, "workflow", "request", "request needs a story name or an inline title and body", nil)
	}
	return nil
}

// Resolve builds the render job for req.
func (m *Manager) Resolve(req Request) (render.Job, error) {
	if err := req.Validate(); err != nil {
		return render.Job{}, err
	}

	var video library.VideoConfig
	if name := strings.TrimSpace(req.Video); name != "" {
		loaded, err := m.library.Videos.Get(name)
		if err != nil {
			return render.Job{}, err
		}
		video = loaded
	}
	if folder := strings.TrimSpace(req.BackgroundFolder); folder != "" {
		video.BackgroundClipsFolder = folder
	}
	if voice := strings.TrimSpace(req.Voice); voice != "" {
		video.VoiceName = voice
	}

	var (
		story library.Story
		name  string
	)
	if storyName := strings.TrimSpace(req.Story); storyName != "" {
		loaded, err := m.library.Stories.Get(storyName)
		if err != nil {
			return render.Job{}, err
		}
		story = loaded
		name = storyName
	} else {
		story = library.Story{Title: strings.TrimSpace(req.Title), Content: strings.TrimSpace(req.Body)}
		name = textutil.FileName(story.Title)
	}
	if output := strings.TrimSpace(req.Output); output != "" {
		name = textutil.FileName(output)
	}
	name = strings.TrimLeft(strings.TrimSuffix(name, ".json"), ".")
	if name == "" {
		name = "story"
	}

	job, err := library.Resolve(m.cfg, name, story, video)
	if err != nil {
		return render.Job{}, err
	}
	if req.Source != "" {
		job.Source = req.Source
	}
	return job, nil
}
