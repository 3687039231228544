package render

import (
	"context"
	"time"

	"storyreel/internal/captions"
	"storyreel/internal/compose"
	"storyreel/internal/timeline"
)

// Job is one fully resolved render request.
type Job struct {
	ID               string
	Title            string
	Body             string
	Source           string
	OutputPath       string
	BackgroundFolder string
	Voice            string
	PauseSeconds     float64
	Style            compose.Style
	LabelScale       float64
	Dirs             WorkingDirectories
}

// Result is the outcome of a job. Err is nil on success. FailedIn names the
// state the job was in when it failed.
type Result struct {
	JobID        string
	Title        string
	OutputPath   string
	PublishedURL string
	Err          error
	Elapsed      time.Duration
	State        State
	FailedIn     State
}

// Succeeded reports whether the job produced its output.
func (r Result) Succeeded() bool {
	return r.Err == nil && r.State == StateCleanedUp
}

// Synthesizer produces narration audio. ResolveVoice maps a configured
// voice name (or "random") to the voice used for the whole job.
type Synthesizer interface {
	ResolveVoice(name string) (string, error)
	Synthesize(ctx context.Context, voice, text, dest string) error
}

// Transcriber returns word timestamps for an audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]captions.WordTimestamp, error)
}

// LabelRenderer draws the title label image into dir and returns its path.
type LabelRenderer interface {
	Render(ctx context.Context, dir, id, title string) (string, error)
}

// TrackBuilder assembles the audio and background tracks.
type TrackBuilder interface {
	BuildAudioTrack(ctx context.Context, title, body timeline.AudioClip, silence float64, outPath string) (timeline.AudioClip, error)
	BuildBackgroundTrack(ctx context.Context, folder string, target float64) (timeline.BackgroundTrack, error)
}

// Compositor renders the draft and caption passes.
type Compositor interface {
	Duration(audio timeline.AudioClip) float64
	RenderDraft(ctx context.Context, spec compose.DraftSpec) error
	RenderFinal(ctx context.Context, spec compose.FinalSpec) error
}

// DurationProber reports media durations in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// JobRecord is the persisted description of a job when it starts.
type JobRecord struct {
	ID         string
	Title      string
	Source     string
	OutputPath string
	CreatedAt  time.Time
}

// JobStore persists job progress. Implementations must tolerate being
// called after the job context is canceled.
type JobStore interface {
	Begin(ctx context.Context, record JobRecord) error
	Transition(ctx context.Context, jobID string, state State) error
	Finish(ctx context.Context, result Result) error
}

// Publisher uploads a finished video and returns where it can be fetched.
type Publisher interface {
	Publish(ctx context.Context, jobID, path string) (string, error)
}
