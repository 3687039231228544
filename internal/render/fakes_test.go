package render

import (
	"context"
	"errors"
	"os"
	"sync"

	"storyreel/internal/captions"
	"storyreel/internal/media/engine"
	"storyreel/internal/services"
)

// fakeMedia stands in for ffmpeg, ffprobe and the voice service. Durations
// are tracked per path so the real timeline and compose code can run.
type fakeMedia struct {
	mu           sync.Mutex
	durations    map[string]float64
	voiceSeconds map[string]float64
	drafts       []engine.DraftSpec
	finals       []engine.CaptionSpec
	profiles     []string
	captionTexts [][]string
	captionFails int
	synthErr     error
	voices       []string
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{
		durations:    make(map[string]float64),
		voiceSeconds: make(map[string]float64),
	}
}

func (f *fakeMedia) ResolveVoice(name string) (string, error) {
	if name == "" || name == "random" {
		return "voice-a", nil
	}
	return name, nil
}

func (f *fakeMedia) Synthesize(_ context.Context, voice, text, dest string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.synthErr != nil {
		return f.synthErr
	}
	f.voices = append(f.voices, voice)
	seconds, ok := f.voiceSeconds[text]
	if !ok {
		seconds = 3.0
	}
	f.durations[dest] = seconds
	return os.WriteFile(dest, []byte(text), 0o644)
}

func (f *fakeMedia) Duration(_ context.Context, path string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seconds, ok := f.durations[path]
	if !ok {
		return 0, errors.New("no such media: " + path)
	}
	return seconds, nil
}

func (f *fakeMedia) ConcatAudio(_ context.Context, spec engine.AudioSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0.0
	for _, part := range spec.Parts {
		if part.Path == "" {
			total += part.SilenceSeconds
			continue
		}
		total += f.durations[part.Path]
	}
	f.durations[spec.Output] = total
	return os.WriteFile(spec.Output, []byte("audio"), 0o644)
}

func (f *fakeMedia) RenderDraft(_ context.Context, spec engine.DraftSpec, profile engine.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drafts = append(f.drafts, spec)
	f.profiles = append(f.profiles, "draft:"+profile.Name)
	return os.WriteFile(spec.Output, []byte("draft"), 0o644)
}

func (f *fakeMedia) RenderCaptions(_ context.Context, spec engine.CaptionSpec, profile engine.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finals = append(f.finals, spec)
	f.profiles = append(f.profiles, "final:"+profile.Name)
	var texts []string
	for _, overlay := range spec.Overlays {
		data, err := os.ReadFile(overlay.TextFile)
		if err != nil {
			return err
		}
		texts = append(texts, string(data))
	}
	f.captionTexts = append(f.captionTexts, texts)
	if f.captionFails > 0 {
		f.captionFails--
		_ = os.WriteFile(spec.Output, []byte("partial"), 0o644)
		return services.Wrap(services.ErrEncoding, "engine", "render_captions_"+profile.Name, "encoder crashed", errors.New("exit status 1"))
	}
	return os.WriteFile(spec.Output, []byte("final"), 0o644)
}

type fakeTranscriber struct {
	words []captions.WordTimestamp
	err   error
	paths []string
	mu    sync.Mutex
}

func (f *fakeTranscriber) Transcribe(_ context.Context, path string) ([]captions.WordTimestamp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
	return f.words, f.err
}

type fakeLabels struct{}

func (fakeLabels) Render(_ context.Context, dir, id, _ string) (string, error) {
	path := dir + "/" + id + "-label.png"
	return path, os.WriteFile(path, []byte("png"), 0o644)
}

type fakeStore struct {
	mu          sync.Mutex
	begun       []JobRecord
	transitions map[string][]State
	results     []Result
}

func newFakeStore() *fakeStore {
	return &fakeStore{transitions: make(map[string][]State)}
}

func (s *fakeStore) Begin(_ context.Context, record JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.begun = append(s.begun, record)
	return nil
}

func (s *fakeStore) Transition(_ context.Context, jobID string, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitions[jobID] = append(s.transitions[jobID], state)
	return nil
}

func (s *fakeStore) Finish(_ context.Context, result Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}
