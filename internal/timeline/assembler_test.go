package timeline

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"storyreel/internal/media/engine"
	"storyreel/internal/services"
	"storyreel/internal/workpool"
)

type fakeMedia struct {
	mu        sync.Mutex
	durations map[string]float64
	specs     []engine.AudioSpec
	probes    []string
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{durations: make(map[string]float64)}
}

func (f *fakeMedia) set(path string, seconds float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.durations[path] = seconds
}

func (f *fakeMedia) ConcatAudio(_ context.Context, spec engine.AudioSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.specs = append(f.specs, spec)
	total := 0.0
	for _, part := range spec.Parts {
		if part.Path == "" {
			total += part.SilenceSeconds
			continue
		}
		total += f.durations[part.Path]
	}
	f.durations[spec.Output] = total
	return os.WriteFile(spec.Output, []byte("mp3"), 0o644)
}

func (f *fakeMedia) Duration(_ context.Context, path string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes = append(f.probes, path)
	seconds, ok := f.durations[path]
	if !ok {
		return 0, errors.New("unknown file")
	}
	return seconds, nil
}

func writeClips(t *testing.T, media *fakeMedia, dir string, clips map[string]float64) {
	t.Helper()
	for name, seconds := range clips {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write clip: %v", err)
		}
		media.set(path, seconds)
	}
}

func TestBuildAudioTrackPlacesSilenceBetweenTitleAndBody(t *testing.T) {
	media := newFakeMedia()
	media.set("/voices/title.mp3", 2.0)
	media.set("/voices/body.mp3", 3.0)
	out := filepath.Join(t.TempDir(), "audio", "merged.mp3")

	assembler := NewAssembler(media, media)
	clip, err := assembler.BuildAudioTrack(context.Background(),
		AudioClip{Path: "/voices/title.mp3", Duration: 2.0},
		AudioClip{Path: "/voices/body.mp3", Duration: 3.0},
		1.0, out)
	if err != nil {
		t.Fatalf("BuildAudioTrack returned error: %v", err)
	}
	if clip.Path != out {
		t.Fatalf("expected clip bound to %s, got %s", out, clip.Path)
	}
	if math.Abs(clip.Duration-6.0) > 1e-9 {
		t.Fatalf("expected 6.0s merged audio, got %v", clip.Duration)
	}
	if len(media.specs) != 1 {
		t.Fatalf("expected one concat, got %d", len(media.specs))
	}
	parts := media.specs[0].Parts
	if len(parts) != 3 || parts[0].Path != "/voices/title.mp3" || parts[1].Path != "" || parts[1].SilenceSeconds != 1.0 || parts[2].Path != "/voices/body.mp3" {
		t.Fatalf("unexpected part order: %+v", parts)
	}
	if media.probes[len(media.probes)-1] != out {
		t.Fatalf("expected merged file to be re-probed, probes=%v", media.probes)
	}
}

func TestBuildAudioTrackZeroSilenceKeepsOrder(t *testing.T) {
	media := newFakeMedia()
	media.set("/t.mp3", 1.5)
	media.set("/b.mp3", 2.5)
	out := filepath.Join(t.TempDir(), "merged.mp3")

	clip, err := NewAssembler(media, media).BuildAudioTrack(context.Background(), AudioClip{Path: "/t.mp3"}, AudioClip{Path: "/b.mp3"}, 0, out)
	if err != nil {
		t.Fatalf("BuildAudioTrack returned error: %v", err)
	}
	if clip.Duration != 4.0 {
		t.Fatalf("expected 4.0s, got %v", clip.Duration)
	}
	if len(media.specs[0].Parts) != 3 {
		t.Fatalf("expected silence slot to be kept, got %+v", media.specs[0].Parts)
	}
}

func TestBuildAudioTrackRejectsNegativeSilence(t *testing.T) {
	media := newFakeMedia()
	_, err := NewAssembler(media, media).BuildAudioTrack(context.Background(), AudioClip{Path: "/t.mp3"}, AudioClip{Path: "/b.mp3"}, -1, filepath.Join(t.TempDir(), "m.mp3"))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(media.specs) != 0 {
		t.Fatalf("renderer should not run on invalid input")
	}
}

func TestBuildBackgroundTrackTrimsSingleClip(t *testing.T) {
	media := newFakeMedia()
	dir := t.TempDir()
	writeClips(t, media, dir, map[string]float64{"a.mp4": 10, "b.mp4": 10, "c.mp4": 10})

	track, err := NewAssembler(media, media).BuildBackgroundTrack(context.Background(), dir, 6.0)
	if err != nil {
		t.Fatalf("BuildBackgroundTrack returned error: %v", err)
	}
	if len(track.Clips) != 1 {
		t.Fatalf("expected one trimmed clip, got %+v", track.Clips)
	}
	if track.Clips[0].Duration != 6.0 || track.Duration != 6.0 {
		t.Fatalf("expected 6.0s track, got %+v", track)
	}
	if filepath.Dir(track.Clips[0].Path) != dir {
		t.Fatalf("clip %s not from source folder", track.Clips[0].Path)
	}
}

func TestBuildBackgroundTrackStitchesAndTrimsLast(t *testing.T) {
	media := newFakeMedia()
	dir := t.TempDir()
	writeClips(t, media, dir, map[string]float64{"a.mp4": 4, "b.mp4": 3, "c.mp4": 5})

	track, err := NewAssembler(media, media, WithSelector(OrderedSelector{})).BuildBackgroundTrack(context.Background(), dir, 9.5)
	if err != nil {
		t.Fatalf("BuildBackgroundTrack returned error: %v", err)
	}
	want := []ClipSpec{
		{Path: filepath.Join(dir, "a.mp4"), Duration: 4},
		{Path: filepath.Join(dir, "b.mp4"), Duration: 3},
		{Path: filepath.Join(dir, "c.mp4"), Duration: 2.5},
	}
	if len(track.Clips) != len(want) {
		t.Fatalf("expected %d clips, got %+v", len(want), track.Clips)
	}
	for i := range want {
		if track.Clips[i].Path != want[i].Path || math.Abs(track.Clips[i].Duration-want[i].Duration) > 1e-9 {
			t.Fatalf("clip %d = %+v, want %+v", i, track.Clips[i], want[i])
		}
	}
	if track.Duration != 9.5 {
		t.Fatalf("expected 9.5s, got %v", track.Duration)
	}
}

func TestBuildBackgroundTrackParallelMatchesSequential(t *testing.T) {
	dir := t.TempDir()
	clips := map[string]float64{"a.mp4": 2, "b.mp4": 2, "c.mp4": 2, "d.mp4": 2, "e.mp4": 2, "f.mp4": 2}
	targets := []float64{1, 3.3, 7, 11.9}

	for _, target := range targets {
		seqMedia := newFakeMedia()
		writeClips(t, seqMedia, dir, clips)
		parMedia := newFakeMedia()
		writeClips(t, parMedia, dir, clips)

		seq, err := NewAssembler(seqMedia, seqMedia, WithSelector(OrderedSelector{})).BuildBackgroundTrack(context.Background(), dir, target)
		if err != nil {
			t.Fatalf("sequential target %v: %v", target, err)
		}
		par, err := NewAssembler(parMedia, parMedia, WithSelector(OrderedSelector{}), WithParallelPrefetch(workpool.New(4))).BuildBackgroundTrack(context.Background(), dir, target)
		if err != nil {
			t.Fatalf("parallel target %v: %v", target, err)
		}
		if math.Abs(seq.Duration-target) > 1e-9 || math.Abs(par.Duration-target) > 1e-9 {
			t.Fatalf("target %v: durations seq=%v par=%v", target, seq.Duration, par.Duration)
		}
		if len(seq.Clips) != len(par.Clips) {
			t.Fatalf("target %v: clip counts differ seq=%d par=%d", target, len(seq.Clips), len(par.Clips))
		}
		for i := range seq.Clips {
			if seq.Clips[i] != par.Clips[i] {
				t.Fatalf("target %v: clip %d differs: %+v vs %+v", target, i, seq.Clips[i], par.Clips[i])
			}
		}
	}
}

func TestBuildBackgroundTrackRandomNeverReusesClips(t *testing.T) {
	media := newFakeMedia()
	dir := t.TempDir()
	writeClips(t, media, dir, map[string]float64{"a.mp4": 1, "b.mp4": 1, "c.mp4": 1, "d.mp4": 1})

	for range 10 {
		track, err := NewAssembler(media, media, WithParallelPrefetch(workpool.New(3))).BuildBackgroundTrack(context.Background(), dir, 3.5)
		if err != nil {
			t.Fatalf("BuildBackgroundTrack returned error: %v", err)
		}
		seen := make(map[string]bool)
		for _, clip := range track.Clips {
			if seen[clip.Path] {
				t.Fatalf("clip reused: %s", clip.Path)
			}
			seen[clip.Path] = true
			if filepath.Dir(clip.Path) != dir {
				t.Fatalf("clip outside folder: %s", clip.Path)
			}
		}
		if math.Abs(track.Duration-3.5) > 1e-9 {
			t.Fatalf("expected 3.5s, got %v", track.Duration)
		}
	}
}

func TestBuildBackgroundTrackEmptyFolder(t *testing.T) {
	media := newFakeMedia()
	dir := t.TempDir()
	for _, name := range []string{".hidden.mp4", ".DS_Store", "Thumbs.db", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	_, err := NewAssembler(media, media).BuildBackgroundTrack(context.Background(), dir, 5)
	if !errors.Is(err, services.ErrResourceExhausted) {
		t.Fatalf("expected ErrResourceExhausted, got %v", err)
	}
	if len(media.probes) != 0 {
		t.Fatalf("hidden and system files must not be probed: %v", media.probes)
	}
}

func TestBuildBackgroundTrackExhaustion(t *testing.T) {
	media := newFakeMedia()
	dir := t.TempDir()
	writeClips(t, media, dir, map[string]float64{"a.mp4": 2, "b.mp4": 0})
	if err := os.WriteFile(filepath.Join(dir, "broken.mp4"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := NewAssembler(media, media).BuildBackgroundTrack(context.Background(), dir, 5)
	if !errors.Is(err, services.ErrResourceExhausted) {
		t.Fatalf("expected ErrResourceExhausted, got %v", err)
	}
	if !strings.Contains(err.Error(), "exhausted after 2.000s") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestBuildBackgroundTrackMissingFolder(t *testing.T) {
	media := newFakeMedia()
	_, err := NewAssembler(media, media).BuildBackgroundTrack(context.Background(), filepath.Join(t.TempDir(), "missing"), 5)
	if !errors.Is(err, services.ErrResourceExhausted) {
		t.Fatalf("expected ErrResourceExhausted, got %v", err)
	}
}

func TestBuildBackgroundTrackHonoursCancellation(t *testing.T) {
	media := newFakeMedia()
	dir := t.TempDir()
	writeClips(t, media, dir, map[string]float64{"a.mp4": 2})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAssembler(media, media).BuildBackgroundTrack(ctx, dir, 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
