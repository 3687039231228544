package render

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"storyreel/internal/logging"
)

func TestStateTransitions(t *testing.T) {
	cases := []struct {
		from, to State
		want     bool
	}{
		{StateQueued, StateInit, true},
		{StateQueued, StateVoicesReady, false},
		{StateQueued, StateFailed, true},
		{StateInit, StateVoicesReady, true},
		{StateInit, StateAudioReady, false},
		{StateVoicesReady, StateAudioReady, true},
		{StateFinalRendered, StateCleanedUp, true},
		{StateDraftRendered, StateFailed, true},
		{StateCleanedUp, StateFailed, false},
		{StateFailed, StateCleanedUp, false},
		{StateCaptionsBuilt, StateDraftRendered, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
	if states := States(); len(states) != 9 || states[0] != StateQueued || states[len(states)-1] != StateFailed {
		t.Fatalf("unexpected state list %v", states)
	}
}

func TestRegistryReleasesOnlyTrackedPaths(t *testing.T) {
	dir := t.TempDir()
	tracked := filepath.Join(dir, "job-a")
	untracked := filepath.Join(dir, "job-b")
	for _, path := range []string{tracked, untracked} {
		if err := os.MkdirAll(filepath.Join(path, "captions"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	promoted := filepath.Join(dir, "final.mp4")
	if err := os.WriteFile(promoted, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	registry := NewRegistry(logging.NewNop())
	registry.Track(tracked)
	registry.Track(tracked)
	registry.Track(filepath.Join(tracked, "captions"))
	registry.Track(promoted)
	registry.Track(filepath.Join(dir, "never-created.mp3"))
	registry.Forget(promoted)

	if got := registry.Paths(); len(got) != 3 {
		t.Fatalf("expected 3 tracked paths, got %v", got)
	}
	result := registry.Release(context.Background())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", result.Errors)
	}
	if len(result.Removed) != 2 {
		t.Fatalf("expected 2 removals, got %v", result.Removed)
	}
	if _, err := os.Stat(tracked); !os.IsNotExist(err) {
		t.Fatal("tracked directory should be removed")
	}
	if _, err := os.Stat(untracked); err != nil {
		t.Fatal("untracked directory must survive")
	}
	if _, err := os.Stat(promoted); err != nil {
		t.Fatal("forgotten path must survive")
	}
	if len(registry.Paths()) != 0 {
		t.Fatal("registry should be empty after release")
	}
}

func TestIsTransientArtifact(t *testing.T) {
	cases := []struct {
		name  string
		isDir bool
		want  bool
	}{
		{"job-123", true, true},
		{"job-123", false, false},
		{"abc_draft.mp4", false, true},
		{"story.1234abcd.partial.mp4", false, true},
		{"merged-123.mp3", false, true},
		{"merged-123.wav", false, false},
		{"jobs.db", false, false},
		{"storyreel.lock", false, false},
		{"Hello world.mp4", false, false},
	}
	for _, tc := range cases {
		if got := IsTransientArtifact(tc.name, tc.isDir); got != tc.want {
			t.Errorf("IsTransientArtifact(%q, %v) = %v, want %v", tc.name, tc.isDir, got, tc.want)
		}
	}
}

func TestSweepQuarantinesStaleArtifacts(t *testing.T) {
	root := t.TempDir()
	work := filepath.Join(root, "work")
	output := filepath.Join(root, "output")
	quarantine := filepath.Join(root, "quarantine")
	for _, dir := range []string{work, output} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	old := time.Now().Add(-2 * time.Hour)
	mk := func(path string, dir bool, modTime time.Time) {
		t.Helper()
		if dir {
			if err := os.Mkdir(path, 0o755); err != nil {
				t.Fatal(err)
			}
		} else if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(path, modTime, modTime); err != nil {
			t.Fatal(err)
		}
	}
	mk(filepath.Join(work, "job-stale"), true, old)
	mk(filepath.Join(work, "job-active"), true, old)
	mk(filepath.Join(work, "job-fresh"), true, time.Now())
	mk(filepath.Join(work, "x_draft.mp4"), false, old)
	mk(filepath.Join(work, "merged-x.mp3"), false, old)
	mk(filepath.Join(work, "jobs.db"), false, old)
	mk(filepath.Join(output, "story.abcd1234.partial.mp4"), false, old)
	mk(filepath.Join(output, "story.mp4"), false, old)

	result := Sweep(context.Background(), SweepOptions{
		Dirs:       []string{work, output},
		Quarantine: quarantine,
		MaxAge:     time.Hour,
		Active:     map[string]struct{}{"active": {}},
		Logger:     logging.NewNop(),
	})
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", result.Errors)
	}
	var moved []string
	for _, path := range result.Moved {
		name := filepath.Base(path)
		moved = append(moved, name[strings.Index(name, "-")+1:])
	}
	slices.Sort(moved)
	want := []string{"job-stale", "merged-x.mp3", "story.abcd1234.partial.mp4", "x_draft.mp4"}
	if !slices.Equal(moved, want) {
		t.Fatalf("moved = %v, want %v", moved, want)
	}
	for _, keep := range []string{
		filepath.Join(work, "job-active"),
		filepath.Join(work, "job-fresh"),
		filepath.Join(work, "jobs.db"),
		filepath.Join(output, "story.mp4"),
	} {
		if _, err := os.Stat(keep); err != nil {
			t.Errorf("%s should be left in place", keep)
		}
	}
	for _, path := range result.Moved {
		if filepath.Dir(path) != quarantine {
			t.Errorf("%s not moved into quarantine", path)
		}
	}
}

func TestSweepWithoutQuarantineIsNoop(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "job-x"), 0o755); err != nil {
		t.Fatal(err)
	}
	result := Sweep(context.Background(), SweepOptions{Dirs: []string{dir}, MaxAge: 0})
	if len(result.Moved) != 0 {
		t.Fatalf("expected no moves, got %v", result.Moved)
	}
}

func TestCanonicalOutputPath(t *testing.T) {
	out := t.TempDir()
	dirs := WorkingDirectories{Output: out}
	other := filepath.Join(t.TempDir(), "exports")

	cases := []struct {
		requested, fallback, want string
	}{
		{"", "Hello world", filepath.Join(out, "Hello world.mp4")},
		{"story", "", filepath.Join(out, "story.mp4")},
		{"story.mov", "", filepath.Join(out, "story.mp4")},
		{filepath.Join(other, "a:b.mp4"), "", filepath.Join(other, "a-b.mp4")},
		{"", "what? really/yes", filepath.Join(out, "what really-yes.mp4")},
	}
	for _, tc := range cases {
		got, err := dirs.CanonicalOutputPath(tc.requested, tc.fallback)
		if err != nil {
			t.Fatalf("CanonicalOutputPath(%q, %q): %v", tc.requested, tc.fallback, err)
		}
		if got != tc.want {
			t.Errorf("CanonicalOutputPath(%q, %q) = %q, want %q", tc.requested, tc.fallback, got, tc.want)
		}
	}
	if _, err := dirs.CanonicalOutputPath("", ""); err == nil {
		t.Fatal("expected error without a name")
	}
}

func TestWorkingDirectoriesEnsure(t *testing.T) {
	root := t.TempDir()
	dirs := WorkingDirectories{
		Root:       filepath.Join(root, "work"),
		Quarantine: filepath.Join(root, "q"),
		Output:     filepath.Join(root, "out"),
	}
	if err := dirs.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	for _, dir := range []string{dirs.Root, dirs.Quarantine, dirs.Output} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("%s not created", dir)
		}
	}
	if err := (WorkingDirectories{Root: root}).Ensure(); err == nil {
		t.Fatal("expected error for missing output directory")
	}
	if got := dirs.JobDir("abc"); got != filepath.Join(dirs.Root, "job-abc") {
		t.Fatalf("JobDir = %s", got)
	}
}
