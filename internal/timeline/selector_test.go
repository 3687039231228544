package timeline

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestIsUsableClip(t *testing.T) {
	cases := map[string]bool{
		"clip.mp4":    true,
		"CLIP.MOV":    true,
		"b.webm":      true,
		".clip.mp4":   false,
		".DS_Store":   false,
		"Thumbs.db":   false,
		"desktop.ini": false,
		"notes.txt":   false,
		"":            false,
	}
	for name, want := range cases {
		if got := IsUsableClip(name); got != want {
			t.Errorf("IsUsableClip(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestSelectorsReturnSameSet(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"c.mp4", "a.mp4", "b.mp4", ".x.mp4"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.mp4"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	ordered, err := OrderedSelector{}.Candidates(context.Background(), dir)
	if err != nil {
		t.Fatalf("ordered: %v", err)
	}
	want := []string{filepath.Join(dir, "a.mp4"), filepath.Join(dir, "b.mp4"), filepath.Join(dir, "c.mp4")}
	if !slices.Equal(ordered, want) {
		t.Fatalf("ordered = %v, want %v", ordered, want)
	}

	random, err := RandomSelector{}.Candidates(context.Background(), dir)
	if err != nil {
		t.Fatalf("random: %v", err)
	}
	slices.Sort(random)
	if !slices.Equal(random, want) {
		t.Fatalf("random set = %v, want %v", random, want)
	}

	first, _ := SeededSelector{Seed: 7}.Candidates(context.Background(), dir)
	second, _ := SeededSelector{Seed: 7}.Candidates(context.Background(), dir)
	if !slices.Equal(first, second) {
		t.Fatalf("seeded selector not reproducible: %v vs %v", first, second)
	}
}
