package library

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"storyreel/internal/captions"
	"storyreel/internal/config"
	"storyreel/internal/logging"
	"storyreel/internal/services"
)

func sampleStory() Story {
	return Story{
		Title:       "Breaking up over lifestyle differences?",
		URL:         "https://reddit.com/r/Advice/comments/abc/",
		Subreddit:   "Advice",
		Score:       "36",
		NumComments: "33",
		Content:     "I've been seeing a guy for a few months.",
	}
}

func TestStoreCRUD(t *testing.T) {
	lib := New(filepath.Join(t.TempDir(), "stories"), filepath.Join(t.TempDir(), "videos"), logging.NewNop())

	name, err := lib.Stories.Put("0_2025-03-31.json", sampleStory())
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if name != "0_2025-03-31" {
		t.Fatalf("unexpected name %q", name)
	}
	got, err := lib.Stories.Get("0_2025-03-31")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != sampleStory() {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	if err := os.WriteFile(filepath.Join(lib.Stories.Dir(), "broken.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	entries, err := lib.Stories.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "0_2025-03-31" {
		t.Fatalf("unexpected entries %+v", entries)
	}

	if err := lib.Stories.Delete("0_2025-03-31"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := lib.Stories.Get("0_2025-03-31"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := lib.Stories.Delete("0_2025-03-31"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestStoreRejectsBadNamesAndRecords(t *testing.T) {
	store := NewStore[Story](t.TempDir(), "story", nil)
	for _, name := range []string{"", "../escape", ".hidden", `a\b`} {
		if _, err := store.Put(name, sampleStory()); !errors.Is(err, services.ErrValidation) {
			t.Errorf("Put(%q): expected validation error, got %v", name, err)
		}
	}
	if _, err := store.Put("empty", Story{Title: "x"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for story without content, got %v", err)
	}
}

func TestListMissingDirectoryIsEmpty(t *testing.T) {
	store := NewStore[VideoConfig](filepath.Join(t.TempDir(), "absent"), "video config", nil)
	entries, err := store.List()
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty list, got %v %v", entries, err)
	}
}

func TestPositionJSON(t *testing.T) {
	cases := []struct {
		raw  string
		want Position
	}{
		{`"center"`, Position{X: "center", Y: "center"}},
		{`"left"`, Position{X: "left"}},
		{`["center", 0.8]`, Position{X: "center", Y: "0.8"}},
		{`["left", "bottom"]`, Position{X: "left", Y: "bottom"}},
	}
	for _, tc := range cases {
		var got Position
		if err := json.Unmarshal([]byte(tc.raw), &got); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Errorf("unmarshal %s = %+v, want %+v", tc.raw, got, tc.want)
		}
	}
	var bad Position
	if err := json.Unmarshal([]byte(`[1, 2, 3]`), &bad); err == nil {
		t.Fatal("expected error for three members")
	}
	out, _ := json.Marshal(Position{X: "center", Y: "center"})
	if string(out) != `"center"` {
		t.Fatalf("unexpected marshal %s", out)
	}
}

func TestResolveBuildsJob(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.BackgroundDir = "/library/backgrounds"
	cfg.Paths.OutputDir = "/videos"
	pause := 0.5
	upper := false
	video := VideoConfig{
		BackgroundClipsFolder: "minecraft/parkour1",
		Capitalize:            &upper,
		PauseDuration:         &pause,
		VoiceName:             "narrator",
		FontSize:              36,
		Color:                 "yellow",
		Position:              Position{X: "center", Y: "center"},
		CaptionBoxWidth:       700,
		TempVoicesFolder:      "temp/voices",
	}
	job, err := Resolve(&cfg, "0_2025.json", sampleStory(), video)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if job.Title != sampleStory().Title || job.Body != sampleStory().Content {
		t.Fatalf("narration not taken from story: %+v", job)
	}
	if job.OutputPath != "0_2025" || job.Dirs.Output != "/videos" {
		t.Fatalf("unexpected output %q in %q", job.OutputPath, job.Dirs.Output)
	}
	if job.BackgroundFolder != "/library/backgrounds/minecraft/parkour1" {
		t.Fatalf("unexpected background folder %q", job.BackgroundFolder)
	}
	if job.PauseSeconds != 0.5 || job.Voice != "narrator" {
		t.Fatalf("unexpected pause/voice %v %q", job.PauseSeconds, job.Voice)
	}
	if job.Style.FontSize != 36 || job.Style.Color != "yellow" || job.Style.BoxWidth != 700 || job.Style.Capitalize {
		t.Fatalf("unexpected style %+v", job.Style)
	}
	if job.Style.Position.Y.Kind != captions.AnchorKeyword || job.Style.Position.Y.Keyword != "center" {
		t.Fatalf("unexpected position %+v", job.Style.Position)
	}

	defaults, err := Resolve(&cfg, "story", sampleStory(), VideoConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if defaults.PauseSeconds != cfg.Audio.PauseSeconds || defaults.Voice != cfg.Voice.DefaultVoice || defaults.BackgroundFolder != "/library/backgrounds" {
		t.Fatalf("defaults not applied: %+v", defaults)
	}

	if defaults.Style.Capitalize != cfg.Captions.Capitalize {
		t.Fatalf("captions.capitalize should apply when the video config omits it: %+v", defaults.Style)
	}

	if _, err := Resolve(&cfg, "story", Story{}, VideoConfig{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
