package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storyreel/internal/config"
	"storyreel/internal/deps"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed || !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("expected missing dir failure, got %+v", result)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := writeFile(t, t.TempDir(), "file.txt")
	if result := CheckDirectoryAccess("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFile(t *testing.T) {
	dir := t.TempDir()
	if r := CheckFile("font", writeFile(t, dir, "font.ttf")); !r.Passed {
		t.Fatalf("expected readable file to pass: %s", r.Detail)
	}
	if r := CheckFile("font", dir); r.Passed {
		t.Fatal("directory should not pass as a file")
	}
	if r := CheckFile("font", ""); r.Passed || r.Detail != "not configured" {
		t.Fatalf("unexpected result for empty path: %+v", r)
	}
}

func TestCheckVoiceAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/user" || r.Header.Get("xi-api-key") != "good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if r := CheckVoiceAPI(context.Background(), srv.Client(), srv.URL+"/", "good-key"); !r.Passed {
		t.Fatalf("expected pass, got %s", r.Detail)
	}
	r := CheckVoiceAPI(context.Background(), srv.Client(), srv.URL, "bad-key")
	if r.Passed || r.Detail != "auth failed (invalid api key)" {
		t.Fatalf("expected auth failure, got %+v", r)
	}
	if r := CheckVoiceAPI(context.Background(), nil, "", "key"); r.Passed {
		t.Fatal("expected failure for missing URL")
	}
	if r := CheckVoiceAPI(context.Background(), nil, srv.URL, " "); r.Passed {
		t.Fatal("expected failure for missing key")
	}
}

func TestCheckTranscription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" || r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.Transcription{Provider: "openai", BaseURL: srv.URL + "/v1", APIKey: "sk-test"}
	if r := CheckTranscription(context.Background(), srv.Client(), cfg); !r.Passed {
		t.Fatalf("expected pass, got %s", r.Detail)
	}
	cfg.APIKey = "wrong"
	if r := CheckTranscription(context.Background(), srv.Client(), cfg); r.Passed {
		t.Fatal("expected failure for wrong key")
	}
	if r := CheckTranscription(context.Background(), nil, config.Transcription{Provider: "whisperx"}); !r.Passed {
		t.Fatalf("whisperx needs no remote check: %+v", r)
	}
}

func TestCheckBackgroundClips(t *testing.T) {
	root := t.TempDir()
	if r := CheckBackgroundClips(root); r.Passed {
		t.Fatal("empty library should fail")
	}
	mc := filepath.Join(root, "minecraft")
	if err := os.MkdirAll(mc, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, mc, "a.mp4")
	writeFile(t, mc, "b.mp4")
	writeFile(t, mc, ".hidden.mp4")
	if err := os.MkdirAll(filepath.Join(root, ".import-123"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(root, ".import-123"), "c.mp4")

	r := CheckBackgroundClips(root)
	if !r.Passed || r.Detail != "2 clips in 1 folders" {
		t.Fatalf("unexpected result %+v", r)
	}
}

func TestCheckSystemDepsChecksFiltersWhenFFmpegPresent(t *testing.T) {
	bin := t.TempDir()
	ffmpeg := writeFile(t, bin, "ffmpeg")
	ffprobe := writeFile(t, bin, "ffprobe")
	for _, p := range []string{ffmpeg, ffprobe} {
		if err := os.Chmod(p, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	cfg := config.Default()
	cfg.Render.FFmpegBinary = ffmpeg
	cfg.Render.FFprobeBinary = ffprobe

	called := ""
	lister := func(_ context.Context, binary string) ([]byte, error) {
		called = binary
		return []byte(" ... concat            N->N       Concatenate audio and video streams.\n"), nil
	}
	statuses := CheckSystemDeps(context.Background(), &cfg, lister)
	if called != ffmpeg {
		t.Fatalf("filter lister called with %q", called)
	}
	var filters *deps.Status
	for i := range statuses {
		if statuses[i].Name == "FFmpeg filters" {
			filters = &statuses[i]
		}
	}
	if filters == nil || filters.Available || !strings.Contains(filters.Detail, "drawtext") {
		t.Fatalf("expected missing filter status, got %+v", filters)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunLocalSkipsOptionalAssets(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Paths.VoiceCacheDir = t.TempDir()
	cfg.Paths.BackgroundDir = t.TempDir()
	cfg.Captions.FontPath = ""
	cfg.Label.FontPath = ""
	cfg.Label.AvatarPath = ""

	results := RunLocal(&cfg)
	if len(results) != 5 {
		t.Fatalf("expected 5 local checks, got %d: %+v", len(results), results)
	}
	for _, r := range results {
		if r.Name == "Voice API" || r.Name == "Transcription API" {
			t.Fatalf("local checks must not include %s", r.Name)
		}
	}
}

func TestRunAll_ReportsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Paths.VoiceCacheDir = t.TempDir()
	cfg.Paths.BackgroundDir = t.TempDir()
	cfg.Captions.FontPath = writeFile(t, t.TempDir(), "font.ttf")
	cfg.Label.FontPath = ""
	cfg.Label.AvatarPath = ""
	cfg.Voice.BaseURL = srv.URL
	cfg.Voice.APIKey = "key"
	cfg.Transcription.BaseURL = srv.URL
	cfg.Transcription.APIKey = "key"

	results := RunAll(context.Background(), &cfg, srv.Client())
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Background clips" {
		t.Fatalf("expected only the empty background library to fail, got %+v", failed)
	}
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
