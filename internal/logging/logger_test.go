package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"storyreel/internal/config"
	"storyreel/internal/logging"
	"storyreel/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from test")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello from test") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerFormatsComponentAndAttrs(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	component := logging.NewComponentLogger(logger, "render")
	component.Info("stage completed", logging.String(logging.FieldStage, "draft_rendered"), logging.Duration("elapsed", 1500*time.Millisecond))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, fragment := range []string{"INFO render: stage completed", "stage=draft_rendered", "elapsed=1.5s"} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in %q", fragment, line)
		}
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
}

func TestJSONLoggerIncludesContextFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithJobID(context.Background(), "job-1")
	ctx = services.WithStage(ctx, "captions_built")
	logging.WithContext(ctx, logger).Info("chunked captions", logging.Int("segments", 4))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(content, &record); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, content)
	}
	if record[logging.FieldJobID] != "job-1" || record[logging.FieldStage] != "captions_built" {
		t.Fatalf("missing context fields: %v", record)
	}
	if record["level"] != "info" {
		t.Fatalf("unexpected level: %v", record["level"])
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "cleanup failed", "cleanup_failed", logging.String(logging.FieldImpact, "file remains"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(content, &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if record[logging.FieldEventType] != "cleanup_failed" {
		t.Fatalf("expected event type, got %v", record)
	}
	if record[logging.FieldErrorHint] == nil {
		t.Fatalf("expected default error hint, got %v", record)
	}
	if record[logging.FieldImpact] != "file remains" {
		t.Fatalf("expected caller impact preserved, got %v", record[logging.FieldImpact])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestRotateLogMovesFileAside(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, logging.LogFileName)
	if err := os.WriteFile(path, []byte("previous session\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

	rotated, err := logging.RotateLog(path, now)
	if err != nil {
		t.Fatalf("RotateLog: %v", err)
	}
	if want := filepath.Join(dir, "storyreel-20261015-093000.log"); rotated != want {
		t.Fatalf("rotated = %q, want %q", rotated, want)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("active log should be gone after rotation, stat err=%v", err)
	}

	if err := os.WriteFile(path, []byte("second\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	again, err := logging.RotateLog(path, now)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "storyreel-20261015-093000-2.log"); again != want {
		t.Fatalf("second rotation = %q, want %q", again, want)
	}
}

func TestRotateLogSkipsMissingAndEmptyFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, logging.LogFileName)
	if rotated, err := logging.RotateLog(path, time.Now()); err != nil || rotated != "" {
		t.Fatalf("missing file: rotated=%q err=%v", rotated, err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if rotated, err := logging.RotateLog(path, time.Now()); err != nil || rotated != "" {
		t.Fatalf("empty file: rotated=%q err=%v", rotated, err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("empty log should stay in place: %v", err)
	}
}

func TestPruneRotatedLogsUsesRotationTime(t *testing.T) {
	dir := t.TempDir()
	active := filepath.Join(dir, logging.LogFileName)
	files := []string{
		logging.LogFileName,
		"storyreel-20260901-080000.log",
		"storyreel-20260901-080000-2.log",
		"storyreel-20261012-080000.log",
		"storyreel-notes.log",
		"other-20200101-000000.log",
	}
	for _, name := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	removed := logging.PruneRotatedLogs(logging.NewNop(), active, 30, now)
	want := []string{
		filepath.Join(dir, "storyreel-20260901-080000-2.log"),
		filepath.Join(dir, "storyreel-20260901-080000.log"),
	}
	if !slices.Equal(removed, want) {
		t.Fatalf("removed %v, want %v", removed, want)
	}
	for _, name := range []string{logging.LogFileName, "storyreel-20261012-080000.log", "storyreel-notes.log", "other-20200101-000000.log"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s should be kept: %v", name, err)
		}
	}
	if got := logging.PruneRotatedLogs(logging.NewNop(), active, 0, now); got != nil {
		t.Fatalf("retention 0 should keep everything, removed %v", got)
	}
}
