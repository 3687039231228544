package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const rotatedLayout = "20060102-150405"

// RotateLog moves a non-empty log file aside as <name>-<UTC timestamp>.log so
// a new serve session starts with an empty file. It returns the rotated
// path, or "" when there was nothing to rotate.
func RotateLog(path string, now time.Time) (string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) || (err == nil && info.Size() == 0) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("stat log file: %w", err)
	}
	base, ext := splitLogName(path)
	now = now.UTC()
	rotated := filepath.Join(filepath.Dir(path), base+"-"+now.Format(rotatedLayout)+ext)
	for n := 2; ; n++ {
		if _, err := os.Stat(rotated); os.IsNotExist(err) {
			break
		}
		rotated = filepath.Join(filepath.Dir(path), fmt.Sprintf("%s-%s-%d%s", base, now.Format(rotatedLayout), n, ext))
	}
	if err := os.Rename(path, rotated); err != nil {
		return "", fmt.Errorf("rotate log file: %w", err)
	}
	return rotated, nil
}

// PruneRotatedLogs removes rotated copies of path whose rotation time is
// more than retentionDays before now. The active file and anything not
// named like a rotated copy are left alone. A retentionDays of 0 keeps
// everything.
func PruneRotatedLogs(logger *slog.Logger, path string, retentionDays int, now time.Time) []string {
	if retentionDays <= 0 || strings.TrimSpace(path) == "" {
		return nil
	}
	dir := filepath.Dir(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	base, ext := splitLogName(path)
	cutoff := now.AddDate(0, 0, -retentionDays)

	var removed []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		rotatedAt, ok := rotationTime(entry.Name(), base, ext)
		if !ok || !rotatedAt.Before(cutoff) {
			continue
		}
		full := filepath.Join(dir, entry.Name())
		if err := os.Remove(full); err != nil {
			WarnWithContext(logger, "rotated log not removed", "log_retention_failed",
				String("path", full),
				Error(err),
				String(FieldErrorHint, "check ownership of paths.log_dir"),
				String(FieldImpact, "old log stays on disk"),
			)
			continue
		}
		removed = append(removed, full)
	}
	slices.Sort(removed)
	if len(removed) > 0 && logger != nil {
		logger.Info("rotated logs pruned",
			Int("count", len(removed)),
			String(FieldEventType, "log_pruned"),
		)
	}
	return removed
}

func splitLogName(path string) (string, string) {
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext), ext
}

// rotationTime parses <base>-<timestamp>[-n]<ext>.
func rotationTime(name, base, ext string) (time.Time, bool) {
	stamp, ok := strings.CutPrefix(name, base+"-")
	if !ok || !strings.HasSuffix(stamp, ext) {
		return time.Time{}, false
	}
	stamp = strings.TrimSuffix(stamp, ext)
	if len(stamp) > len(rotatedLayout) {
		stamp = stamp[:len(rotatedLayout)]
	}
	t, err := time.Parse(rotatedLayout, stamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
