package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"storyreel/internal/fileutil"
	"storyreel/internal/logging"
)

// SweepOptions configures a quarantine sweep.
type SweepOptions struct {
	// Dirs are scanned non-recursively for transient artifacts.
	Dirs []string
	// Quarantine receives the matches.
	Quarantine string
	// MaxAge is the grace period; younger artifacts are left alone.
	MaxAge time.Duration
	// Active job IDs whose directories must not be touched.
	Active map[string]struct{}
	Logger *slog.Logger
	Now    func() time.Time
}

// SweepResult lists quarantined artifacts and failures.
type SweepResult struct {
	Moved  []string
	Errors []CleanupError
}

// IsTransientArtifact reports whether name matches a file or directory a
// render job creates and should have removed.
func IsTransientArtifact(name string, isDir bool) bool {
	if isDir {
		return strings.HasPrefix(name, jobDirPrefix)
	}
	switch {
	case strings.HasSuffix(name, "_draft.mp4"):
		return true
	case strings.HasSuffix(name, ".partial.mp4"):
		return true
	case strings.HasPrefix(name, "merged-") && strings.HasSuffix(name, ".mp3"):
		return true
	}
	return false
}

// Sweep moves stale transient artifacts into the quarantine directory. Moved
// entries are renamed with a timestamp prefix so repeated sweeps never
// collide.
func Sweep(ctx context.Context, opts SweepOptions) SweepResult {
	var result SweepResult
	quarantine := strings.TrimSpace(opts.Quarantine)
	if quarantine == "" {
		return result
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	logger := logging.WithContext(ctx, opts.Logger)
	cutoff := now().Add(-opts.MaxAge)
	quarantineAbs, _ := filepath.Abs(quarantine)

	for _, dir := range opts.Dirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
			}
			continue
		}
		for _, entry := range entries {
			name := entry.Name()
			path := filepath.Join(dir, name)
			if !IsTransientArtifact(name, entry.IsDir()) {
				continue
			}
			if abs, _ := filepath.Abs(path); abs == quarantineAbs {
				continue
			}
			if entry.IsDir() {
				if _, active := opts.Active[strings.TrimPrefix(name, jobDirPrefix)]; active {
					continue
				}
			}
			info, err := entry.Info()
			if err != nil {
				result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
				continue
			}
			if !info.ModTime().Before(cutoff) {
				continue
			}

			if err := os.MkdirAll(quarantine, 0o755); err != nil {
				result.Errors = append(result.Errors, CleanupError{Path: quarantine, Error: err})
				return result
			}
			target := filepath.Join(quarantine, fmt.Sprintf("%s-%s", now().UTC().Format("20060102T150405"), name))
			if err := fileutil.Move(path, target); err != nil {
				result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
				logging.WarnWithContext(logger, "failed to quarantine stray artifact", "quarantine_failed",
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check quarantine_dir permissions"),
					logging.String(logging.FieldImpact, "artifact left in place"),
				)
				continue
			}
			result.Moved = append(result.Moved, target)
			logger.Info("quarantined stray artifact",
				logging.String("path", path),
				logging.String("quarantine_path", target),
				logging.Duration("age", now().Sub(info.ModTime())),
				logging.String(logging.FieldEventType, "quarantine"),
			)
		}
	}
	return result
}
