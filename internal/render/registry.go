package render

import (
	"context"
	"log/slog"
	"os"
	"slices"
	"sync"

	"storyreel/internal/logging"
)

// Registry tracks the temporary paths a single job created. Release removes
// exactly those paths and nothing else.
type Registry struct {
	mu     sync.Mutex
	paths  []string
	logger *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Registry{logger: logger}
}

// Track registers path for release and returns it.
func (r *Registry) Track(path string) string {
	if path == "" {
		return path
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Contains(r.paths, path) {
		r.paths = append(r.paths, path)
	}
	return path
}

// Forget stops tracking path, typically because it was promoted to a
// permanent location.
func (r *Registry) Forget(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = slices.DeleteFunc(r.paths, func(p string) bool { return p == path })
}

// Paths returns the tracked paths in registration order.
func (r *Registry) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

// ReleaseResult lists what Release removed and what it could not.
type ReleaseResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// Release removes every tracked path, newest first. Failures are logged and
// returned for reporting; they never stop the remaining removals.
func (r *Registry) Release(ctx context.Context) ReleaseResult {
	r.mu.Lock()
	paths := r.paths
	r.paths = nil
	r.mu.Unlock()

	logger := logging.WithContext(ctx, r.logger)
	var result ReleaseResult
	for i := len(paths) - 1; i >= 0; i-- {
		path := paths[i]
		if _, err := os.Lstat(path); os.IsNotExist(err) {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			logging.WarnWithContext(logger, "failed to remove job artifact", "job_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check work_dir permissions; the next sweep will quarantine it"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
	}
	if len(result.Removed) > 0 {
		logger.Debug("job artifacts released", logging.Int("count", len(result.Removed)))
	}
	return result
}
