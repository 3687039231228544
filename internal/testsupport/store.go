package testsupport

import (
	"context"
	"testing"

	"storyreel/internal/config"
	"storyreel/internal/jobs"
	"storyreel/internal/render"
)

// MustOpenJobStore opens a jobs.Store for tests and registers cleanup.
func MustOpenJobStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// BeginJob records a job in the INIT state for tests.
func BeginJob(t testing.TB, store *jobs.Store, id, title string) {
	t.Helper()

	if err := store.Begin(context.Background(), render.JobRecord{ID: id, Title: title}); err != nil {
		t.Fatalf("store.Begin: %v", err)
	}
}
