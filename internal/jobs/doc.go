// Package jobs persists render job history in SQLite.
//
// The store implements render.JobStore: a row is inserted when a job
// begins, its state column follows every pipeline transition, and the
// final result (output path, error, elapsed time) is recorded when the job
// finishes. The CLI and the HTTP API read the same table for listings.
//
// The database lives at <log_dir>/jobs.db in WAL mode. Writes retry briefly
// when SQLite reports the database busy, which happens when the CLI reads
// while a server is rendering.
package jobs
