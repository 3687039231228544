// Package logging assembles structured slog loggers and formatting helpers used
// across storyreel.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code tags log lines
// with job IDs, stages, and correlation IDs. NewNop provides a discard logger
// for tests and wiring code that cannot fail.
package logging
