// Package logs reads the daemon log file for the CLI and the HTTP API.
//
// Tail returns the last N lines or everything after a byte offset, optionally
// waiting for new lines to arrive. The returned offset feeds the next call, so
// follow mode is a loop of Tail calls. A Match string keeps only lines that
// contain it, which is how callers narrow output to one job ID.
package logs
