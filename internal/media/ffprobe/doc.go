// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect executes ffprobe and returns the parsed Result; Prober adapts it to
// the duration lookups the timeline assembler needs.
package ffprobe
