// Package timeline assembles the two tracks a story video is composed from.
//
// The audio track is the title narration, a silence gap and the body
// narration, concatenated in that fixed order and rendered to one compressed
// file. The background track stitches unused clips from a folder until the
// target duration is met, trimming the final clip so the total is exact.
// Clip order comes from a Selector, random in production and deterministic in
// tests. Parallel mode probes candidate batches concurrently without changing
// which clips are chosen.
package timeline
