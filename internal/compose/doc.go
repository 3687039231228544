// Package compose layers the background track, label overlay and caption
// overlays into the finished video.
//
// Composition runs in two passes. The draft pass binds the merged audio to
// the stitched background and overlays the label for the title narration.
// The caption pass re-opens the draft with the audio file and burns in one
// timed text overlay per caption segment, in segment order. Each pass first
// encodes with the fast profile and retries once with the safe profile when
// the encoder fails; partial output of a failed attempt is removed.
package compose
