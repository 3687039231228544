// Package render drives one story video from text to finished file.
//
// A Controller runs each Job through a fixed sequence of states:
//
//	INIT -> VOICES_READY -> AUDIO_READY -> DRAFT_RENDERED ->
//	CAPTIONS_BUILT -> FINAL_RENDERED -> CLEANED_UP
//
// with FAILED reachable from any non-terminal state. Work inside a state may
// fan out over the worker pool; states never overlap. Every intermediate
// file is registered with the job's Registry and released when the job ends,
// whatever the outcome. Before and after each job the working root is swept
// for artifacts left by interrupted runs, which are moved to quarantine
// rather than deleted.
package render
