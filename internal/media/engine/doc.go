// Package engine renders compositions with ffmpeg.
//
// Filter graphs are assembled with ffmpeg-go and executed through a
// context-aware command runner so renders can be cancelled and stubbed in
// tests. The package knows nothing about jobs or captions; callers hand it
// fully resolved specs (audio concatenation, draft composition, caption pass,
// clip splitting) and an encoder Profile.
package engine
