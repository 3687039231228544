// Package transcribe produces word-level timestamps for narration audio.
//
// Two backends are available: the OpenAI transcription API (multipart
// upload, verbose_json with word granularity) and a local WhisperX run
// through uvx. Both return captions.WordTimestamp slices ordered by start
// time. An empty transcript is reported as services.ErrResourceExhausted.
package transcribe
