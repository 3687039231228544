// Package language normalizes the transcription language setting.
//
// Users may write a code ("en", "eng", "en-US") or an English name
// ("English"). Both transcription backends want the bare ISO 639-1 code, or
// nothing at all for auto-detection.
package language
