// Package voice synthesizes narration through the ElevenLabs text-to-speech
// API.
//
// Voice names resolve to provider voice IDs through the configured voice
// map; the name "random" picks one of the configured voices. Synthesized
// audio is cached on disk keyed by voice, model and text so repeated
// renders of the same story never pay for synthesis twice. Cache entries are
// written through a temp file and renamed into place, so concurrent jobs
// writing the same key leave one complete file behind.
package voice
