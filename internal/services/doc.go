// Package services defines shared utilities consumed by the pipeline stages
// and the external integrations underneath them.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, video names, stage names, and
//     language codes for logging.
//   - Failure markers plus the Wrap helper so every reported error can be
//     classified as io, transcription, translation, transcoding, or
//     configuration.
//
// Integrations live in subpackages (whisperx, ffmpeg, googletranslate, llm).
package services
