// Package pipeline carries one video through audio extraction, transcription,
// original-language subtitling, the per-language translation fan-out, and
// subtitle burn-in.
//
// The original-language segments are computed once per video and are the only
// source of timing; translated subtitles reuse them verbatim. Failures before
// the original subtitle is written abort the video. Failures in a single
// language are recorded on that language and never stop the others.
//
// Collaborators (speech-to-text, translation, ffmpeg, ffprobe) are injected
// through Dependencies so tests can run the whole stage sequence with fakes.
package pipeline
