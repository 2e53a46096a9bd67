// Package subtitles renders timed transcript segments as SRT files and reads
// them back for validation.
//
// SRT is the one byte-exact surface subflow produces: players and the ffmpeg
// subtitles filter consume it directly, so Serialize always emits the same
// bytes for the same segments.
package subtitles
