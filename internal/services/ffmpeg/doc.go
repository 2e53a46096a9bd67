// Package ffmpeg implements the transcoding collaborator: audio extraction,
// subtitle burn-in, and audio remux. Argument lists are composed with
// u2takey/ffmpeg-go and executed through a replaceable command runner, so a
// non-zero exit or a missing output file surfaces as a typed transcoding error.
package ffmpeg
