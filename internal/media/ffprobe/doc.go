// Package ffprobe wraps the ffprobe CLI to confirm an input is a decodable
// video with an audio track before any work is spent on it.
package ffprobe
