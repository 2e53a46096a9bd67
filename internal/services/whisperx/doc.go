// Package whisperx runs WhisperX through uvx and converts its JSON output into
// transcript segments.
//
// Configuration options (model, language, CUDA, VAD method) are passed via
// Config. The command runner can be replaced for tests.
package whisperx
