// Package deps names the external programs the pipeline shells out to and
// resolves them on PATH.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"subflow/internal/config"
	"subflow/internal/services"
	"subflow/internal/services/ffmpeg"
	"subflow/internal/services/whisperx"
)

// FFprobeCommand is the probe binary media/ffprobe falls back to.
const FFprobeCommand = "ffprobe"

// Binary is one external program together with the pipeline steps that run it.
type Binary struct {
	Name    string
	Command string
	Steps   []string
	Purpose string
}

// Status is the lookup result for a Binary. Path is empty and Err set when
// the command does not resolve.
type Status struct {
	Binary
	Path string
	Err  error
}

// Available reports whether the command resolved.
func (s Status) Available() bool {
	return s.Err == nil && s.Path != ""
}

// Detail renders the status for a preflight line.
func (s Status) Detail() string {
	if s.Available() {
		return fmt.Sprintf("%s (%s)", s.Path, s.Purpose)
	}
	return s.Err.Error()
}

// Required returns the programs a run under cfg executes. Every binary is
// mandatory: a video cannot finish without audio extraction, probing, or
// transcription.
func Required(cfg *config.Config) []Binary {
	model := whisperx.DefaultModel
	if cfg != nil && strings.TrimSpace(cfg.Transcription.Model) != "" {
		model = strings.TrimSpace(cfg.Transcription.Model)
	}
	device := "cpu"
	if cfg != nil && cfg.Transcription.CUDAEnabled {
		device = "cuda"
	}
	return []Binary{
		{
			Name:    "FFmpeg",
			Command: ffmpeg.DefaultBinary,
			Steps:   []string{"extract_audio", "burn_in"},
			Purpose: "audio extraction and subtitle burn-in",
		},
		{
			Name:    "FFprobe",
			Command: FFprobeCommand,
			Steps:   []string{"probe"},
			Purpose: "video duration probe",
		},
		{
			Name:    "uvx",
			Command: whisperx.UVXCommand,
			Steps:   []string{"transcribe"},
			Purpose: fmt.Sprintf("WhisperX %s on %s", model, device),
		},
	}
}

// Resolve looks up every binary on PATH.
func Resolve(binaries []Binary) []Status {
	return resolveWith(binaries, exec.LookPath)
}

func resolveWith(binaries []Binary, lookPath func(string) (string, error)) []Status {
	statuses := make([]Status, 0, len(binaries))
	for _, bin := range binaries {
		status := Status{Binary: bin}
		command := strings.TrimSpace(bin.Command)
		if command == "" {
			status.Err = services.Wrap(services.ErrConfiguration, "preflight", "resolve "+bin.Name, "no command configured", nil)
			statuses = append(statuses, status)
			continue
		}
		path, err := lookPath(command)
		if err != nil {
			status.Err = services.Wrap(services.ErrConfiguration, "preflight", "resolve "+bin.Name,
				fmt.Sprintf("%q not found on PATH (needed by %s)", command, strings.Join(bin.Steps, ", ")), err)
		} else {
			status.Path = path
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// Missing returns the statuses whose command did not resolve.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available() {
			missing = append(missing, s)
		}
	}
	return missing
}
