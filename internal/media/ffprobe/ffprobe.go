package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"subflow/internal/services"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Channels  int    `json:"channels"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

// CommandRunner executes ffprobe and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Prober inspects input videos.
type Prober struct {
	binary string
	runner CommandRunner
}

// NewProber returns a Prober using binary, defaulting to "ffprobe".
func NewProber(binary string) *Prober {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	return &Prober{binary: binary}
}

// WithCommandRunner sets a custom command runner (for testing).
func (p *Prober) WithCommandRunner(runner CommandRunner) {
	p.runner = runner
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func (p *Prober) Inspect(ctx context.Context, path string) (Result, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}
	args := []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path}
	output, err := p.run(ctx, args)
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return Parse(output)
}

// Probe inspects path and fails unless it holds at least one audio stream.
// It returns the container duration in seconds, or 0 when ffprobe does not
// report one.
func (p *Prober) Probe(ctx context.Context, path string) (float64, error) {
	result, err := p.Inspect(ctx, path)
	if err != nil {
		return 0, services.Wrap(services.ErrTranscoding, "audio_extraction", "probe", "video cannot be decoded", err)
	}
	if err := result.Check(); err != nil {
		return 0, services.Wrap(services.ErrTranscoding, "audio_extraction", "probe", "", err)
	}
	duration := result.DurationSeconds()
	if math.IsNaN(duration) || duration < 0 {
		duration = 0
	}
	return duration, nil
}

func (p *Prober) run(ctx context.Context, args []string) ([]byte, error) {
	if p.runner != nil {
		return p.runner(ctx, p.binary, args...)
	}
	cmd := exec.CommandContext(ctx, p.binary, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// Parse decodes ffprobe JSON output.
func Parse(data []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// Check reports why a probed file cannot be subtitled, or nil.
func (r Result) Check() error {
	if len(r.Streams) == 0 {
		return errors.New("no streams found")
	}
	if r.AudioStreamCount() == 0 {
		return errors.New("no audio stream")
	}
	return nil
}

// VideoStreamCount returns the number of video streams discovered.
func (r Result) VideoStreamCount() int {
	return r.countType("video")
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	return r.countType("audio")
}

func (r Result) countType(kind string) int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, kind) {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration in seconds, 0 when absent
// and NaN when unparsable.
func (r Result) DurationSeconds() float64 {
	cleaned := strings.TrimSpace(r.Format.Duration)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
