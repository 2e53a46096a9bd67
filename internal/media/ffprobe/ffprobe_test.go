package ffprobe

import (
	"context"
	"errors"
	"math"
	"testing"

	"subflow/internal/services"
)

const sampleJSON = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video"},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "channels": 2}
  ],
  "format": {"filename": "clip.mp4", "nb_streams": 2, "duration": "12.500000", "format_name": "mov,mp4,m4a,3gp,3g2,mj2"}
}`

func TestResultHelpers(t *testing.T) {
	result, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 1 {
		t.Fatalf("expected 1 audio stream, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 12.5 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if err := result.Check(); err != nil {
		t.Fatalf("expected probe to pass, got %v", err)
	}
}

func TestDurationHandlesInvalidNumbers(t *testing.T) {
	if got := (Result{Format: Format{Duration: "bad"}}).DurationSeconds(); !math.IsNaN(got) {
		t.Fatalf("expected NaN, got %v", got)
	}
	if got := (Result{}).DurationSeconds(); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestCheckRejectsSilentVideo(t *testing.T) {
	result := Result{Streams: []Stream{{CodecType: "video"}}}
	if err := result.Check(); err == nil {
		t.Fatal("expected error for video without audio")
	}
	if err := (Result{}).Check(); err == nil {
		t.Fatal("expected error for empty probe result")
	}
}

func TestProbe(t *testing.T) {
	prober := NewProber("")
	prober.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if name != "ffprobe" {
			t.Fatalf("unexpected binary %q", name)
		}
		if args[len(args)-1] != "/videos/clip.mp4" {
			t.Fatalf("expected path as last arg, got %v", args)
		}
		return []byte(sampleJSON), nil
	})
	duration, err := prober.Probe(context.Background(), "/videos/clip.mp4")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if duration != 12.5 {
		t.Fatalf("unexpected duration %v", duration)
	}
}

func TestProbeCorruptVideo(t *testing.T) {
	prober := NewProber("ffprobe")
	prober.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("Invalid data found when processing input"), errors.New("exit status 1")
	})
	_, err := prober.Probe(context.Background(), "/videos/broken.mp4")
	if !errors.Is(err, services.ErrTranscoding) {
		t.Fatalf("expected transcoding error, got %v", err)
	}
}
