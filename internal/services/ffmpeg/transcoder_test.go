package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"subflow/internal/services"
)

// fakeFFmpeg writes a small file at the last argument, which is where ffmpeg
// places its output path.
func fakeFFmpeg(calls *[][]string) CommandRunner {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, args)
		out := args[len(args)-1]
		return nil, os.WriteFile(out, []byte("media"), 0o644)
	}
}

func TestExtractAudioArgs(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "clip.wav")
	var calls [][]string
	tr := New(Options{})
	tr.WithCommandRunner(fakeFFmpeg(&calls))

	if err := tr.ExtractAudio(context.Background(), "/videos/clip.mp4", audio); err != nil {
		t.Fatalf("ExtractAudio: %v", err)
	}
	args := calls[0]
	for _, want := range []string{"-i", "/videos/clip.mp4", "-ac", "1", "-ar", "16000", "pcm_s16le", "-y"} {
		if !slices.Contains(args, want) {
			t.Fatalf("expected %q in %v", want, args)
		}
	}
}

func TestBurnSubtitlesUsesSubtitleFilter(t *testing.T) {
	dir := t.TempDir()
	temp := filepath.Join(dir, ".en_clip.burn.mp4")
	var calls [][]string
	tr := New(Options{FontSize: 24})
	tr.WithCommandRunner(fakeFFmpeg(&calls))

	if err := tr.BurnSubtitles(context.Background(), "/videos/clip.mp4", "/out/en_clip.srt", temp); err != nil {
		t.Fatalf("BurnSubtitles: %v", err)
	}
	joined := strings.Join(calls[0], " ")
	for _, want := range []string{"subtitles", "en_clip.srt", "Fontsize", "24", "-c:a copy"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in %q", want, joined)
		}
	}
}

func TestBurnSubtitlesEscapesFilterPath(t *testing.T) {
	dir := t.TempDir()
	var calls [][]string
	tr := New(Options{FontSize: 24})
	tr.WithCommandRunner(fakeFFmpeg(&calls))

	srt := "/out/ep 1: pilot/en_ep 1: pilot.srt"
	if err := tr.BurnSubtitles(context.Background(), "/videos/ep 1: pilot.mp4", srt, filepath.Join(dir, "burn.mp4")); err != nil {
		t.Fatalf("BurnSubtitles: %v", err)
	}
	joined := strings.Join(calls[0], " ")
	want := `subtitles=/out/ep 1\\: pilot/en_ep 1\\: pilot.srt`
	if !strings.Contains(joined, want) {
		t.Fatalf("expected %q in %q", want, joined)
	}
}

func TestEscapeFilterValue(t *testing.T) {
	cases := map[string]string{
		"/out/clip/en_clip.srt": "/out/clip/en_clip.srt",
		"C:/subs/a.srt":         `C\:/subs/a.srt`,
		`/out/it's/a=b.srt`:     `/out/it\'s/a\=b.srt`,
		`/out/back\slash.srt`:   `/out/back\\slash.srt`,
	}
	for in, want := range cases {
		if got := escapeFilterValue(in); got != want {
			t.Fatalf("escapeFilterValue(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRemuxReencodesAudio(t *testing.T) {
	dir := t.TempDir()
	final := filepath.Join(dir, "en_clip.mp4")
	var calls [][]string
	tr := New(Options{})
	tr.WithCommandRunner(fakeFFmpeg(&calls))

	if err := tr.Remux(context.Background(), "/out/temp.mp4", "/out/clip.wav", final); err != nil {
		t.Fatalf("Remux: %v", err)
	}
	joined := strings.Join(calls[0], " ")
	for _, want := range []string{"-i /out/temp.mp4", "-i /out/clip.wav", "-c:v copy", "-c:a aac", "-b:a 192k", final} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in %q", want, joined)
		}
	}
}

func TestNonZeroExitIsTranscodingError(t *testing.T) {
	tr := New(Options{})
	tr.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("line1\nInvalid data found when processing input"), errors.New("exit status 1")
	})
	err := tr.ExtractAudio(context.Background(), "/videos/broken.mp4", filepath.Join(t.TempDir(), "broken.wav"))
	if !errors.Is(err, services.ErrTranscoding) {
		t.Fatalf("expected transcoding error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid data") {
		t.Fatalf("expected ffmpeg output in error, got %v", err)
	}
}

func TestMissingOutputIsTranscodingError(t *testing.T) {
	tr := New(Options{})
	tr.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, nil
	})
	err := tr.Remux(context.Background(), "a.mp4", "a.wav", filepath.Join(t.TempDir(), "out.mp4"))
	if !errors.Is(err, services.ErrTranscoding) {
		t.Fatalf("expected transcoding error, got %v", err)
	}
	if !strings.Contains(err.Error(), "missing output") {
		t.Fatalf("unexpected message %v", err)
	}
}
