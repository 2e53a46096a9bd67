package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	ffmpeggo "github.com/u2takey/ffmpeg-go"

	"subflow/internal/fileutil"
	"subflow/internal/services"
)

// Defaults for rendered outputs.
const (
	DefaultBinary       = "ffmpeg"
	DefaultFontSize     = 20
	DefaultAudioBitrate = "192k"
	AudioSampleRate     = "16000"
)

// CommandRunner executes an external command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Options configures a Transcoder.
type Options struct {
	Binary       string
	FontSize     int
	AudioBitrate string
}

// Transcoder drives ffmpeg for every media step of the pipeline.
type Transcoder struct {
	binary       string
	fontSize     int
	audioBitrate string
	runner       CommandRunner
}

// New builds a Transcoder, filling unset options with defaults.
func New(opts Options) *Transcoder {
	t := &Transcoder{
		binary:       strings.TrimSpace(opts.Binary),
		fontSize:     opts.FontSize,
		audioBitrate: strings.TrimSpace(opts.AudioBitrate),
	}
	if t.binary == "" {
		t.binary = DefaultBinary
	}
	if t.fontSize <= 0 {
		t.fontSize = DefaultFontSize
	}
	if t.audioBitrate == "" {
		t.audioBitrate = DefaultAudioBitrate
	}
	return t
}

// WithCommandRunner sets a custom command runner (for testing).
func (t *Transcoder) WithCommandRunner(runner CommandRunner) {
	t.runner = runner
}

// ExtractAudio writes the first audio stream of video to audio as mono 16 kHz
// PCM WAV.
func (t *Transcoder) ExtractAudio(ctx context.Context, video, audio string) error {
	args := extractArgs(video, audio)
	return t.execute(ctx, "audio_extraction", "extract audio", audio, args)
}

// BurnSubtitles renders srt onto the video stream of video, copying audio
// untouched, and writes the result to temp.
func (t *Transcoder) BurnSubtitles(ctx context.Context, video, srt, temp string) error {
	args := burnArgs(video, srt, temp, t.fontSize)
	return t.execute(ctx, "burn_in", "burn subtitles", temp, args)
}

// Remux copies the video stream of temp and re-encodes audio from audio into
// final.
func (t *Transcoder) Remux(ctx context.Context, temp, audio, final string) error {
	args := remuxArgs(temp, audio, final, t.audioBitrate)
	return t.execute(ctx, "burn_in", "remux audio", final, args)
}

func (t *Transcoder) execute(ctx context.Context, stage, operation, output string, args []string) error {
	full := append([]string{"-hide_banner", "-nostdin", "-loglevel", "error", "-y"}, args...)
	if out, err := t.run(ctx, full); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return services.Wrap(services.ErrTranscoding, stage, operation, "interrupted", ctxErr)
		}
		return services.Wrap(services.ErrTranscoding, stage, operation, lastLines(out, 5), err)
	}
	ok, err := fileutil.NonEmptyFile(output)
	if err != nil {
		return services.Wrap(services.ErrTranscoding, stage, operation, "stat output", err)
	}
	if !ok {
		return services.Wrap(services.ErrTranscoding, stage, operation, fmt.Sprintf("missing output %s", output), nil)
	}
	return nil
}

func (t *Transcoder) run(ctx context.Context, args []string) ([]byte, error) {
	if t.runner != nil {
		return t.runner(ctx, t.binary, args...)
	}
	cmd := exec.CommandContext(ctx, t.binary, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

func extractArgs(video, audio string) []string {
	return ffmpeggo.Input(video).
		Output(audio, ffmpeggo.KwArgs{
			"map": "0:a:0",
			"vn":  "",
			"ac":  "1",
			"ar":  AudioSampleRate,
			"c:a": "pcm_s16le",
		}).
		GetArgs()
}

func burnArgs(video, srt, temp string, fontSize int) []string {
	in := ffmpeggo.Input(video)
	burned := in.Video().Filter("subtitles", ffmpeggo.Args{escapeFilterValue(srt)}, ffmpeggo.KwArgs{
		"force_style": fmt.Sprintf("Fontsize=%d", fontSize),
	})
	return ffmpeggo.Output([]*ffmpeggo.Stream{burned, in.Audio()}, temp, ffmpeggo.KwArgs{
		"c:a": "copy",
	}).GetArgs()
}

var filterValueEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`, `=`, `\=`)

// escapeFilterValue quotes a filter option value. ffmpeg-go applies the
// filtergraph level of escaping but leaves positional values untouched, so
// a path containing ':' would otherwise be split into extra options.
func escapeFilterValue(value string) string {
	return filterValueEscaper.Replace(value)
}

func remuxArgs(temp, audio, final, bitrate string) []string {
	video := ffmpeggo.Input(temp).Video()
	track := ffmpeggo.Input(audio).Audio()
	return ffmpeggo.Output([]*ffmpeggo.Stream{video, track}, final, ffmpeggo.KwArgs{
		"c:v": "copy",
		"c:a": "aac",
		"b:a": bitrate,
	}).GetArgs()
}

func lastLines(output []byte, n int) string {
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
