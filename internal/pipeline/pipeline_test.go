package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"subflow/internal/language"
	"subflow/internal/logging"
	"subflow/internal/pipeline"
	"subflow/internal/services"
	"subflow/internal/subtitles"
	"subflow/internal/transcript"
)

var sampleSegments = []transcript.Segment{
	{Start: 0, End: 1.5, Text: "hello"},
	{Start: 1.5, End: 3.25, Text: "world"},
}

type harness struct {
	videoDir    string
	outputDir   string
	video       string
	transcoder  *fakeTranscoder
	transcriber *fakeTranscriber
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		videoDir:    t.TempDir(),
		outputDir:   t.TempDir(),
		transcoder:  &fakeTranscoder{},
		transcriber: &fakeTranscriber{segments: sampleSegments},
	}
	h.video = filepath.Join(h.videoDir, "clip.mp4")
	if err := os.WriteFile(h.video, []byte("video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	return h
}

func (h *harness) pipeline(t *testing.T, opts pipeline.Options, deps pipeline.Dependencies) *pipeline.Pipeline {
	t.Helper()
	if opts.SourceLanguage == "" {
		opts.SourceLanguage = "iw"
	}
	if opts.RTL == nil {
		opts.RTL = language.NewSet(language.DefaultRTL...)
	}
	if deps.Transcriber == nil {
		deps.Transcriber = h.transcriber
	}
	if deps.Transcoder == nil {
		deps.Transcoder = h.transcoder
	}
	if deps.Prober == nil {
		deps.Prober = fakeProber{duration: 10}
	}
	p, err := pipeline.New(opts, deps, logging.NewNop())
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	return p
}

func (h *harness) run(t *testing.T, p *pipeline.Pipeline) pipeline.Result {
	t.Helper()
	job, err := p.NewJob(h.video, h.outputDir)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	return p.Run(context.Background(), job)
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRunProducesArtifactSet(t *testing.T) {
	h := newHarness(t)
	p := h.pipeline(t, pipeline.Options{Targets: []language.Code{"en"}, KeepAudio: true},
		pipeline.Dependencies{Translator: dictionaryBackend()})

	result := h.run(t, p)
	if !result.Succeeded() {
		t.Fatalf("expected success, got err=%v languages=%+v", result.Err, result.Languages)
	}
	if result.Stage != pipeline.StageDone {
		t.Fatalf("expected done stage, got %s", result.Stage)
	}

	want := []string{"clip.wav", "en_clip.mp4", "en_clip.srt", "iw_clip.srt"}
	got := listDir(t, filepath.Join(h.outputDir, "clip"))
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected artifacts: got %v want %v", got, want)
	}
	if entries := listDir(t, h.videoDir); len(entries) != 1 {
		t.Fatalf("videos directory modified: %v", entries)
	}

	original, err := os.ReadFile(filepath.Join(h.outputDir, "clip", "iw_clip.srt"))
	if err != nil {
		t.Fatalf("read original: %v", err)
	}
	if string(original) != string(subtitles.Encode(sampleSegments, true)) {
		t.Fatalf("original subtitle not rendered right-to-left:\n%q", original)
	}
	translated, err := os.ReadFile(filepath.Join(h.outputDir, "clip", "en_clip.srt"))
	if err != nil {
		t.Fatalf("read translation: %v", err)
	}
	if strings.ContainsRune(string(translated), '\u202b') {
		t.Fatalf("english subtitle must not carry bidi controls:\n%q", translated)
	}
	if !result.Languages["en"].Burned || result.Languages["iw"].Burned {
		t.Fatalf("unexpected render state: %+v", result.Languages)
	}
}

func TestRunIsolatesLanguageFailure(t *testing.T) {
	h := newHarness(t)
	p := h.pipeline(t, pipeline.Options{Targets: []language.Code{"fr", "es"}, KeepAudio: true, LanguageWorkers: 2},
		pipeline.Dependencies{Translator: dictionaryBackend("fr")})

	result := h.run(t, p)
	if result.Err != nil {
		t.Fatalf("video should not fail: %v", result.Err)
	}
	if !result.Partial() {
		t.Fatal("expected partial result")
	}
	fr := result.Languages["fr"]
	if fr.FailedStep != pipeline.StepTranslation || !errors.Is(fr.Err, services.ErrTranslation) {
		t.Fatalf("unexpected fr result: %+v", fr)
	}
	if _, err := os.Stat(filepath.Join(h.outputDir, "clip", "fr_clip.srt")); !os.IsNotExist(err) {
		t.Fatalf("fr subtitle should not exist, stat err=%v", err)
	}

	es := result.Languages["es"]
	if !es.Burned {
		t.Fatalf("expected es rendered: %+v", es)
	}
	segments := readSegmentsText(t, es.SubtitlePath)
	if segments != "hola\nmundo" {
		t.Fatalf("unexpected es subtitle text %q", segments)
	}
	if got := result.FailedLanguages(); len(got) != 1 || got[0] != "fr" {
		t.Fatalf("unexpected failed languages %v", got)
	}
}

func TestRunCorruptVideoFails(t *testing.T) {
	h := newHarness(t)
	probeErr := services.Wrap(services.ErrTranscoding, "audio_extraction", "probe", "video cannot be decoded", errors.New("invalid data"))
	p := h.pipeline(t, pipeline.Options{KeepAudio: true}, pipeline.Dependencies{Prober: fakeProber{err: probeErr}})

	result := h.run(t, p)
	if result.Err == nil || result.Stage != pipeline.StageFailed {
		t.Fatalf("expected failure, got stage=%s err=%v", result.Stage, result.Err)
	}
	if result.FailedStep != pipeline.StepAudioExtraction {
		t.Fatalf("unexpected failed step %q", result.FailedStep)
	}
	if services.KindOf(result.Err) != services.KindTranscoding {
		t.Fatalf("unexpected kind %s", services.KindOf(result.Err))
	}
	if h.transcriber.calls != 0 {
		t.Fatal("transcriber must not run for an undecodable video")
	}
}

func TestRunClassifiesUnmarkedTranscriberErrors(t *testing.T) {
	h := newHarness(t)
	h.transcriber.err = errors.New("model crashed")
	p := h.pipeline(t, pipeline.Options{KeepAudio: true}, pipeline.Dependencies{})

	result := h.run(t, p)
	if result.FailedStep != pipeline.StepTranscription || services.KindOf(result.Err) != services.KindTranscription {
		t.Fatalf("unexpected failure: step=%q err=%v", result.FailedStep, result.Err)
	}
	if _, err := os.Stat(filepath.Join(h.outputDir, "clip", "iw_clip.srt")); !os.IsNotExist(err) {
		t.Fatalf("original subtitle should not exist, stat err=%v", err)
	}
}

func TestRunRendersOriginalAndRemovesAudio(t *testing.T) {
	h := newHarness(t)
	p := h.pipeline(t, pipeline.Options{RenderOriginal: true, KeepAudio: false}, pipeline.Dependencies{})

	result := h.run(t, p)
	if !result.Succeeded() {
		t.Fatalf("expected success: %v", result.Err)
	}
	want := []string{"iw_clip.mp4", "iw_clip.srt"}
	got := listDir(t, filepath.Join(h.outputDir, "clip"))
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected artifacts: got %v want %v", got, want)
	}
}

func TestRunBurnFailureRemovesTemporaryVideo(t *testing.T) {
	h := newHarness(t)
	h.transcoder.failRemux = "es_clip"
	p := h.pipeline(t, pipeline.Options{Targets: []language.Code{"es", "en"}, KeepAudio: true},
		pipeline.Dependencies{Translator: dictionaryBackend()})

	result := h.run(t, p)
	es := result.Languages["es"]
	if es.FailedStep != pipeline.StepBurnIn || services.KindOf(es.Err) != services.KindTranscoding {
		t.Fatalf("unexpected es result: %+v", es)
	}
	if !result.Languages["en"].Burned {
		t.Fatal("en should still render after es burn failure")
	}
	for _, temp := range h.transcoder.temps {
		if _, err := os.Stat(temp); !os.IsNotExist(err) {
			t.Fatalf("temporary video %s left behind", temp)
		}
	}
	if len(h.transcoder.temps) != 2 || h.transcoder.temps[0] == h.transcoder.temps[1] {
		t.Fatalf("expected two distinct temporary names, got %v", h.transcoder.temps)
	}
}

func TestRunBurnsIntoOutputDirectory(t *testing.T) {
	h := newHarness(t)
	p := h.pipeline(t, pipeline.Options{Targets: []language.Code{"en"}, RenderOriginal: true, KeepAudio: true},
		pipeline.Dependencies{Translator: dictionaryBackend()})

	result := h.run(t, p)
	if !result.Succeeded() {
		t.Fatalf("expected success, got err=%v", result.Err)
	}
	if len(h.transcoder.temps) != 2 {
		t.Fatalf("expected two burns, got %v", h.transcoder.temps)
	}
	for _, temp := range h.transcoder.temps {
		if filepath.Dir(temp) != result.Job.OutputDir {
			t.Fatalf("temporary video %s written outside %s", temp, result.Job.OutputDir)
		}
		if !strings.HasPrefix(filepath.Base(temp), ".") {
			t.Fatalf("temporary video %s should be hidden", temp)
		}
	}
	if entries := listDir(t, h.videoDir); len(entries) != 1 || entries[0] != "clip.mp4" {
		t.Fatalf("videos directory modified: %v", entries)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	h := newHarness(t)
	p := h.pipeline(t, pipeline.Options{Targets: []language.Code{"es"}, KeepAudio: true},
		pipeline.Dependencies{Translator: dictionaryBackend()})

	first := h.run(t, p)
	srt := first.Languages["es"].SubtitlePath
	before, err := os.ReadFile(srt)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	second := h.run(t, p)
	if !second.Succeeded() {
		t.Fatalf("rerun failed: %v", second.Err)
	}
	after, err := os.ReadFile(srt)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(before) != string(after) {
		t.Fatal("rerun changed subtitle bytes")
	}
}

func TestRunCanceledContext(t *testing.T) {
	h := newHarness(t)
	p := h.pipeline(t, pipeline.Options{Targets: []language.Code{"es"}, KeepAudio: true},
		pipeline.Dependencies{Translator: dictionaryBackend()})
	job, err := p.NewJob(h.video, h.outputDir)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := p.Run(ctx, job)
	if result.Err == nil {
		t.Fatal("expected canceled run to fail")
	}
	if services.KindOf(result.Err) != services.KindCanceled {
		t.Fatalf("expected canceled kind, got %s (%v)", services.KindOf(result.Err), result.Err)
	}
}

func TestNewValidatesDependencies(t *testing.T) {
	deps := pipeline.Dependencies{
		Transcriber: &fakeTranscriber{},
		Transcoder:  &fakeTranscoder{},
		Prober:      fakeProber{},
	}
	if _, err := pipeline.New(pipeline.Options{SourceLanguage: "iw", Targets: []language.Code{"en"}}, deps, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected missing translator error, got %v", err)
	}
	if _, err := pipeline.New(pipeline.Options{SourceLanguage: "iw", Targets: []language.Code{"iw"}}, deps, nil); err == nil {
		t.Fatal("expected source-as-target error")
	}
	if _, err := pipeline.New(pipeline.Options{}, deps, nil); err == nil {
		t.Fatal("expected missing source language error")
	}
	if _, err := pipeline.New(pipeline.Options{SourceLanguage: "iw"}, deps, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func readSegmentsText(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var texts []string
	for _, block := range strings.Split(strings.TrimSpace(string(data)), "\n\n") {
		lines := strings.Split(block, "\n")
		if len(lines) >= 3 {
			texts = append(texts, strings.Join(lines[2:], "\n"))
		}
	}
	return strings.Join(texts, "\n")
}
