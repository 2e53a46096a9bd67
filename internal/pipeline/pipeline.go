package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"subflow/internal/fileutil"
	"subflow/internal/language"
	"subflow/internal/logging"
	"subflow/internal/services"
	"subflow/internal/subtitles"
	"subflow/internal/transcript"
	"subflow/internal/transcription"
	"subflow/internal/translation"
)

// Transcoder renders media through ffmpeg. A non-zero exit or a missing
// output file is reported as services.ErrTranscoding.
type Transcoder interface {
	ExtractAudio(ctx context.Context, video, audio string) error
	BurnSubtitles(ctx context.Context, video, srt, temp string) error
	Remux(ctx context.Context, temp, audio, final string) error
}

// Prober checks that a video is decodable and carries audio, returning its
// duration in seconds (0 when unknown).
type Prober interface {
	Probe(ctx context.Context, path string) (float64, error)
}

// Dependencies are the collaborators injected into a Pipeline.
type Dependencies struct {
	Transcriber transcription.Transcriber
	Translator  translation.Backend
	Transcoder  Transcoder
	Prober      Prober
}

// Options configures per-video behaviour.
type Options struct {
	SourceLanguage  language.Code
	Targets         []language.Code
	RTL             language.Set
	RenderOriginal  bool
	KeepAudio       bool
	LanguageWorkers int
	// Zero disables the deadline.
	TranscriptionTimeout time.Duration
	TranscodeTimeout     time.Duration
}

// Pipeline runs videos through the subtitle stages. It is safe for
// concurrent use by multiple videos.
type Pipeline struct {
	opts   Options
	deps   Dependencies
	logger *slog.Logger
}

// tolerance before subtitle cues running past the probed duration are
// reported.
const durationSlack = 1.0

// New validates opts and deps and returns a Pipeline.
func New(opts Options, deps Dependencies, logger *slog.Logger) (*Pipeline, error) {
	if opts.SourceLanguage == "" {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "source language required", nil)
	}
	for _, code := range opts.Targets {
		if code == opts.SourceLanguage {
			return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", fmt.Sprintf("target %q equals source language", code), nil)
		}
	}
	switch {
	case deps.Transcriber == nil:
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "transcriber required", nil)
	case deps.Transcoder == nil:
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "transcoder required", nil)
	case deps.Prober == nil:
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "prober required", nil)
	case len(opts.Targets) > 0 && deps.Translator == nil:
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "translation backend required for target languages", nil)
	}
	if opts.LanguageWorkers < 1 {
		opts.LanguageWorkers = 1
	}
	opts.Targets = append([]language.Code(nil), opts.Targets...)
	deps.Transcriber = transcription.Exclusive(deps.Transcriber)
	return &Pipeline{
		opts:   opts,
		deps:   deps,
		logger: logging.NewComponentLogger(logger, "pipeline"),
	}, nil
}

// Layout returns the artifact layout implied by the pipeline options.
func (p *Pipeline) Layout() Layout {
	return Layout{
		Source:         p.opts.SourceLanguage,
		Targets:        p.opts.Targets,
		RenderOriginal: p.opts.RenderOriginal,
	}
}

// NewJob builds a Job for videoPath under outputRoot using the pipeline layout.
func (p *Pipeline) NewJob(videoPath, outputRoot string) (Job, error) {
	return NewJob(videoPath, outputRoot, p.Layout())
}

// Run processes one video. The returned Result always describes how far the
// video got; Result.Err is set only when the video as a whole failed.
func (p *Pipeline) Run(ctx context.Context, job Job) (result Result) {
	ctx = services.WithVideo(ctx, job.VideoName)
	logger := logging.WithContext(ctx, p.logger)
	result = Result{
		Job:       job,
		Stage:     StagePending,
		Languages: make(map[language.Code]LanguageResult, len(p.opts.Targets)+1),
		Started:   time.Now(),
	}
	defer func() {
		result.Duration = time.Since(result.Started)
		p.logOutcome(logger, result)
	}()

	fail := func(step string, err error) Result {
		result.Stage = StageFailed
		result.FailedStep = step
		result.Err = err
		return result
	}

	if err := os.MkdirAll(job.OutputDir, 0o755); err != nil {
		return fail(StepAudioExtraction, services.Wrap(services.ErrIO, StepAudioExtraction, "create output directory", job.OutputDir, err))
	}

	var duration float64
	err := p.step(ctx, StepAudioExtraction, func(ctx context.Context) error {
		var err error
		duration, err = p.extractAudio(ctx, job)
		return err
	})
	if err != nil {
		return fail(StepAudioExtraction, err)
	}
	if !p.opts.KeepAudio {
		defer p.removeAudio(logger, job.AudioPath)
	}
	result.Stage = StageAudioExtracted

	var segments []transcript.Segment
	err = p.step(ctx, StepTranscription, func(ctx context.Context) error {
		var err error
		segments, err = p.transcribe(ctx, job)
		return err
	})
	if err != nil {
		return fail(StepTranscription, err)
	}
	result.Stage = StageTranscribed

	source := p.opts.SourceLanguage
	err = p.step(ctx, StepOriginalSubtitle, func(ctx context.Context) error {
		return p.writeSubtitle(ctx, job.OriginalSRTPath, segments, source, duration)
	})
	if err != nil {
		return fail(StepOriginalSubtitle, err)
	}
	result.Languages[source] = LanguageResult{
		Code:         source,
		Original:     true,
		SubtitlePath: job.OriginalSRTPath,
		Subtitled:    true,
	}
	result.Stage = StageOriginalSubtitled

	if len(p.opts.Targets) > 0 {
		for code, lang := range p.translateAll(ctx, job, segments, duration) {
			result.Languages[code] = lang
		}
		result.Stage = StageTranslated
	}
	if err := ctx.Err(); err != nil {
		return fail(StepTranslation, err)
	}

	for _, code := range p.renderOrder(result.Languages) {
		lang := result.Languages[code]
		lang.OutputPath = job.OutputPaths[code]
		langCtx := services.WithLanguage(ctx, string(code))
		if err := p.step(langCtx, StepBurnIn, func(ctx context.Context) error {
			return p.burn(ctx, job, code)
		}); err != nil {
			lang.FailedStep = StepBurnIn
			lang.Err = err
		} else {
			lang.Burned = true
			result.Stage = StageBurned
		}
		result.Languages[code] = lang
		if err := ctx.Err(); err != nil {
			return fail(StepBurnIn, err)
		}
	}
	result.Stage = StageDone
	return result
}

// renderOrder lists the languages to burn: successful targets in configured
// order, preceded by the source when originals are rendered.
func (p *Pipeline) renderOrder(languages map[language.Code]LanguageResult) []language.Code {
	var order []language.Code
	if p.opts.RenderOriginal {
		order = append(order, p.opts.SourceLanguage)
	}
	for _, code := range p.opts.Targets {
		if lang, ok := languages[code]; ok && lang.Err == nil && lang.Subtitled {
			order = append(order, code)
		}
	}
	return order
}

func (p *Pipeline) step(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx = services.WithStage(ctx, name)
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if err != nil {
		attrs := append(logging.ErrorAttrs(err),
			logging.Duration("duration", elapsed),
			logging.String(logging.FieldErrorHint, hintFor(name)),
		)
		logging.ErrorWithContext(logger, "stage failed", "stage_failure", attrs...)
		return err
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("duration", elapsed),
	)
	return nil
}

func (p *Pipeline) extractAudio(ctx context.Context, job Job) (float64, error) {
	probeCtx, cancel := withTimeout(ctx, p.opts.TranscodeTimeout)
	duration, err := p.deps.Prober.Probe(probeCtx, job.VideoPath)
	cancel()
	if err != nil {
		return 0, classify(err, services.ErrTranscoding, StepAudioExtraction, "probe")
	}
	if err := fileutil.RemoveIfExists(job.AudioPath); err != nil {
		return 0, services.Wrap(services.ErrIO, StepAudioExtraction, "remove stale audio", job.AudioPath, err)
	}
	callCtx, cancel := withTimeout(ctx, p.opts.TranscodeTimeout)
	defer cancel()
	if err := p.deps.Transcoder.ExtractAudio(callCtx, job.VideoPath, job.AudioPath); err != nil {
		return 0, classify(err, services.ErrTranscoding, StepAudioExtraction, "extract audio")
	}
	return duration, nil
}

func (p *Pipeline) transcribe(ctx context.Context, job Job) ([]transcript.Segment, error) {
	callCtx, cancel := withTimeout(ctx, p.opts.TranscriptionTimeout)
	defer cancel()
	segments, err := p.deps.Transcriber.Transcribe(callCtx, job.AudioPath)
	if err != nil {
		return nil, classify(err, services.ErrTranscription, StepTranscription, "transcribe")
	}
	if err := transcript.Validate(segments); err != nil {
		return nil, services.Wrap(services.ErrTranscription, StepTranscription, "validate segments", "", err)
	}
	logging.WithContext(ctx, p.logger).Info("transcript ready", logging.Int("segments", len(segments)))
	return segments, nil
}

// writeSubtitle writes segments to path and reads the file back to confirm
// every cue landed.
func (p *Pipeline) writeSubtitle(ctx context.Context, path string, segments []transcript.Segment, code language.Code, duration float64) error {
	stage, _ := services.StageFromContext(ctx)
	rtl := p.opts.RTL.Contains(code)
	if err := subtitles.Write(path, segments, rtl); err != nil {
		return services.Wrap(services.ErrIO, stage, "write subtitle", path, err)
	}
	cues, err := subtitles.CountCues(path)
	if err != nil {
		return services.Wrap(services.ErrIO, stage, "verify subtitle", path, err)
	}
	if cues != len(segments) {
		return services.Wrap(services.ErrIO, stage, "verify subtitle", fmt.Sprintf("%s has %d cues, expected %d", filepath.Base(path), cues, len(segments)), nil)
	}
	if duration > 0 && cues > 0 {
		if _, last, err := subtitles.Bounds(path); err == nil && last > duration+durationSlack {
			logging.WarnWithContext(logging.WithContext(ctx, p.logger), "subtitle extends past video end", "subtitle_overrun",
				logging.Float64("subtitle_end_seconds", last),
				logging.Float64("video_duration_seconds", duration),
				logging.String(logging.FieldImpact, "final cues may not be visible"),
				logging.String(logging.FieldErrorHint, "check the transcription for hallucinated trailing segments"),
			)
		}
	}
	logging.WithContext(ctx, p.logger).Debug("subtitle written",
		logging.String("path", path),
		logging.Int("cues", cues),
		logging.Bool("rtl", rtl),
	)
	return nil
}

// translateAll runs the per-language fan-out. Every target gets an entry;
// one language failing never cancels the others.
func (p *Pipeline) translateAll(ctx context.Context, job Job, segments []transcript.Segment, duration float64) map[language.Code]LanguageResult {
	var (
		mu      sync.Mutex
		results = make(map[language.Code]LanguageResult, len(p.opts.Targets))
		group   errgroup.Group
	)
	group.SetLimit(p.opts.LanguageWorkers)
	for _, code := range p.opts.Targets {
		group.Go(func() error {
			lang := p.translateOne(ctx, job, segments, code, duration)
			mu.Lock()
			results[code] = lang
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()
	return results
}

func (p *Pipeline) translateOne(ctx context.Context, job Job, segments []transcript.Segment, code language.Code, duration float64) LanguageResult {
	lang := LanguageResult{Code: code, SubtitlePath: job.SubtitlePaths[code]}
	ctx = services.WithLanguage(ctx, string(code))

	var translated []transcript.Segment
	err := p.step(ctx, StepTranslation, func(ctx context.Context) error {
		var err error
		translated, err = translation.Translate(ctx, segments, code, p.deps.Translator)
		return err
	})
	if err != nil {
		lang.FailedStep = StepTranslation
		lang.Err = err
		return lang
	}
	lang.Translated = true

	err = p.step(ctx, StepSubtitle, func(ctx context.Context) error {
		return p.writeSubtitle(ctx, lang.SubtitlePath, translated, code, duration)
	})
	if err != nil {
		lang.FailedStep = StepSubtitle
		lang.Err = err
		return lang
	}
	lang.Subtitled = true
	return lang
}

// burn renders one subtitle track in two passes through a uniquely named
// temporary file in the video's output directory. The videos directory is
// only ever read.
func (p *Pipeline) burn(ctx context.Context, job Job, code language.Code) error {
	final := job.OutputPaths[code]
	srt := job.SubtitlePaths[code]
	if final == "" || srt == "" {
		return services.Wrap(services.ErrConfiguration, StepBurnIn, "layout", fmt.Sprintf("no artifact paths for %s", code), nil)
	}
	if err := fileutil.RemoveIfExists(final); err != nil {
		return services.Wrap(services.ErrIO, StepBurnIn, "remove stale output", final, err)
	}

	temp := filepath.Join(job.OutputDir, fmt.Sprintf(".burn-%s-%s.mp4", code, uuid.NewString()))
	defer func() {
		if err := fileutil.RemoveIfExists(temp); err != nil {
			logging.WithContext(ctx, p.logger).Debug("temporary video cleanup failed", logging.String("path", temp), logging.Error(err))
		}
	}()

	burnCtx, cancel := withTimeout(ctx, p.opts.TranscodeTimeout)
	err := p.deps.Transcoder.BurnSubtitles(burnCtx, job.VideoPath, srt, temp)
	cancel()
	if err != nil {
		return classify(err, services.ErrTranscoding, StepBurnIn, "burn subtitles")
	}

	remuxCtx, cancel := withTimeout(ctx, p.opts.TranscodeTimeout)
	defer cancel()
	if err := p.deps.Transcoder.Remux(remuxCtx, temp, job.AudioPath, final); err != nil {
		return classify(err, services.ErrTranscoding, StepBurnIn, "remux audio")
	}
	return nil
}

func (p *Pipeline) removeAudio(logger *slog.Logger, path string) {
	if err := fileutil.RemoveIfExists(path); err != nil {
		logging.WarnWithContext(logger, "audio cleanup failed", "audio_cleanup_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "extracted audio left on disk"),
		)
	}
}

func (p *Pipeline) logOutcome(logger *slog.Logger, result Result) {
	attrs := []logging.Attr{
		logging.String("final_stage", string(result.Stage)),
		logging.Duration("duration", result.Duration),
		logging.Int("languages_rendered", len(result.Rendered())),
	}
	switch {
	case result.Err != nil:
		attrs = append(attrs, logging.ErrorAttrs(result.Err)...)
		attrs = append(attrs, logging.String("failed_stage", result.FailedStep))
		logging.ErrorWithContext(logger, "video failed", "video_failure", attrs...)
	case result.Partial():
		attrs = append(attrs, logging.Any("failed_languages", result.FailedLanguages()))
		logging.WarnWithContext(logger, "video completed with language failures", "video_partial",
			append(attrs, logging.String(logging.FieldImpact, "some languages have no subtitled output"))...)
	default:
		logger.Info("video completed", logging.Args(append(attrs, logging.String(logging.FieldEventType, "video_complete"))...)...)
	}
}

// classify tags err with marker unless a collaborator already classified it.
func classify(err error, marker error, stage, operation string) error {
	if errors.Is(err, context.Canceled) || services.KindOf(err) != services.KindUnknown {
		return err
	}
	return services.Wrap(marker, stage, operation, "", err)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func hintFor(step string) string {
	switch step {
	case StepAudioExtraction:
		return "confirm the file is a playable video with an audio track"
	case StepTranscription:
		return "check uvx/whisperx availability and GPU settings"
	case StepTranslation:
		return "check translation provider connectivity and rate limits"
	case StepBurnIn:
		return "check ffmpeg output above and free disk space"
	default:
		return "check output directory permissions"
	}
}
