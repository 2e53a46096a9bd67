package main

import (
	"fmt"
	"log/slog"

	"subflow/internal/batch"
	"subflow/internal/config"
	"subflow/internal/logging"
	"subflow/internal/media/ffprobe"
	"subflow/internal/pipeline"
	"subflow/internal/runstore"
	"subflow/internal/services"
	"subflow/internal/services/ffmpeg"
	"subflow/internal/services/googletranslate"
	"subflow/internal/services/llm"
	"subflow/internal/services/whisperx"
	"subflow/internal/translation"
)

// newTranslator returns the paced backend for the configured provider, or
// nil when translation is disabled.
func newTranslator(cfg *config.Config) (translation.Backend, error) {
	if !cfg.Translation.Enabled {
		return nil, nil
	}
	var backend translation.Backend
	switch cfg.Translation.Provider {
	case config.ProviderGoogle:
		backend = googletranslate.New(googletranslate.Config{
			BaseURL:        cfg.Translation.GoogleBaseURL,
			TimeoutSeconds: cfg.Workflow.TranslationTimeout,
		})
	case config.ProviderLLM:
		backend = llm.NewClient(llm.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			Referer:        cfg.LLM.Referer,
			Title:          cfg.LLM.Title,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		})
	default:
		return nil, services.Wrap(services.ErrConfiguration, "cli", "translator",
			fmt.Sprintf("unsupported translation provider %q", cfg.Translation.Provider), nil)
	}
	return translation.Paced(backend, translation.PaceConfig{
		RequestsPerSecond: cfg.Translation.RequestsPerSecond,
		Burst:             cfg.Translation.Burst,
		CallTimeout:       cfg.TranslationTimeout(),
	}), nil
}

// newPipeline constructs every collaborator once and injects them.
func newPipeline(cfg *config.Config, logger *slog.Logger) (*pipeline.Pipeline, error) {
	translator, err := newTranslator(cfg)
	if err != nil {
		return nil, err
	}
	transcriber := whisperx.NewService(whisperx.Config{
		Model:       cfg.Transcription.Model,
		Language:    string(cfg.SourceLanguage()),
		CUDAEnabled: cfg.Transcription.CUDAEnabled,
		VADMethod:   cfg.Transcription.VADMethod,
		HFToken:     cfg.Transcription.HFToken,
	})
	transcriber.WithLogger(logger)
	logger.Debug("transcriber configured",
		logging.String("model", transcriber.Model()),
		logging.Bool("cuda", cfg.Transcription.CUDAEnabled),
	)
	return pipeline.New(pipeline.Options{
		SourceLanguage:       cfg.SourceLanguage(),
		Targets:              cfg.TargetLanguages(),
		RTL:                  cfg.RTLSet(),
		RenderOriginal:       cfg.Output.EmitOriginalAsVideo,
		KeepAudio:            cfg.Output.KeepAudio,
		LanguageWorkers:      cfg.Workflow.LanguageWorkers,
		TranscriptionTimeout: cfg.TranscriptionTimeout(),
		TranscodeTimeout:     cfg.TranscodeTimeout(),
	}, pipeline.Dependencies{
		Transcriber: transcriber,
		Translator:  translator,
		Transcoder: ffmpeg.New(ffmpeg.Options{
			FontSize:     cfg.Output.FontSize,
			AudioBitrate: cfg.Output.AudioBitrate,
		}),
		Prober: ffprobe.NewProber(""),
	}, logger)
}

// newOrchestrator wires the pipeline and, when the ledger opens, the run
// recorder. The returned close function releases the ledger.
func newOrchestrator(cfg *config.Config, logger *slog.Logger) (*batch.Orchestrator, func(), error) {
	pipe, err := newPipeline(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	orchestrator := batch.New(pipe, batch.Options{
		VideoWorkers: cfg.Workflow.VideoWorkers,
		SkipNonVideo: cfg.Batch.SkipNonVideo,
	}, logger)

	store, err := runstore.Open(cfg.LedgerPath())
	if err != nil {
		logging.WarnWithContext(logger, "run ledger unavailable", "ledger_open_failed",
			logging.String(logging.FieldErrorHint, "check paths.state_dir permissions"),
			logging.String(logging.FieldImpact, "this run is not recorded"),
			logging.Error(err),
		)
		return orchestrator, func() {}, nil
	}
	orchestrator.WithRecorder(store)
	return orchestrator, func() { _ = store.Close() }, nil
}
