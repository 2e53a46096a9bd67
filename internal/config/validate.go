package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"subflow/internal/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if topic := c.Notifications.NtfyTopic; topic != "" && !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL, got %q", topic)
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.VideosDirectory == "" {
		return errors.New("paths.videos_directory must be set")
	}
	if c.Paths.OutputDirectory == "" {
		return errors.New("paths.output_directory must be set")
	}
	if filepath.Clean(c.Paths.VideosDirectory) == filepath.Clean(c.Paths.OutputDirectory) {
		return errors.New("paths.output_directory must differ from paths.videos_directory")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if !language.Valid(language.Code(c.Transcription.SourceLanguage)) {
		return fmt.Errorf("transcription.source_language %q is not a valid language code", c.Transcription.SourceLanguage)
	}
	switch c.Transcription.VADMethod {
	case "silero", "pyannote":
	default:
		return fmt.Errorf("transcription.vad_method must be silero or pyannote, got %q", c.Transcription.VADMethod)
	}
	return nil
}

func (c *Config) validateTranslation() error {
	for _, code := range append(append([]string(nil), c.Translation.TargetLanguages...), c.Languages.RTL...) {
		if !language.Valid(language.Code(code)) {
			return fmt.Errorf("language code %q is not valid", code)
		}
	}
	if !c.Translation.Enabled {
		return nil
	}
	if len(c.Translation.TargetLanguages) == 0 {
		return errors.New("translation.target_languages must list at least one language when translation.enabled is true")
	}
	source := c.SourceLanguage()
	for _, code := range c.Translation.TargetLanguages {
		if language.Code(code) == source {
			return fmt.Errorf("translation.target_languages must not include the source language %q", code)
		}
	}
	if c.Translation.RequestsPerSecond < 0 {
		return errors.New("translation.requests_per_second must be >= 0")
	}
	switch c.Translation.Provider {
	case ProviderGoogle:
	case ProviderLLM:
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key is required when translation.provider is llm (or set %s)", envLLMAPIKey)
		}
		if c.LLM.Model == "" {
			return errors.New("llm.model must be set")
		}
	default:
		return fmt.Errorf("translation.provider must be %q or %q, got %q", ProviderGoogle, ProviderLLM, c.Translation.Provider)
	}
	return nil
}

func (c *Config) validateOutput() error {
	if c.Output.FontSize <= 0 {
		return errors.New("output.font_size must be positive")
	}
	if strings.ContainsAny(c.Output.AudioBitrate, " \t") {
		return fmt.Errorf("output.audio_bitrate %q must not contain whitespace", c.Output.AudioBitrate)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.VideoWorkers < 1 {
		return errors.New("workflow.video_workers must be >= 1")
	}
	if c.Workflow.LanguageWorkers < 1 {
		return errors.New("workflow.language_workers must be >= 1")
	}
	if c.Workflow.TranscriptionTimeout < 0 || c.Workflow.TranslationTimeout < 0 || c.Workflow.TranscodeTimeout < 0 {
		return errors.New("workflow timeouts must be >= 0 (0 disables the deadline)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
