package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"subflow/internal/language"
)

// Environment overrides, applied after the file is decoded. They mirror the
// variables a .env file usually carries.
const (
	envVideosDirectory = "SUBFLOW_VIDEOS_DIRECTORY"
	envOutputDirectory = "SUBFLOW_OUTPUT_DIRECTORY"
	envModel           = "SUBFLOW_WHISPER_MODEL_SIZE"
	envTranslate       = "SUBFLOW_TRANSLATE"
	envTargetLanguages = "SUBFLOW_TARGET_LANGUAGES"
	envLLMAPIKey       = "SUBFLOW_LLM_API_KEY"
	envOpenRouterKey   = "OPENROUTER_API_KEY"
	envHFToken         = "HF_TOKEN"
)

func (c *Config) normalize() error {
	if err := c.applyEnv(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTranscription()
	c.normalizeTranslation()
	c.normalizeLLM()
	c.normalizeOutput()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) applyEnv() error {
	if value, ok := lookupEnv(envVideosDirectory); ok {
		c.Paths.VideosDirectory = value
	}
	if value, ok := lookupEnv(envOutputDirectory); ok {
		c.Paths.OutputDirectory = value
	}
	if value, ok := lookupEnv(envModel); ok {
		c.Transcription.Model = value
	}
	if value, ok := lookupEnv(envTranslate); ok {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", envTranslate, err)
		}
		c.Translation.Enabled = enabled
	}
	if value, ok := lookupEnv(envTargetLanguages); ok {
		c.Translation.TargetLanguages = strings.Split(value, ",")
	}
	if c.LLM.APIKey == "" {
		if value, ok := lookupEnv(envLLMAPIKey); ok {
			c.LLM.APIKey = value
		} else if value, ok := lookupEnv(envOpenRouterKey); ok {
			c.LLM.APIKey = value
		}
	}
	if c.Transcription.HFToken == "" {
		if value, ok := lookupEnv(envHFToken); ok {
			c.Transcription.HFToken = value
		}
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.VideosDirectory, err = expandPath(strings.TrimSpace(c.Paths.VideosDirectory)); err != nil {
		return fmt.Errorf("paths.videos_directory: %w", err)
	}
	if c.Paths.OutputDirectory, err = expandPath(strings.TrimSpace(c.Paths.OutputDirectory)); err != nil {
		return fmt.Errorf("paths.output_directory: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultModel
	}
	c.Transcription.SourceLanguage = string(language.Normalize(c.Transcription.SourceLanguage))
	if c.Transcription.SourceLanguage == "" {
		c.Transcription.SourceLanguage = defaultSourceLanguage
	}
	c.Transcription.VADMethod = strings.ToLower(strings.TrimSpace(c.Transcription.VADMethod))
	if c.Transcription.VADMethod == "" {
		c.Transcription.VADMethod = defaultVADMethod
	}
	c.Transcription.HFToken = strings.TrimSpace(c.Transcription.HFToken)
}

func (c *Config) normalizeTranslation() {
	c.Translation.Provider = strings.ToLower(strings.TrimSpace(c.Translation.Provider))
	if c.Translation.Provider == "" {
		c.Translation.Provider = ProviderGoogle
	}
	c.Translation.TargetLanguages = codesToStrings(language.NormalizeList(c.Translation.TargetLanguages))
	c.Translation.GoogleBaseURL = strings.TrimSpace(c.Translation.GoogleBaseURL)
	if c.Translation.Burst <= 0 {
		c.Translation.Burst = defaultBurst
	}
	c.Languages.RTL = codesToStrings(language.NormalizeList(c.Languages.RTL))
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeOutput() {
	c.Output.AudioBitrate = strings.TrimSpace(c.Output.AudioBitrate)
	if c.Output.AudioBitrate == "" {
		c.Output.AudioBitrate = defaultAudioBitrate
	}
	if c.Output.FontSize == 0 {
		c.Output.FontSize = defaultFontSize
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func codesToStrings(codes []language.Code) []string {
	if len(codes) == 0 {
		return nil
	}
	out := make([]string, len(codes))
	for i, code := range codes {
		out[i] = string(code)
	}
	return out
}
