package config

import "subflow/internal/language"

const (
	defaultVideosDirectory    = "~/videos"
	defaultOutputDirectory    = "~/videos/output"
	defaultStateDir           = "~/.local/share/subflow"
	defaultLogDir             = "~/.local/share/subflow/logs"
	defaultModel              = "large-v3"
	defaultSourceLanguage     = "iw"
	defaultVADMethod          = "silero"
	defaultTargetLanguage     = "en"
	defaultRequestsPerSecond  = 5
	defaultBurst              = 1
	defaultLLMBaseURL         = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel           = "google/gemini-2.5-flash"
	defaultLLMTitle           = "subflow"
	defaultLLMTimeoutSeconds  = 60
	defaultFontSize           = 20
	defaultAudioBitrate       = "192k"
	defaultTranslationTimeout = 60
	defaultNotifyTimeout      = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			VideosDirectory: defaultVideosDirectory,
			OutputDirectory: defaultOutputDirectory,
			StateDir:        defaultStateDir,
			LogDir:          defaultLogDir,
		},
		Transcription: Transcription{
			Model:          defaultModel,
			SourceLanguage: defaultSourceLanguage,
			VADMethod:      defaultVADMethod,
		},
		Translation: Translation{
			Enabled:           true,
			TargetLanguages:   []string{defaultTargetLanguage},
			Provider:          ProviderGoogle,
			RequestsPerSecond: defaultRequestsPerSecond,
			Burst:             defaultBurst,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Languages: Languages{
			RTL: append([]string(nil), language.DefaultRTL...),
		},
		Output: Output{
			KeepAudio:    true,
			FontSize:     defaultFontSize,
			AudioBitrate: defaultAudioBitrate,
		},
		Workflow: Workflow{
			VideoWorkers:       1,
			LanguageWorkers:    1,
			TranslationTimeout: defaultTranslationTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
