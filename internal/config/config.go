package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"subflow/internal/language"
	"subflow/internal/services"
)

//go:embed sample_config.toml
var sampleConfig string

// Translation providers.
const (
	ProviderGoogle = "google"
	ProviderLLM    = "llm"
)

// Paths contains directory configuration.
type Paths struct {
	VideosDirectory string `toml:"videos_directory"`
	OutputDirectory string `toml:"output_directory"`
	StateDir        string `toml:"state_dir"`
	LogDir          string `toml:"log_dir"`
}

// Transcription configures the WhisperX collaborator.
type Transcription struct {
	Model          string `toml:"model"`
	SourceLanguage string `toml:"source_language"`
	CUDAEnabled    bool   `toml:"cuda_enabled"`
	VADMethod      string `toml:"vad_method"`
	HFToken        string `toml:"hf_token"`
}

// Translation configures the per-language fan-out.
type Translation struct {
	Enabled           bool     `toml:"enabled"`
	TargetLanguages   []string `toml:"target_languages"`
	Provider          string   `toml:"provider"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Burst             int      `toml:"burst"`
	GoogleBaseURL     string   `toml:"google_base_url"`
}

// LLM contains chat completion connection settings used when
// translation.provider is "llm".
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Languages holds language-level rendering rules.
type Languages struct {
	RTL []string `toml:"rtl"`
}

// Output controls which artifacts are rendered and kept.
type Output struct {
	EmitOriginalAsVideo bool   `toml:"emit_original_as_video"`
	KeepAudio           bool   `toml:"keep_audio"`
	FontSize            int    `toml:"font_size"`
	AudioBitrate        string `toml:"audio_bitrate"`
}

// Workflow bounds concurrency and external call latency. Timeouts are in
// seconds; zero disables the deadline.
type Workflow struct {
	VideoWorkers         int `toml:"video_workers"`
	LanguageWorkers      int `toml:"language_workers"`
	TranscriptionTimeout int `toml:"transcription_timeout"`
	TranslationTimeout   int `toml:"translation_timeout"`
	TranscodeTimeout     int `toml:"transcode_timeout"`
}

// Batch controls directory scanning.
type Batch struct {
	SkipNonVideo bool `toml:"skip_non_video"`
}

// Notifications configures ntfy delivery of batch outcomes. An empty topic
// disables notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for subflow.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Transcription Transcription `toml:"transcription"`
	Translation   Translation   `toml:"translation"`
	LLM           LLM           `toml:"llm"`
	Languages     Languages     `toml:"languages"`
	Output        Output        `toml:"output"`
	Workflow      Workflow      `toml:"workflow"`
	Batch         Batch         `toml:"batch"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/subflow/config.toml")
}

// Load locates, parses, and validates a configuration file. It returns the
// config, the resolved path, and whether a file existed there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, configError("resolve", err)
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, configError("open", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, configError("parse", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, configError("normalize", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, configError("validate", err)
	}
	return &cfg, resolvedPath, exists, nil
}

func configError(operation string, err error) error {
	return services.Wrap(services.ErrConfiguration, "config", operation, "", err)
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("subflow.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the output, state, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDirectory, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return services.Wrap(services.ErrIO, "config", "create directory", dir, err)
		}
	}
	return nil
}

// LedgerPath returns the sqlite run ledger location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "subflow.db")
}

// LockPath returns the lock file guarding an output directory.
func LockPath(outputDir string) string {
	return filepath.Join(outputDir, ".subflow.lock")
}

// SourceLanguage returns the spoken language of input videos.
func (c *Config) SourceLanguage() language.Code {
	return language.Normalize(c.Transcription.SourceLanguage)
}

// TargetLanguages returns the translation targets in configuration order, or
// nil when translation is disabled.
func (c *Config) TargetLanguages() []language.Code {
	if !c.Translation.Enabled {
		return nil
	}
	return language.NormalizeList(c.Translation.TargetLanguages)
}

// RTLSet returns the right-to-left language membership set.
func (c *Config) RTLSet() language.Set {
	return language.NewSet(c.Languages.RTL...)
}

// TranscriptionTimeout returns the per-call transcription deadline.
func (c *Config) TranscriptionTimeout() time.Duration {
	return seconds(c.Workflow.TranscriptionTimeout)
}

// TranslationTimeout returns the per-call translation deadline.
func (c *Config) TranslationTimeout() time.Duration {
	return seconds(c.Workflow.TranslationTimeout)
}

// TranscodeTimeout returns the per-call ffmpeg deadline.
func (c *Config) TranscodeTimeout() time.Duration {
	return seconds(c.Workflow.TranscodeTimeout)
}

func seconds(value int) time.Duration {
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders c as TOML.
func (c *Config) Encode() ([]byte, error) {
	redacted := *c
	if redacted.LLM.APIKey != "" {
		redacted.LLM.APIKey = "<redacted>"
	}
	if redacted.Transcription.HFToken != "" {
		redacted.Transcription.HFToken = "<redacted>"
	}
	return toml.Marshal(redacted)
}
