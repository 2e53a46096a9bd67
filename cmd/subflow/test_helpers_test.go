package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	videosDir  string
	outputDir  string
	stateDir   string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	for _, key := range []string{
		"SUBFLOW_VIDEOS_DIRECTORY", "SUBFLOW_OUTPUT_DIRECTORY", "SUBFLOW_WHISPER_MODEL_SIZE",
		"SUBFLOW_TRANSLATE", "SUBFLOW_TARGET_LANGUAGES", "SUBFLOW_LLM_API_KEY", "OPENROUTER_API_KEY", "HF_TOKEN",
	} {
		t.Setenv(key, "")
	}

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "subflow.toml"),
		videosDir:  filepath.Join(base, "videos"),
		outputDir:  filepath.Join(base, "output"),
		stateDir:   filepath.Join(base, "state"),
	}
	if err := os.MkdirAll(env.videosDir, 0o755); err != nil {
		t.Fatalf("mkdir videos: %v", err)
	}
	writeTestConfig(t, env)
	return env
}

func writeTestConfig(t *testing.T, env *cliTestEnv) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
videos_directory = %q
output_directory = %q
state_dir = %q
log_dir = %q

[translation]
enabled = true
target_languages = ["en"]
provider = "google"
google_base_url = "http://127.0.0.1:1"
`, env.videosDir, env.outputDir, env.stateDir, filepath.Join(env.stateDir, "logs"))
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func appendConfig(t *testing.T, env *cliTestEnv, content string) {
	t.Helper()
	f, err := os.OpenFile(env.configPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open config: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append config: %v", err)
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if env != nil {
		args = append([]string{"--config", env.configPath, "--log-level", "error"}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\noutput:\n%s", needle, haystack)
	}
}
