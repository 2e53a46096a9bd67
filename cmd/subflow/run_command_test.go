package main

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"subflow/internal/batch"
	"subflow/internal/services"
)

func TestRunEmptyDirectorySucceedsAndIsRecorded(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "run", "--skip-preflight")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "succeeded: 0 succeeded, 0 partial, 0 failed")

	if _, err := os.Stat(filepath.Join(env.stateDir, "subflow.db")); err != nil {
		t.Fatalf("expected run ledger: %v", err)
	}
	out, _, err = runCLI(t, env, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "succeeded")
	requireContains(t, out, env.outputDir)
}

func TestRunUndecodableVideoIsIncomplete(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(filepath.Join(env.videosDir, "notes.mp4"), []byte("not a video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}

	out, _, err := runCLI(t, env, "run", "--skip-preflight")
	if !errors.Is(err, batch.ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
	if code := exitCode(err, new(strings.Builder)); code != exitIncomplete {
		t.Fatalf("exit code = %d, want %d", code, exitIncomplete)
	}
	requireContains(t, out, "notes")
	requireContains(t, out, "failed")
}

func TestRunSkipsNonVideoWhenConfigured(t *testing.T) {
	env := setupCLITestEnv(t)
	appendConfig(t, env, "\n[batch]\nskip_non_video = true\n")
	if err := os.WriteFile(filepath.Join(env.videosDir, "readme.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	out, _, err := runCLI(t, env, "run", "--skip-preflight")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "Skipped readme.txt")
}

func TestRunRejectsSameVideosAndOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, env, "run", "--skip-preflight", "--output", env.videosDir)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRunPreflightBlocksMissingVideosDirectory(t *testing.T) {
	env := setupCLITestEnv(t)
	_, stderr, err := runCLI(t, env, "run", "--videos", filepath.Join(env.baseDir, "missing"))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected preflight configuration error, got %v", err)
	}
	requireContains(t, err.Error(), "Videos directory")
	requireContains(t, stderr, "[ERROR]")
}

func TestVideoMissingFileCannotStart(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, env, "video", "--skip-preflight", filepath.Join(env.videosDir, "absent.mp4"))
	if err == nil {
		t.Fatal("expected error for missing video")
	}
	if errors.Is(err, batch.ErrIncomplete) {
		t.Fatalf("missing video should not be reported as incomplete: %v", err)
	}
	if !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected io error, got %v", err)
	}
}

func TestRunNotifiesBatchOutcome(t *testing.T) {
	env := setupCLITestEnv(t)
	bodies := make(chan string, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		bodies <- string(data)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	appendConfig(t, env, "\n[notifications]\nntfy_topic = \""+server.URL+"\"\n")

	if _, _, err := runCLI(t, env, "run", "--skip-preflight"); err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, <-bodies, "Subtitled 0 videos")

	out, _, err := runCLI(t, env, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Test notification sent")
}

func TestTestNotifyRequiresTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env, "test-notify"); err == nil {
		t.Fatal("expected error without a topic")
	}
}
