package main

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"subflow/internal/language"
	"subflow/internal/pipeline"
	"subflow/internal/runstore"
	"subflow/internal/services"
)

func seedLedger(t *testing.T, env *cliTestEnv, runID string) {
	t.Helper()
	store, err := runstore.Open(filepath.Join(env.stateDir, "subflow.db"))
	if err != nil {
		t.Fatalf("runstore.Open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	started := time.Now().Add(-time.Hour)
	if err := store.BeginRun(ctx, runID, env.videosDir, env.outputDir, started); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	result := pipeline.Result{
		Job:   pipeline.Job{VideoName: "clip", VideoPath: filepath.Join(env.videosDir, "clip.mp4")},
		Stage: pipeline.StageDone,
		Languages: map[language.Code]pipeline.LanguageResult{
			"iw": {Code: "iw", Original: true, Subtitled: true},
			"en": {Code: "en", Translated: true, Subtitled: true, Burned: true},
			"fr": {Code: "fr", FailedStep: pipeline.StepTranslation,
				Err: services.Wrap(services.ErrTranslation, "translation", "translate", "backend down", nil)},
		},
		Started:  started,
		Duration: 90 * time.Second,
	}
	if err := store.RecordVideo(ctx, runID, result); err != nil {
		t.Fatalf("RecordVideo: %v", err)
	}
	if err := store.FinishRun(ctx, runID, "partial", started.Add(2*time.Minute)); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
}

func TestHistoryListsRunsAndVideos(t *testing.T) {
	env := setupCLITestEnv(t)
	seedLedger(t, env, "0f3c9a2e-1111-4222-8333-444455556666")

	out, _, err := runCLI(t, env, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "0f3c9a2e")
	requireContains(t, out, "partial")
	requireContains(t, out, "hour ago")

	out, _, err = runCLI(t, env, "history", "0f3c")
	if err != nil {
		t.Fatalf("history detail: %v", err)
	}
	requireContains(t, out, "0f3c9a2e-1111-4222-8333-444455556666")
	requireContains(t, out, "clip")
	requireContains(t, out, "iw*=subtitled")
	requireContains(t, out, "en=burned")
	requireContains(t, out, "fr=failed:translation")
}

func TestHistoryUnknownRun(t *testing.T) {
	env := setupCLITestEnv(t)
	seedLedger(t, env, "0f3c9a2e-1111-4222-8333-444455556666")

	_, _, err := runCLI(t, env, "history", "ffff")
	if !errors.Is(err, runstore.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestHistoryPrune(t *testing.T) {
	env := setupCLITestEnv(t)
	seedLedger(t, env, "0f3c9a2e-1111-4222-8333-444455556666")

	out, _, err := runCLI(t, env, "history", "--prune", "0")
	if err != nil {
		t.Fatalf("history --prune: %v", err)
	}
	requireContains(t, out, "Kept the 0 most recent runs")

	out, _, err = runCLI(t, env, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded")
}

func TestLanguageStates(t *testing.T) {
	got := languageStates([]runstore.Language{
		{Code: "iw", Original: true, Subtitled: true, Burned: true},
		{Code: "es", Translated: true},
		{Code: "de"},
	})
	want := "iw*=burned es=translated de=pending"
	if got != want {
		t.Fatalf("languageStates = %q, want %q", got, want)
	}
	if got := languageStates(nil); strings.TrimSpace(got) != "-" {
		t.Fatalf("languageStates(nil) = %q", got)
	}
}
