package preflight

import (
	"context"

	"subflow/internal/config"
	"subflow/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	// Optional failures are reported but do not block a run.
	Optional bool
	Detail   string
}

// minFreeBytes is the free space the output directory should offer before a
// batch starts.
const minFreeBytes = 2 << 30

// RunLocal executes the filesystem and binary checks.
func RunLocal(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckReadableDirectory("Videos directory", cfg.Paths.VideosDirectory),
		CheckDirectoryAccess("Output directory", nearestExisting(cfg.Paths.OutputDirectory)),
		CheckFreeSpace("Output free space", nearestExisting(cfg.Paths.OutputDirectory), minFreeBytes),
	}
	return append(results, CheckSystemDeps(cfg)...)
}

// RunAll executes the local checks plus a probe of the configured
// translation provider.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	results := RunLocal(cfg)
	if cfg == nil || !cfg.Translation.Enabled {
		return results
	}
	switch cfg.Translation.Provider {
	case config.ProviderLLM:
		results = append(results, CheckLLM(ctx, "Translation LLM", cfg.LLM))
	case config.ProviderGoogle:
		results = append(results, CheckGoogleTranslate(ctx, "Google Translate", cfg.Translation.GoogleBaseURL))
	}
	return results
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}

// CheckSystemDeps resolves the external binaries the pipeline executes.
func CheckSystemDeps(cfg *config.Config) []Result {
	statuses := deps.Resolve(deps.Required(cfg))
	results := make([]Result, 0, len(statuses))
	for _, status := range statuses {
		results = append(results, Result{
			Name:   status.Name,
			Passed: status.Available(),
			Detail: status.Detail(),
		})
	}
	return results
}
