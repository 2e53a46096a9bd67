package services

import "context"

type contextKey string

const (
	runIDKey    contextKey = "run_id"
	videoKey    contextKey = "video"
	stageKey    contextKey = "stage"
	languageKey contextKey = "language"
)

// WithRunID annotates context with the batch run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	return withString(ctx, runIDKey, id)
}

// RunIDFromContext extracts the batch run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, runIDKey)
}

// WithVideo annotates context with the video name being processed.
func WithVideo(ctx context.Context, name string) context.Context {
	return withString(ctx, videoKey, name)
}

// VideoFromContext returns the video name if present.
func VideoFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, videoKey)
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	return withString(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, stageKey)
}

// WithLanguage annotates context with the language code a branch works on.
func WithLanguage(ctx context.Context, code string) context.Context {
	return withString(ctx, languageKey, code)
}

// LanguageFromContext returns the language code if present.
func LanguageFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, languageKey)
}

func withString(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringValue(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
