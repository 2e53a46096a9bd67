package logging

import (
	"context"
	"log/slog"

	"subflow/internal/services"
)

const (
	FieldComponent = "component"
	FieldRunID     = "run_id"
	FieldVideo     = "video"
	FieldStage     = "stage"
	FieldLanguage  = "language"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	FieldErrorKind = "error_kind"
	// FieldErrorHint carries the operator's next step.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if video, ok := services.VideoFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldVideo, video))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if code, ok := services.LanguageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldLanguage, code))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}

// ErrorAttrs describes err with its classification.
func ErrorAttrs(err error) []Attr {
	if err == nil {
		return nil
	}
	return []Attr{Error(err), String(FieldErrorKind, string(services.KindOf(err)))}
}
