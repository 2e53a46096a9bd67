package logging

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"subflow/internal/services"
)

// Attr aliases slog.Attr so callers only import this package.
type Attr = slog.Attr

func Any(key string, value any) Attr                { return slog.Any(key, value) }
func Bool(key string, value bool) Attr              { return slog.Bool(key, value) }
func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }
func Float64(key string, value float64) Attr        { return slog.Float64(key, value) }
func Int(key string, value int) Attr                { return slog.Int(key, value) }
func String(key, value string) Attr                 { return slog.String(key, value) }

// Error returns the "error" attribute, or an empty Attr (dropped by slog) for
// a nil error.
func Error(err error) Attr {
	if err == nil {
		return Attr{}
	}
	return slog.Any("error", err)
}

// Args converts attrs into the variadic form slog.Logger methods take.
func Args(attrs ...Attr) []any {
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	return args
}

// NewNop returns a logger that discards every record.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewComponentLogger tags logger with the component name. A nil logger yields
// a discarding one.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

const (
	defaultErrorHint = "rerun with --log-level debug for the tool output"
	defaultImpact    = "the batch continues"
)

// WarnWithContext logs a warning that always carries event_type, error_hint
// and impact. Attributes the caller sets win over the defaults.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	emit(logger, slog.LevelWarn, msg, attrs,
		String(FieldEventType, eventType),
		String(FieldErrorHint, defaultErrorHint),
		String(FieldImpact, defaultImpact),
	)
}

// ErrorWithContext logs an error that always carries event_type and
// error_hint.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	emit(logger, slog.LevelError, msg, attrs,
		String(FieldEventType, eventType),
		String(FieldErrorHint, defaultErrorHint),
	)
}

// emit appends each default whose key attrs lacks. An "error" attribute
// without an error_kind gains one from services.KindOf.
func emit(logger *slog.Logger, level slog.Level, msg string, attrs []Attr, defaults ...Attr) {
	if logger == nil {
		return
	}
	attrs = slices.Clone(attrs)
	for _, def := range defaults {
		if !hasKey(attrs, def.Key) {
			attrs = append(attrs, def)
		}
	}
	if !hasKey(attrs, FieldErrorKind) {
		for _, attr := range attrs {
			if err, ok := attr.Value.Any().(error); ok && attr.Key == "error" {
				attrs = append(attrs, String(FieldErrorKind, string(services.KindOf(err))))
				break
			}
		}
	}
	logger.LogAttrs(context.Background(), level, msg, attrs...)
}

func hasKey(attrs []Attr, key string) bool {
	return slices.ContainsFunc(attrs, func(a Attr) bool { return a.Key == key })
}
