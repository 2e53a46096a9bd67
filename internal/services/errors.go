package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Failure markers. Every error the pipeline reports carries exactly one of
// these so callers can classify failures with errors.Is.
var (
	ErrIO            = errors.New("io error")
	ErrTranscription = errors.New("transcription error")
	ErrTranslation   = errors.New("translation error")
	ErrTranscoding   = errors.New("transcoding error")
	ErrConfiguration = errors.New("configuration error")
)

// Kind is the short, persisted name of a failure marker.
type Kind string

const (
	KindIO            Kind = "io"
	KindTranscription Kind = "transcription"
	KindTranslation   Kind = "translation"
	KindTranscoding   Kind = "transcoding"
	KindConfiguration Kind = "configuration"
	KindCanceled      Kind = "canceled"
	KindUnknown       Kind = "unknown"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// KindOf reports which marker err carries. Cancellation wins over markers so
// an interrupted run is not reported as a tool failure.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrTranscription):
		return KindTranscription
	case errors.Is(err, ErrTranslation):
		return KindTranslation
	case errors.Is(err, ErrTranscoding):
		return KindTranscoding
	case errors.Is(err, ErrIO):
		return KindIO
	default:
		return KindUnknown
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
