package translation

import (
	"context"
	"fmt"
	"strings"

	"subflow/internal/language"
	"subflow/internal/services"
	"subflow/internal/transcript"
)

// Backend translates a single string into target, detecting the source
// language itself.
type Backend interface {
	Translate(ctx context.Context, text string, target language.Code) (string, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, text string, target language.Code) (string, error)

// Translate implements Backend.
func (f BackendFunc) Translate(ctx context.Context, text string, target language.Code) (string, error) {
	return f(ctx, text, target)
}

// Translate returns a copy of segments with each text translated into target.
// Timing is copied verbatim. The first failing segment fails the whole
// transcript; no partial result is returned. Whitespace-only text is passed
// through without a backend call.
func Translate(ctx context.Context, segments []transcript.Segment, target language.Code, backend Backend) ([]transcript.Segment, error) {
	if backend == nil {
		return nil, services.Wrap(services.ErrConfiguration, "translation", string(target), "no translation backend", nil)
	}
	texts := make([]string, len(segments))
	for i, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, services.Wrap(services.ErrTranslation, "translation", string(target), "interrupted", err)
		}
		if strings.TrimSpace(seg.Text) == "" {
			texts[i] = seg.Text
			continue
		}
		translated, err := backend.Translate(ctx, seg.Text, target)
		if err != nil {
			return nil, services.Wrap(services.ErrTranslation, "translation", string(target), fmt.Sprintf("segment %d", i+1), err)
		}
		texts[i] = translated
	}
	out, err := transcript.WithTexts(segments, texts)
	if err != nil {
		return nil, services.Wrap(services.ErrTranslation, "translation", string(target), "", err)
	}
	return out, nil
}
