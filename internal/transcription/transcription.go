// Package transcription defines the speech-to-text collaborator the pipeline
// consumes and guards shared instances against concurrent use.
package transcription

import (
	"context"
	"sync"

	"subflow/internal/transcript"
)

// Transcriber turns an extracted audio file into ordered timed segments in the
// spoken language.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]transcript.Segment, error)
}

// ConcurrencySafe is implemented by transcribers that tolerate concurrent
// Transcribe calls on one instance.
type ConcurrencySafe interface {
	ConcurrencySafe() bool
}

// Exclusive returns t unchanged when it reports itself concurrency safe, and
// otherwise wraps it so at most one Transcribe call runs at a time.
func Exclusive(t Transcriber) Transcriber {
	if t == nil {
		return nil
	}
	if safe, ok := t.(ConcurrencySafe); ok && safe.ConcurrencySafe() {
		return t
	}
	if _, ok := t.(*serialized); ok {
		return t
	}
	return &serialized{inner: t}
}

type serialized struct {
	mu    sync.Mutex
	inner Transcriber
}

func (s *serialized) Transcribe(ctx context.Context, audioPath string) ([]transcript.Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.inner.Transcribe(ctx, audioPath)
}
