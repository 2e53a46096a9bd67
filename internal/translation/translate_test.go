package translation

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"subflow/internal/language"
	"subflow/internal/services"
	"subflow/internal/transcript"
)

func dictionary(entries map[string]string) Backend {
	return BackendFunc(func(ctx context.Context, text string, target language.Code) (string, error) {
		if out, ok := entries[text]; ok {
			return out, nil
		}
		return "", errors.New("unknown phrase " + text)
	})
}

func TestTranslatePreservesTiming(t *testing.T) {
	in := []transcript.Segment{{Start: 0.0, End: 1.2, Text: "hello"}}
	got, err := Translate(context.Background(), in, "es", dictionary(map[string]string{"hello": "hola"}))
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	want := []transcript.Segment{{Start: 0.0, End: 1.2, Text: "hola"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if in[0].Text != "hello" {
		t.Fatal("input segments must not be modified")
	}
}

func TestTranslateManySegments(t *testing.T) {
	in := []transcript.Segment{
		{Start: 0, End: 1, Text: "one"},
		{Start: 1, End: 2.5, Text: "   "},
		{Start: 3.125, End: 4, Text: "two"},
	}
	var calls atomic.Int32
	backend := BackendFunc(func(ctx context.Context, text string, target language.Code) (string, error) {
		calls.Add(1)
		return strings.ToUpper(text) + "@" + string(target), nil
	})
	got, err := Translate(context.Background(), in, "fr", backend)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(got) != len(in) {
		t.Fatalf("segment count changed: %d vs %d", len(got), len(in))
	}
	for i := range in {
		if got[i].Start != in[i].Start || got[i].End != in[i].End {
			t.Fatalf("timing changed at %d", i)
		}
	}
	if got[0].Text != "ONE@fr" || got[1].Text != "   " || got[2].Text != "TWO@fr" {
		t.Fatalf("unexpected texts %+v", got)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected whitespace segment to skip the backend, got %d calls", calls.Load())
	}
}

func TestTranslateFailsWholeTranscript(t *testing.T) {
	in := []transcript.Segment{{Start: 0, End: 1, Text: "hello"}, {Start: 1, End: 2, Text: "mystery"}}
	got, err := Translate(context.Background(), in, "fr", dictionary(map[string]string{"hello": "bonjour"}))
	if err == nil {
		t.Fatal("expected error")
	}
	if got != nil {
		t.Fatalf("expected no partial transcript, got %+v", got)
	}
	if !errors.Is(err, services.ErrTranslation) {
		t.Fatalf("expected translation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "segment 2") {
		t.Fatalf("expected failing segment in %q", err)
	}
}

func TestTranslateEmptyTranscript(t *testing.T) {
	got, err := Translate(context.Background(), nil, "es", dictionary(nil))
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %v %v", got, err)
	}
}

func TestTranslateWithoutBackend(t *testing.T) {
	_, err := Translate(context.Background(), []transcript.Segment{{Start: 0, End: 1, Text: "x"}}, "es", nil)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestPacedAppliesCallTimeout(t *testing.T) {
	slow := BackendFunc(func(ctx context.Context, text string, target language.Code) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	backend := Paced(slow, PaceConfig{CallTimeout: 10 * time.Millisecond})
	_, err := backend.Translate(context.Background(), "hello", "es")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestPacedWithoutLimitsReturnsBackend(t *testing.T) {
	inner := dictionary(map[string]string{"a": "b"})
	if got := Paced(inner, PaceConfig{}); got == nil {
		t.Fatal("expected backend")
	}
	if Paced(nil, PaceConfig{RequestsPerSecond: 1}) != nil {
		t.Fatal("expected nil for nil backend")
	}
}

func TestPacedLimiterStopsOnCancel(t *testing.T) {
	inner := dictionary(map[string]string{"a": "b"})
	backend := Paced(inner, PaceConfig{RequestsPerSecond: 0.001, Burst: 1})
	if _, err := backend.Translate(context.Background(), "a", "es"); err != nil {
		t.Fatalf("first call should use the burst: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := backend.Translate(ctx, "a", "es"); err == nil {
		t.Fatal("expected limiter wait to fail once the context expires")
	}
}
