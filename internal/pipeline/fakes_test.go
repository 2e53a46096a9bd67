package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"subflow/internal/language"
	"subflow/internal/services"
	"subflow/internal/transcript"
	"subflow/internal/translation"
)

type fakeProber struct {
	duration float64
	err      error
}

func (f fakeProber) Probe(context.Context, string) (float64, error) {
	return f.duration, f.err
}

type fakeTranscriber struct {
	mu       sync.Mutex
	segments []transcript.Segment
	err      error
	calls    int
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audioPath string) ([]transcript.Segment, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("audio missing: %w", err)
	}
	if f.err != nil {
		return nil, f.err
	}
	return append([]transcript.Segment(nil), f.segments...), nil
}

// fakeTranscoder writes placeholder files where ffmpeg would.
type fakeTranscoder struct {
	mu        sync.Mutex
	temps     []string
	burned    []string
	failRemux string
}

func (f *fakeTranscoder) ExtractAudio(_ context.Context, _, audio string) error {
	return os.WriteFile(audio, []byte("RIFF"), 0o644)
}

func (f *fakeTranscoder) BurnSubtitles(_ context.Context, video, srt, temp string) error {
	f.mu.Lock()
	f.temps = append(f.temps, temp)
	f.burned = append(f.burned, srt)
	f.mu.Unlock()
	return os.WriteFile(temp, []byte("burned:"+srt), 0o644)
}

func (f *fakeTranscoder) Remux(_ context.Context, temp, _, final string) error {
	if f.failRemux != "" && strings.Contains(final, f.failRemux) {
		return services.Wrap(services.ErrTranscoding, "burn_in", "remux audio", "exit status 1", errors.New("ffmpeg failed"))
	}
	data, err := os.ReadFile(temp)
	if err != nil {
		return err
	}
	return os.WriteFile(final, data, 0o644)
}

var dictionary = map[language.Code]map[string]string{
	"es": {"hello": "hola", "world": "mundo"},
	"en": {"hello": "hello", "world": "world"},
}

func dictionaryBackend(failing ...language.Code) translation.Backend {
	return translation.BackendFunc(func(_ context.Context, text string, target language.Code) (string, error) {
		for _, code := range failing {
			if code == target {
				return "", fmt.Errorf("backend rejected %s", target)
			}
		}
		if words, ok := dictionary[target]; ok {
			if out, ok := words[text]; ok {
				return out, nil
			}
		}
		return string(target) + ":" + text, nil
	})
}
