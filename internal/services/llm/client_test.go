package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"subflow/internal/services/httpretry"
)

func completionHandler(t *testing.T, content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"content": content}},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}
}

func noSleep() Option {
	return WithRetryPolicy(httpretry.Policy{Attempts: 3, Sleeper: func(time.Duration) {}})
}

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(completionHandler(t, `{"ok":true}`))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"}, noSleep())
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}

func TestClientTranslate(t *testing.T) {
	var request chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Fatalf("unexpected auth header %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &request); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		completionHandler(t, "```json\n{\"translation\": \"hola\"}\n```")(w, r)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL, Model: "demo"})
	got, err := client.Translate(context.Background(), "hello", "es")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "hola" {
		t.Fatalf("expected hola, got %q", got)
	}
	if len(request.Messages) != 2 || request.Messages[1].Content != "hello" {
		t.Fatalf("unexpected messages %+v", request.Messages)
	}
	if !strings.Contains(request.Messages[0].Content, "Spanish") {
		t.Fatalf("expected target language in prompt, got %q", request.Messages[0].Content)
	}
}

func TestClientRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		completionHandler(t, `{"translation":"bonjour"}`)(w, r)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL}, noSleep())
	got, err := client.Translate(context.Background(), "hello", "fr")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "bonjour" || calls.Load() != 2 {
		t.Fatalf("expected retry then success, got %q after %d calls", got, calls.Load())
	}
}

func TestClientRetriesEmptyContent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		completionHandler(t, "")(w, r)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL}, noSleep())
	if _, err := client.Translate(context.Background(), "hello", "fr"); err == nil {
		t.Fatal("expected failure for empty content")
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestTranslateRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{})
	if _, err := client.Translate(context.Background(), "hello", "fr"); err == nil {
		t.Fatal("expected missing api key error")
	}
}

func TestDecodeLLMJSON(t *testing.T) {
	var out struct {
		Translation string `json:"translation"`
	}
	if err := DecodeLLMJSON(`Sure! {"translation":"ciao"} Hope that helps.`, &out); err != nil {
		t.Fatalf("DecodeLLMJSON: %v", err)
	}
	if out.Translation != "ciao" {
		t.Fatalf("unexpected result %+v", out)
	}
	if err := DecodeLLMJSON("", &out); err == nil {
		t.Fatal("expected error for empty payload")
	}
	if err := DecodeLLMJSON("no json here", &out); err == nil {
		t.Fatal("expected error for prose")
	}
}
