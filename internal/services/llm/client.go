package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"subflow/internal/services/httpretry"
)

const (
	jsonResponseType   = "json_object"
	defaultHTTPTimeout = 30 * time.Second
	defaultBaseURL     = "https://openrouter.ai/api/v1/chat/completions"
)

// Config captures the runtime settings required to talk to the LLM.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// Client wraps a chat completion API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	retry      httpretry.Policy
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(policy httpretry.Policy) Option {
	return func(c *Client) {
		c.retry = policy
	}
}

// NewClient constructs an LLM client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			Referer:        strings.TrimSpace(cfg.Referer),
			Title:          strings.TrimSpace(cfg.Title),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	return client
}

// CompleteJSON issues a JSON-only chat completion request with the supplied
// prompts and returns the raw content produced by the model.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	systemPrompt = strings.TrimSpace(systemPrompt)
	if systemPrompt == "" {
		return "", errors.New("llm complete: system prompt required")
	}
	if strings.TrimSpace(userPrompt) == "" {
		return "", errors.New("llm complete: user prompt required")
	}
	if c.cfg.APIKey == "" {
		return "", errors.New("llm complete: api key required")
	}
	payload := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:    0,
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}

	var content string
	err := c.retry.Do(ctx, "llm complete", func(ctx context.Context) error {
		completion, body, err := c.send(ctx, payload)
		if err != nil {
			return err
		}
		content = completion.content()
		if content == "" {
			return httpretry.Retryable{Err: fmt.Errorf("empty content (response_snippet=%s)", httpretry.Snippet(string(body), 160))}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// HealthCheck issues a fast ping to verify the API key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	content, err := c.CompleteJSON(ctx, "You must respond with JSON only.", `Respond with {"ok":true}`)
	if err != nil {
		return fmt.Errorf("llm health: %w", err)
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeLLMJSON(content, &parsed); err != nil {
		return fmt.Errorf("llm health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("llm health: unexpected response")
	}
	return nil
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		// Some providers return the streaming schema even when stream=false.
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		Text string `json:"text"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (r chatCompletionResponse) content() string {
	for _, choice := range r.Choices {
		for _, candidate := range []string{choice.Message.Content, choice.Delta.Content, choice.Text} {
			if trimmed := strings.TrimSpace(candidate); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func (c *Client) send(ctx context.Context, payload chatCompletionRequest) (chatCompletionResponse, []byte, error) {
	var completion chatCompletionResponse
	encoded, err := json.Marshal(payload)
	if err != nil {
		return completion, nil, fmt.Errorf("llm request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return completion, nil, fmt.Errorf("llm request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return completion, nil, fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return completion, nil, fmt.Errorf("llm request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return completion, body, httpretry.NewStatusError(resp, body)
	}
	if err := json.Unmarshal(body, &completion); err != nil {
		return completion, body, fmt.Errorf("llm request: decode response: %w", err)
	}
	if completion.Error != nil {
		return completion, body, fmt.Errorf("llm request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	return completion, body, nil
}

// DecodeLLMJSON decodes JSON from an LLM response, handling code fences and
// surrounding prose.
func DecodeLLMJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}
	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}
	sanitized := extractJSONObject(stripCodeFence(trimmed))
	if sanitized == "" || sanitized == trimmed {
		return fmt.Errorf("%w (payload snippet: %s)", directErr, httpretry.Snippet(trimmed, 160))
	}
	if err := json.Unmarshal([]byte(sanitized), target); err != nil {
		return fmt.Errorf("%w (sanitized payload snippet: %s)", err, httpretry.Snippet(sanitized, 160))
	}
	return nil
}

func stripCodeFence(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}
	body := strings.TrimLeft(content[3:], " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func extractJSONObject(content string) string {
	if content == "" || content[0] == '{' {
		return content
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		return strings.TrimSpace(content[start : end+1])
	}
	return content
}
