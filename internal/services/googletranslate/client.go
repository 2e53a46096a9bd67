// Package googletranslate calls the public Google Translate web endpoint with
// source-language auto-detection, one string per request.
package googletranslate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"subflow/internal/language"
	"subflow/internal/services/httpretry"
)

// DefaultBaseURL is the endpoint used when Config.BaseURL is empty.
const DefaultBaseURL = "https://translate.googleapis.com/translate_a/single"

const defaultHTTPTimeout = 15 * time.Second

// Config configures the client.
type Config struct {
	BaseURL        string
	TimeoutSeconds int
}

// Client translates text through the web endpoint.
type Client struct {
	baseURL    string
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

// New constructs a Client.
func New(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimSpace(cfg.BaseURL),
		httpClient: &http.Client{Timeout: timeout},
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Translate returns text translated into target.
func (c *Client) Translate(ctx context.Context, text string, target language.Code) (string, error) {
	if strings.TrimSpace(string(target)) == "" {
		return "", errors.New("google translate: target language required")
	}
	var translated string
	err := c.retry.Do(ctx, "google translate", func(ctx context.Context) error {
		out, err := c.translateOnce(ctx, text, target)
		if err != nil {
			return err
		}
		translated = out
		return nil
	})
	if err != nil {
		return "", err
	}
	return translated, nil
}

func (c *Client) translateOnce(ctx context.Context, text string, target language.Code) (string, error) {
	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("google translate: parse base url: %w", err)
	}
	query := url.Values{}
	query.Set("client", "gtx")
	query.Set("sl", "auto")
	query.Set("tl", string(target))
	query.Set("dt", "t")
	query.Set("q", text)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", fmt.Errorf("google translate: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("google translate: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("google translate: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", httpretry.NewStatusError(resp, body)
	}
	return parseResponse(body)
}

// parseResponse reads the nested array payload. The first element holds one
// [translated, original, ...] entry per sentence.
func parseResponse(body []byte) (string, error) {
	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("google translate: decode response: %w (snippet: %s)", err, httpretry.Snippet(string(body), 160))
	}
	if len(payload) == 0 {
		return "", errors.New("google translate: empty response")
	}
	var sentences [][]json.RawMessage
	if err := json.Unmarshal(payload[0], &sentences); err != nil {
		return "", fmt.Errorf("google translate: decode sentences: %w", err)
	}
	var b strings.Builder
	for _, sentence := range sentences {
		if len(sentence) == 0 {
			continue
		}
		var part string
		if err := json.Unmarshal(sentence[0], &part); err != nil {
			continue
		}
		b.WriteString(part)
	}
	if b.Len() == 0 {
		return "", httpretry.Retryable{Err: errors.New("google translate: no translated text in response")}
	}
	return b.String(), nil
}
