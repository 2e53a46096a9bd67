// Package httpretry retries HTTP calls to translation services on transient
// failures (408, 429, 5xx, network timeouts) with capped exponential backoff,
// honouring Retry-After when the server sends one.
package httpretry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Defaults used when a Policy field is left zero.
const (
	DefaultAttempts  = 5
	DefaultBaseDelay = time.Second
	DefaultMaxDelay  = 10 * time.Second
)

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// NewStatusError builds a StatusError from resp and its already-read body.
func NewStatusError(resp *http.Response, body []byte) *StatusError {
	retryAfter, _ := ParseRetryAfter(resp.Header.Get("Retry-After"))
	return &StatusError{
		StatusCode: resp.StatusCode,
		Body:       Snippet(string(body), 200),
		RetryAfter: retryAfter,
	}
}

// Retryable marks an error as worth another attempt regardless of its type.
type Retryable struct{ Err error }

func (r Retryable) Error() string { return r.Err.Error() }
func (r Retryable) Unwrap() error { return r.Err }

// Policy configures retries. The zero value uses the package defaults.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Sleeper replaces the real wait (tests).
	Sleeper func(time.Duration)
}

// Do runs call until it succeeds, returns a non-retryable error, or the
// attempts are exhausted.
func (p Policy) Do(ctx context.Context, op string, call func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := call(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt == attempts || ctx.Err() != nil {
			break
		}
		delay, retry := p.delay(err, attempt)
		if !retry {
			return err
		}
		if err := p.sleep(ctx, delay); err != nil {
			return err
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

func (p Policy) delay(err error, attempt int) (time.Duration, bool) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}
	var retryable Retryable
	if errors.As(err, &retryable) {
		return p.backoff(attempt), true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				return p.capDelay(statusErr.RetryAfter), true
			}
			return p.backoff(attempt), true
		default:
			return 0, false
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return p.backoff(attempt), true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return p.backoff(attempt), true
	}
	return 0, false
}

// backoff doubles from BaseDelay: attempt 1 -> base, 2 -> 2*base, 3 -> 4*base.
func (p Policy) backoff(attempt int) time.Duration {
	base := p.BaseDelay
	if base == 0 {
		base = DefaultBaseDelay
	}
	if base < 0 {
		return 0
	}
	limit := p.maxDelay()
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > limit/2 {
			return limit
		}
		delay *= 2
	}
	return p.capDelay(delay)
}

func (p Policy) maxDelay() time.Duration {
	if p.MaxDelay > 0 {
		return p.MaxDelay
	}
	return DefaultMaxDelay
}

func (p Policy) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	if limit := p.maxDelay(); delay > limit {
		return limit
	}
	return delay
}

func (p Policy) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if p.Sleeper != nil {
		p.Sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ParseRetryAfter reads a Retry-After header in seconds or HTTP-date form.
func ParseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

// Snippet flattens whitespace and truncates content for error messages.
func Snippet(content string, limit int) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	runes := []rune(clean)
	if limit > 0 && len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return clean
}
