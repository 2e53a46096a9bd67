package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"subflow/internal/config"
)

const userAgent = "subflow/0.1.0"

// Report summarizes a finished batch.
type Report struct {
	RunID      string
	Outcome    string
	Succeeded  int
	Partial    int
	Failed     int
	NotStarted int
	Duration   time.Duration
	OutputDir  string
}

// Service defines the notification surface used by the CLI.
type Service interface {
	NotifyBatchCompleted(ctx context.Context, report Report) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, report Report) error {
	duration := report.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	data := payload{
		tags: []string{"subflow", "batch", report.Outcome},
	}
	total := report.Succeeded + report.Partial + report.Failed
	switch report.Outcome {
	case "succeeded":
		data.title = "subflow - Batch Complete"
		data.message = fmt.Sprintf("Subtitled %d videos in %s", total, duration)
	case "interrupted":
		data.title = "subflow - Batch Interrupted"
		data.message = fmt.Sprintf("Stopped after %d videos (%d not started) in %s", total, report.NotStarted, duration)
	default:
		data.title = "subflow - Batch Complete (with errors)"
		data.message = fmt.Sprintf("%d succeeded, %d partial, %d failed in %s", report.Succeeded, report.Partial, report.Failed, duration)
		data.priority = "high"
	}
	if dir := strings.TrimSpace(report.OutputDir); dir != "" {
		data.message += "\nOutput: " + dir
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "subflow - Error",
		message:  builder.String(),
		tags:     []string{"subflow", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "subflow - Test",
		message:  "Notification system test",
		tags:     []string{"subflow", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Enabled reports whether svc actually delivers notifications.
func Enabled(svc Service) bool {
	_, noop := svc.(noopService)
	return svc != nil && !noop
}

type noopService struct{}

func (noopService) NotifyBatchCompleted(context.Context, Report) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error   { return nil }
func (noopService) TestNotification(context.Context) error             { return nil }
