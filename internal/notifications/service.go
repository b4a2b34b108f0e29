package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"textifier/internal/config"
)

const userAgent = "Textifier-Go/0.1.0"

// Summary counts the outcomes of one CLI run.
type Summary struct {
	Kind      string // transcription or translation
	Source    string // file or folder the run was started on
	Succeeded int
	Failed    int
	Canceled  int
	Skipped   int
	Duration  time.Duration
}

// Total is the number of items the run covered.
func (s Summary) Total() int {
	return s.Succeeded + s.Failed + s.Canceled + s.Skipped
}

// Service defines the notification surface used by the CLI.
type Service interface {
	NotifyRunCompleted(ctx context.Context, summary Summary) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
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

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, s Summary) error {
	kind := strings.TrimSpace(s.Kind)
	if kind == "" {
		kind = "job"
	}
	var b strings.Builder
	if s.Total() == 1 {
		fmt.Fprintf(&b, "%s of %s", titleCase(kind), strings.TrimSpace(s.Source))
	} else {
		fmt.Fprintf(&b, "%s of %d items in %s", titleCase(kind), s.Total(), strings.TrimSpace(s.Source))
	}
	fmt.Fprintf(&b, "\nSucceeded: %d", s.Succeeded)
	if s.Failed > 0 {
		fmt.Fprintf(&b, "\nFailed: %d", s.Failed)
	}
	if s.Canceled > 0 {
		fmt.Fprintf(&b, "\nCanceled: %d", s.Canceled)
	}
	if s.Skipped > 0 {
		fmt.Fprintf(&b, "\nSkipped: %d", s.Skipped)
	}
	if s.Duration > 0 {
		fmt.Fprintf(&b, "\nDuration: %s", s.Duration.Round(time.Second))
	}

	data := payload{
		title:   "Textifier - " + titleCase(kind) + " Complete",
		message: b.String(),
		tags:    []string{"textifier", kind, "completed"},
	}
	if s.Failed > 0 {
		data.title = "Textifier - " + titleCase(kind) + " Finished With Errors"
		data.tags = []string{"textifier", kind, "warning"}
		data.priority = "high"
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
		title:    "Textifier - Error",
		message:  builder.String(),
		tags:     []string{"textifier", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Textifier - Test",
		message:  "Notification system test",
		tags:     []string{"textifier", "test"},
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

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, Summary) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error  { return nil }
func (noopService) TestNotification(context.Context) error            { return nil }
