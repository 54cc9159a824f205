package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"slidecast/internal/config"
)

const userAgent = "slidecast/0.1"

// Service forwards pipeline milestones to an external notifier.
type Service interface {
	NotifyStageCompleted(ctx context.Context, stage, fileName, detail string) error
	NotifyStageFailed(ctx context.Context, stage, fileName, message string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		completions: cfg.Notifications.Completions,
		errors:      cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	completions bool
	errors      bool
}

func (n *ntfyService) NotifyStageCompleted(ctx context.Context, stage, fileName, detail string) error {
	if !n.completions {
		return nil
	}
	stage = strings.TrimSpace(stage)
	message := fmt.Sprintf("✅ %s finished: %s", stage, displayName(fileName))
	if detail = strings.TrimSpace(detail); detail != "" {
		message = fmt.Sprintf("%s\n%s", message, detail)
	}
	data := payload{
		title:   "Slidecast - " + titleWord(stage) + " Complete",
		message: message,
		tags:    []string{"slidecast", stage, "completed"},
	}
	if stage == "assemble" {
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyStageFailed(ctx context.Context, stage, fileName, message string) error {
	if !n.errors {
		return nil
	}
	stage = strings.TrimSpace(stage)
	message = strings.TrimSpace(message)
	if message == "" {
		message = "unknown"
	}
	data := payload{
		title:    "Slidecast - " + titleWord(stage) + " Failed",
		message:  fmt.Sprintf("❌ %s failed for %s: %s", stage, displayName(fileName), message),
		tags:     []string{"slidecast", stage, "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Slidecast - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"slidecast", "test"},
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

func displayName(fileName string) string {
	if fileName = strings.TrimSpace(fileName); fileName != "" {
		return fileName
	}
	return "presentation"
}

func titleWord(stage string) string {
	if stage == "" {
		return "Stage"
	}
	return strings.ToUpper(stage[:1]) + stage[1:]
}

type noopService struct{}

func (noopService) NotifyStageCompleted(context.Context, string, string, string) error { return nil }
func (noopService) NotifyStageFailed(context.Context, string, string, string) error    { return nil }
func (noopService) TestNotification(context.Context) error                             { return nil }
