package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"nexusclip/internal/config"
)

const userAgent = "nexusclip/0.1.0"

// Service defines the notification surface exposed to the capture pipeline.
type Service interface {
	CaptureSaved(ctx context.Context, file string, size int64) error
	CaptureFailed(ctx context.Context, err error) error
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
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		captures: cfg.Notifications.Captures,
		failures: cfg.Notifications.Failures,
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
	captures bool
	failures bool
}

func (n *ntfyService) CaptureSaved(ctx context.Context, file string, size int64) error {
	if !n.captures {
		return nil
	}
	file = strings.TrimSpace(file)
	if size < 0 {
		size = 0
	}
	data := payload{
		title:   "nexusclip - Clipboard captured",
		message: fmt.Sprintf("📋 %s (%s)", file, humanize.IBytes(uint64(size))),
		tags:    []string{"nexusclip", "capture", "saved"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) CaptureFailed(ctx context.Context, err error) error {
	if !n.failures {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Capture could not be saved: ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	data := payload{
		title:    "nexusclip - Capture failed",
		message:  builder.String(),
		tags:     []string{"nexusclip", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "nexusclip - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"nexusclip", "test"},
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

type noopService struct{}

func (noopService) CaptureSaved(context.Context, string, int64) error { return nil }
func (noopService) CaptureFailed(context.Context, error) error        { return nil }
func (noopService) TestNotification(context.Context) error            { return nil }
