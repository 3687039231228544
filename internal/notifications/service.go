package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storyreel/internal/config"
)

const userAgent = "storyreel/0.1.0"

// Event identifies a notification kind.
type Event string

const (
	EventJobCompleted    Event = "job_completed"
	EventJobFailed       Event = "job_failed"
	EventStoriesFetched  Event = "stories_fetched"
	EventBackgroundsDone Event = "backgrounds_imported"
	EventTest            Event = "test"
)

// Payload carries event fields. Keys are event specific.
type Payload map[string]any

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
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
		enabled: map[Event]bool{
			EventJobCompleted:    cfg.Notifications.JobCompleted,
			EventJobFailed:       cfg.Notifications.JobFailed,
			EventStoriesFetched:  true,
			EventBackgroundsDone: true,
			EventTest:            true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventJobCompleted:
		body := fmt.Sprintf("🎬 Rendered: %s", text(payload, "title"))
		if output := text(payload, "output"); output != "" {
			body += "\nFile: " + output
		}
		if elapsed, ok := payload["elapsed"].(time.Duration); ok {
			body += "\nElapsed: " + elapsed.Round(time.Second).String()
		}
		return message{
			title: "storyreel - Video Ready",
			body:  body,
			tags:  []string{"storyreel", "render", "completed"},
		}, true
	case EventJobFailed:
		var b strings.Builder
		b.WriteString("❌ Render failed")
		if title := text(payload, "title"); title != "" {
			b.WriteString(": ")
			b.WriteString(title)
		}
		if stage := text(payload, "stage"); stage != "" {
			b.WriteString("\nStage: ")
			b.WriteString(stage)
		}
		if err, ok := payload["error"].(error); ok && err != nil {
			b.WriteString("\nError: ")
			b.WriteString(strings.TrimSpace(err.Error()))
		}
		return message{
			title:    "storyreel - Render Failed",
			body:     b.String(),
			tags:     []string{"storyreel", "render", "error"},
			priority: "high",
		}, true
	case EventStoriesFetched:
		count, _ := payload["count"].(int)
		if count == 0 {
			return message{}, false
		}
		return message{
			title: "storyreel - Stories Fetched",
			body:  fmt.Sprintf("📰 %d new stories from r/%s", count, text(payload, "subreddit")),
			tags:  []string{"storyreel", "stories"},
		}, true
	case EventBackgroundsDone:
		count, _ := payload["count"].(int)
		return message{
			title: "storyreel - Backgrounds Imported",
			body:  fmt.Sprintf("🎞️ %d clips added to %s", count, text(payload, "folder")),
			tags:  []string{"storyreel", "backgrounds"},
		}, true
	case EventTest:
		return message{
			title:    "storyreel - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"storyreel", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func text(payload Payload, key string) string {
	value, ok := payload[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
