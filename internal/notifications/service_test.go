package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storyreel/internal/config"
	"storyreel/internal/notifications"
)

type captured struct {
	title    string
	body     string
	tags     string
	priority string
}

func newServer(t *testing.T) (*httptest.Server, *[]captured) {
	t.Helper()
	var got []captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = append(got, captured{
			title:    r.Header.Get("Title"),
			body:     string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, &got
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventJobCompleted, notifications.Payload{"title": "Example"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsJobEvents(t *testing.T) {
	server, got := newServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.JobCompleted = true
	cfg.Notifications.JobFailed = true
	svc := notifications.NewService(&cfg)

	if err := svc.Publish(context.Background(), notifications.EventJobCompleted, notifications.Payload{
		"title":   "Hello world",
		"output":  "/out/hello.mp4",
		"elapsed": 42 * time.Second,
	}); err != nil {
		t.Fatalf("publish completed: %v", err)
	}
	if err := svc.Publish(context.Background(), notifications.EventJobFailed, notifications.Payload{
		"title": "Hello world",
		"stage": "DRAFT_RENDERED",
		"error": errors.New("encoder crashed"),
	}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if len(*got) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(*got))
	}
	done := (*got)[0]
	if done.title != "storyreel - Video Ready" || !strings.Contains(done.body, "Hello world") || !strings.Contains(done.body, "/out/hello.mp4") || !strings.Contains(done.body, "42s") {
		t.Fatalf("unexpected completion message %+v", done)
	}
	if done.tags != "storyreel,render,completed" {
		t.Fatalf("unexpected tags %q", done.tags)
	}
	failed := (*got)[1]
	if failed.priority != "high" || !strings.Contains(failed.body, "encoder crashed") || !strings.Contains(failed.body, "DRAFT_RENDERED") {
		t.Fatalf("unexpected failure message %+v", failed)
	}
}

func TestNtfyServiceHonoursEventToggles(t *testing.T) {
	server, got := newServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.JobCompleted = false
	svc := notifications.NewService(&cfg)

	if err := svc.Publish(context.Background(), notifications.EventJobCompleted, notifications.Payload{"title": "x"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(*got) != 0 {
		t.Fatalf("disabled event should not be sent, got %d requests", len(*got))
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "topic locked", http.StatusForbidden)
	}))
	defer server.Close()
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)

	err := svc.Publish(context.Background(), notifications.EventTest, nil)
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
