package notifications

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"soundscout/internal/config"
	"soundscout/internal/jobs"
)

type captured struct {
	title    string
	priority string
	body     string
}

func newCapturingService(t *testing.T, mutate func(*config.Config)) (Service, *[]captured) {
	t.Helper()

	var requests []captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, captured{
			title:    r.Header.Get("Title"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	if mutate != nil {
		mutate(&cfg)
	}
	return NewService(&cfg), &requests
}

func TestNotifyJobCompletedRecognized(t *testing.T) {
	service, requests := newCapturingService(t, nil)

	err := service.NotifyJobCompleted(context.Background(), "alice", 7, jobs.Result{
		Outcome:    "recognized",
		Title:      "Song",
		Artist:     "Band",
		Confidence: 0.91,
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(*requests) != 1 {
		t.Fatalf("requests = %d", len(*requests))
	}
	got := (*requests)[0]
	if got.title != "SoundScout - Job Complete" {
		t.Fatalf("title = %q", got.title)
	}
	if !strings.Contains(got.body, "Band - Song") {
		t.Fatalf("body = %q", got.body)
	}
}

func TestNotifyJobFailedCarriesKind(t *testing.T) {
	service, requests := newCapturingService(t, nil)

	err := service.NotifyJobFailed(context.Background(), "bob", 9, jobs.KindTooLarge, "payload exceeds 45 MB")
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	got := (*requests)[0]
	if got.priority != "high" {
		t.Fatalf("priority = %q", got.priority)
	}
	if !strings.Contains(got.body, jobs.KindTooLarge) {
		t.Fatalf("body = %q", got.body)
	}
}

func TestEventGatesSuppressSends(t *testing.T) {
	service, requests := newCapturingService(t, func(cfg *config.Config) {
		cfg.Notifications.Jobs = false
		cfg.Notifications.Errors = false
	})

	if err := service.NotifyJobCompleted(context.Background(), "alice", 1, jobs.Result{Outcome: "recognized"}); err != nil {
		t.Fatalf("notify completed: %v", err)
	}
	if err := service.NotifyJobFailed(context.Background(), "alice", 1, jobs.KindInternal, "boom"); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if len(*requests) != 0 {
		t.Fatalf("requests = %d, want 0", len(*requests))
	}
}

func TestNoTopicReturnsNoop(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	service := NewService(&cfg)

	if _, ok := service.(noopService); !ok {
		t.Fatalf("service = %T, want noop", service)
	}
	if err := service.TestNotification(context.Background()); err != nil {
		t.Fatalf("noop test notification: %v", err)
	}
}

func TestSendReportsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	service := NewService(&cfg)

	if err := service.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
