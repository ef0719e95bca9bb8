package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"soundscout/internal/config"
	"soundscout/internal/jobs"
)

const userAgent = "SoundScout/0.1"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyJobCompleted(ctx context.Context, owner string, jobID int64, result jobs.Result) error
	NotifyJobFailed(ctx context.Context, owner string, jobID int64, kind, message string) error
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
		endpoint:   topic,
		client:     &http.Client{Timeout: timeout},
		jobEvents:  cfg.Notifications.Jobs,
		errorEvent: cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	jobEvents  bool
	errorEvent bool
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, owner string, jobID int64, result jobs.Result) error {
	if !n.jobEvents {
		return nil
	}

	var message string
	switch result.Outcome {
	case "recognized":
		track := strings.TrimSpace(result.Title)
		if artist := strings.TrimSpace(result.Artist); artist != "" {
			track = fmt.Sprintf("%s - %s", artist, track)
		}
		message = fmt.Sprintf("Job #%d for %s recognized: %s (%.0f%%)", jobID, owner, track, result.Confidence*100)
	case "unavailable":
		message = fmt.Sprintf("Job #%d for %s stored; recognition service unavailable, will retry on next request", jobID, owner)
	default:
		message = fmt.Sprintf("Job #%d for %s stored; track not recognized", jobID, owner)
	}

	return n.send(ctx, payload{
		title:   "SoundScout - Job Complete",
		message: message,
		tags:    []string{"soundscout", "job", "completed"},
	})
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, owner string, jobID int64, kind, message string) error {
	if !n.errorEvent {
		return nil
	}
	data := payload{
		title:    "SoundScout - Job Failed",
		message:  fmt.Sprintf("Job #%d for %s failed (%s): %s", jobID, owner, kind, strings.TrimSpace(message)),
		tags:     []string{"soundscout", "job", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "SoundScout - Test",
		message:  "Notification system test",
		tags:     []string{"soundscout", "test"},
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

func (noopService) NotifyJobCompleted(context.Context, string, int64, jobs.Result) error { return nil }
func (noopService) NotifyJobFailed(context.Context, string, int64, string, string) error { return nil }
func (noopService) TestNotification(context.Context) error                               { return nil }
