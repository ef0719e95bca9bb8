package daemon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"soundscout/internal/config"
	"soundscout/internal/fetch"
	"soundscout/internal/jobs"
	"soundscout/internal/logging"
	"soundscout/internal/media"
	"soundscout/internal/recognize"
	"soundscout/internal/store"
	"soundscout/internal/testsupport"
)

type stubFetcher struct {
	mu      sync.Mutex
	sources []string
}

func (f *stubFetcher) Fetch(_ context.Context, source string) (*fetch.Result, error) {
	f.mu.Lock()
	f.sources = append(f.sources, source)
	f.mu.Unlock()

	wav := []byte("daemon test payload " + source)
	audio := &media.Audio{Samples: make([]float64, 2048), SampleRate: 11025}
	return &fetch.Result{
		WAV:        wav,
		Audio:      audio,
		Descriptor: media.Describe(audio, int64(len(wav))),
	}, nil
}

type stubRecognizer struct {
	result recognize.Result
}

func (r *stubRecognizer) Recognize(context.Context, string, *media.Audio) (recognize.Result, error) {
	if r.result.Outcome == "" {
		return recognize.Result{Outcome: recognize.OutcomeUnrecognized}, nil
	}
	return r.result, nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	completed []int64
	failed    []int64
}

func (n *recordingNotifier) NotifyJobCompleted(_ context.Context, _ string, jobID int64, _ jobs.Result) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, jobID)
	return nil
}

func (n *recordingNotifier) NotifyJobFailed(_ context.Context, _ string, jobID int64, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, jobID)
	return nil
}

func (n *recordingNotifier) TestNotification(context.Context) error { return nil }

func (n *recordingNotifier) completedIDs() []int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]int64(nil), n.completed...)
}

func newTestDaemon(t *testing.T, cfg *config.Config, notifier *recordingNotifier) *Daemon {
	t.Helper()
	opts := []Option{
		WithFetcher(&stubFetcher{}),
		WithRecognizer(&stubRecognizer{result: recognize.Result{
			Outcome:    recognize.OutcomeRecognized,
			Title:      "Song",
			Artist:     "Band",
			Confidence: 0.9,
		}}),
	}
	if notifier != nil {
		opts = append(opts, WithNotifier(notifier))
	}
	d, err := New(cfg, logging.NewNop(), opts...)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func waitTerminal(t *testing.T, d *Daemon, id int64) *jobs.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := d.Job(context.Background(), id)
		if err != nil {
			t.Fatalf("load job %d: %v", id, err)
		}
		if job.IsTerminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %d never reached a terminal state", id)
	return nil
}

func TestDaemonRunsSubmittedJob(t *testing.T) {
	notifier := &recordingNotifier{}
	d := newTestDaemon(t, testsupport.NewConfig(t), notifier)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	job, err := d.Submit(context.Background(), "alice", "https://cdn.example.com/a.mp3")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	done := waitTerminal(t, d, job.ID)
	if done.State != jobs.StateDone {
		t.Fatalf("state = %s (%s: %s)", done.State, done.ErrorKind, done.ErrorMessage)
	}

	// The terminal hook fires on the worker goroutine after the final update.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(notifier.completedIDs()) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	ids := notifier.completedIDs()
	if len(ids) != 1 || ids[0] != job.ID {
		t.Fatalf("completed notifications = %v", ids)
	}
}

func TestSecondInstanceBlockedByLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := newTestDaemon(t, cfg, nil)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("start first: %v", err)
	}

	second := newTestDaemon(t, cfg, nil)
	if err := second.Start(context.Background()); err == nil {
		t.Fatal("second instance acquired the lock")
	}

	first.Stop()
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("start after release: %v", err)
	}
}

func TestPlaylistAppendRequiresStoredArtifact(t *testing.T) {
	d := newTestDaemon(t, testsupport.NewConfig(t), nil)

	_, err := d.PlaylistAppend(context.Background(), "alice", "favorites", "deadbeef")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want store.ErrNotFound", err)
	}
}

func TestPlaylistAppendUsesRecognitionMetadata(t *testing.T) {
	d := newTestDaemon(t, testsupport.NewConfig(t), nil)
	ctx := context.Background()

	wav := []byte("stored track bytes")
	audio := &media.Audio{Samples: make([]float64, 1024), SampleRate: 11025}
	hash, _, err := d.artifacts.Put(ctx, wav, media.Describe(audio, int64(len(wav))))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := d.artifacts.RecordFingerprint(ctx, store.FingerprintRecord{
		Hash:       hash,
		Outcome:    store.OutcomeRecognized,
		Title:      "Song",
		Artist:     "Band",
		Confidence: 0.95,
	}); err != nil {
		t.Fatalf("record fingerprint: %v", err)
	}

	entry, err := d.PlaylistAppend(ctx, "alice", "favorites", hash)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if entry.Title != "Song" || entry.Artist != "Band" {
		t.Fatalf("entry = %+v", entry)
	}

	entries, err := d.PlaylistEntries(ctx, "alice", "favorites")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].ContentHash != hash {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestListJobsRejectsUnknownState(t *testing.T) {
	d := newTestDaemon(t, testsupport.NewConfig(t), nil)
	if _, err := d.ListJobs(context.Background(), []string{"bogus"}); err == nil {
		t.Fatal("expected error for unknown state")
	}
}

func TestStatusReportsPaths(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newTestDaemon(t, cfg, nil)

	status := d.Status(context.Background())
	if status.Running {
		t.Fatal("daemon reported running before Start")
	}
	if status.DatabasePath != cfg.DatabasePath() {
		t.Fatalf("database path = %s", status.DatabasePath)
	}
	if status.SocketPath != cfg.SocketPath() {
		t.Fatalf("socket path = %s", status.SocketPath)
	}
	if status.PID <= 0 {
		t.Fatalf("pid = %d", status.PID)
	}
}

func TestTestNotificationWithoutTopic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = ""
	d := newTestDaemon(t, cfg, nil)

	sent, message, err := d.TestNotification(context.Background())
	if err != nil {
		t.Fatalf("test notification: %v", err)
	}
	if sent {
		t.Fatal("notification sent without topic")
	}
	if message == "" {
		t.Fatal("message missing")
	}
}
