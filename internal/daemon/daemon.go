package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"log/slog"

	"soundscout/internal/config"
	"soundscout/internal/fetch"
	"soundscout/internal/jobs"
	"soundscout/internal/logging"
	"soundscout/internal/notifications"
	"soundscout/internal/playlist"
	"soundscout/internal/recognize"
	"soundscout/internal/scheduler"
	"soundscout/internal/store"
)

// Daemon owns the pipeline components and enforces single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	jobs      *jobs.Store
	artifacts *store.Store
	playlists *playlist.Manager
	sched     *scheduler.Scheduler
	notifier  notifications.Service

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	SocketPath   string
	LockPath     string
	JobCounts    map[jobs.State]int
	Scheduler    scheduler.Stats
	Store        store.Stats
}

type options struct {
	fetcher    scheduler.Fetcher
	recognizer scheduler.Recognizer
	notifier   notifications.Service
}

// Option adjusts daemon construction.
type Option func(*options)

// WithFetcher overrides the default HTTP fetcher.
func WithFetcher(f scheduler.Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// WithRecognizer overrides the default recognition engine.
func WithRecognizer(r scheduler.Recognizer) Option {
	return func(o *options) { o.recognizer = r }
}

// WithNotifier overrides the configured notification service.
func WithNotifier(n notifications.Service) Option {
	return func(o *options) { o.notifier = n }
}

// New constructs a daemon with initialized stores and pipeline components.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	jobStore, err := jobs.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}
	artifacts, err := store.Open(cfg, logger)
	if err != nil {
		_ = jobStore.Close()
		return nil, fmt.Errorf("open content store: %w", err)
	}
	playlists, err := playlist.Open(cfg, logger)
	if err != nil {
		_ = artifacts.Close()
		_ = jobStore.Close()
		return nil, fmt.Errorf("open playlists: %w", err)
	}

	if o.fetcher == nil {
		o.fetcher = fetch.New(cfg, logger)
	}
	if o.recognizer == nil {
		o.recognizer = recognize.New(artifacts, recognize.NewHTTPClient(cfg.Recognition), cfg.Recognition, logger)
	}
	if o.notifier == nil {
		o.notifier = notifications.NewService(cfg)
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		jobs:      jobStore,
		artifacts: artifacts,
		playlists: playlists,
		notifier:  o.notifier,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}
	d.sched = scheduler.New(cfg, jobStore, o.fetcher, o.recognizer, artifacts, logger,
		scheduler.WithOnTerminal(d.handleTerminal))
	return d, nil
}

// Start acquires the daemon lock and launches the scheduler and the retention
// sweep.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another soundscout daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.sched.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start scheduler: %w", err)
	}

	d.wg.Add(1)
	go d.retentionLoop(d.ctx)

	d.running.Store(true)
	d.logger.Info("soundscout daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.sched.Stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("soundscout daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	var errs []error
	if d.playlists != nil {
		errs = append(errs, d.playlists.Close())
	}
	if d.artifacts != nil {
		errs = append(errs, d.artifacts.Close())
	}
	if d.jobs != nil {
		errs = append(errs, d.jobs.Close())
	}
	return errors.Join(errs...)
}

// retentionLoop prunes terminal jobs older than the configured retention
// window.
func (d *Daemon) retentionLoop(ctx context.Context) {
	defer d.wg.Done()

	retention := time.Duration(d.cfg.Workflow.RetentionHours) * time.Hour
	if retention <= 0 {
		return
	}

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-retention)
			pruned, err := d.jobs.PruneTerminal(ctx, cutoff)
			if err != nil {
				d.logger.Warn("retention sweep failed", logging.Error(err))
				continue
			}
			if pruned > 0 {
				d.logger.Info("pruned expired jobs", logging.Int64("count", pruned))
			}
		}
	}
}

// handleTerminal notifies about jobs reaching a terminal state. Runs on the
// worker goroutine, so the notification gets its own deadline detached from
// the job context.
func (d *Daemon) handleTerminal(job *jobs.Job) {
	if job == nil || d.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var err error
	switch job.State {
	case jobs.StateDone:
		result, _ := job.Result()
		err = d.notifier.NotifyJobCompleted(ctx, job.Owner, job.ID, result)
	case jobs.StateFailed:
		err = d.notifier.NotifyJobFailed(ctx, job.Owner, job.ID, job.ErrorKind, job.ErrorMessage)
	}
	if err != nil {
		d.logger.Warn("notification failed",
			logging.Int64(logging.FieldJobID, job.ID),
			logging.Error(err))
	}
}

// Submit admits a new job for an owner.
func (d *Daemon) Submit(ctx context.Context, owner, source string) (*jobs.Job, error) {
	return d.sched.Submit(ctx, owner, source)
}

// Job returns the persisted state of one job.
func (d *Daemon) Job(ctx context.Context, id int64) (*jobs.Job, error) {
	return d.sched.Job(ctx, id)
}

// ListJobs returns jobs filtered by optional states.
func (d *Daemon) ListJobs(ctx context.Context, states []string) ([]*jobs.Job, error) {
	parsed := make([]jobs.State, 0, len(states))
	for _, raw := range states {
		state, ok := jobs.ParseState(raw)
		if !ok {
			return nil, fmt.Errorf("unknown job state %q", raw)
		}
		parsed = append(parsed, state)
	}
	return d.jobs.List(ctx, parsed...)
}

// ListOwnerJobs returns all jobs submitted by one owner.
func (d *Daemon) ListOwnerJobs(ctx context.Context, owner string) ([]*jobs.Job, error) {
	return d.jobs.ListByOwner(ctx, owner)
}

// CancelJob stops a queued or inflight job.
func (d *Daemon) CancelJob(ctx context.Context, id int64) error {
	return d.sched.Cancel(ctx, id)
}

// PlaylistAppend adds a stored track to an owner's playlist. Track metadata
// comes from the recognition record when one exists.
func (d *Daemon) PlaylistAppend(ctx context.Context, owner, name, contentHash string) (playlist.Entry, error) {
	exists, err := d.artifacts.Contains(ctx, contentHash)
	if err != nil {
		return playlist.Entry{}, err
	}
	if !exists {
		return playlist.Entry{}, fmt.Errorf("%w: %s", store.ErrNotFound, contentHash)
	}

	var title, artist string
	if record, err := d.artifacts.LookupFingerprint(ctx, contentHash); err == nil && record != nil {
		title, artist = record.Title, record.Artist
	}
	return d.playlists.Append(ctx, owner, name, contentHash, title, artist)
}

// PlaylistRemove deletes the entry at a position from an owner's playlist.
func (d *Daemon) PlaylistRemove(ctx context.Context, owner, name string, position int) error {
	return d.playlists.Remove(ctx, owner, name, position)
}

// PlaylistEntries returns a playlist's entries in position order.
func (d *Daemon) PlaylistEntries(ctx context.Context, owner, name string) ([]playlist.Entry, error) {
	return d.playlists.List(ctx, owner, name)
}

// Playlists returns an owner's playlists with their track counts.
func (d *Daemon) Playlists(ctx context.Context, owner string) ([]playlist.Summary, error) {
	return d.playlists.Playlists(ctx, owner)
}

// StoreStats reports content store occupancy.
func (d *Daemon) StoreStats(ctx context.Context) (store.Stats, error) {
	return d.artifacts.Stats(ctx)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.cfg.DatabasePath(),
		SocketPath:   d.cfg.SocketPath(),
		LockPath:     d.lockPath,
		Scheduler:    d.sched.Stats(),
	}
	if counts, err := d.jobs.Stats(ctx); err == nil {
		status.JobCounts = counts
	}
	if stats, err := d.artifacts.Stats(ctx); err == nil {
		status.Store = stats
	}
	return status
}
