package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"soundscout/internal/config"
	"soundscout/internal/fetch"
	"soundscout/internal/jobs"
	"soundscout/internal/logging"
	"soundscout/internal/media"
	"soundscout/internal/recognize"
)

var (
	// ErrOverloaded is returned when an owner's pending queue is full.
	ErrOverloaded = errors.New("scheduler overloaded")
	// ErrCancelled marks work stopped at the owner's request.
	ErrCancelled = errors.New("job cancelled")
	// ErrUnknownJob is returned for operations on job IDs that do not exist.
	ErrUnknownJob = errors.New("unknown job")
)

// Fetcher acquires and normalizes one source reference.
type Fetcher interface {
	Fetch(ctx context.Context, source string) (*fetch.Result, error)
}

// Recognizer resolves a content hash to a recognition verdict.
type Recognizer interface {
	Recognize(ctx context.Context, hash string, audio *media.Audio) (recognize.Result, error)
}

// ContentStore is the slice of the artifact store the scheduler drives.
// PutPinned returns the artifact already pinned so eviction can never race a
// job that is still working on it.
type ContentStore interface {
	PutPinned(ctx context.Context, wav []byte, descriptor media.Descriptor) (string, bool, error)
	Unpin(hash string)
}

// TerminalFunc observes jobs reaching a terminal state.
type TerminalFunc func(job *jobs.Job)

// Stats summarizes scheduler occupancy.
type Stats struct {
	Queued   int `json:"queued"`
	Inflight int `json:"inflight"`
}

// Scheduler admits jobs per owner, dispatches them round-robin across owners
// so no single owner can monopolize the worker pool, and drives each job
// through fetch, store, and recognition.
type Scheduler struct {
	cfg        config.Scheduler
	jobs       *jobs.Store
	fetcher    Fetcher
	recognizer Recognizer
	artifacts  ContentStore
	logger     *slog.Logger
	onTerminal TerminalFunc

	mu        sync.Mutex
	cond      *sync.Cond
	queues    map[string][]int64
	owners    []string
	nextOwner int
	queuedIDs map[int64]string
	inflight  map[int64]context.CancelFunc
	perOwner  map[string]int
	total     int
	running   bool
	wg        sync.WaitGroup
}

// Option adjusts scheduler construction.
type Option func(*Scheduler)

// WithOnTerminal registers a callback fired after a job lands in a terminal
// state.
func WithOnTerminal(fn TerminalFunc) Option {
	return func(s *Scheduler) { s.onTerminal = fn }
}

// New builds a scheduler. Start must be called before jobs dispatch.
func New(cfg *config.Config, jobStore *jobs.Store, fetcher Fetcher, recognizer Recognizer, artifacts ContentStore, logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:        cfg.Scheduler,
		jobs:       jobStore,
		fetcher:    fetcher,
		recognizer: recognizer,
		artifacts:  artifacts,
		logger:     logging.NewComponentLogger(logger, "scheduler"),
		queues:     make(map[string][]int64),
		queuedIDs:  make(map[int64]string),
		inflight:   make(map[int64]context.CancelFunc),
		perOwner:   make(map[string]int),
	}
	s.cond = sync.NewCond(&s.mu)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start reclaims interrupted work from a previous run and launches the
// dispatch loop.
func (s *Scheduler) Start(ctx context.Context) error {
	reclaimed, err := s.jobs.ResetInflight(ctx)
	if err != nil {
		return fmt.Errorf("reclaim interrupted jobs: %w", err)
	}
	if reclaimed > 0 {
		s.logger.Info("requeued interrupted jobs", logging.Int64("count", reclaimed))
	}

	queued, err := s.jobs.List(ctx, jobs.StateQueued)
	if err != nil {
		return fmt.Errorf("load queued jobs: %w", err)
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("scheduler already running")
	}
	s.running = true
	for _, job := range queued {
		s.enqueueLocked(job.Owner, job.ID)
	}
	s.mu.Unlock()

	s.wg.Add(1)
	go s.dispatchLoop()
	return nil
}

// Stop cancels inflight work and waits for workers to drain. Queued jobs stay
// persisted and are reloaded on the next Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	for _, cancel := range s.inflight {
		cancel()
	}
	s.cond.Broadcast()
	s.mu.Unlock()

	s.wg.Wait()
}

// Submit admits a new job for an owner. Admission fails with ErrOverloaded
// when the global inflight ceiling is reached, the owner is at its inflight
// ceiling, or the owner's pending queue is at capacity; nothing is persisted
// in that case.
func (s *Scheduler) Submit(ctx context.Context, owner, source string) (*jobs.Job, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, errors.New("owner is required")
	}
	if strings.TrimSpace(source) == "" {
		return nil, errors.New("source is required")
	}

	s.mu.Lock()
	if s.cfg.MaxInflightGlobal > 0 && s.total >= s.cfg.MaxInflightGlobal {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: all workers busy", ErrOverloaded)
	}
	if s.cfg.MaxInflightPerOwner > 0 && s.perOwner[owner] >= s.cfg.MaxInflightPerOwner {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: owner %s is at the inflight limit", ErrOverloaded, owner)
	}
	if s.cfg.MaxQueueDepthPerOwner > 0 && len(s.queues[owner]) >= s.cfg.MaxQueueDepthPerOwner {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: owner %s queue is full", ErrOverloaded, owner)
	}

	job, err := s.jobs.NewJob(ctx, owner, source)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.enqueueLocked(owner, job.ID)
	s.cond.Broadcast()
	s.mu.Unlock()

	s.logger.Info("job submitted",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String(logging.FieldOwner, owner),
		logging.String(logging.FieldSource, source))
	return job, nil
}

// Job returns the persisted state of one job.
func (s *Scheduler) Job(ctx context.Context, id int64) (*jobs.Job, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownJob, id)
	}
	return job, nil
}

// Cancel stops a job. Queued jobs fail immediately without any work being
// performed; inflight jobs have their context cancelled and drain through the
// worker.
func (s *Scheduler) Cancel(ctx context.Context, id int64) error {
	s.mu.Lock()
	if owner, ok := s.queuedIDs[id]; ok {
		s.removeQueuedLocked(owner, id)
		s.mu.Unlock()

		job, err := s.jobs.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if job == nil {
			return fmt.Errorf("%w: %d", ErrUnknownJob, id)
		}
		job.SetFailed(jobs.KindCancelled, "cancelled before execution")
		if err := s.jobs.Update(ctx, job); err != nil {
			return err
		}
		s.finish(job)
		return nil
	}
	if cancel, ok := s.inflight[id]; ok {
		cancel()
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("%w: %d", ErrUnknownJob, id)
	}
	if job.IsTerminal() {
		return fmt.Errorf("job %d already %s", id, job.State)
	}
	return fmt.Errorf("%w: %d", ErrUnknownJob, id)
}

// Stats reports queue and worker occupancy.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Queued: len(s.queuedIDs), Inflight: s.total}
}

func (s *Scheduler) enqueueLocked(owner string, id int64) {
	if _, ok := s.queues[owner]; !ok {
		s.owners = append(s.owners, owner)
	}
	s.queues[owner] = append(s.queues[owner], id)
	s.queuedIDs[id] = owner
}

func (s *Scheduler) removeQueuedLocked(owner string, id int64) {
	queue := s.queues[owner]
	for i, queuedID := range queue {
		if queuedID == id {
			s.queues[owner] = append(queue[:i:i], queue[i+1:]...)
			break
		}
	}
	delete(s.queuedIDs, id)
}
