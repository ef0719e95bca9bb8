package scheduler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"soundscout/internal/fetch"
	"soundscout/internal/jobs"
	"soundscout/internal/logging"
	"soundscout/internal/store"
)

func (s *Scheduler) workerSlots() int {
	slots := s.cfg.Workers
	if slots <= 0 {
		slots = 1
	}
	if s.cfg.MaxInflightGlobal > 0 && s.cfg.MaxInflightGlobal < slots {
		slots = s.cfg.MaxInflightGlobal
	}
	return slots
}

func (s *Scheduler) dispatchLoop() {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		var owner string
		var id int64
		for {
			if !s.running {
				s.mu.Unlock()
				return
			}
			var ok bool
			owner, id, ok = s.pickLocked()
			if ok {
				break
			}
			s.cond.Wait()
		}

		jobCtx, cancel := context.WithCancel(context.Background())
		s.inflight[id] = cancel
		s.perOwner[owner]++
		s.total++
		s.mu.Unlock()

		s.wg.Add(1)
		go func(owner string, id int64) {
			defer s.wg.Done()
			s.runJob(jobCtx, id)

			s.mu.Lock()
			if cancelFn, ok := s.inflight[id]; ok {
				cancelFn()
				delete(s.inflight, id)
			}
			s.perOwner[owner]--
			s.total--
			s.cond.Broadcast()
			s.mu.Unlock()
		}(owner, id)
	}
}

// pickLocked selects the next job round-robin across owners, honoring the
// per-owner and global inflight ceilings.
func (s *Scheduler) pickLocked() (string, int64, bool) {
	if s.total >= s.workerSlots() {
		return "", 0, false
	}
	if len(s.owners) == 0 {
		return "", 0, false
	}

	for offset := 0; offset < len(s.owners); offset++ {
		idx := (s.nextOwner + offset) % len(s.owners)
		owner := s.owners[idx]
		if len(s.queues[owner]) == 0 {
			continue
		}
		if s.cfg.MaxInflightPerOwner > 0 && s.perOwner[owner] >= s.cfg.MaxInflightPerOwner {
			continue
		}

		id := s.queues[owner][0]
		s.queues[owner] = s.queues[owner][1:]
		delete(s.queuedIDs, id)
		s.nextOwner = (idx + 1) % len(s.owners)
		return owner, id, true
	}
	return "", 0, false
}

// runJob drives one job through fetch, store, and recognition. Every exit
// path leaves the job in a terminal state.
func (s *Scheduler) runJob(ctx context.Context, id int64) {
	requestID := uuid.NewString()
	logger := s.logger.With(
		logging.Int64(logging.FieldJobID, id),
		logging.String(logging.FieldRequestID, requestID))

	job, err := s.jobs.GetByID(ctx, id)
	if err != nil || job == nil {
		logger.Error("load job for execution", logging.Error(err))
		return
	}

	job.State = jobs.StateFetching
	if err := s.jobs.Update(ctx, job); err != nil {
		logger.Error("persist fetching state", logging.Error(err))
		return
	}
	logger.Info("fetch started", logging.String(logging.FieldSource, job.Source))

	result, err := s.fetcher.Fetch(ctx, job.Source)
	if err != nil {
		s.failJob(ctx, job, err, logger)
		return
	}

	hash, created, err := s.artifacts.PutPinned(ctx, result.WAV, result.Descriptor)
	if err != nil {
		s.failJob(ctx, job, err, logger)
		return
	}
	defer s.artifacts.Unpin(hash)

	job.ContentHash = hash
	job.State = jobs.StateRecognizing
	if err := s.jobs.Update(ctx, job); err != nil {
		logger.Error("persist recognizing state", logging.Error(err))
		return
	}
	logger.Info("artifact stored",
		logging.String(logging.FieldHash, hash),
		logging.Bool("deduplicated", !created))

	verdict, err := s.recognizer.Recognize(ctx, hash, result.Audio)
	if err != nil {
		s.failJob(ctx, job, err, logger)
		return
	}

	if err := job.SetDone(hash, jobs.Result{
		Outcome:    verdict.Outcome,
		Title:      verdict.Title,
		Artist:     verdict.Artist,
		Confidence: verdict.Confidence,
	}); err != nil {
		s.failJob(ctx, job, err, logger)
		return
	}
	if err := s.jobs.Update(ctx, job); err != nil {
		logger.Error("persist done state", logging.Error(err))
		return
	}

	logger.Info("job done", logging.String("outcome", verdict.Outcome))
	s.finish(job)
}

func (s *Scheduler) failJob(ctx context.Context, job *jobs.Job, cause error, logger *slog.Logger) {
	kind := classify(ctx, cause)
	job.SetFailed(kind, cause.Error())
	if err := s.jobs.Update(context.WithoutCancel(ctx), job); err != nil {
		logger.Error("persist failed state", logging.Error(err))
		return
	}
	logger.Warn("job failed",
		logging.String("error_kind", kind),
		logging.Error(cause))
	s.finish(job)
}

func (s *Scheduler) finish(job *jobs.Job) {
	if s.onTerminal != nil {
		s.onTerminal(job)
	}
}

// classify maps pipeline errors onto the stable error kinds surfaced to
// owners.
func classify(ctx context.Context, err error) string {
	switch {
	case ctx.Err() == context.Canceled, errors.Is(err, ErrCancelled):
		return jobs.KindCancelled
	case errors.Is(err, fetch.ErrUnsupported):
		return jobs.KindUnsupported
	case errors.Is(err, fetch.ErrTooLarge):
		return jobs.KindTooLarge
	case errors.Is(err, fetch.ErrTimeout):
		return jobs.KindTimeout
	case errors.Is(err, fetch.ErrUnreachable):
		return jobs.KindUnreachable
	case errors.Is(err, store.ErrCapacityExceeded):
		return jobs.KindStoreCapacity
	default:
		return jobs.KindInternal
	}
}
