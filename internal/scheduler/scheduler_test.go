package scheduler

import (
	"context"
	"errors"
	"fmt"
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
)

type stubFetcher struct {
	mu      sync.Mutex
	sources []string
	err     error
	payload func(source string) []byte
	started chan string
	gate    chan struct{}
}

func (f *stubFetcher) Fetch(ctx context.Context, source string) (*fetch.Result, error) {
	f.mu.Lock()
	f.sources = append(f.sources, source)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- source
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	wav := []byte("default audio payload")
	if f.payload != nil {
		wav = f.payload(source)
	}
	audio := &media.Audio{Samples: make([]float64, 2048), SampleRate: 11025}
	return &fetch.Result{
		WAV:        wav,
		Audio:      audio,
		Descriptor: media.Describe(audio, int64(len(wav))),
	}, nil
}

func (f *stubFetcher) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sources...)
}

type stubRecognizer struct {
	mu     sync.Mutex
	hashes []string
	result recognize.Result
}

func (r *stubRecognizer) Recognize(_ context.Context, hash string, _ *media.Audio) (recognize.Result, error) {
	r.mu.Lock()
	r.hashes = append(r.hashes, hash)
	r.mu.Unlock()
	if r.result.Outcome == "" {
		return recognize.Result{Outcome: recognize.OutcomeUnrecognized}, nil
	}
	return r.result, nil
}

type countingStore struct {
	inner *store.Store
	mu    sync.Mutex
	puts  int
}

func (c *countingStore) PutPinned(ctx context.Context, wav []byte, descriptor media.Descriptor) (string, bool, error) {
	c.mu.Lock()
	c.puts++
	c.mu.Unlock()
	return c.inner.PutPinned(ctx, wav, descriptor)
}

func (c *countingStore) Unpin(hash string) { c.inner.Unpin(hash) }

func (c *countingStore) putCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.puts
}

type fixture struct {
	cfg        *config.Config
	jobs       *jobs.Store
	artifacts  *countingStore
	fetcher    *stubFetcher
	recognizer *stubRecognizer
	sched      *Scheduler
}

func newFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()

	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.DataDir = base + "/data"
	cfg.Paths.CacheDir = base + "/cache"
	cfg.Paths.WorkDir = base + "/work"
	cfg.Paths.LogDir = base + "/logs"
	if mutate != nil {
		mutate(&cfg)
	}

	jobStore, err := jobs.Open(&cfg)
	if err != nil {
		t.Fatalf("open job store: %v", err)
	}
	t.Cleanup(func() { _ = jobStore.Close() })

	artifactStore, err := store.Open(&cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("open artifact store: %v", err)
	}
	t.Cleanup(func() { _ = artifactStore.Close() })

	fx := &fixture{
		cfg:        &cfg,
		jobs:       jobStore,
		artifacts:  &countingStore{inner: artifactStore},
		fetcher:    &stubFetcher{},
		recognizer: &stubRecognizer{},
	}
	fx.sched = New(&cfg, jobStore, fx.fetcher, fx.recognizer, fx.artifacts, logging.NewNop())
	return fx
}

func (fx *fixture) start(t *testing.T) {
	t.Helper()
	if err := fx.sched.Start(context.Background()); err != nil {
		t.Fatalf("start scheduler: %v", err)
	}
	t.Cleanup(fx.sched.Stop)
}

func waitTerminal(t *testing.T, sched *Scheduler, id int64) *jobs.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := sched.Job(context.Background(), id)
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

func TestSubmitRunsJobToCompletion(t *testing.T) {
	fx := newFixture(t, nil)
	fx.recognizer.result = recognize.Result{
		Outcome:    recognize.OutcomeRecognized,
		Title:      "Song",
		Artist:     "Band",
		Confidence: 0.9,
	}
	fx.start(t)

	job, err := fx.sched.Submit(context.Background(), "alice", "https://cdn.example.com/a.mp3")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	done := waitTerminal(t, fx.sched, job.ID)
	if done.State != jobs.StateDone {
		t.Fatalf("state = %s (%s: %s)", done.State, done.ErrorKind, done.ErrorMessage)
	}
	result, ok := done.Result()
	if !ok || result.Title != "Song" {
		t.Fatalf("result = %+v", result)
	}
	if done.ContentHash == "" {
		t.Fatal("content hash not recorded")
	}
}

func TestDuplicateContentSharesArtifact(t *testing.T) {
	fx := newFixture(t, nil)
	fx.fetcher.payload = func(string) []byte { return []byte("same bytes from two urls") }
	fx.start(t)

	first, err := fx.sched.Submit(context.Background(), "alice", "https://a.example.com/one.mp3")
	if err != nil {
		t.Fatalf("submit first: %v", err)
	}
	second, err := fx.sched.Submit(context.Background(), "bob", "https://b.example.com/two.mp3")
	if err != nil {
		t.Fatalf("submit second: %v", err)
	}

	firstDone := waitTerminal(t, fx.sched, first.ID)
	secondDone := waitTerminal(t, fx.sched, second.ID)
	if firstDone.ContentHash != secondDone.ContentHash {
		t.Fatalf("hashes differ: %s vs %s", firstDone.ContentHash, secondDone.ContentHash)
	}

	stats, err := fx.artifacts.inner.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Items != 1 {
		t.Fatalf("stored items = %d, want 1", stats.Items)
	}
}

func TestSubmitRejectsOverloadedOwner(t *testing.T) {
	fx := newFixture(t, func(cfg *config.Config) {
		cfg.Scheduler.MaxQueueDepthPerOwner = 2
	})
	// Not started: everything stays queued.

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := fx.sched.Submit(ctx, "alice", fmt.Sprintf("https://cdn.example.com/%d.mp3", i)); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	_, err := fx.sched.Submit(ctx, "alice", "https://cdn.example.com/overflow.mp3")
	if !errors.Is(err, ErrOverloaded) {
		t.Fatalf("err = %v, want ErrOverloaded", err)
	}

	// Another owner is unaffected.
	if _, err := fx.sched.Submit(ctx, "bob", "https://cdn.example.com/b.mp3"); err != nil {
		t.Fatalf("submit other owner: %v", err)
	}

	// Overflow submissions must not be persisted.
	all, err := fx.jobs.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("persisted jobs = %d, want 3", len(all))
	}
}

func TestCancelQueuedJobNeverFetches(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	job, err := fx.sched.Submit(ctx, "alice", "https://cdn.example.com/a.mp3")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := fx.sched.Cancel(ctx, job.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	fx.start(t)
	time.Sleep(50 * time.Millisecond)

	cancelled, err := fx.sched.Job(ctx, job.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cancelled.State != jobs.StateFailed || cancelled.ErrorKind != jobs.KindCancelled {
		t.Fatalf("job = %s/%s", cancelled.State, cancelled.ErrorKind)
	}
	if len(fx.fetcher.calls()) != 0 {
		t.Fatal("fetcher invoked for cancelled job")
	}
}

func TestSubmitRejectsOwnerAtInflightLimit(t *testing.T) {
	fx := newFixture(t, func(cfg *config.Config) {
		cfg.Scheduler.Workers = 2
		cfg.Scheduler.MaxInflightGlobal = 4
		cfg.Scheduler.MaxInflightPerOwner = 1
	})
	fx.fetcher.started = make(chan string, 4)
	fx.fetcher.gate = make(chan struct{})
	fx.start(t)

	ctx := context.Background()
	held, err := fx.sched.Submit(ctx, "alice", "https://cdn.example.com/held.mp3")
	if err != nil {
		t.Fatalf("submit held: %v", err)
	}
	<-fx.fetcher.started

	for i := 0; i < 3; i++ {
		_, err := fx.sched.Submit(ctx, "alice", fmt.Sprintf("https://cdn.example.com/extra%d.mp3", i))
		if !errors.Is(err, ErrOverloaded) {
			t.Fatalf("submit %d err = %v, want ErrOverloaded", i, err)
		}
	}

	// Another owner still has inflight headroom.
	other, err := fx.sched.Submit(ctx, "bob", "https://cdn.example.com/b.mp3")
	if err != nil {
		t.Fatalf("submit other owner: %v", err)
	}

	close(fx.fetcher.gate)
	waitTerminal(t, fx.sched, held.ID)
	waitTerminal(t, fx.sched, other.ID)
}

func TestSubmitRejectsWhenGlobalInflightFull(t *testing.T) {
	fx := newFixture(t, func(cfg *config.Config) {
		cfg.Scheduler.Workers = 2
		cfg.Scheduler.MaxInflightGlobal = 1
		cfg.Scheduler.MaxInflightPerOwner = 1
	})
	fx.fetcher.started = make(chan string, 1)
	fx.fetcher.gate = make(chan struct{})
	fx.start(t)

	ctx := context.Background()
	held, err := fx.sched.Submit(ctx, "alice", "https://cdn.example.com/held.mp3")
	if err != nil {
		t.Fatalf("submit held: %v", err)
	}
	<-fx.fetcher.started

	if _, err := fx.sched.Submit(ctx, "bob", "https://cdn.example.com/b.mp3"); !errors.Is(err, ErrOverloaded) {
		t.Fatalf("err = %v, want ErrOverloaded", err)
	}

	close(fx.fetcher.gate)
	waitTerminal(t, fx.sched, held.ID)
}

func TestCancelInflightJobStopsWithoutStoreWrite(t *testing.T) {
	fx := newFixture(t, nil)
	fx.fetcher.started = make(chan string, 1)
	fx.fetcher.gate = make(chan struct{})
	fx.start(t)

	ctx := context.Background()
	job, err := fx.sched.Submit(ctx, "alice", "https://cdn.example.com/a.mp3")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-fx.fetcher.started
	if err := fx.sched.Cancel(ctx, job.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	failed := waitTerminal(t, fx.sched, job.ID)
	if failed.State != jobs.StateFailed || failed.ErrorKind != jobs.KindCancelled {
		t.Fatalf("job = %s/%s", failed.State, failed.ErrorKind)
	}
	if fx.artifacts.putCount() != 0 {
		t.Fatal("store written for cancelled job")
	}
}

func TestCancelUnknownJob(t *testing.T) {
	fx := newFixture(t, nil)
	if err := fx.sched.Cancel(context.Background(), 12345); !errors.Is(err, ErrUnknownJob) {
		t.Fatalf("err = %v, want ErrUnknownJob", err)
	}
}

func TestFailedFetchNeverWritesStore(t *testing.T) {
	fx := newFixture(t, nil)
	fx.fetcher.err = fetch.Wrap(fetch.ErrTooLarge, "download", "content length exceeds limit", nil)
	fx.start(t)

	job, err := fx.sched.Submit(context.Background(), "alice", "https://cdn.example.com/huge.mp3")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	failed := waitTerminal(t, fx.sched, job.ID)
	if failed.State != jobs.StateFailed {
		t.Fatalf("state = %s", failed.State)
	}
	if failed.ErrorKind != jobs.KindTooLarge {
		t.Fatalf("kind = %s, want %s", failed.ErrorKind, jobs.KindTooLarge)
	}
	if fx.artifacts.putCount() != 0 {
		t.Fatal("store written despite fetch failure")
	}
}

func TestRoundRobinFairnessAcrossOwners(t *testing.T) {
	fx := newFixture(t, func(cfg *config.Config) {
		cfg.Scheduler.Workers = 1
		cfg.Scheduler.MaxInflightGlobal = 1
		cfg.Scheduler.MaxInflightPerOwner = 1
	})
	ctx := context.Background()

	// Queue everything before dispatch begins so ordering is deterministic.
	if _, err := fx.sched.Submit(ctx, "alice", "https://cdn.example.com/a1.mp3"); err != nil {
		t.Fatalf("submit a1: %v", err)
	}
	second, err := fx.sched.Submit(ctx, "alice", "https://cdn.example.com/a2.mp3")
	if err != nil {
		t.Fatalf("submit a2: %v", err)
	}
	if _, err := fx.sched.Submit(ctx, "bob", "https://cdn.example.com/b1.mp3"); err != nil {
		t.Fatalf("submit b1: %v", err)
	}

	fx.start(t)
	waitTerminal(t, fx.sched, second.ID)

	order := fx.fetcher.calls()
	want := []string{
		"https://cdn.example.com/a1.mp3",
		"https://cdn.example.com/b1.mp3",
		"https://cdn.example.com/a2.mp3",
	}
	if len(order) != len(want) {
		t.Fatalf("order = %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestStartReloadsPersistedQueue(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	job, err := fx.jobs.NewJob(ctx, "alice", "https://cdn.example.com/restored.mp3")
	if err != nil {
		t.Fatalf("seed job: %v", err)
	}

	fx.start(t)
	done := waitTerminal(t, fx.sched, job.ID)
	if done.State != jobs.StateDone {
		t.Fatalf("state = %s (%s)", done.State, done.ErrorMessage)
	}
}

func TestStatsTracksQueueDepth(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := fx.sched.Submit(ctx, "alice", fmt.Sprintf("https://cdn.example.com/%d.mp3", i)); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	stats := fx.sched.Stats()
	if stats.Queued != 3 {
		t.Fatalf("queued = %d, want 3", stats.Queued)
	}
	if stats.Inflight != 0 {
		t.Fatalf("inflight = %d", stats.Inflight)
	}
}

func TestClassifyMapsSentinelsToKinds(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		err  error
		kind string
	}{
		{fetch.Wrap(fetch.ErrUnreachable, "download", "", nil), jobs.KindUnreachable},
		{fetch.Wrap(fetch.ErrUnsupported, "parse", "", nil), jobs.KindUnsupported},
		{fetch.Wrap(fetch.ErrTimeout, "download", "", nil), jobs.KindTimeout},
		{fetch.Wrap(fetch.ErrTooLarge, "download", "", nil), jobs.KindTooLarge},
		{fmt.Errorf("wrapped: %w", store.ErrCapacityExceeded), jobs.KindStoreCapacity},
		{errors.New("mystery"), jobs.KindInternal},
	}
	for _, tc := range tests {
		if got := classify(ctx, tc.err); got != tc.kind {
			t.Fatalf("classify(%v) = %s, want %s", tc.err, got, tc.kind)
		}
	}
}
