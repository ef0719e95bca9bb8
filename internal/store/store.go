package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite"

	"soundscout/internal/config"
	"soundscout/internal/logging"
	"soundscout/internal/media"
)

var (
	ErrNotFound         = errors.New("artifact not found")
	ErrCapacityExceeded = errors.New("store capacity exceeded")
)

// Artifact describes one stored audio blob.
type Artifact struct {
	Hash       string
	Descriptor media.Descriptor
	CreatedAt  time.Time
	LastAccess time.Time
}

// Stats summarizes store occupancy.
type Stats struct {
	Items         int   `json:"items"`
	TotalBytes    int64 `json:"total_bytes"`
	CapacityBytes int64 `json:"capacity_bytes"`
}

// Store is the content-addressable artifact cache. Blobs live on disk under
// the cache directory keyed by SHA-256 hex; metadata lives in SQLite. Pins
// are in-memory refcounts held only while a job is actively working on an
// artifact, so they need no persistence across restarts.
type Store struct {
	db       *sql.DB
	cacheDir string
	capacity int64
	maxItems int
	logger   *slog.Logger

	putGroup singleflight.Group

	mu   sync.Mutex
	pins map[string]int
}

// Open connects the artifact store to the shared database and its blob
// directory.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:       db,
		cacheDir: cfg.Paths.CacheDir,
		capacity: cfg.Store.CapacityBytes,
		maxItems: cfg.Store.MaxItems,
		logger:   logging.NewComponentLogger(logger, "store"),
		pins:     make(map[string]int),
	}
	if err := store.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// HashBytes returns the content hash used as the artifact key.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Put stores WAV bytes under their content hash. Concurrent puts of the same
// content collapse to a single write; exactly one caller observes
// created=true. When the store is full, unpinned artifacts are evicted
// least-recently-used; if that cannot free enough room the put fails with
// ErrCapacityExceeded and nothing is written.
func (s *Store) Put(ctx context.Context, wav []byte, descriptor media.Descriptor) (string, bool, error) {
	if s.capacity > 0 && int64(len(wav)) > s.capacity {
		return "", false, fmt.Errorf("%w: artifact of %d bytes cannot fit capacity %d", ErrCapacityExceeded, len(wav), s.capacity)
	}

	hash := HashBytes(wav)

	type putResult struct {
		created bool
	}
	value, err, _ := s.putGroup.Do(hash, func() (any, error) {
		exists, err := s.touch(ctx, hash)
		if err != nil {
			return nil, err
		}
		if exists {
			return putResult{created: false}, nil
		}

		if err := s.makeRoom(ctx, int64(len(wav))); err != nil {
			return nil, err
		}
		if err := s.writeBlob(hash, wav); err != nil {
			return nil, err
		}

		now := time.Now().UTC().Format(time.RFC3339Nano)
		if _, err := s.db.ExecContext(
			ctx,
			`INSERT INTO artifacts (hash, size_bytes, codec, sample_rate, channels, duration_seconds, created_at, last_access)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			hash,
			len(wav),
			descriptor.Codec,
			descriptor.SampleRate,
			descriptor.Channels,
			descriptor.DurationSeconds,
			now,
			now,
		); err != nil {
			_ = os.Remove(s.blobPath(hash))
			return nil, fmt.Errorf("insert artifact: %w", err)
		}

		s.logger.Debug("artifact stored",
			logging.String(logging.FieldHash, hash),
			logging.Int64("size_bytes", int64(len(wav))))
		return putResult{created: true}, nil
	})
	if err != nil {
		return "", false, err
	}
	return hash, value.(putResult).created, nil
}

// PutPinned stores like Put but pins the artifact before it becomes visible,
// so a concurrent put under capacity pressure can never evict it. The caller
// releases the pin with Unpin.
func (s *Store) PutPinned(ctx context.Context, wav []byte, descriptor media.Descriptor) (string, bool, error) {
	hash := HashBytes(wav)
	s.Pin(hash)
	_, created, err := s.Put(ctx, wav, descriptor)
	if err != nil {
		s.Unpin(hash)
		return "", false, err
	}
	return hash, created, nil
}

// Get returns the stored WAV bytes for a content hash and refreshes its
// access time.
func (s *Store) Get(ctx context.Context, hash string) ([]byte, error) {
	exists, err := s.touch(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, hash)
	}

	data, err := os.ReadFile(s.blobPath(hash))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, hash)
		}
		return nil, fmt.Errorf("read artifact blob: %w", err)
	}
	return data, nil
}

// Contains reports whether an artifact exists without refreshing access time.
func (s *Store) Contains(ctx context.Context, hash string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM artifacts WHERE hash = ?`, hash).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check artifact: %w", err)
	}
	return true, nil
}

// Pin protects an artifact from eviction while a job works on it. Pins nest.
func (s *Store) Pin(hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pins[hash]++
}

// Unpin releases one pin reference.
func (s *Store) Unpin(hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pins[hash] <= 1 {
		delete(s.pins, hash)
		return
	}
	s.pins[hash]--
}

func (s *Store) pinned(hash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pins[hash] > 0
}

// Stats reports item count and byte occupancy.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var items int
	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1), COALESCE(SUM(size_bytes), 0) FROM artifacts`).Scan(&items, &total)
	if err != nil {
		return Stats{}, fmt.Errorf("store stats: %w", err)
	}
	return Stats{Items: items, TotalBytes: total.Int64, CapacityBytes: s.capacity}, nil
}

// touch refreshes last_access and reports whether the artifact exists.
func (s *Store) touch(ctx context.Context, hash string) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE artifacts SET last_access = ? WHERE hash = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		hash,
	)
	if err != nil {
		return false, fmt.Errorf("touch artifact: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// makeRoom evicts unpinned artifacts, oldest access first, until the incoming
// blob fits both the byte capacity and the item ceiling.
func (s *Store) makeRoom(ctx context.Context, incoming int64) error {
	for {
		stats, err := s.Stats(ctx)
		if err != nil {
			return err
		}

		overBytes := s.capacity > 0 && stats.TotalBytes+incoming > s.capacity
		overItems := s.maxItems > 0 && stats.Items+1 > s.maxItems
		if !overBytes && !overItems {
			return nil
		}

		victim, err := s.evictionCandidate(ctx)
		if err != nil {
			return err
		}
		if victim == "" {
			return fmt.Errorf("%w: all resident artifacts pinned", ErrCapacityExceeded)
		}
		if err := s.remove(ctx, victim); err != nil {
			return err
		}
		s.logger.Debug("artifact evicted", logging.String(logging.FieldHash, victim))
	}
}

func (s *Store) evictionCandidate(ctx context.Context) (string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT hash FROM artifacts ORDER BY last_access`)
	if err != nil {
		return "", fmt.Errorf("scan eviction candidates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return "", err
		}
		if !s.pinned(hash) {
			return hash, nil
		}
	}
	return "", rows.Err()
}

func (s *Store) remove(ctx context.Context, hash string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE hash = ?`, hash); err != nil {
		return fmt.Errorf("delete artifact row: %w", err)
	}
	// Fingerprint records stay behind: they are tiny and let a re-fetched
	// artifact skip the external lookup entirely.
	if err := os.Remove(s.blobPath(hash)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete artifact blob: %w", err)
	}
	return nil
}

func (s *Store) blobPath(hash string) string {
	return filepath.Join(s.cacheDir, hash+".wav")
}

func (s *Store) writeBlob(hash string, data []byte) error {
	path := s.blobPath(hash)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write artifact blob: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("finalize artifact blob: %w", err)
	}
	return nil
}
