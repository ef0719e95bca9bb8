// Package playlist manages owner-scoped track playlists backed by SQLite.
// Entries reference recognized artifacts by content hash and keep dense,
// zero-based positions.
package playlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"soundscout/internal/config"
	"soundscout/internal/logging"
)

var (
	// ErrDuplicateEntry is returned when a playlist already holds the track.
	ErrDuplicateEntry = errors.New("duplicate playlist entry")
	// ErrNotFound is returned for unknown playlists or positions.
	ErrNotFound = errors.New("playlist entry not found")
)

// Entry is one track in a playlist.
type Entry struct {
	Position    int       `json:"position"`
	ContentHash string    `json:"content_hash"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	AddedAt     time.Time `json:"added_at"`
}

// Summary describes one playlist without its entries.
type Summary struct {
	Name       string `json:"name"`
	TrackCount int    `json:"track_count"`
}

// Manager persists playlists. Mutations for a single owner serialize through
// a per-owner lock so positions stay dense under concurrent appends.
type Manager struct {
	db     *sql.DB
	logger *slog.Logger

	mu     sync.Mutex
	owners map[string]*sync.Mutex
}

const playlistSchema = `
CREATE TABLE IF NOT EXISTS playlists (
    owner      TEXT NOT NULL,
    name       TEXT NOT NULL,
    created_at TEXT NOT NULL,
    PRIMARY KEY(owner, name)
);
CREATE TABLE IF NOT EXISTS playlist_entries (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    owner        TEXT NOT NULL,
    name         TEXT NOT NULL,
    position     INTEGER NOT NULL,
    content_hash TEXT NOT NULL,
    title        TEXT,
    artist       TEXT,
    added_at     TEXT NOT NULL,
    UNIQUE(owner, name, content_hash)
);
CREATE INDEX IF NOT EXISTS idx_playlist_entries_list ON playlist_entries(owner, name, position);
`

// Open connects the playlist manager to the shared database.
func Open(cfg *config.Config, logger *slog.Logger) (*Manager, error) {
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
	if _, err := db.Exec(playlistSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply playlist schema: %w", err)
	}

	return &Manager{
		db:     db,
		logger: logging.NewComponentLogger(logger, "playlist"),
		owners: make(map[string]*sync.Mutex),
	}, nil
}

// Close closes the underlying database connection.
func (m *Manager) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}

func (m *Manager) ownerLock(owner string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.owners[owner]
	if !ok {
		lock = &sync.Mutex{}
		m.owners[owner] = lock
	}
	return lock
}

// Append adds a track to the tail of an owner's playlist, creating the
// playlist on first use. Appending a content hash the playlist already holds
// fails with ErrDuplicateEntry.
func (m *Manager) Append(ctx context.Context, owner, name, contentHash, title, artist string) (Entry, error) {
	owner, name = strings.TrimSpace(owner), strings.TrimSpace(name)
	if owner == "" || name == "" {
		return Entry{}, errors.New("owner and playlist name are required")
	}
	if strings.TrimSpace(contentHash) == "" {
		return Entry{}, errors.New("content hash is required")
	}

	lock := m.ownerLock(owner)
	lock.Lock()
	defer lock.Unlock()

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(
		ctx,
		`SELECT 1 FROM playlist_entries WHERE owner = ? AND name = ? AND content_hash = ?`,
		owner, name, contentHash,
	).Scan(&exists)
	if err == nil {
		return Entry{}, fmt.Errorf("%w: %s already in %s", ErrDuplicateEntry, contentHash, name)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("check duplicate: %w", err)
	}

	var position int
	if err := tx.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM playlist_entries WHERE owner = ? AND name = ?`,
		owner, name,
	).Scan(&position); err != nil {
		return Entry{}, fmt.Errorf("count entries: %w", err)
	}

	addedAt := time.Now().UTC()
	if _, err := tx.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO playlists (owner, name, created_at) VALUES (?, ?, ?)`,
		owner, name, addedAt.Format(time.RFC3339Nano),
	); err != nil {
		return Entry{}, fmt.Errorf("register playlist: %w", err)
	}
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO playlist_entries (owner, name, position, content_hash, title, artist, added_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		owner, name, position, contentHash,
		nullableString(title), nullableString(artist),
		addedAt.Format(time.RFC3339Nano),
	); err != nil {
		return Entry{}, fmt.Errorf("insert entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("commit append: %w", err)
	}

	m.logger.Info("playlist entry appended",
		logging.String(logging.FieldOwner, owner),
		logging.String("playlist", name),
		logging.String(logging.FieldHash, contentHash),
		logging.Int("position", position))

	return Entry{
		Position:    position,
		ContentHash: contentHash,
		Title:       title,
		Artist:      artist,
		AddedAt:     addedAt,
	}, nil
}

// Remove deletes the entry at a position and closes the gap so positions stay
// dense.
func (m *Manager) Remove(ctx context.Context, owner, name string, position int) error {
	lock := m.ownerLock(owner)
	lock.Lock()
	defer lock.Unlock()

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(
		ctx,
		`DELETE FROM playlist_entries WHERE owner = ? AND name = ? AND position = ?`,
		owner, name, position,
	)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s position %d", ErrNotFound, name, position)
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE playlist_entries SET position = position - 1
         WHERE owner = ? AND name = ? AND position > ?`,
		owner, name, position,
	); err != nil {
		return fmt.Errorf("reindex entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit remove: %w", err)
	}
	return nil
}

// List returns a playlist's entries in position order. A playlist whose
// entries have all been removed lists as empty; playlists the owner never
// created fail with ErrNotFound.
func (m *Manager) List(ctx context.Context, owner, name string) ([]Entry, error) {
	rows, err := m.db.QueryContext(
		ctx,
		`SELECT position, content_hash, title, artist, added_at
         FROM playlist_entries WHERE owner = ? AND name = ? ORDER BY position`,
		owner, name,
	)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry    Entry
			title    sql.NullString
			artist   sql.NullString
			addedRaw string
		)
		if err := rows.Scan(&entry.Position, &entry.ContentHash, &title, &artist, &addedRaw); err != nil {
			return nil, err
		}
		entry.Title = title.String
		entry.Artist = artist.String
		if added, parseErr := time.Parse(time.RFC3339Nano, addedRaw); parseErr == nil {
			entry.AddedAt = added
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		var one int
		err := m.db.QueryRowContext(
			ctx,
			`SELECT 1 FROM playlists WHERE owner = ? AND name = ?`,
			owner, name,
		).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: playlist %s", ErrNotFound, name)
		}
		if err != nil {
			return nil, fmt.Errorf("check playlist: %w", err)
		}
		return []Entry{}, nil
	}
	return entries, nil
}

// Playlists returns an owner's playlists with their track counts. Drained
// playlists report zero tracks.
func (m *Manager) Playlists(ctx context.Context, owner string) ([]Summary, error) {
	rows, err := m.db.QueryContext(
		ctx,
		`SELECT p.name, COUNT(e.id)
         FROM playlists p
         LEFT JOIN playlist_entries e ON e.owner = p.owner AND e.name = p.name
         WHERE p.owner = ?
         GROUP BY p.name ORDER BY p.name`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var summary Summary
		if err := rows.Scan(&summary.Name, &summary.TrackCount); err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
