package store

import (
	"context"
	"fmt"
)

const storeSchema = `
CREATE TABLE IF NOT EXISTS artifacts (
    hash             TEXT PRIMARY KEY,
    size_bytes       INTEGER NOT NULL,
    codec            TEXT NOT NULL,
    sample_rate      INTEGER NOT NULL,
    channels         INTEGER NOT NULL,
    duration_seconds REAL NOT NULL,
    created_at       TEXT NOT NULL,
    last_access      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_artifacts_last_access ON artifacts(last_access);

CREATE TABLE IF NOT EXISTS fingerprints (
    hash        TEXT PRIMARY KEY,
    fingerprint TEXT NOT NULL,
    outcome     TEXT NOT NULL,
    title       TEXT,
    artist      TEXT,
    confidence  REAL NOT NULL DEFAULT 0,
    updated_at  TEXT NOT NULL
);
`

func (s *Store) applySchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, storeSchema); err != nil {
		return fmt.Errorf("apply store schema: %w", err)
	}
	return nil
}
