package jobs

import (
	"context"
	"fmt"
)

const jobsSchema = `
CREATE TABLE IF NOT EXISTS jobs (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    owner         TEXT NOT NULL,
    source        TEXT NOT NULL,
    state         TEXT NOT NULL,
    content_hash  TEXT,
    error_kind    TEXT,
    error_message TEXT,
    result_json   TEXT,
    created_at    TEXT NOT NULL,
    updated_at    TEXT NOT NULL,
    finished_at   TEXT
);
CREATE INDEX IF NOT EXISTS idx_jobs_state ON jobs(state);
CREATE INDEX IF NOT EXISTS idx_jobs_owner ON jobs(owner, state);
`

func (s *Store) applySchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, jobsSchema); err != nil {
		return fmt.Errorf("apply jobs schema: %w", err)
	}
	return nil
}
