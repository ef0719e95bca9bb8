package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Recognition outcomes cached per content hash.
const (
	OutcomeRecognized   = "recognized"
	OutcomeUnrecognized = "unrecognized"
	OutcomeUnavailable  = "unavailable"
)

// FingerprintRecord caches the fingerprint and recognition verdict for one
// content hash. Unavailable records keep the fingerprint so a later attempt
// can retry the external lookup without recomputing it.
type FingerprintRecord struct {
	Hash        string
	Fingerprint string
	Outcome     string
	Title       string
	Artist      string
	Confidence  float64
	UpdatedAt   time.Time
}

// Final reports whether the cached verdict should be served without another
// external lookup.
func (r *FingerprintRecord) Final() bool {
	return r.Outcome == OutcomeRecognized || r.Outcome == OutcomeUnrecognized
}

// RecordFingerprint inserts or replaces the cached verdict for a hash.
func (s *Store) RecordFingerprint(ctx context.Context, record FingerprintRecord) error {
	if record.Hash == "" {
		return errors.New("fingerprint record missing hash")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO fingerprints (hash, fingerprint, outcome, title, artist, confidence, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(hash) DO UPDATE SET
             fingerprint = excluded.fingerprint,
             outcome = excluded.outcome,
             title = excluded.title,
             artist = excluded.artist,
             confidence = excluded.confidence,
             updated_at = excluded.updated_at`,
		record.Hash,
		record.Fingerprint,
		record.Outcome,
		nullableString(record.Title),
		nullableString(record.Artist),
		record.Confidence,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record fingerprint: %w", err)
	}
	return nil
}

// LookupFingerprint returns the cached verdict for a hash. Returns nil when
// no record exists.
func (s *Store) LookupFingerprint(ctx context.Context, hash string) (*FingerprintRecord, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT hash, fingerprint, outcome, title, artist, confidence, updated_at
         FROM fingerprints WHERE hash = ?`,
		hash,
	)

	var (
		record     FingerprintRecord
		title      sql.NullString
		artist     sql.NullString
		updatedRaw string
	)
	err := row.Scan(&record.Hash, &record.Fingerprint, &record.Outcome, &title, &artist, &record.Confidence, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup fingerprint: %w", err)
	}

	record.Title = title.String
	record.Artist = artist.String
	if updated, parseErr := time.Parse(time.RFC3339Nano, updatedRaw); parseErr == nil {
		record.UpdatedAt = updated
	}
	return &record, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
