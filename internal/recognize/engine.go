// Package recognize resolves content hashes to track metadata through an
// external fingerprint lookup service, memoizing verdicts per content hash.
package recognize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/singleflight"

	"soundscout/internal/config"
	"soundscout/internal/fingerprint"
	"soundscout/internal/logging"
	"soundscout/internal/media"
	"soundscout/internal/store"
)

// Recognition outcomes. Recognized and Unrecognized are final verdicts;
// Unavailable means the external service could not be reached and a later
// attempt should retry the lookup with the cached fingerprint.
const (
	OutcomeRecognized   = store.OutcomeRecognized
	OutcomeUnrecognized = store.OutcomeUnrecognized
	OutcomeUnavailable  = store.OutcomeUnavailable
)

// Result is the verdict for one content hash.
type Result struct {
	Outcome    string
	Title      string
	Artist     string
	Confidence float64
}

// Engine memoizes recognition per content hash. Identical content is never
// fingerprinted or looked up twice once a final verdict lands.
type Engine struct {
	store         *store.Store
	client        Client
	minConfidence float64
	logger        *slog.Logger
	group         singleflight.Group
}

// New builds an engine over the artifact store's fingerprint cache.
func New(artifacts *store.Store, client Client, cfg config.Recognition, logger *slog.Logger) *Engine {
	return &Engine{
		store:         artifacts,
		client:        client,
		minConfidence: cfg.MinConfidence,
		logger:        logging.NewComponentLogger(logger, "recognize"),
	}
}

// Recognize resolves a content hash to a verdict. Final cached verdicts are
// served without touching the audio or the network. A cached unavailable
// verdict reuses its stored fingerprint and retries only the external half.
// Concurrent calls for the same hash collapse into one lookup.
func (e *Engine) Recognize(ctx context.Context, hash string, audio *media.Audio) (Result, error) {
	value, err, _ := e.group.Do(hash, func() (any, error) {
		return e.recognize(ctx, hash, audio)
	})
	if err != nil {
		return Result{}, err
	}
	return value.(Result), nil
}

func (e *Engine) recognize(ctx context.Context, hash string, audio *media.Audio) (Result, error) {
	record, err := e.store.LookupFingerprint(ctx, hash)
	if err != nil {
		return Result{}, err
	}
	if record != nil && record.Final() {
		return Result{
			Outcome:    record.Outcome,
			Title:      record.Title,
			Artist:     record.Artist,
			Confidence: record.Confidence,
		}, nil
	}

	encoded := ""
	if record != nil {
		encoded = record.Fingerprint
	}
	if encoded == "" {
		hashes, err := fingerprint.Compute(audio)
		if err != nil {
			if errors.Is(err, fingerprint.ErrTooShort) {
				result := Result{Outcome: OutcomeUnrecognized}
				return result, e.persist(ctx, hash, "", result)
			}
			return Result{}, fmt.Errorf("fingerprint content: %w", err)
		}
		encoded = fingerprint.Encode(hashes)
	}

	duration := 0.0
	if audio != nil {
		duration = audio.Duration().Seconds()
	}
	matches, err := e.client.Lookup(ctx, encoded, duration)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			e.logger.Warn("recognition service unavailable",
				logging.String(logging.FieldHash, hash),
				logging.Error(err))
			result := Result{Outcome: OutcomeUnavailable}
			return result, e.persist(ctx, hash, encoded, result)
		}
		return Result{}, err
	}

	result := e.judge(matches)
	if err := e.persist(ctx, hash, encoded, result); err != nil {
		return Result{}, err
	}

	e.logger.Info("recognition verdict",
		logging.String(logging.FieldHash, hash),
		logging.String("outcome", result.Outcome),
		logging.Float64("confidence", result.Confidence))
	return result, nil
}

// judge picks the best-scoring match at or above the confidence floor.
func (e *Engine) judge(matches []Match) Result {
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	for _, match := range matches {
		if match.Score < e.minConfidence || match.Title == "" {
			continue
		}
		return Result{
			Outcome:    OutcomeRecognized,
			Title:      match.Title,
			Artist:     match.Artist,
			Confidence: match.Score,
		}
	}
	return Result{Outcome: OutcomeUnrecognized}
}

func (e *Engine) persist(ctx context.Context, hash, encoded string, result Result) error {
	return e.store.RecordFingerprint(ctx, store.FingerprintRecord{
		Hash:        hash,
		Fingerprint: encoded,
		Outcome:     result.Outcome,
		Title:       result.Title,
		Artist:      result.Artist,
		Confidence:  result.Confidence,
	})
}
