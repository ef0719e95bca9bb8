package jobs

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// State represents the lifecycle of a pipeline job.
type State string

const (
	StateQueued      State = "queued"
	StateFetching    State = "fetching"
	StateRecognizing State = "recognizing"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

var allStates = []State{
	StateQueued,
	StateFetching,
	StateRecognizing,
	StateDone,
	StateFailed,
}

var stateSet = func() map[State]struct{} {
	set := make(map[State]struct{}, len(allStates))
	for _, state := range allStates {
		set[state] = struct{}{}
	}
	return set
}()

var inflightStates = map[State]struct{}{
	StateFetching:    {},
	StateRecognizing: {},
}

// Stable error kinds surfaced on failed jobs. The front-end renders these;
// they never change meaning.
const (
	KindUnreachable   = "unreachable"
	KindUnsupported   = "unsupported"
	KindTimeout       = "timeout"
	KindTooLarge      = "too_large"
	KindStoreCapacity = "store_capacity"
	KindCancelled     = "cancelled"
	KindInternal      = "internal"
)

// AllStates returns the ordered list of known states.
func AllStates() []State {
	cp := make([]State, len(allStates))
	copy(cp, allStates)
	return cp
}

// ParseState converts a string into a known State.
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stateSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a state is final; terminal jobs never transition.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// IsInflight reports whether a state reflects work executing in a worker slot.
func (s State) IsInflight() bool {
	_, ok := inflightStates[s]
	return ok
}

// Result captures the recognition outcome attached to a completed job.
type Result struct {
	Outcome     string  `json:"outcome"`
	Title       string  `json:"title,omitempty"`
	Artist      string  `json:"artist,omitempty"`
	Confidence  float64 `json:"confidence,omitempty"`
	ContentHash string  `json:"content_hash"`
}

// Job represents a pipeline job persisted in SQLite.
type Job struct {
	ID           int64
	Owner        string
	Source       string
	State        State
	ContentHash  string
	ErrorKind    string
	ErrorMessage string
	ResultJSON   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	FinishedAt   *time.Time
}

// IsTerminal reports whether the job has reached a final state.
func (j *Job) IsTerminal() bool {
	return j.State.IsTerminal()
}

// SetFailed marks the job as failed with a stable error kind and message.
func (j *Job) SetFailed(kind, message string) {
	now := time.Now().UTC()
	j.State = StateFailed
	j.ErrorKind = kind
	j.ErrorMessage = message
	j.FinishedAt = &now
}

// SetDone marks the job as done carrying its content hash and result.
func (j *Job) SetDone(hash string, result Result) error {
	result.ContentHash = hash
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal job result: %w", err)
	}
	now := time.Now().UTC()
	j.State = StateDone
	j.ContentHash = hash
	j.ResultJSON = string(encoded)
	j.ErrorKind = ""
	j.ErrorMessage = ""
	j.FinishedAt = &now
	return nil
}

// Result decodes the stored result payload. Returns false when none is attached.
func (j *Job) Result() (Result, bool) {
	if strings.TrimSpace(j.ResultJSON) == "" {
		return Result{}, false
	}
	var result Result
	if err := json.Unmarshal([]byte(j.ResultJSON), &result); err != nil {
		return Result{}, false
	}
	return result, true
}
