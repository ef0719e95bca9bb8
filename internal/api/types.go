// Package api defines transport-friendly views of pipeline state shared by
// the IPC layer and the CLI.
package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// JobView describes a job in a transport-friendly format.
type JobView struct {
	ID           int64       `json:"id"`
	Owner        string      `json:"owner"`
	Source       string      `json:"source"`
	State        string      `json:"state"`
	ContentHash  string      `json:"contentHash,omitempty"`
	ErrorKind    string      `json:"errorKind,omitempty"`
	ErrorMessage string      `json:"errorMessage,omitempty"`
	Result       *ResultView `json:"result,omitempty"`
	CreatedAt    string      `json:"createdAt,omitempty"`
	UpdatedAt    string      `json:"updatedAt,omitempty"`
	FinishedAt   string      `json:"finishedAt,omitempty"`
}

// ResultView captures the recognition verdict attached to a completed job.
type ResultView struct {
	Outcome     string  `json:"outcome"`
	Title       string  `json:"title,omitempty"`
	Artist      string  `json:"artist,omitempty"`
	Confidence  float64 `json:"confidence,omitempty"`
	ContentHash string  `json:"contentHash"`
}

// SchedulerView summarizes scheduler occupancy.
type SchedulerView struct {
	Queued   int `json:"queued"`
	Inflight int `json:"inflight"`
}

// StoreView summarizes the content store.
type StoreView struct {
	Items         int   `json:"items"`
	TotalBytes    int64 `json:"totalBytes"`
	CapacityBytes int64 `json:"capacityBytes"`
}

// PlaylistEntryView is one track in a playlist.
type PlaylistEntryView struct {
	Position    int    `json:"position"`
	ContentHash string `json:"contentHash"`
	Title       string `json:"title,omitempty"`
	Artist      string `json:"artist,omitempty"`
	AddedAt     string `json:"addedAt,omitempty"`
}

// PlaylistView describes one playlist without its entries.
type PlaylistView struct {
	Name       string `json:"name"`
	TrackCount int    `json:"trackCount"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	DatabasePath string         `json:"databasePath"`
	SocketPath   string         `json:"socketPath"`
	LockPath     string         `json:"lockPath"`
	JobCounts    map[string]int `json:"jobCounts"`
	Scheduler    SchedulerView  `json:"scheduler"`
	Store        StoreView      `json:"store"`
}
