package ipc

import "soundscout/internal/api"

// JobView mirrors the API job DTO for IPC callers.
type JobView = api.JobView

// PlaylistEntryView mirrors the API playlist entry DTO.
type PlaylistEntryView = api.PlaylistEntryView

// PlaylistView mirrors the API playlist summary DTO.
type PlaylistView = api.PlaylistView

// StartRequest triggers daemon processing startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops daemon processing.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon status information.
type StatusResponse struct {
	Running      bool              `json:"running"`
	PID          int               `json:"pid"`
	DatabasePath string            `json:"database_path"`
	SocketPath   string            `json:"socket_path"`
	LockPath     string            `json:"lock_path"`
	JobCounts    map[string]int    `json:"job_counts"`
	Scheduler    api.SchedulerView `json:"scheduler"`
	Store        api.StoreView     `json:"store"`
}

// SubmitRequest admits a new job for an owner.
type SubmitRequest struct {
	Owner  string `json:"owner"`
	Source string `json:"source"`
}

// SubmitResponse carries the admitted job.
type SubmitResponse struct {
	Job JobView `json:"job"`
}

// JobStatusRequest fetches a single job by id.
type JobStatusRequest struct {
	ID int64 `json:"id"`
}

// JobStatusResponse contains a single job.
type JobStatusResponse struct {
	Job JobView `json:"job"`
}

// JobListRequest filters job listing by state and, optionally, owner.
type JobListRequest struct {
	States []string `json:"states"`
	Owner  string   `json:"owner"`
}

// JobListResponse contains job entries.
type JobListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// CancelRequest cancels a queued or inflight job.
type CancelRequest struct {
	ID int64 `json:"id"`
}

// CancelResponse indicates cancellation result.
type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// PlaylistAppendRequest adds a stored track to a playlist.
type PlaylistAppendRequest struct {
	Owner       string `json:"owner"`
	Name        string `json:"name"`
	ContentHash string `json:"content_hash"`
}

// PlaylistAppendResponse carries the appended entry.
type PlaylistAppendResponse struct {
	Entry PlaylistEntryView `json:"entry"`
}

// PlaylistRemoveRequest removes a playlist entry by position.
type PlaylistRemoveRequest struct {
	Owner    string `json:"owner"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// PlaylistRemoveResponse indicates removal result.
type PlaylistRemoveResponse struct {
	Removed bool `json:"removed"`
}

// PlaylistListRequest fetches one playlist's entries.
type PlaylistListRequest struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// PlaylistListResponse contains playlist entries in position order.
type PlaylistListResponse struct {
	Entries []PlaylistEntryView `json:"entries"`
}

// PlaylistsRequest fetches an owner's playlists.
type PlaylistsRequest struct {
	Owner string `json:"owner"`
}

// PlaylistsResponse contains playlist summaries.
type PlaylistsResponse struct {
	Playlists []PlaylistView `json:"playlists"`
}

// StoreStatsRequest fetches content store occupancy.
type StoreStatsRequest struct{}

// StoreStatsResponse reports content store occupancy.
type StoreStatsResponse struct {
	Stats api.StoreView `json:"stats"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
