package api

import (
	"soundscout/internal/jobs"
	"soundscout/internal/playlist"
	"soundscout/internal/scheduler"
	"soundscout/internal/store"
)

// FromJob converts a job record to its API representation.
func FromJob(job *jobs.Job) JobView {
	if job == nil {
		return JobView{}
	}

	dto := JobView{
		ID:           job.ID,
		Owner:        job.Owner,
		Source:       job.Source,
		State:        string(job.State),
		ContentHash:  job.ContentHash,
		ErrorKind:    job.ErrorKind,
		ErrorMessage: job.ErrorMessage,
	}
	if result, ok := job.Result(); ok {
		dto.Result = &ResultView{
			Outcome:     result.Outcome,
			Title:       result.Title,
			Artist:      result.Artist,
			Confidence:  result.Confidence,
			ContentHash: result.ContentHash,
		}
	}
	if !job.CreatedAt.IsZero() {
		dto.CreatedAt = job.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !job.UpdatedAt.IsZero() {
		dto.UpdatedAt = job.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	if job.FinishedAt != nil {
		dto.FinishedAt = job.FinishedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromJobs converts a slice of job records into API DTOs.
func FromJobs(list []*jobs.Job) []JobView {
	if len(list) == 0 {
		return nil
	}
	out := make([]JobView, 0, len(list))
	for _, job := range list {
		out = append(out, FromJob(job))
	}
	return out
}

// FromSchedulerStats converts scheduler occupancy to its API representation.
func FromSchedulerStats(stats scheduler.Stats) SchedulerView {
	return SchedulerView{Queued: stats.Queued, Inflight: stats.Inflight}
}

// FromStoreStats converts content store usage to its API representation.
func FromStoreStats(stats store.Stats) StoreView {
	return StoreView{
		Items:         stats.Items,
		TotalBytes:    stats.TotalBytes,
		CapacityBytes: stats.CapacityBytes,
	}
}

// FromPlaylistEntry converts a playlist entry to its API representation.
func FromPlaylistEntry(entry playlist.Entry) PlaylistEntryView {
	dto := PlaylistEntryView{
		Position:    entry.Position,
		ContentHash: entry.ContentHash,
		Title:       entry.Title,
		Artist:      entry.Artist,
	}
	if !entry.AddedAt.IsZero() {
		dto.AddedAt = entry.AddedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromPlaylistEntries converts playlist entries into API DTOs.
func FromPlaylistEntries(entries []playlist.Entry) []PlaylistEntryView {
	if len(entries) == 0 {
		return nil
	}
	out := make([]PlaylistEntryView, 0, len(entries))
	for _, entry := range entries {
		out = append(out, FromPlaylistEntry(entry))
	}
	return out
}

// FromPlaylistSummaries converts playlist summaries into API DTOs.
func FromPlaylistSummaries(summaries []playlist.Summary) []PlaylistView {
	if len(summaries) == 0 {
		return nil
	}
	out := make([]PlaylistView, 0, len(summaries))
	for _, summary := range summaries {
		out = append(out, PlaylistView{Name: summary.Name, TrackCount: summary.TrackCount})
	}
	return out
}
