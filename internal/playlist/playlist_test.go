package playlist

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"soundscout/internal/config"
	"soundscout/internal/logging"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.DataDir = base + "/data"
	cfg.Paths.CacheDir = base + "/cache"
	cfg.Paths.WorkDir = base + "/work"
	cfg.Paths.LogDir = base + "/logs"

	manager, err := Open(&cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("open manager: %v", err)
	}
	t.Cleanup(func() { _ = manager.Close() })
	return manager
}

func TestAppendAndListPreservesOrder(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		entry, err := manager.Append(ctx, "alice", "favorites", fmt.Sprintf("hash-%d", i), fmt.Sprintf("Track %d", i), "Band")
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if entry.Position != i {
			t.Fatalf("position = %d, want %d", entry.Position, i)
		}
	}

	entries, err := manager.List(ctx, "alice", "favorites")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d", len(entries))
	}
	for i, entry := range entries {
		if entry.Position != i {
			t.Fatalf("entry %d position = %d", i, entry.Position)
		}
		if entry.ContentHash != fmt.Sprintf("hash-%d", i) {
			t.Fatalf("entry %d hash = %s", i, entry.ContentHash)
		}
	}
}

func TestAppendRejectsDuplicateHash(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	if _, err := manager.Append(ctx, "alice", "favorites", "hash-a", "Track", "Band"); err != nil {
		t.Fatalf("append: %v", err)
	}
	_, err := manager.Append(ctx, "alice", "favorites", "hash-a", "Track", "Band")
	if !errors.Is(err, ErrDuplicateEntry) {
		t.Fatalf("err = %v, want ErrDuplicateEntry", err)
	}

	// The same hash is fine in a different playlist or for a different owner.
	if _, err := manager.Append(ctx, "alice", "other", "hash-a", "Track", "Band"); err != nil {
		t.Fatalf("append other playlist: %v", err)
	}
	if _, err := manager.Append(ctx, "bob", "favorites", "hash-a", "Track", "Band"); err != nil {
		t.Fatalf("append other owner: %v", err)
	}
}

func TestRemoveReindexesPositions(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := manager.Append(ctx, "alice", "mix", fmt.Sprintf("hash-%d", i), "", ""); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	if err := manager.Remove(ctx, "alice", "mix", 1); err != nil {
		t.Fatalf("remove: %v", err)
	}

	entries, err := manager.List(ctx, "alice", "mix")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d", len(entries))
	}
	wantHashes := []string{"hash-0", "hash-2", "hash-3"}
	for i, entry := range entries {
		if entry.Position != i {
			t.Fatalf("entry %d position = %d, positions must stay dense", i, entry.Position)
		}
		if entry.ContentHash != wantHashes[i] {
			t.Fatalf("entry %d hash = %s, want %s", i, entry.ContentHash, wantHashes[i])
		}
	}
}

func TestRemoveMissingPosition(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	if _, err := manager.Append(ctx, "alice", "mix", "hash-0", "", ""); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := manager.Remove(ctx, "alice", "mix", 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListUnknownPlaylist(t *testing.T) {
	manager := newTestManager(t)
	if _, err := manager.List(context.Background(), "alice", "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDrainedPlaylistListsEmpty(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	if _, err := manager.Append(ctx, "alice", "mix", "hash-0", "Track", "Band"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := manager.Remove(ctx, "alice", "mix", 0); err != nil {
		t.Fatalf("remove: %v", err)
	}

	entries, err := manager.List(ctx, "alice", "mix")
	if err != nil {
		t.Fatalf("list drained playlist: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("entries = %+v", entries)
	}

	summaries, err := manager.Playlists(ctx, "alice")
	if err != nil {
		t.Fatalf("playlists: %v", err)
	}
	if len(summaries) != 1 || summaries[0].Name != "mix" || summaries[0].TrackCount != 0 {
		t.Fatalf("summaries = %+v", summaries)
	}

	// Appending again starts over at position zero.
	entry, err := manager.Append(ctx, "alice", "mix", "hash-1", "", "")
	if err != nil {
		t.Fatalf("append after drain: %v", err)
	}
	if entry.Position != 0 {
		t.Fatalf("position = %d, want 0", entry.Position)
	}
}

func TestPlaylistsSummaries(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	manager.Append(ctx, "alice", "a", "hash-0", "", "")
	manager.Append(ctx, "alice", "a", "hash-1", "", "")
	manager.Append(ctx, "alice", "b", "hash-0", "", "")
	manager.Append(ctx, "bob", "c", "hash-0", "", "")

	summaries, err := manager.Playlists(ctx, "alice")
	if err != nil {
		t.Fatalf("playlists: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("summaries = %+v", summaries)
	}
	if summaries[0].Name != "a" || summaries[0].TrackCount != 2 {
		t.Fatalf("summary a = %+v", summaries[0])
	}
	if summaries[1].Name != "b" || summaries[1].TrackCount != 1 {
		t.Fatalf("summary b = %+v", summaries[1])
	}
}
