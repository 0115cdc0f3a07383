package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/yukifiles/yukifiles/internal/models"
)

func newTestEntry(id, userID, action string) *models.ActivityEntry {
	return &models.ActivityEntry{
		ID:        id,
		UserID:    userID,
		Action:    action,
		Timestamp: time.Now(),
	}
}

func TestActivityRepository_Append_EvictsOldestFirst(t *testing.T) {
	repo := NewActivityRepository(3)

	for i := 1; i <= 5; i++ {
		repo.Append(newTestEntry(fmt.Sprintf("entry-%d", i), "user-1", models.ActionFileUploaded))
	}

	if repo.Len() != 3 {
		t.Fatalf("expected 3 entries after eviction, got %d", repo.Len())
	}

	entries := repo.Snapshot()
	if entries[0].ID != "entry-3" || entries[2].ID != "entry-5" {
		t.Fatalf("expected [entry-3 .. entry-5], got [%s .. %s]", entries[0].ID, entries[2].ID)
	}
}

func TestActivityRepository_RecentForUser_NewestFirstAndScoped(t *testing.T) {
	repo := NewActivityRepository(10)

	repo.Append(newTestEntry("entry-1", "user-1", models.ActionFileUploaded))
	repo.Append(newTestEntry("entry-2", "user-2", models.ActionFileUploaded))
	repo.Append(newTestEntry("entry-3", "user-1", models.ActionFileDeleted))

	got := repo.RecentForUser("user-1", 10)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries for user-1, got %d", len(got))
	}
	if got[0].ID != "entry-3" || got[1].ID != "entry-1" {
		t.Fatalf("expected newest first [entry-3 entry-1], got [%s %s]", got[0].ID, got[1].ID)
	}

	limited := repo.RecentForUser("user-1", 1)
	if len(limited) != 1 || limited[0].ID != "entry-3" {
		t.Fatalf("expected only the newest entry, got %d entries", len(limited))
	}
}

func TestActivityRepository_Restore_TruncatesOldestBeyondCapacity(t *testing.T) {
	entries := make([]*models.ActivityEntry, 0, 5)
	for i := 1; i <= 5; i++ {
		entries = append(entries, newTestEntry(fmt.Sprintf("entry-%d", i), "user-1", models.ActionFileUploaded))
	}

	repo := NewActivityRepository(3)
	repo.Restore(entries)

	if repo.Len() != 3 {
		t.Fatalf("expected 3 entries after restore, got %d", repo.Len())
	}
	got := repo.Snapshot()
	if got[0].ID != "entry-3" {
		t.Fatalf("expected oldest surviving entry to be entry-3, got %s", got[0].ID)
	}
}

func TestActivityRepository_ClonesEntries(t *testing.T) {
	repo := NewActivityRepository(10)

	entry := newTestEntry("entry-1", "user-1", models.ActionFileUploaded)
	entry.Metadata = map[string]string{"file_id": "file-1"}
	repo.Append(entry)

	// Mutating the original after append must not affect the stored copy.
	entry.Metadata["file_id"] = "changed"

	got := repo.Recent(1)
	if got[0].Metadata["file_id"] != "file-1" {
		t.Fatalf("expected stored metadata to be isolated, got %q", got[0].Metadata["file_id"])
	}
}
