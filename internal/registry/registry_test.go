package registry

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/yukifiles/yukifiles/internal/models"
	"github.com/yukifiles/yukifiles/pkg/snapshot"
)

func newTestStore(t *testing.T) snapshot.BlobStore {
	t.Helper()
	store, err := snapshot.NewFileStore(filepath.Join(t.TempDir(), "registry.json"))
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	return store
}

func TestOpen_ColdStart(t *testing.T) {
	reg, err := Open(newTestStore(t), 100)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer reg.Close()

	if got := reg.Users.Count(); got != 0 {
		t.Fatalf("expected empty registry, got %d users", got)
	}
	if got := reg.Activity.Len(); got != 0 {
		t.Fatalf("expected empty activity log, got %d entries", got)
	}
}

func TestRegistry_PersistReopenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.json")
	store, err := snapshot.NewFileStore(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	reg, err := Open(store, 100)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	user := &models.User{
		ID:           "u1",
		Email:        "a@example.com",
		Name:         "A",
		Role:         models.RoleUser,
		StorageLimit: 100,
		StorageUsed:  10,
		CreatedAt:    now,
	}
	if err := reg.Users.Create(user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	folder := &models.FileNode{
		ID: "d1", OwnerID: "u1", Name: "docs", Kind: models.KindFolder,
		Path: []string{"docs"}, CreatedAt: now,
	}
	file := &models.FileNode{
		ID: "f1", OwnerID: "u1", Name: "a.txt", Kind: models.KindFile,
		ParentID: &folder.ID, Path: []string{"docs", "a.txt"}, Size: 10, CreatedAt: now,
	}
	if err := reg.Files.Create(folder); err != nil {
		t.Fatalf("create folder: %v", err)
	}
	if err := reg.Files.Create(file); err != nil {
		t.Fatalf("create file: %v", err)
	}

	share := &models.ShareLink{
		ID: "sharetoken000000", FileID: "f1", CreatedBy: "u1",
		IsActive: true, CreatedAt: now,
	}
	if err := reg.Shares.Create(share); err != nil {
		t.Fatalf("create share: %v", err)
	}

	reg.Settings.Set("theme", "dark")

	for i := 0; i < 3; i++ {
		reg.Activity.Append(&models.ActivityEntry{
			ID:        fmt.Sprintf("act-%d", i),
			UserID:    "u1",
			Action:    models.ActionFileUploaded,
			Timestamp: now.Add(time.Duration(i) * time.Second),
		})
	}

	if err := reg.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	store2, err := snapshot.NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen file store: %v", err)
	}
	reopened, err := Open(store2, 100)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	gotUser, err := reopened.Users.GetByID("u1")
	if err != nil {
		t.Fatalf("get user after reopen: %v", err)
	}
	if gotUser.Email != "a@example.com" || gotUser.StorageUsed != 10 {
		t.Fatalf("user did not survive the round trip: %+v", gotUser)
	}

	gotFile, err := reopened.Files.GetByID("f1")
	if err != nil {
		t.Fatalf("get file after reopen: %v", err)
	}
	if gotFile.ParentID == nil || *gotFile.ParentID != "d1" {
		t.Fatalf("file lost its parent: %+v", gotFile.ParentID)
	}
	if len(gotFile.Path) != 2 || gotFile.Path[1] != "a.txt" {
		t.Fatalf("file lost its path: %v", gotFile.Path)
	}
	if _, err := reopened.Files.GetByID("d1"); err != nil {
		t.Fatalf("folder did not survive the round trip: %v", err)
	}

	gotShare, err := reopened.Shares.GetByToken("sharetoken000000")
	if err != nil {
		t.Fatalf("get share after reopen: %v", err)
	}
	if !gotShare.IsActive || gotShare.FileID != "f1" {
		t.Fatalf("share did not survive the round trip: %+v", gotShare)
	}

	if value, err := reopened.Settings.Get("theme"); err != nil || value != "dark" {
		t.Fatalf("setting did not survive the round trip: %q (%v)", value, err)
	}

	recent := reopened.Activity.RecentForUser("u1", 10)
	if len(recent) != 3 {
		t.Fatalf("expected 3 activity entries, got %d", len(recent))
	}
	// Recent is newest first; the ring must have kept insertion order.
	if recent[0].ID != "act-2" || recent[2].ID != "act-0" {
		t.Fatalf("activity order changed: %v ... %v", recent[0].ID, recent[2].ID)
	}
}

func TestOpen_RejectsCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	store, err := snapshot.NewFileStore(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := store.Save([]byte("{not json")); err != nil {
		t.Fatalf("save corrupt data: %v", err)
	}

	if _, err := Open(store, 100); err == nil {
		t.Fatal("expected error for corrupt snapshot")
	}
}

func TestRegistry_ActivityTruncatedToCapacityOnRestore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	store, err := snapshot.NewFileStore(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	reg, err := Open(store, 10)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for i := 0; i < 5; i++ {
		reg.Activity.Append(&models.ActivityEntry{
			ID:     fmt.Sprintf("act-%d", i),
			UserID: "u1",
			Action: models.ActionFileUploaded,
		})
	}
	if err := reg.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopening with a smaller capacity keeps only the newest entries.
	store2, err := snapshot.NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen file store: %v", err)
	}
	reopened, err := Open(store2, 2)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	recent := reopened.Activity.Recent(10)
	if len(recent) != 2 {
		t.Fatalf("expected capacity to cap restored entries at 2, got %d", len(recent))
	}
	if recent[0].ID != "act-4" || recent[1].ID != "act-3" {
		t.Fatalf("expected the newest entries to survive, got %v, %v", recent[0].ID, recent[1].ID)
	}
}
