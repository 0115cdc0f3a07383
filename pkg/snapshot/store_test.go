package snapshot

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_ColdStart(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "data", "registry.json"))
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	defer store.Close()

	if _, err := store.Load(); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot on a fresh store, got %v", err)
	}
}

func TestFileStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	defer store.Close()

	want := []byte(`{"users":[]}`)
	if err := store.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("expected %s, got %s", want, got)
	}

	// A second save replaces the previous snapshot.
	next := []byte(`{"users":[["u1",{}]]}`)
	if err := store.Save(next); err != nil {
		t.Fatalf("save again: %v", err)
	}
	got, err = store.Load()
	if err != nil {
		t.Fatalf("load again: %v", err)
	}
	if !bytes.Equal(got, next) {
		t.Fatalf("expected %s, got %s", next, got)
	}
}

func TestFileStore_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(filepath.Join(dir, "registry.json"))
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	defer store.Close()

	if err := store.Save([]byte("{}")); err != nil {
		t.Fatalf("save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "registry.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected only the snapshot file, found %v", names)
	}
}

func TestSQLiteStore_ColdStart(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	defer store.Close()

	if _, err := store.Load(); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot on a fresh store, got %v", err)
	}
}

func TestSQLiteStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}

	want := []byte(`{"files":[]}`)
	if err := store.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("upsert over existing row: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Data survives a reopen.
	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen sqlite store: %v", err)
	}
	defer reopened.Close()
	got, err = reopened.Load()
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("expected %s after reopen, got %s", want, got)
	}
}
