// Package registry owns the in-memory state of the application and its
// snapshot lifecycle. A single Registry is constructed at startup, passed by
// reference to the services, and closed on shutdown; there is no implicit
// process-wide instance.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/yukifiles/yukifiles/internal/models"
	"github.com/yukifiles/yukifiles/internal/repository"
	"github.com/yukifiles/yukifiles/pkg/logger"
	"github.com/yukifiles/yukifiles/pkg/snapshot"
)

type Registry struct {
	Users    *repository.UserRepository
	Files    *repository.FileRepository
	Shares   *repository.ShareRepository
	Activity *repository.ActivityRepository
	Settings *repository.SettingsRepository

	store snapshot.BlobStore

	// persistMu serializes snapshot writes so a later state never loses to
	// an earlier in-flight write.
	persistMu sync.Mutex
}

// Open builds the repositories and rehydrates them from the blob store. A
// missing snapshot is a cold start, not an error.
func Open(store snapshot.BlobStore, activityCapacity int) (*Registry, error) {
	r := &Registry{
		Users:    repository.NewUserRepository(),
		Files:    repository.NewFileRepository(),
		Shares:   repository.NewShareRepository(),
		Activity: repository.NewActivityRepository(activityCapacity),
		Settings: repository.NewSettingsRepository(),
		store:    store,
	}

	raw, err := store.Load()
	if err != nil {
		if errors.Is(err, snapshot.ErrNoSnapshot) {
			logger.Info().Msg("No snapshot found, starting with empty registry")
			return r, nil
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	data, err := snapshot.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("restore registry: %w", err)
	}

	r.Users.Restore(snapshot.MapFromPairs(data.Users))
	r.Files.Restore(snapshot.MapFromPairs(data.Files), snapshot.MapFromPairs(data.Folders))
	r.Shares.Restore(snapshot.MapFromPairs(data.ShareLinks))
	r.Settings.Restore(snapshot.MapFromPairs(data.Settings))

	// Activity pairs keep their on-disk order, which is the ring's
	// oldest-first insertion order.
	entries := make([]*models.ActivityEntry, 0, len(data.UserActions))
	for _, pair := range data.UserActions {
		if pair.Record != nil {
			entries = append(entries, pair.Record)
		}
	}
	r.Activity.Restore(entries)

	logger.Info().
		Int("users", len(data.Users)).
		Int("files", len(data.Files)).
		Int("folders", len(data.Folders)).
		Int("share_links", len(data.ShareLinks)).
		Int("activity_entries", len(data.UserActions)).
		Msg("Registry restored from snapshot")

	return r, nil
}

// Persist writes the whole state to the blob store. Persistence is
// best-effort: failure is logged and the in-memory state stays
// authoritative for the life of the process.
func (r *Registry) Persist() {
	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	data := r.snapshotData()
	raw, err := snapshot.Encode(data)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to encode registry snapshot")
		return
	}
	if err := r.store.Save(raw); err != nil {
		logger.Warn().Err(err).Msg("Failed to persist registry snapshot")
	}
}

// Close flushes a final snapshot and releases the blob store.
func (r *Registry) Close() error {
	r.Persist()
	return r.store.Close()
}

func (r *Registry) snapshotData() *snapshot.Data {
	files, folders := r.Files.Snapshot()

	data := &snapshot.Data{
		Users:      snapshot.PairsFromMap(r.Users.Snapshot()),
		Files:      snapshot.PairsFromMap(files),
		Folders:    snapshot.PairsFromMap(folders),
		ShareLinks: snapshot.PairsFromMap(r.Shares.Snapshot()),
		Settings:   snapshot.PairsFromMap(r.Settings.Snapshot()),
	}
	for _, entry := range r.Activity.Snapshot() {
		data.UserActions = append(data.UserActions, snapshot.Pair[models.ActivityEntry]{
			ID:     entry.ID,
			Record: entry,
		})
	}
	return data
}
