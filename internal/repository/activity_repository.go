package repository

import (
	"sync"

	"github.com/yukifiles/yukifiles/internal/models"
)

// DefaultActivityCapacity bounds the in-memory action history.
const DefaultActivityCapacity = 1000

// ActivityRepository is a bounded append-only log. When the buffer is full
// the oldest entries are evicted FIFO; nothing is archived.
type ActivityRepository struct {
	mu       sync.RWMutex
	entries  []*models.ActivityEntry // oldest first
	capacity int
}

func NewActivityRepository(capacity int) *ActivityRepository {
	if capacity <= 0 {
		capacity = DefaultActivityCapacity
	}
	return &ActivityRepository{capacity: capacity}
}

func (r *ActivityRepository) Append(entry *models.ActivityEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, cloneEntry(entry))
	if excess := len(r.entries) - r.capacity; excess > 0 {
		remaining := make([]*models.ActivityEntry, len(r.entries)-excess)
		copy(remaining, r.entries[excess:])
		r.entries = remaining
	}
}

// RecentForUser returns up to limit entries for userID, most recent first.
func (r *ActivityRepository) RecentForUser(userID string, limit int) []*models.ActivityEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.ActivityEntry
	for i := len(r.entries) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if r.entries[i].UserID == userID {
			out = append(out, cloneEntry(r.entries[i]))
		}
	}
	return out
}

// Recent returns up to limit entries across all users, most recent first.
func (r *ActivityRepository) Recent(limit int) []*models.ActivityEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.ActivityEntry
	for i := len(r.entries) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, cloneEntry(r.entries[i]))
	}
	return out
}

func (r *ActivityRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Snapshot returns the entries oldest first, the order Restore expects.
func (r *ActivityRepository) Snapshot() []*models.ActivityEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.ActivityEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, cloneEntry(entry))
	}
	return out
}

// Restore replaces the buffer. Entries beyond capacity are evicted oldest
// first, same as live appends.
func (r *ActivityRepository) Restore(entries []*models.ActivityEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if excess := len(entries) - r.capacity; excess > 0 {
		entries = entries[excess:]
	}
	r.entries = make([]*models.ActivityEntry, 0, len(entries))
	for _, entry := range entries {
		r.entries = append(r.entries, cloneEntry(entry))
	}
}

func cloneEntry(entry *models.ActivityEntry) *models.ActivityEntry {
	clone := *entry
	if entry.Metadata != nil {
		clone.Metadata = make(map[string]string, len(entry.Metadata))
		for k, v := range entry.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}
