package repository

import (
	"sort"
	"sync"
	"time"

	"github.com/yukifiles/yukifiles/internal/models"
)

// ShareRepository keeps issued share links in memory, keyed by token.
// Counter updates happen under the write lock so concurrent accesses can
// never push download_count past max_downloads.
type ShareRepository struct {
	mu     sync.RWMutex
	shares map[string]*models.ShareLink
}

func NewShareRepository() *ShareRepository {
	return &ShareRepository{shares: make(map[string]*models.ShareLink)}
}

// Create stores a new link. Token collisions are rejected regardless of the
// existing link's active state.
func (r *ShareRepository) Create(share *models.ShareLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.shares[share.ID]; exists {
		return ErrDuplicateToken
	}
	r.shares[share.ID] = cloneShare(share)
	return nil
}

func (r *ShareRepository) GetByToken(token string) (*models.ShareLink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	share, ok := r.shares[token]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneShare(share), nil
}

// RecordView bumps the view counter.
func (r *ShareRepository) RecordView(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	share, ok := r.shares[token]
	if !ok {
		return ErrNotFound
	}
	share.ViewCount++
	return nil
}

// TryRecordDownload atomically re-checks the link's availability and claims
// one download. Returns false when the link is inactive, expired, or at its
// download limit.
func (r *ShareRepository) TryRecordDownload(token string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	share, ok := r.shares[token]
	if !ok {
		return false, ErrNotFound
	}
	if !share.IsActive {
		return false, nil
	}
	if share.ExpiresAt != nil && share.ExpiresAt.Before(now) {
		return false, nil
	}
	if share.MaxDownloads != nil && share.DownloadCount >= *share.MaxDownloads {
		return false, nil
	}
	share.DownloadCount++
	return true, nil
}

// Deactivate revokes a link. Idempotent: revoking a revoked link is a no-op.
func (r *ShareRepository) Deactivate(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	share, ok := r.shares[token]
	if !ok {
		return ErrNotFound
	}
	share.IsActive = false
	return nil
}

// DeactivateExpired flips is_active off for every link past its expiry and
// returns how many were touched. Used by the maintenance job.
func (r *ShareRepository) DeactivateExpired(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, share := range r.shares {
		if share.IsActive && share.ExpiresAt != nil && share.ExpiresAt.Before(now) {
			share.IsActive = false
			n++
		}
	}
	return n
}

func (r *ShareRepository) ListByFile(fileID string) []*models.ShareLink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.ShareLink
	for _, share := range r.shares {
		if share.FileID == fileID {
			out = append(out, cloneShare(share))
		}
	}
	sortSharesNewestFirst(out)
	return out
}

func (r *ShareRepository) ListByCreator(userID string) []*models.ShareLink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.ShareLink
	for _, share := range r.shares {
		if share.CreatedBy == userID {
			out = append(out, cloneShare(share))
		}
	}
	sortSharesNewestFirst(out)
	return out
}

// Counts reports total and currently active link counts.
func (r *ShareRepository) Counts() (total, active int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, share := range r.shares {
		total++
		if share.IsActive {
			active++
		}
	}
	return total, active
}

func (r *ShareRepository) Snapshot() map[string]*models.ShareLink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*models.ShareLink, len(r.shares))
	for id, share := range r.shares {
		out[id] = cloneShare(share)
	}
	return out
}

func (r *ShareRepository) Restore(shares map[string]*models.ShareLink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.shares = make(map[string]*models.ShareLink, len(shares))
	for id, share := range shares {
		r.shares[id] = cloneShare(share)
	}
}

func cloneShare(share *models.ShareLink) *models.ShareLink {
	clone := *share
	if share.PasswordHash != nil {
		hash := *share.PasswordHash
		clone.PasswordHash = &hash
	}
	if share.ExpiresAt != nil {
		expires := *share.ExpiresAt
		clone.ExpiresAt = &expires
	}
	if share.MaxDownloads != nil {
		max := *share.MaxDownloads
		clone.MaxDownloads = &max
	}
	return &clone
}

func sortSharesNewestFirst(shares []*models.ShareLink) {
	sort.Slice(shares, func(i, j int) bool {
		return shares[i].CreatedAt.After(shares[j].CreatedAt)
	})
}
