package repository

import (
	"sort"
	"sync"
	"time"

	"github.com/yukifiles/yukifiles/internal/models"
)

// UserRepository keeps account records in memory. All methods are safe for
// concurrent use; quota arithmetic happens under the write lock so a
// reservation is never partially visible.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*models.User)}
}

// Create stores a new user. The email uniqueness check is case-sensitive,
// matching the stored representation.
func (r *UserRepository) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == user.Email {
			return ErrDuplicateEmail
		}
	}

	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *UserRepository) GetByID(id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *user
	return &clone, nil
}

// GetByEmail does an exact, case-sensitive match.
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

// Reserve atomically checks the quota and claims size bytes. Returns false
// without mutating anything when the reservation would exceed the limit.
func (r *UserRepository) Reserve(id string, size int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return false, ErrNotFound
	}
	if user.StorageUsed+size > user.StorageLimit {
		return false, nil
	}
	user.StorageUsed += size
	return true, nil
}

// Release returns reserved bytes to the quota, floored at zero.
func (r *UserRepository) Release(id string, size int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return
	}
	user.StorageUsed -= size
	if user.StorageUsed < 0 {
		user.StorageUsed = 0
	}
}

func (r *UserRepository) TouchLogin(id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	user.LastLoginAt = at
	return nil
}

func (r *UserRepository) GetStorageInfo(id string) (*models.StorageInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &models.StorageInfo{
		Quota: user.StorageLimit,
		Used:  user.StorageUsed,
		Free:  user.StorageLimit - user.StorageUsed,
	}, nil
}

// ListAll returns every user, newest first.
func (r *UserRepository) ListAll() []*models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*models.User, 0, len(r.users))
	for _, user := range r.users {
		clone := *user
		users = append(users, &clone)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users
}

func (r *UserRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// Snapshot returns a copy of all records keyed by ID.
func (r *UserRepository) Snapshot() map[string]*models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*models.User, len(r.users))
	for id, user := range r.users {
		clone := *user
		out[id] = &clone
	}
	return out
}

// Restore replaces the repository contents with a previously snapshotted set.
func (r *UserRepository) Restore(users map[string]*models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users = make(map[string]*models.User, len(users))
	for id, user := range users {
		clone := *user
		r.users[id] = &clone
	}
}
