package repository

import (
	"sort"
	"sync"
	"time"

	"github.com/yukifiles/yukifiles/internal/models"
)

// SettingsRepository holds the runtime-tunable settings map.
type SettingsRepository struct {
	mu       sync.RWMutex
	settings map[string]*models.AppSetting
}

func NewSettingsRepository() *SettingsRepository {
	return &SettingsRepository{settings: make(map[string]*models.AppSetting)}
}

func (r *SettingsRepository) Get(key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	setting, ok := r.settings[key]
	if !ok {
		return "", ErrNotFound
	}
	return setting.Value, nil
}

func (r *SettingsRepository) Set(key, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.settings[key] = &models.AppSetting{Key: key, Value: value, UpdatedAt: time.Now()}
}

// SetDefault stores a value only when the key is absent, so seeded defaults
// never clobber operator overrides loaded from a snapshot.
func (r *SettingsRepository) SetDefault(key, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.settings[key]; ok {
		return
	}
	r.settings[key] = &models.AppSetting{Key: key, Value: value, UpdatedAt: time.Now()}
}

func (r *SettingsRepository) GetAll() []*models.AppSetting {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.AppSetting, 0, len(r.settings))
	for _, setting := range r.settings {
		clone := *setting
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (r *SettingsRepository) Snapshot() map[string]*models.AppSetting {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*models.AppSetting, len(r.settings))
	for key, setting := range r.settings {
		clone := *setting
		out[key] = &clone
	}
	return out
}

func (r *SettingsRepository) Restore(settings map[string]*models.AppSetting) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.settings = make(map[string]*models.AppSetting, len(settings))
	for key, setting := range settings {
		clone := *setting
		r.settings[key] = &clone
	}
}
