package service

import (
	"strconv"
	"sync"

	"github.com/yukifiles/yukifiles/internal/models"
	"github.com/yukifiles/yukifiles/internal/repository"
)

// Settings keys tunable at runtime through the admin panel.
const (
	SettingDefaultStorageLimit = "default_storage_limit_bytes"
	SettingMaxUploadSize       = "max_upload_size_bytes"
)

// AdminService serves the settings panel, usage stats, and per-user
// analytics. Settings reads go through a cache refreshed on every write.
type AdminService struct {
	settingsRepo *repository.SettingsRepository
	userRepo     *repository.UserRepository
	fileRepo     *repository.FileRepository
	shareRepo    *repository.ShareRepository
	activity     *ActivityService
	persister    Persister

	mu    sync.RWMutex
	cache map[string]string
}

func NewAdminService(
	settingsRepo *repository.SettingsRepository,
	userRepo *repository.UserRepository,
	fileRepo *repository.FileRepository,
	shareRepo *repository.ShareRepository,
	activity *ActivityService,
	persister Persister,
	defaultStorageLimit int64,
	defaultMaxUploadSize int64,
) *AdminService {
	settingsRepo.SetDefault(SettingDefaultStorageLimit, strconv.FormatInt(defaultStorageLimit, 10))
	settingsRepo.SetDefault(SettingMaxUploadSize, strconv.FormatInt(defaultMaxUploadSize, 10))

	svc := &AdminService{
		settingsRepo: settingsRepo,
		userRepo:     userRepo,
		fileRepo:     fileRepo,
		shareRepo:    shareRepo,
		activity:     activity,
		persister:    persister,
		cache:        make(map[string]string),
	}
	svc.RefreshCache()
	return svc
}

func (s *AdminService) RefreshCache() {
	settings := s.settingsRepo.GetAll()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, setting := range settings {
		s.cache[setting.Key] = setting.Value
	}
}

func (s *AdminService) GetCachedSetting(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache[key]
}

func (s *AdminService) GetCachedSettingInt(key string, fallback int64) int64 {
	val := s.GetCachedSetting(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

// SettingsProvider implementation

func (s *AdminService) GetDefaultStorageLimit() int64 {
	return s.GetCachedSettingInt(SettingDefaultStorageLimit, 100*1024*1024)
}

func (s *AdminService) GetMaxUploadSize() int64 {
	return s.GetCachedSettingInt(SettingMaxUploadSize, 0)
}

// Admin operations

func (s *AdminService) GetAllSettings() []*models.AppSetting {
	return s.settingsRepo.GetAll()
}

func (s *AdminService) UpdateSettings(updates map[string]string) {
	for k, v := range updates {
		s.settingsRepo.Set(k, v)
	}
	s.RefreshCache()
	s.persister.Persist()
}

func (s *AdminService) GetUsageStats() *models.UsageStats {
	files, folders, totalBytes := s.fileRepo.Counts()
	totalShares, activeShares := s.shareRepo.Counts()

	return &models.UsageStats{
		TotalUsers:       s.userRepo.Count(),
		TotalFiles:       files,
		TotalFolders:     folders,
		TotalStorageUsed: totalBytes,
		TotalShares:      totalShares,
		ActiveShares:     activeShares,
	}
}

func (s *AdminService) ListUsers() []*models.AdminUserInfo {
	fileCounts := s.fileRepo.CountFilesByOwner()

	var out []*models.AdminUserInfo
	for _, user := range s.userRepo.ListAll() {
		out = append(out, &models.AdminUserInfo{
			ID:           user.ID,
			Email:        user.Email,
			Name:         user.Name,
			Role:         user.Role,
			StorageUsed:  user.StorageUsed,
			StorageLimit: user.StorageLimit,
			FileCount:    fileCounts[user.ID],
			CreatedAt:    user.CreatedAt,
			LastLoginAt:  user.LastLoginAt,
		})
	}
	return out
}

// UserAnalytics builds the per-user dashboard summary: totals, a file type
// distribution keyed by MIME prefix, and the most recent activity.
func (s *AdminService) UserAnalytics(userID string) (*models.UserAnalytics, error) {
	if _, err := s.userRepo.GetByID(userID); err != nil {
		return nil, ErrUserNotFound
	}

	analytics := &models.UserAnalytics{
		FileTypes:      make(map[string]int),
		RecentActivity: s.activity.RecentForUser(userID, 10),
	}

	for _, node := range s.fileRepo.ListByOwner(userID) {
		if node.Kind == models.KindFolder {
			analytics.TotalFolders++
			continue
		}
		analytics.TotalFiles++
		analytics.StorageUsed += node.Size
		analytics.FileTypes[mimePrefix(node.MimeType)]++
	}

	analytics.TotalShares = len(s.shareRepo.ListByCreator(userID))

	return analytics, nil
}

func mimePrefix(mimeType string) string {
	for i := 0; i < len(mimeType); i++ {
		if mimeType[i] == '/' {
			return mimeType[:i]
		}
	}
	if mimeType == "" {
		return "unknown"
	}
	return mimeType
}
