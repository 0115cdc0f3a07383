package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/yukifiles/yukifiles/internal/models"
	"github.com/yukifiles/yukifiles/internal/repository"
)

// ActivityService appends to and reads from the bounded action history.
// Recording never fails; the log is advisory and write-only from the other
// services' point of view.
type ActivityService struct {
	repo *repository.ActivityRepository
}

func NewActivityService(repo *repository.ActivityRepository) *ActivityService {
	return &ActivityService{repo: repo}
}

func (s *ActivityService) Record(userID, action, description string, metadata map[string]string) {
	s.repo.Append(&models.ActivityEntry{
		ID:          uuid.New().String(),
		UserID:      userID,
		Action:      action,
		Description: description,
		Timestamp:   time.Now(),
		Metadata:    metadata,
	})
}

// RecentForUser returns up to limit entries, most recent first.
func (s *ActivityService) RecentForUser(userID string, limit int) []*models.ActivityEntry {
	return s.repo.RecentForUser(userID, limit)
}

// Recent returns up to limit entries across all users, most recent first.
func (s *ActivityService) Recent(limit int) []*models.ActivityEntry {
	return s.repo.Recent(limit)
}
