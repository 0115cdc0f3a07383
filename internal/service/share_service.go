package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/yukifiles/yukifiles/internal/models"
	"github.com/yukifiles/yukifiles/internal/repository"
	"github.com/yukifiles/yukifiles/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// shareTokenBytes sizes the CSPRNG share token. 16 random bytes keeps the
// collision probability negligible while staying short enough for URLs.
const shareTokenBytes = 16

// Expiry presets accepted by CreateShareRequest.ExpiresIn.
var expiryPresets = map[string]time.Duration{
	"1d":  24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

// ShareService issues and validates bounded-access links to individual
// files. Folders cannot be shared.
type ShareService struct {
	shareRepo *repository.ShareRepository
	fileRepo  *repository.FileRepository
	fileSvc   *FileService
	activity  *ActivityService
	persister Persister
}

func NewShareService(
	shareRepo *repository.ShareRepository,
	fileRepo *repository.FileRepository,
	fileSvc *FileService,
	activity *ActivityService,
	persister Persister,
) *ShareService {
	return &ShareService{
		shareRepo: shareRepo,
		fileRepo:  fileRepo,
		fileSvc:   fileSvc,
		activity:  activity,
		persister: persister,
	}
}

type CreateShareRequest struct {
	FileID       string
	Password     *string
	ExpiresAt    *time.Time
	ExpiresIn    string // preset: 1d, 7d, 30d; ignored when ExpiresAt is set
	MaxDownloads *int64
	Settings     models.ShareSettings
}

// Create issues a new link for one of the requester's files, marks the file
// shared, and mirrors the settings onto it for display.
func (s *ShareService) Create(requesterID string, req *CreateShareRequest) (*models.ShareLink, error) {
	file, err := s.fileRepo.GetByID(req.FileID)
	if err != nil || file.Kind != models.KindFile {
		return nil, ErrFileNotFound
	}
	if file.OwnerID != requesterID {
		return nil, ErrNotOwner
	}

	expiresAt := req.ExpiresAt
	if expiresAt == nil && req.ExpiresIn != "" {
		d, ok := expiryPresets[req.ExpiresIn]
		if !ok {
			d = expiryPresets["7d"]
		}
		t := time.Now().Add(d)
		expiresAt = &t
	}

	share := &models.ShareLink{
		FileID:       req.FileID,
		CreatedBy:    requesterID,
		ExpiresAt:    expiresAt,
		MaxDownloads: req.MaxDownloads,
		IsActive:     true,
		Settings:     req.Settings,
		CreatedAt:    time.Now(),
	}

	if req.Password != nil && *req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash share password: %w", err)
		}
		hashedStr := string(hashed)
		share.PasswordHash = &hashedStr
	}

	// Tokens must never collide with any existing link, active or not.
	for {
		token, err := generateShareToken()
		if err != nil {
			return nil, err
		}
		share.ID = token
		if err := s.shareRepo.Create(share); err != nil {
			if errors.Is(err, repository.ErrDuplicateToken) {
				continue
			}
			return nil, err
		}
		break
	}

	file.IsShared = true
	settings := share.Settings
	file.ShareSettings = &settings
	file.UpdatedAt = time.Now()
	if err := s.fileRepo.Update(file); err != nil {
		logger.Warn().Err(err).Str("file_id", file.ID).Msg("Failed to mirror share settings onto file")
	}

	s.activity.Record(requesterID, models.ActionShareCreated, fmt.Sprintf("Shared %s", file.Name), map[string]string{
		"file_id": file.ID,
	})
	s.persister.Persist()

	return share, nil
}

// Access runs the share gate and, on success, counts a view and returns the
// file. The checks run in a fixed order: unknown or revoked tokens are
// NotFound before anything else, the password gate comes before expiry and
// limit checks so unauthenticated probes learn nothing about link state.
func (s *ShareService) Access(token string, password *string) (*models.FileNode, error) {
	share, err := s.gate(token, password)
	if err != nil {
		return nil, err
	}

	file, err := s.fileRepo.GetByID(share.FileID)
	if err != nil {
		return nil, ErrFileNotFound
	}

	if err := s.shareRepo.RecordView(token); err != nil {
		return nil, err
	}
	if err := s.fileSvc.RecordView(file.ID); err != nil {
		return nil, err
	}

	s.activity.Record(models.AnonymousUserID, models.ActionShareAccessed, fmt.Sprintf("Accessed shared file %s", file.Name), map[string]string{
		"token": token,
	})
	s.persister.Persist()

	file.ViewCount++
	return file, nil
}

// Download runs the share gate, claims one download atomically against the
// limit, and opens the payload.
func (s *ShareService) Download(token string, password *string) (*models.FileNode, io.ReadCloser, error) {
	share, err := s.gate(token, password)
	if err != nil {
		return nil, nil, err
	}
	if !share.Settings.AllowDownload {
		return nil, nil, ErrDownloadDisabled
	}

	// Re-check and increment under the repository lock so concurrent
	// downloads cannot overshoot max_downloads.
	allowed, err := s.shareRepo.TryRecordDownload(token, time.Now())
	if err != nil {
		return nil, nil, ErrShareNotFound
	}
	if !allowed {
		return nil, nil, ErrDownloadLimitReached
	}

	file, err := s.fileRepo.GetByID(share.FileID)
	if err != nil {
		return nil, nil, ErrFileNotFound
	}

	reader, err := s.fileSvc.OpenBlob(file)
	if err != nil {
		return nil, nil, err
	}

	if err := s.fileSvc.RecordDownload(file.ID); err != nil {
		_ = reader.Close()
		return nil, nil, err
	}

	s.activity.Record(models.AnonymousUserID, models.ActionFileDownload, fmt.Sprintf("Downloaded shared file %s", file.Name), map[string]string{
		"token": token,
	})
	s.persister.Persist()

	file.DownloadCount++
	return file, reader, nil
}

// gate evaluates the four-step access check and returns the link on
// success. Revoked and unknown tokens are indistinguishable.
func (s *ShareService) gate(token string, password *string) (*models.ShareLink, error) {
	share, err := s.shareRepo.GetByToken(token)
	if err != nil || !share.IsActive {
		return nil, ErrShareNotFound
	}

	if share.PasswordHash != nil {
		if password == nil || *password == "" {
			return nil, ErrPasswordRequired
		}
		if err := bcrypt.CompareHashAndPassword([]byte(*share.PasswordHash), []byte(*password)); err != nil {
			return nil, ErrWrongPassword
		}
	}

	if share.ExpiresAt != nil && share.ExpiresAt.Before(time.Now()) {
		return nil, ErrShareExpired
	}

	if share.MaxDownloads != nil && share.DownloadCount >= *share.MaxDownloads {
		return nil, ErrDownloadLimitReached
	}

	return share, nil
}

// Revoke deactivates a link. Only its creator may revoke it; revoking twice
// is a no-op. Limits exceeded at access time never flip is_active, so a
// future grace extension could re-enable a limited link; revocation is the
// only path that does.
func (s *ShareService) Revoke(requesterID, token string) error {
	share, err := s.shareRepo.GetByToken(token)
	if err != nil {
		return ErrShareNotFound
	}
	if share.CreatedBy != requesterID {
		return ErrNotOwner
	}

	if err := s.shareRepo.Deactivate(token); err != nil {
		return err
	}

	logger.Audit("share_revoked", requesterID, map[string]string{"token": token})
	s.activity.Record(requesterID, models.ActionShareRevoked, "Revoked share link", map[string]string{
		"token": token,
	})
	s.persister.Persist()

	return nil
}

// GetByToken returns link metadata without running the gate. Intended for
// the owner's management views.
func (s *ShareService) GetByToken(token string) (*models.ShareLink, error) {
	share, err := s.shareRepo.GetByToken(token)
	if err != nil {
		return nil, ErrShareNotFound
	}
	return share, nil
}

// ListByFile returns every link for one of the requester's files.
func (s *ShareService) ListByFile(requesterID, fileID string) ([]*models.ShareLink, error) {
	file, err := s.fileRepo.GetByID(fileID)
	if err != nil || file.OwnerID != requesterID {
		return nil, ErrFileNotFound
	}
	return s.shareRepo.ListByFile(fileID), nil
}

// DeactivateExpired sweeps links past their expiry. Called by the
// maintenance job.
func (s *ShareService) DeactivateExpired(now time.Time) int {
	n := s.shareRepo.DeactivateExpired(now)
	if n > 0 {
		s.persister.Persist()
	}
	return n
}

func generateShareToken() (string, error) {
	b := make([]byte, shareTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate share token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
