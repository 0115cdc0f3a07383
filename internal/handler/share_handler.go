package handler

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/yukifiles/yukifiles/internal/models"
	"github.com/yukifiles/yukifiles/internal/service"
	"github.com/yukifiles/yukifiles/pkg/logger"
	"github.com/yukifiles/yukifiles/pkg/response"
	"github.com/yukifiles/yukifiles/pkg/sanitize"
)

// sharePasswordAttempts tracks failed password attempts per share+IP key.
type sharePasswordAttempts struct {
	mu        sync.Mutex
	attempts  map[string]*attemptInfo
	lastPrune time.Time
}

type attemptInfo struct {
	count    int
	lockedAt time.Time
}

var shareAttempts = &sharePasswordAttempts{
	attempts: make(map[string]*attemptInfo),
}

const maxSharePasswordAttempts = 5
const sharePasswordLockDuration = 15 * time.Minute
const sharePasswordAttemptsPruneInterval = 1 * time.Minute
const maxSharePasswordAttemptEntries = 10000

func (s *sharePasswordAttempts) check(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if now.Sub(s.lastPrune) >= sharePasswordAttemptsPruneInterval {
		s.prune(now)
		s.lastPrune = now
	}
	info, exists := s.attempts[key]
	if !exists {
		return true
	}
	if info.count >= maxSharePasswordAttempts {
		if now.Sub(info.lockedAt) < sharePasswordLockDuration {
			return false
		}
		// Reset after lock duration
		delete(s.attempts, key)
		return true
	}
	return true
}

func (s *sharePasswordAttempts) recordFailure(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if len(s.attempts) >= maxSharePasswordAttemptEntries {
		s.prune(now)
	}
	info, exists := s.attempts[key]
	if !exists {
		s.attempts[key] = &attemptInfo{count: 1, lockedAt: now}
		return
	}
	info.count++
	info.lockedAt = now
}

func (s *sharePasswordAttempts) reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, key)
}

func (s *sharePasswordAttempts) prune(now time.Time) {
	cutoff := now.Add(-sharePasswordLockDuration)
	for key, info := range s.attempts {
		if info.lockedAt.Before(cutoff) {
			delete(s.attempts, key)
		}
	}
}

// mimeToDisplayName returns a generic display name based on MIME type,
// avoiding exposure of the original filename in public share info.
func mimeToDisplayName(mimeType string) string {
	category := strings.SplitN(mimeType, "/", 2)[0]
	switch category {
	case "image":
		return "Image file"
	case "video":
		return "Video file"
	case "audio":
		return "Audio file"
	case "text":
		return "Text file"
	default:
		return "Shared file"
	}
}

type ShareHandler struct {
	shareSvc *service.ShareService
	fileSvc  *service.FileService
}

func NewShareHandler(shareSvc *service.ShareService, fileSvc *service.FileService) *ShareHandler {
	return &ShareHandler{shareSvc: shareSvc, fileSvc: fileSvc}
}

type CreateShareRequest struct {
	FileID       string               `json:"file_id"`
	Password     *string              `json:"password"`
	MaxDownloads *int64               `json:"max_downloads"`
	ExpiresAt    *string              `json:"expires_at"`
	ExpiresIn    string               `json:"expires_in"` // preset: 1d, 7d, 30d
	Settings     models.ShareSettings `json:"settings"`
}

func (h *ShareHandler) Create(c *fiber.Ctx) error {
	userID := localUserID(c)
	if userID == "" {
		return response.Unauthorized(c, "authentication required")
	}

	var req CreateShareRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	if req.FileID == "" {
		return response.BadRequest(c, "file_id is required")
	}

	var expiresAt *time.Time
	if req.ExpiresAt != nil && *req.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			return response.BadRequest(c, "invalid expires_at format")
		}
		if !t.After(time.Now()) {
			return response.BadRequest(c, "expires_at must be in the future")
		}
		expiresAt = &t
	}

	share, err := h.shareSvc.Create(userID, &service.CreateShareRequest{
		FileID:       req.FileID,
		Password:     req.Password,
		ExpiresAt:    expiresAt,
		ExpiresIn:    req.ExpiresIn,
		MaxDownloads: req.MaxDownloads,
		Settings:     req.Settings,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFileNotFound):
			return response.NotFound(c, "file not found")
		case errors.Is(err, service.ErrNotOwner):
			return response.Forbidden(c, "unauthorized")
		default:
			return response.InternalError(c, "failed to create share")
		}
	}

	RecordShareCreated()

	return response.Created(c, share)
}

type AccessShareRequest struct {
	Password *string `json:"password"`
}

// GetShare returns public metadata for a share link without counting an
// access.
func (h *ShareHandler) GetShare(c *fiber.Ctx) error {
	token := c.Params("token")

	share, err := h.shareSvc.GetByToken(token)
	if err != nil || !share.IsActive {
		return response.NotFound(c, "share not found")
	}

	file, err := h.fileSvc.Get(share.CreatedBy, share.FileID)
	if err != nil {
		return response.NotFound(c, "file not found")
	}

	// Don't expose the original filename in the public share info response.
	displayName := mimeToDisplayName(file.MimeType)

	return response.Success(c, map[string]interface{}{
		"token":           share.Token(),
		"file_name":       displayName,
		"file_size_bytes": file.Size,
		"mime_type":       file.MimeType,
		"has_password":    share.PasswordHash != nil,
		"expires_at":      share.ExpiresAt,
		"download_count":  share.DownloadCount,
		"view_count":      share.ViewCount,
		"max_downloads":   share.MaxDownloads,
		"allow_download":  share.Settings.AllowDownload,
		"allow_preview":   share.Settings.AllowPreview,
	})
}

// shareError maps share gate failures to HTTP responses.
func shareError(c *fiber.Ctx, err error, attemptKey string) error {
	switch {
	case errors.Is(err, service.ErrPasswordRequired), errors.Is(err, service.ErrWrongPassword):
		shareAttempts.recordFailure(attemptKey)
		RecordShareAccess("wrong_password")
		return response.Unauthorized(c, err.Error())
	case errors.Is(err, service.ErrShareExpired):
		RecordShareAccess("expired")
		return response.Gone(c, err.Error())
	case errors.Is(err, service.ErrDownloadLimitReached):
		RecordShareAccess("limit_exceeded")
		return response.Gone(c, err.Error())
	case errors.Is(err, service.ErrDownloadDisabled):
		RecordShareAccess("download_disabled")
		return response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrShareNotFound), errors.Is(err, service.ErrFileNotFound):
		RecordShareAccess("not_found")
		return response.NotFound(c, "share not found")
	default:
		return response.InternalError(c, "failed to process share access")
	}
}

// Access validates a share link and records a view. The body is optional
// for links without a password.
func (h *ShareHandler) Access(c *fiber.Ctx) error {
	token := c.Params("token")
	attemptKey := token + ":" + c.IP()

	if !shareAttempts.check(attemptKey) {
		return response.Error(c, fiber.StatusTooManyRequests, "too many failed attempts, please try again later")
	}

	var req AccessShareRequest
	if err := c.BodyParser(&req); err != nil {
		req.Password = nil
	}

	file, err := h.shareSvc.Access(token, req.Password)
	if err != nil {
		return shareError(c, err, attemptKey)
	}

	shareAttempts.reset(attemptKey)
	RecordShareAccess("viewed")

	return response.Success(c, map[string]interface{}{
		"name":            file.Name,
		"mime_type":       file.MimeType,
		"file_size_bytes": file.Size,
		"view_count":      file.ViewCount,
		"download_count":  file.DownloadCount,
	})
}

// Download streams the shared payload after the full share gate, counting
// one download.
func (h *ShareHandler) Download(c *fiber.Ctx) error {
	token := c.Params("token")
	attemptKey := token + ":" + c.IP()

	if !shareAttempts.check(attemptKey) {
		return response.Error(c, fiber.StatusTooManyRequests, "too many failed attempts, please try again later")
	}

	var req AccessShareRequest
	if err := c.BodyParser(&req); err != nil {
		req.Password = nil
	}

	file, reader, err := h.shareSvc.Download(token, req.Password)
	if err != nil {
		return shareError(c, err, attemptKey)
	}
	defer reader.Close()

	shareAttempts.reset(attemptKey)
	RecordShareAccess("downloaded")

	safeName := sanitize.ForHeader(file.Name)
	c.Set("Content-Disposition", "attachment; filename=\""+safeName+"\"")
	c.Set("Content-Type", file.MimeType)
	c.Set("Content-Length", strconv.FormatInt(file.Size, 10))

	return c.SendStream(reader, int(file.Size))
}

func (h *ShareHandler) ListByFile(c *fiber.Ctx) error {
	userID := localUserID(c)
	if userID == "" {
		return response.Unauthorized(c, "authentication required")
	}

	shares, err := h.shareSvc.ListByFile(userID, c.Params("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFileNotFound):
			return response.NotFound(c, "file not found")
		case errors.Is(err, service.ErrNotOwner):
			return response.Forbidden(c, "unauthorized")
		default:
			return response.InternalError(c, "failed to get shares")
		}
	}

	return response.Success(c, shares)
}

func (h *ShareHandler) Revoke(c *fiber.Ctx) error {
	userID := localUserID(c)
	if userID == "" {
		return response.Unauthorized(c, "authentication required")
	}

	token := c.Params("token")

	if err := h.shareSvc.Revoke(userID, token); err != nil {
		switch {
		case errors.Is(err, service.ErrNotOwner):
			return response.Forbidden(c, "unauthorized")
		case errors.Is(err, service.ErrShareNotFound):
			return response.NotFound(c, "share not found")
		default:
			return response.InternalError(c, "failed to revoke share")
		}
	}

	logger.Audit("share_revoked", userID, map[string]string{
		"token": token,
	})

	return response.Success(c, map[string]string{"message": "share revoked"})
}
