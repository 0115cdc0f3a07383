package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/yukifiles/yukifiles/internal/service"
	"github.com/yukifiles/yukifiles/pkg/logger"
	"github.com/yukifiles/yukifiles/pkg/response"
)

type AdminHandler struct {
	adminSvc *service.AdminService
	shareSvc *service.ShareService
}

func NewAdminHandler(adminSvc *service.AdminService, shareSvc *service.ShareService) *AdminHandler {
	return &AdminHandler{adminSvc: adminSvc, shareSvc: shareSvc}
}

// GetSettings returns all app settings.
func (h *AdminHandler) GetSettings(c *fiber.Ctx) error {
	return response.Success(c, h.adminSvc.GetAllSettings())
}

// UpdateSettings modifies app settings.
func (h *AdminHandler) UpdateSettings(c *fiber.Ctx) error {
	var req struct {
		Settings map[string]string `json:"settings"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if len(req.Settings) == 0 {
		return response.BadRequest(c, "no settings provided")
	}

	h.adminSvc.UpdateSettings(req.Settings)

	logger.Audit("settings_updated", localUserID(c), nil)

	return response.Success(c, map[string]string{"message": "settings updated"})
}

// GetStats returns usage statistics.
func (h *AdminHandler) GetStats(c *fiber.Ctx) error {
	return response.Success(c, h.adminSvc.GetUsageStats())
}

// ListUsers returns all users with usage info.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	return response.Success(c, h.adminSvc.ListUsers())
}

// GetUserAnalytics returns the per-user dashboard summary.
func (h *AdminHandler) GetUserAnalytics(c *fiber.Ctx) error {
	analytics, err := h.adminSvc.UserAnalytics(c.Params("id"))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return response.NotFound(c, "user not found")
		}
		return response.InternalError(c, "failed to load analytics")
	}
	return response.Success(c, analytics)
}
