package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/yukifiles/yukifiles/internal/service"
	"github.com/yukifiles/yukifiles/pkg/response"
)

const defaultActivityLimit = 50
const maxActivityLimit = 500

type ActivityHandler struct {
	activitySvc *service.ActivityService
}

func NewActivityHandler(activitySvc *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activitySvc: activitySvc}
}

func activityLimit(c *fiber.Ctx) int {
	limit := defaultActivityLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}
	return limit
}

// Recent returns the caller's most recent activity, newest first.
func (h *ActivityHandler) Recent(c *fiber.Ctx) error {
	userID := localUserID(c)
	if userID == "" {
		return response.Unauthorized(c, "authentication required")
	}

	return response.Success(c, h.activitySvc.RecentForUser(userID, activityLimit(c)))
}

// RecentAll returns the most recent activity across all users. Admin only.
func (h *ActivityHandler) RecentAll(c *fiber.Ctx) error {
	return response.Success(c, h.activitySvc.Recent(activityLimit(c)))
}
