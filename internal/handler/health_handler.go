package handler

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/yukifiles/yukifiles/pkg/snapshot"
)

var errStoreNotInitialized = errors.New("snapshot store is not initialized")

// HealthHandler handles health check endpoints
type HealthHandler struct {
	store       snapshot.BlobStore
	storagePath string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store snapshot.BlobStore, storagePath string) *HealthHandler {
	return &HealthHandler{
		store:       store,
		storagePath: storagePath,
	}
}

// Liveness returns basic liveness status (is the server running?)
func (h *HealthHandler) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}

// Readiness returns readiness status (can the server handle requests?)
func (h *HealthHandler) Readiness(c *fiber.Ctx) error {
	checks := make(map[string]interface{})
	allHealthy := true

	if err := h.checkSnapshotStore(); err != nil {
		checks["snapshot_store"] = fiber.Map{
			"status": "unhealthy",
			"error":  err.Error(),
		}
		allHealthy = false
	} else {
		checks["snapshot_store"] = fiber.Map{
			"status": "healthy",
		}
	}

	if err := h.checkStorage(); err != nil {
		checks["storage"] = fiber.Map{
			"status": "unhealthy",
			"error":  err.Error(),
		}
		allHealthy = false
	} else {
		checks["storage"] = fiber.Map{
			"status": "healthy",
		}
	}

	status := "ok"
	statusCode := fiber.StatusOK
	if !allHealthy {
		status = "degraded"
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status": status,
		"checks": checks,
	})
}

// checkSnapshotStore verifies the snapshot backend is reachable. A missing
// snapshot is healthy; it just means nothing has been persisted yet.
func (h *HealthHandler) checkSnapshotStore() error {
	if h.store == nil {
		return errStoreNotInitialized
	}
	if _, err := h.store.Load(); err != nil && !errors.Is(err, snapshot.ErrNoSnapshot) {
		return err
	}
	return nil
}

// checkStorage verifies storage directory is accessible and writable
func (h *HealthHandler) checkStorage() error {
	if err := os.MkdirAll(h.storagePath, 0750); err != nil {
		return err
	}

	testFile := filepath.Join(h.storagePath, ".healthcheck")
	f, err := os.Create(testFile)
	if err != nil {
		return err
	}
	f.Close()

	os.Remove(testFile)
	return nil
}
