package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/yukifiles/yukifiles/internal/service"
	"github.com/yukifiles/yukifiles/pkg/logger"
	"github.com/yukifiles/yukifiles/pkg/response"
	"github.com/yukifiles/yukifiles/pkg/sanitize"
)

type FileHandler struct {
	fileSvc *service.FileService
}

func NewFileHandler(fileSvc *service.FileService) *FileHandler {
	return &FileHandler{fileSvc: fileSvc}
}

// parentIDFromValue turns an optional parent parameter into the nullable
// form the tree uses; empty means root.
func parentIDFromValue(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func (h *FileHandler) Upload(c *fiber.Ctx) error {
	userID := localUserID(c)
	if userID == "" {
		return response.Unauthorized(c, "authentication required")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "file is required")
	}

	name := c.FormValue("name", fileHeader.Filename)
	mimeType := c.FormValue("mime_type")
	description := c.FormValue("description")
	parentID := parentIDFromValue(c.FormValue("parent_id"))

	file, err := fileHeader.Open()
	if err != nil {
		return response.InternalError(c, "failed to read file")
	}
	defer file.Close()

	req := &service.UploadRequest{
		OwnerID:     userID,
		Name:        name,
		MimeType:    mimeType,
		Size:        fileHeader.Size,
		Content:     file,
		ParentID:    parentID,
		Description: description,
	}

	node, err := h.fileSvc.Upload(req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuotaExceeded):
			return response.Error(c, fiber.StatusPaymentRequired, "storage quota exceeded")
		case errors.Is(err, service.ErrUploadTooLarge):
			return response.Error(c, fiber.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, service.ErrFolderNotFound), errors.Is(err, service.ErrNotAFolder):
			return response.BadRequest(c, "invalid parent folder")
		case errors.Is(err, service.ErrNotOwner):
			return response.Forbidden(c, "unauthorized")
		default:
			logger.Error().Err(err).Str("user_id", userID).Msg("Upload failed")
			return response.InternalError(c, "upload failed")
		}
	}

	RecordFileUpload(float64(node.Size))

	return response.Created(c, node)
}

func (h *FileHandler) CreateFolder(c *fiber.Ctx) error {
	userID := localUserID(c)
	if userID == "" {
		return response.Unauthorized(c, "authentication required")
	}

	var req struct {
		Name     string  `json:"name"`
		ParentID *string `json:"parent_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.Name) == "" {
		return response.BadRequest(c, "name is required")
	}

	folder, err := h.fileSvc.CreateFolder(userID, req.Name, req.ParentID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFolderNotFound), errors.Is(err, service.ErrNotAFolder):
			return response.BadRequest(c, "invalid parent folder")
		case errors.Is(err, service.ErrNotOwner):
			return response.Forbidden(c, "unauthorized")
		default:
			return response.InternalError(c, "failed to create folder")
		}
	}

	return response.Created(c, folder)
}

// List returns the direct children of ?parent=, or the root listing when
// the parameter is absent.
func (h *FileHandler) List(c *fiber.Ctx) error {
	userID := localUserID(c)
	if userID == "" {
		return response.Unauthorized(c, "authentication required")
	}

	parentID := parentIDFromValue(c.Query("parent"))
	return response.Success(c, h.fileSvc.ListByParent(userID, parentID))
}

func (h *FileHandler) Search(c *fiber.Ctx) error {
	userID := localUserID(c)
	if userID == "" {
		return response.Unauthorized(c, "authentication required")
	}

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return response.BadRequest(c, "q is required")
	}

	return response.Success(c, h.fileSvc.Search(userID, query))
}

func (h *FileHandler) Get(c *fiber.Ctx) error {
	userID := localUserID(c)
	if userID == "" {
		return response.Unauthorized(c, "authentication required")
	}

	node, err := h.fileSvc.Get(userID, c.Params("id"))
	if err != nil {
		return response.NotFound(c, "file not found")
	}

	return response.Success(c, node)
}

func (h *FileHandler) Download(c *fiber.Ctx) error {
	userID := localUserID(c)
	if userID == "" {
		return response.Unauthorized(c, "authentication required")
	}

	node, reader, err := h.fileSvc.Download(userID, c.Params("id"))
	if err != nil {
		return response.NotFound(c, "file not found")
	}
	defer reader.Close()

	safeName := sanitize.ForHeader(node.Name)
	c.Set("Content-Disposition", "attachment; filename=\""+safeName+"\"")
	c.Set("Content-Type", node.MimeType)
	c.Set("Content-Length", strconv.FormatInt(node.Size, 10))

	return c.SendStream(reader, int(node.Size))
}

func (h *FileHandler) Delete(c *fiber.Ctx) error {
	userID := localUserID(c)
	if userID == "" {
		return response.Unauthorized(c, "authentication required")
	}

	fileID := c.Params("id")
	if fileID == "" {
		return response.BadRequest(c, "file id is required")
	}

	deleted := h.fileSvc.Delete(userID, fileID)

	return response.Success(c, map[string]bool{"deleted": deleted})
}

func (h *FileHandler) DeleteFolder(c *fiber.Ctx) error {
	userID := localUserID(c)
	if userID == "" {
		return response.Unauthorized(c, "authentication required")
	}

	folderID := c.Params("id")
	if folderID == "" {
		return response.BadRequest(c, "folder id is required")
	}

	deleted := h.fileSvc.DeleteFolder(userID, folderID)

	return response.Success(c, map[string]bool{"deleted": deleted})
}

func (h *FileHandler) Rename(c *fiber.Ctx) error {
	userID := localUserID(c)
	if userID == "" {
		return response.Unauthorized(c, "authentication required")
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.Name) == "" {
		return response.BadRequest(c, "name is required")
	}

	node, err := h.fileSvc.Rename(userID, c.Params("id"), req.Name)
	if err != nil {
		if errors.Is(err, service.ErrFileNotFound) {
			return response.NotFound(c, "file not found")
		}
		return response.InternalError(c, "rename failed")
	}

	return response.Success(c, node)
}

func (h *FileHandler) Move(c *fiber.Ctx) error {
	userID := localUserID(c)
	if userID == "" {
		return response.Unauthorized(c, "authentication required")
	}

	var req struct {
		ParentID *string `json:"parent_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	node, err := h.fileSvc.Move(userID, c.Params("id"), req.ParentID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFileNotFound):
			return response.NotFound(c, "file not found")
		case errors.Is(err, service.ErrCyclicMove):
			return response.BadRequest(c, "cannot move a folder into its own subtree")
		case errors.Is(err, service.ErrFolderNotFound), errors.Is(err, service.ErrNotAFolder):
			return response.BadRequest(c, "invalid destination folder")
		case errors.Is(err, service.ErrNotOwner):
			return response.Forbidden(c, "unauthorized")
		default:
			return response.InternalError(c, "move failed")
		}
	}

	return response.Success(c, node)
}

func (h *FileHandler) SetStarred(c *fiber.Ctx) error {
	userID := localUserID(c)
	if userID == "" {
		return response.Unauthorized(c, "authentication required")
	}

	var req struct {
		Starred bool `json:"starred"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	node, err := h.fileSvc.SetStarred(userID, c.Params("id"), req.Starred)
	if err != nil {
		return response.NotFound(c, "file not found")
	}

	return response.Success(c, node)
}
