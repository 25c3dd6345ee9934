package handlers

import (
	"fmt"

	"github.com/filedock/backend/internal/apperrors"
	"github.com/filedock/backend/internal/middleware"
	"github.com/filedock/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// FileHandler is the thin HTTP adapter over the file pipelines. It maps
// transport details in and error kinds out; no business rules live here.
type FileHandler struct {
	files *services.FileService
}

func NewFileHandler(files *services.FileService) *FileHandler {
	return &FileHandler{files: files}
}

// Upload accepts a multipart upload
func (h *FileHandler) Upload(c *fiber.Ctx) error {
	ownerID := middleware.CurrentUserID(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Missing file in request",
		})
	}

	f, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Could not read uploaded file",
		})
	}
	defer f.Close()

	var folderID *string
	if v := c.FormValue("folder_id"); v != "" {
		folderID = &v
	}

	rec, err := h.files.Upload(c.UserContext(), services.UploadRequest{
		Reader:      f,
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		OwnerID:     ownerID,
		FolderID:    folderID,
		Description: c.FormValue("description"),
		Meta:        clientMeta(c),
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"file":    rec,
	})
}

// Download streams the file's bytes back to the owner
func (h *FileHandler) Download(c *fiber.Ctx) error {
	ownerID := middleware.CurrentUserID(c)
	fileID := c.Params("id")

	rec, reader, err := h.files.Download(c.UserContext(), fileID, ownerID)
	if err != nil {
		return respondError(c, err)
	}

	c.Set("Content-Type", rec.ContentType)
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.FileName))
	return c.SendStream(reader, int(rec.SizeBytes))
}

// List returns the owner's active files
func (h *FileHandler) List(c *fiber.Ctx) error {
	ownerID := middleware.CurrentUserID(c)
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 25)

	var folderID *string
	if v := c.Query("folder_id"); v != "" {
		folderID = &v
	}

	files, total, err := h.files.List(c.UserContext(), ownerID, folderID, page, limit)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"files":   files,
		"total":   total,
	})
}

// Search matches the term against file names and descriptions
func (h *FileHandler) Search(c *fiber.Ctx) error {
	ownerID := middleware.CurrentUserID(c)
	term := c.Query("q", "")
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 25)

	var folderID *string
	if v := c.Query("folder_id"); v != "" {
		folderID = &v
	}

	files, total, err := h.files.Search(c.UserContext(), ownerID, term, folderID, page, limit)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"files":   files,
		"total":   total,
	})
}

type updateFileRequest struct {
	FileName    *string `json:"file_name"`
	Description *string `json:"description"`
	FolderID    *string `json:"folder_id"`
}

// Update changes a file's name, description or folder
func (h *FileHandler) Update(c *fiber.Ctx) error {
	ownerID := middleware.CurrentUserID(c)
	fileID := c.Params("id")

	var req updateFileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	rec, err := h.files.Update(c.UserContext(), services.UpdateRequest{
		FileID:         fileID,
		OwnerID:        ownerID,
		NewName:        req.FileName,
		NewDescription: req.Description,
		NewFolderID:    req.FolderID,
		Meta:           clientMeta(c),
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"file":    rec,
	})
}

// Delete moves a file to the trash (soft delete)
func (h *FileHandler) Delete(c *fiber.Ctx) error {
	ownerID := middleware.CurrentUserID(c)
	fileID := c.Params("id")

	if err := h.files.SoftDelete(c.UserContext(), fileID, ownerID, clientMeta(c)); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "File moved to trash",
	})
}

// PermanentDelete removes the file's bytes, metadata and quota charge
func (h *FileHandler) PermanentDelete(c *fiber.Ctx) error {
	ownerID := middleware.CurrentUserID(c)
	fileID := c.Params("id")

	if err := h.files.PermanentDelete(c.UserContext(), fileID, ownerID, clientMeta(c)); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "File permanently deleted",
	})
}

// Quota returns the owner's storage usage
func (h *FileHandler) Quota(c *fiber.Ctx) error {
	ownerID := middleware.CurrentUserID(c)

	status, err := h.files.QuotaStatus(c.UserContext(), ownerID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"quota":   status,
	})
}

type setQuotaLimitRequest struct {
	LimitBytes int64 `json:"limit_bytes"`
}

// SetQuotaLimit changes an owner's storage limit (operator endpoint)
func (h *FileHandler) SetQuotaLimit(c *fiber.Ctx) error {
	ownerID := c.Params("ownerID")

	var req setQuotaLimitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if err := h.files.SetQuotaLimit(c.UserContext(), ownerID, req.LimitBytes, clientMeta(c)); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Quota limit updated",
	})
}

func clientMeta(c *fiber.Ctx) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: c.IP(),
		UserAgent: c.Get("User-Agent"),
	}
}

// respondError maps error kinds to HTTP statuses. This is the only
// place transport codes touch pipeline errors.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		status = fiber.StatusBadRequest
	case apperrors.KindQuotaExceeded:
		status = fiber.StatusRequestEntityTooLarge
	case apperrors.KindNotFound:
		status = fiber.StatusNotFound
	case apperrors.KindAuthentication:
		status = fiber.StatusUnauthorized
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": err.Error(),
	})
}
