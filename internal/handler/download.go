package handler

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/stickerlab/api/internal/service"
	"github.com/stickerlab/api/pkg/response"
)

// DownloadHandler serves artifacts out of task-scoped output directories.
type DownloadHandler struct {
	export *service.ExportService
}

func NewDownloadHandler(export *service.ExportService) *DownloadHandler {
	return &DownloadHandler{export: export}
}

// Artifact handles GET /api/download/:taskId/:filename
// @Summary      Download one sticker
// @Produce      image/png
// @Param        taskId   path string true "Task ID"
// @Param        filename path string true "Artifact filename"
// @Success      200 {file} file
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/download/{taskId}/{filename} [get]
func (h *DownloadHandler) Artifact(c *fiber.Ctx) error {
	taskID := c.Params("taskId")
	filename := c.Params("filename")

	path, err := h.export.ArtifactPath(taskID, filename)
	if err != nil {
		return response.NotFound(c, "Artifact not found")
	}
	return c.Download(path)
}

// Archive handles GET /api/download-all/:taskId
// @Summary      Download all stickers of a task as a ZIP
// @Produce      application/zip
// @Param        taskId path string true "Task ID"
// @Success      200 {file} file
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/download-all/{taskId} [get]
func (h *DownloadHandler) Archive(c *fiber.Ctx) error {
	taskID := c.Params("taskId")

	var buf bytes.Buffer
	if err := h.export.WriteArchive(&buf, taskID); err != nil {
		if errors.Is(err, service.ErrNoArtifacts) {
			return response.NotFound(c, "No artifacts for this task")
		}
		return response.ServiceError(c, err.Error())
	}

	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="line-stickers-%s.zip"`, taskID))
	return c.Send(buf.Bytes())
}
