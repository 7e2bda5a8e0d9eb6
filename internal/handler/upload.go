package handler

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/stickerlab/api/internal/model"
	"github.com/stickerlab/api/pkg/response"
)

const maxUploadSize = 50 * 1024 * 1024 // 50MB per image

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// UploadHandler stores the mother/anchor reference pair on local disk.
type UploadHandler struct {
	uploadDir string
}

func NewUploadHandler(uploadDir string) *UploadHandler {
	return &UploadHandler{uploadDir: uploadDir}
}

// Images handles POST /api/upload
// @Summary      Upload reference images
// @Description  Store the mother (identity) and anchor (style) reference images
// @Tags         Upload
// @Accept       multipart/form-data
// @Produce      json
// @Param        motherImage formData file true "Mother image (jpg, png, webp; max 50MB)"
// @Param        anchorImage formData file true "Anchor image (jpg, png, webp; max 50MB)"
// @Success      201 {object} model.UploadResponse
// @Failure      400 {object} response.ErrorResponse
// @Router       /api/upload [post]
func (h *UploadHandler) Images(c *fiber.Ctx) error {
	mother, err := c.FormFile("motherImage")
	if err != nil {
		return response.ValidationError(c, "motherImage is required", nil)
	}
	anchor, err := c.FormFile("anchorImage")
	if err != nil {
		return response.ValidationError(c, "anchorImage is required", nil)
	}

	var stored [2]model.UploadedImage
	for i, file := range []*multipart.FileHeader{mother, anchor} {
		if err := validateImage(file); err != nil {
			return response.ValidationError(c, err.Error(), fiber.Map{"filename": file.Filename})
		}

		ext := strings.ToLower(filepath.Ext(file.Filename))
		name := fmt.Sprintf("%s-%s%s", field(i), uuid.New().String(), ext)
		path := filepath.Join(h.uploadDir, name)
		if err := c.SaveFile(file, path); err != nil {
			return response.ServiceError(c, "Failed to store upload")
		}

		stored[i] = model.UploadedImage{
			Filename: name,
			Path:     path,
			Size:     file.Size,
		}
	}

	return response.Created(c, model.UploadResponse{
		MotherImage: stored[0],
		AnchorImage: stored[1],
		CreatedAt:   time.Now(),
	})
}

func validateImage(file *multipart.FileHeader) error {
	if file.Size > maxUploadSize {
		return fmt.Errorf("file exceeds 50MB limit")
	}
	contentType := file.Header.Get("Content-Type")
	if contentType != "" && !allowedImageTypes[contentType] {
		return fmt.Errorf("unsupported image type %s (jpg, png, webp)", contentType)
	}
	if !allowedImageExts[strings.ToLower(filepath.Ext(file.Filename))] {
		return fmt.Errorf("unsupported image extension (jpg, png, webp)")
	}
	return nil
}

func field(i int) string {
	if i == 0 {
		return "mother"
	}
	return "anchor"
}
