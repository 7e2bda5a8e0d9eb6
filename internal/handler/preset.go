package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stickerlab/api/internal/service"
	"github.com/stickerlab/api/pkg/response"
)

type PresetHandler struct {
	presets *service.PresetService
}

func NewPresetHandler(presets *service.PresetService) *PresetHandler {
	return &PresetHandler{presets: presets}
}

// List handles GET /api/presets
// @Summary      List the sticker preset library
// @Produce      json
// @Success      200 {array} model.Preset
// @Failure      500 {object} response.ErrorResponse
// @Router       /api/presets [get]
func (h *PresetHandler) List(c *fiber.Ctx) error {
	presets, err := h.presets.Load()
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, presets)
}
