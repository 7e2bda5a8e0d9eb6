package handler

import (
	"errors"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/stickerlab/api/internal/model"
	"github.com/stickerlab/api/internal/service"
	"github.com/stickerlab/api/pkg/response"
)

type GenerateHandler struct {
	scheduler *service.Scheduler
	presets   *service.PresetService
	validator *validator.Validate
}

func NewGenerateHandler(scheduler *service.Scheduler, presets *service.PresetService, v *validator.Validate) *GenerateHandler {
	return &GenerateHandler{
		scheduler: scheduler,
		presets:   presets,
		validator: v,
	}
}

// Start handles POST /api/generate/start
// @Summary      Start a sticker generation task
// @Description  Enqueue a batch generation over the uploaded mother/anchor pair; returns immediately with a task id
// @Tags         Generate
// @Accept       json
// @Produce      json
// @Param        request body model.GenerateStartRequest true "Generation request"
// @Success      202 {object} model.GenerateStartResponse
// @Failure      400 {object} response.ErrorResponse
// @Router       /api/generate/start [post]
func (h *GenerateHandler) Start(c *fiber.Ctx) error {
	var req model.GenerateStartRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	for _, p := range []string{req.MotherImagePath, req.AnchorImagePath} {
		if _, err := os.Stat(p); err != nil {
			return response.ValidationError(c, "Reference image not found", fiber.Map{"path": p})
		}
	}

	presets, err := h.presets.Select(req.SelectedPresets)
	if err != nil {
		return response.ValidationError(c, err.Error(), nil)
	}
	if len(presets) == 0 {
		return response.ValidationError(c, "Preset selection is empty", nil)
	}

	return response.Accepted(c, h.scheduler.Enqueue(&req, presets))
}

// Status handles GET /api/generate/status/:taskId
// @Summary      Poll task status
// @Produce      json
// @Param        taskId path string true "Task ID"
// @Success      200 {object} model.GenerateStatusResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/generate/status/{taskId} [get]
func (h *GenerateHandler) Status(c *fiber.Ctx) error {
	taskID := c.Params("taskId")
	status, err := h.scheduler.Status(taskID)
	if err != nil {
		return response.NotFound(c, "Task not found")
	}
	return response.OK(c, status)
}

// Results handles GET /api/generate/results/:taskId
// @Summary      Fetch final results
// @Description  Returns the result list and summary once the task has completed
// @Produce      json
// @Param        taskId path string true "Task ID"
// @Success      200 {object} model.GenerateResultsResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/generate/results/{taskId} [get]
func (h *GenerateHandler) Results(c *fiber.Ctx) error {
	taskID := c.Params("taskId")
	results, err := h.scheduler.Results(taskID)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			return response.NotFound(c, "Task not found")
		}
		status, _ := h.scheduler.StatusOf(taskID)
		return response.TaskNotReady(c, "Task not completed yet", string(status))
	}
	return response.OK(c, results)
}

// Reset handles POST /api/reset/:taskId
// @Summary      Remove a task from the registry
// @Description  Rejected while the task is running; its artifacts on disk are kept
// @Produce      json
// @Param        taskId path string true "Task ID"
// @Success      200 {object} map[string]interface{}
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Router       /api/reset/{taskId} [post]
func (h *GenerateHandler) Reset(c *fiber.Ctx) error {
	taskID := c.Params("taskId")
	if err := h.scheduler.Reset(taskID); err != nil {
		if errors.Is(err, service.ErrTaskRunning) {
			return response.TaskRunning(c, "Cannot reset a running task")
		}
		return response.NotFound(c, "Task not found")
	}
	return response.OK(c, fiber.Map{"taskId": taskID, "deleted": true})
}
