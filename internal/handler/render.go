package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/clipforge/api/internal/model"
	"github.com/clipforge/api/internal/service"
	"github.com/clipforge/api/pkg/response"
)

type RenderHandler struct {
	service   *service.RenderService
	validator *validator.Validate
}

func NewRenderHandler(svc *service.RenderService, v *validator.Validate) *RenderHandler {
	return &RenderHandler{
		service:   svc,
		validator: v,
	}
}

// Start handles POST /api/render/start
// @Summary      Start render job
// @Description  Start an asynchronous render job for a template with prop overrides
// @Tags         Render
// @Accept       json
// @Produce      json
// @Param        request body model.RenderStartRequest true "Render start request"
// @Success      202 {object} model.RenderStartResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/render/start [post]
func (h *RenderHandler) Start(c *fiber.Ctx) error {
	var req model.RenderStartRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.StartRender(c.Context(), &req)
	if err != nil {
		return renderError(c, err)
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/render/status/:renderId
// @Summary      Get render job status
// @Tags         Render
// @Produce      json
// @Param        renderId path string true "Render ID"
// @Success      200 {object} model.RenderStatusResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/render/status/{renderId} [get]
func (h *RenderHandler) Status(c *fiber.Ctx) error {
	renderID := c.Params("renderId")
	if renderID == "" {
		return response.ValidationError(c, "Render ID is required", nil)
	}

	result, err := h.service.GetStatus(c.Context(), renderID)
	if err != nil {
		return renderError(c, err)
	}

	return response.OK(c, result)
}

// Result handles GET /api/render/result/:renderId
// @Summary      Get render job result
// @Tags         Render
// @Produce      json
// @Param        renderId path string true "Render ID"
// @Success      200 {object} model.RenderJob
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/render/result/{renderId} [get]
func (h *RenderHandler) Result(c *fiber.Ctx) error {
	renderID := c.Params("renderId")
	if renderID == "" {
		return response.ValidationError(c, "Render ID is required", nil)
	}

	result, err := h.service.GetResult(c.Context(), renderID)
	if err != nil {
		return renderError(c, err)
	}

	return response.OK(c, result)
}

// Cancel handles POST /api/render/cancel/:renderId
// @Summary      Cancel a pending render job
// @Tags         Render
// @Produce      json
// @Param        renderId path string true "Render ID"
// @Success      200 {object} model.RenderCancelResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/render/cancel/{renderId} [post]
func (h *RenderHandler) Cancel(c *fiber.Ctx) error {
	renderID := c.Params("renderId")
	if renderID == "" {
		return response.ValidationError(c, "Render ID is required", nil)
	}

	result, err := h.service.Cancel(c.Context(), renderID)
	if err != nil {
		return renderError(c, err)
	}

	return response.OK(c, result)
}

// Batch handles POST /api/render/batch
// @Summary      Run a batch of render tasks
// @Description  Runs tasks sequentially with per-task failure isolation; results come back in input order
// @Tags         Render
// @Accept       json
// @Produce      json
// @Param        request body model.BatchRenderRequest true "Batch render request"
// @Success      200 {object} model.BatchRenderResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/render/batch [post]
func (h *RenderHandler) Batch(c *fiber.Ctx) error {
	var req model.BatchRenderRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	result, err := h.service.BatchRender(c.Context(), &req)
	if err != nil {
		return renderError(c, err)
	}

	return response.OK(c, result)
}

// renderError maps service sentinels onto response codes.
func renderError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrUnknownTemplate):
		return response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrUnknownRender):
		return response.NotFound(c, "Render job not found")
	case errors.Is(err, service.ErrJobNotCompleted):
		return response.ValidationError(c, "Job not completed yet", nil)
	case errors.Is(err, service.ErrNotCancelable):
		return response.ValidationError(c, "Job already started", nil)
	case errors.Is(err, service.ErrMalformedBatch):
		return response.ValidationError(c, err.Error(), nil)
	case errors.Is(err, service.ErrBundle):
		return response.BundleError(c, err.Error())
	default:
		return response.ServiceError(c, err.Error())
	}
}
