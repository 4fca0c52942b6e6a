package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/clipforge/api/internal/model"
	"github.com/clipforge/api/internal/service"
	"github.com/clipforge/api/internal/transcript"
	"github.com/clipforge/api/pkg/response"
)

type TranscriptHandler struct {
	service   *service.TranscriptService
	validator *validator.Validate
}

func NewTranscriptHandler(svc *service.TranscriptService, v *validator.Validate) *TranscriptHandler {
	return &TranscriptHandler{
		service:   svc,
		validator: v,
	}
}

// Ingest handles POST /api/transcripts/ingest
// @Summary      Ingest raw transcription results
// @Description  Standardize and consolidate one or more raw engine results into a canonical transcript
// @Tags         Transcripts
// @Accept       json
// @Produce      json
// @Param        request body model.TranscriptIngestRequest true "Ingest request"
// @Success      201 {object} model.TranscriptIngestResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/transcripts/ingest [post]
func (h *TranscriptHandler) Ingest(c *fiber.Ctx) error {
	var req model.TranscriptIngestRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Ingest(c.Context(), &req)
	if err != nil {
		if errors.Is(err, transcript.ErrInvalidRawResult) {
			return response.ValidationError(c, err.Error(), nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Created(c, result)
}

// Get handles GET /api/transcripts/:id
// @Summary      Get a saved transcript
// @Tags         Transcripts
// @Produce      json
// @Param        id path string true "Transcript ID"
// @Success      200 {object} model.SavedTranscript
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/transcripts/{id} [get]
func (h *TranscriptHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return response.ValidationError(c, "Transcript ID is required", nil)
	}

	saved, err := h.service.GetTranscript(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrTranscriptNotFound) {
			return response.NotFound(c, "Transcript not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, saved)
}

// Analyze handles POST /api/transcripts/:id/analysis
// @Summary      Derive analysis for a saved transcript
// @Tags         Transcripts
// @Produce      json
// @Param        id path string true "Transcript ID"
// @Success      200 {object} model.Analysis
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/transcripts/{id}/analysis [post]
func (h *TranscriptHandler) Analyze(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return response.ValidationError(c, "Transcript ID is required", nil)
	}

	saved, err := h.service.GetTranscript(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrTranscriptNotFound) {
			return response.NotFound(c, "Transcript not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, h.service.PerformAnalysis(c.Context(), saved))
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	details := make([]map[string]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		details = append(details, map[string]string{
			"field": fe.Field(),
			"rule":  fe.Tag(),
		})
	}
	return details
}
