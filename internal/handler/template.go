package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/clipforge/api/internal/service"
	"github.com/clipforge/api/pkg/response"
)

type TemplateHandler struct {
	catalog *service.TemplateCatalog
}

func NewTemplateHandler(catalog *service.TemplateCatalog) *TemplateHandler {
	return &TemplateHandler{catalog: catalog}
}

// List handles GET /api/templates
// @Summary      List render templates
// @Description  Returns the bundled template catalog; the first call triggers the bundle
// @Tags         Templates
// @Produce      json
// @Success      200 {array} model.Template
// @Failure      502 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/templates [get]
func (h *TemplateHandler) List(c *fiber.Ctx) error {
	templates, err := h.catalog.Templates(c.Context())
	if err != nil {
		if errors.Is(err, service.ErrBundle) {
			return response.BundleError(c, err.Error())
		}
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, templates)
}
