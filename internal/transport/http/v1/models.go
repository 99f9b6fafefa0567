package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/agentcore/internal/adapter/llm"
)

// ListModels returns the provider's models in the OpenAI list shape.
func (h *Handler) ListModels(c echo.Context) error {
	models, err := h.service.ListModels(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusBadGateway, llm.ErrorResponse{
			Error: &llm.APIError{
				Message: err.Error(),
				Type:    "upstream_error",
			},
		})
	}
	return c.JSON(http.StatusOK, llm.ModelsResponse{Object: "list", Data: models})
}
