package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/agentcore/internal/domain"
)

// InitSession seeds a project's session from a decoded payload.
func (h *Handler) InitSession(c echo.Context) error {
	projectID := c.Param("project_id")
	var req domain.InitSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	summary, err := h.service.InitSession(c.Request().Context(), projectID, req.Payload, req.Replace)
	if err != nil {
		return errorJSON(c, err)
	}

	status := http.StatusOK
	if summary.Created {
		status = http.StatusCreated
	}
	return c.JSON(status, summary)
}

// GetSession returns the summary of a project's session.
func (h *Handler) GetSession(c echo.Context) error {
	summary, err := h.service.GetSession(c.Param("project_id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

// ClearSession drops a project's session.
func (h *Handler) ClearSession(c echo.Context) error {
	cleared, err := h.service.ClearSession(c.Request().Context(), c.Param("project_id"))
	if err != nil {
		return errorJSON(c, err)
	}
	if !cleared {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}
	return c.NoContent(http.StatusNoContent)
}
