package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/agentcore/internal/domain"
)

// ListTools returns the tool catalog.
func (h *Handler) ListTools(c echo.Context) error {
	return c.JSON(http.StatusOK, domain.ListToolsResponse{Tools: h.service.Tools().Items()})
}

// ExecuteTool runs one tool call against a project's session. Tool failures
// are part of the result and still answer 200.
func (h *Handler) ExecuteTool(c echo.Context) error {
	projectID := c.Param("project_id")
	toolName := domain.ToolName(c.Param("tool_name"))
	var req domain.ExecuteToolRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	res, err := h.service.ExecuteTool(c.Request().Context(), projectID, toolName, req)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
