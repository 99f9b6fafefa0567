package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/agentcore/internal/domain"
)

// RunTurn runs one request of a turn and answers with its final state.
// Events are not streamed here; use the websocket endpoint for that.
func (h *Handler) RunTurn(c echo.Context) error {
	var req domain.TurnRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	resp, err := h.service.RunTurn(c.Request().Context(), req, nil)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetTurn returns the persisted turn record.
func (h *Handler) GetTurn(c echo.Context) error {
	turn, err := h.service.GetTurn(c.Request().Context(), c.Param("turn_id"))
	if err != nil {
		return errorJSON(c, err)
	}
	if turn == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "turn not found"})
	}
	return c.JSON(http.StatusOK, turn)
}

// GetTurnEvents returns the trace of a turn.
func (h *Handler) GetTurnEvents(c echo.Context) error {
	turnID := c.Param("turn_id")

	limit := 100
	if l := c.QueryParam("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	var afterTs int64
	if a := c.QueryParam("after_ts"); a != "" {
		if parsed, err := strconv.ParseInt(a, 10, 64); err == nil {
			afterTs = parsed
		}
	}

	var types []string
	if t := c.QueryParam("types"); t != "" {
		for _, typ := range strings.Split(t, ",") {
			if typ = strings.TrimSpace(typ); typ != "" {
				types = append(types, typ)
			}
		}
	}

	events, err := h.service.GetTurnEvents(c.Request().Context(), turnID, afterTs, types, limit)
	if err != nil {
		return errorJSON(c, err)
	}
	if events == nil {
		events = []domain.Event{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"turn_id": turnID,
		"events":  events,
	})
}

// GetCheckpoint returns checkpoint metadata. The state itself is never
// served over HTTP.
func (h *Handler) GetCheckpoint(c echo.Context) error {
	cp, err := h.service.GetCheckpoint(c.Request().Context(), c.Param("token"))
	if err != nil {
		return errorJSON(c, err)
	}
	if cp == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "checkpoint not found"})
	}
	return c.JSON(http.StatusOK, cp)
}
