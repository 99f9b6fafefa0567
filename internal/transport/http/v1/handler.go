// Package v1 provides the HTTP handlers of the agent core API.
package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/agentcore/internal/config"
	"github.com/xiaot623/gogo/agentcore/internal/continuation"
	"github.com/xiaot623/gogo/agentcore/internal/repository"
	"github.com/xiaot623/gogo/agentcore/internal/service"
	"github.com/xiaot623/gogo/agentcore/internal/session"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Sessions
	e.POST("/v1/projects/:project_id/session", h.InitSession)
	e.GET("/v1/projects/:project_id/session", h.GetSession)
	e.DELETE("/v1/projects/:project_id/session", h.ClearSession)

	// Tools
	e.GET("/v1/tools", h.ListTools)
	e.POST("/v1/projects/:project_id/tools/:tool_name", h.ExecuteTool)

	// Turns
	e.POST("/v1/turns", h.RunTurn)
	e.GET("/v1/turns/:turn_id", h.GetTurn)
	e.GET("/v1/turns/:turn_id/events", h.GetTurnEvents)
	e.GET("/v1/checkpoints/:token", h.GetCheckpoint)

	// Models
	e.GET("/v1/models", h.ListModels)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": config.Version,
	})
}

// StatusFor maps a service error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, session.ErrInvalidProject):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, repository.ErrCheckpointNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrCheckpointConsumed):
		return http.StatusConflict
	case errors.Is(err, repository.ErrCheckpointExpired):
		return http.StatusGone
	case errors.Is(err, continuation.ErrDigestMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func errorJSON(c echo.Context, err error) error {
	return c.JSON(StatusFor(err), map[string]string{"error": err.Error()})
}
