// Package mcp exposes the file tools as a Model Context Protocol server.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"

	"github.com/labstack/echo/v4"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/xiaot623/gogo/agentcore/internal/config"
	"github.com/xiaot623/gogo/agentcore/internal/domain"
	"github.com/xiaot623/gogo/agentcore/internal/service"
	"github.com/xiaot623/gogo/agentcore/internal/tools"
)

// Arguments every MCP tool takes on top of the tool's own input.
const (
	ArgProjectID = "project_id"
	ArgCallID    = "call_id"
	ArgTurnID    = "turn_id"
)

// Server wraps an MCP server whose tools run against project sessions.
type Server struct {
	service *service.Service
	logger  *slog.Logger
	mcp     *server.MCPServer
}

// NewServer registers one MCP tool per catalog entry.
func NewServer(svc *service.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		service: svc,
		logger:  logger,
		mcp:     server.NewMCPServer("agentcore", config.Version, server.WithToolCapabilities(false)),
	}
	for _, def := range svc.Tools().List() {
		s.mcp.AddTool(toolFor(def), s.handlerFor(def.Name))
	}
	return s
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// RegisterRoutes mounts the streamable HTTP transport at /mcp.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	h := echo.WrapHandler(server.NewStreamableHTTPServer(s.mcp))
	e.Any("/mcp", h)
}

// toolFor converts a catalog definition, adding the routing arguments.
func toolFor(def tools.Definition) mcptypes.Tool {
	props := map[string]any{}
	if p, ok := def.Parameters["properties"].(map[string]any); ok {
		maps.Copy(props, p)
	}
	props[ArgProjectID] = map[string]any{"type": "string", "description": "Project whose session the tool runs against"}
	props[ArgCallID] = map[string]any{"type": "string", "description": "Idempotency key; a repeated id returns the recorded result"}
	props[ArgTurnID] = map[string]any{"type": "string", "description": "Turn the result is recorded under"}

	required := []string{ArgProjectID}
	if r, ok := def.Parameters["required"].([]string); ok {
		required = append(required, r...)
	}

	return mcptypes.Tool{
		Name:        string(def.Name),
		Description: def.Description,
		InputSchema: mcptypes.ToolInputSchema{
			Type:       "object",
			Properties: props,
			Required:   required,
		},
	}
}

func (s *Server) handlerFor(name domain.ToolName) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcptypes.CallToolRequest) (*mcptypes.CallToolResult, error) {
		args := maps.Clone(req.GetArguments())
		if args == nil {
			args = map[string]any{}
		}

		projectID, _ := args[ArgProjectID].(string)
		if projectID == "" {
			return mcptypes.NewToolResultError(ArgProjectID + " is required"), nil
		}
		callID, _ := args[ArgCallID].(string)
		turnID, _ := args[ArgTurnID].(string)
		for _, k := range []string{ArgProjectID, ArgCallID, ArgTurnID} {
			delete(args, k)
		}

		res, err := s.service.ExecuteTool(ctx, projectID, name, domain.ExecuteToolRequest{
			CallID: callID,
			TurnID: turnID,
			Input:  args,
		})
		if err != nil {
			s.logger.Warn("mcp tool call rejected", "tool", name, "project_id", projectID, "error", err)
			return mcptypes.NewToolResultError(err.Error()), nil
		}

		data, err := json.Marshal(res)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal tool result: %w", err)
		}
		out := mcptypes.NewToolResultText(string(data))
		out.IsError = !res.Success
		return out, nil
	}
}
