package mcp

import (
	"context"
	"encoding/json"
	"testing"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/agentcore/internal/domain"
	"github.com/xiaot623/gogo/agentcore/tests/testsvc"
)

func callTool(name domain.ToolName, args map[string]any) mcptypes.CallToolRequest {
	req := mcptypes.CallToolRequest{}
	req.Params.Name = string(name)
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcptypes.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcptypes.TextContent)
	require.True(t, ok, "unexpected content %T", res.Content[0])
	return text.Text
}

func TestToolSchemaCarriesProject(t *testing.T) {
	f := testsvc.New(t)
	s := NewServer(f.Service, nil)

	def, ok := f.Service.Tools().Get(domain.ToolWriteFile)
	require.True(t, ok)
	tool := toolFor(def)

	assert.Equal(t, "write_file", tool.Name)
	assert.Equal(t, "object", tool.InputSchema.Type)
	assert.Contains(t, tool.InputSchema.Required, ArgProjectID)
	assert.Contains(t, tool.InputSchema.Required, "path")
	assert.Contains(t, tool.InputSchema.Properties, "content")
	assert.Contains(t, tool.InputSchema.Properties, ArgCallID)
	assert.NotNil(t, s.MCPServer())
}

func TestToolHandler(t *testing.T) {
	ctx := context.Background()
	f := testsvc.New(t)
	s := NewServer(f.Service, nil)
	_, err := f.Service.InitSession(ctx, "p1", &domain.Payload{Files: []domain.PayloadFile{
		{Path: "src/app.ts", Content: "const x = 1;\n"},
	}}, true)
	require.NoError(t, err)

	t.Run("edit succeeds", func(t *testing.T) {
		res, err := s.handlerFor(domain.ToolEditFile)(ctx, callTool(domain.ToolEditFile, map[string]any{
			ArgProjectID: "p1",
			"path":       "src/app.ts",
			"search":     "x = 1",
			"replace":    "x = 2",
		}))
		require.NoError(t, err)
		assert.False(t, res.IsError)

		var out domain.ToolResult
		require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
		assert.True(t, out.Success)
		assert.Equal(t, "src/app.ts", out.Path)

		read, err := f.Service.ExecuteTool(ctx, "p1", domain.ToolReadFile, domain.ExecuteToolRequest{Input: map[string]any{"path": "src/app.ts"}})
		require.NoError(t, err)
		assert.Contains(t, read.Content, "x = 2")
	})

	t.Run("tool failure is an error result", func(t *testing.T) {
		res, err := s.handlerFor(domain.ToolReadFile)(ctx, callTool(domain.ToolReadFile, map[string]any{
			ArgProjectID: "p1",
			"path":       "src/missing.ts",
		}))
		require.NoError(t, err)
		assert.True(t, res.IsError)

		var out domain.ToolResult
		require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
		require.NotNil(t, out.Error)
		assert.Equal(t, domain.ErrorCodeNotFound, out.Error.Code)
	})

	t.Run("project is required", func(t *testing.T) {
		res, err := s.handlerFor(domain.ToolReadFile)(ctx, callTool(domain.ToolReadFile, map[string]any{"path": "a"}))
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(t, res), ArgProjectID)
	})
}
