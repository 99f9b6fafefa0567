package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/agentcore/internal/adapter/llm"
	"github.com/xiaot623/gogo/agentcore/internal/domain"
	"github.com/xiaot623/gogo/agentcore/tests/testsvc"
)

func newTestServer(t *testing.T, script ...llm.MockResponse) (*testsvc.Fixture, string) {
	t.Helper()
	f := testsvc.New(t, script...)

	e := echo.New()
	NewServer(f.Service, slog.New(slog.NewTextHandler(io.Discard, nil))).RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return f, "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/turns/stream"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestTurnStream(t *testing.T) {
	f, url := newTestServer(t,
		llm.MockResponse{
			Content: "writing",
			ToolCalls: []llm.ToolCall{{
				ID:       "c1",
				Type:     "function",
				Function: llm.ToolCallFunction{Name: string(domain.ToolWriteFile), Arguments: `{"path":"a.txt","content":"hi"}`},
			}},
		},
		llm.MockResponse{Content: "all done"},
	)
	_, err := f.Service.InitSession(context.Background(), "p1", &domain.Payload{}, true)
	require.NoError(t, err)

	conn := dial(t, url)
	require.NoError(t, conn.WriteJSON(domain.TurnRequest{
		ProjectID: "p1",
		Messages:  []domain.ChatMessage{{Role: domain.RoleUser, Content: "write a.txt"}},
	}))

	seen := make(map[domain.EventType]int)
	var done *domain.TurnResponse
	for done == nil {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var ev domain.TurnEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		seen[ev.Type]++
		if ev.Type == domain.EventTypeTurnDone {
			done = ev.Response
		}
	}

	assert.Equal(t, 1, seen[domain.EventTypeTurnStarted])
	assert.Positive(t, seen[domain.EventTypeDelta])
	assert.Equal(t, 1, seen[domain.EventTypeToolResult])
	require.NotNil(t, done)
	assert.Equal(t, domain.TurnStateCompleted, done.State)
	assert.Equal(t, "all done", done.Message.Content)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "expected normal close, got %v", err)
}

func TestTurnStreamRejectedRequest(t *testing.T) {
	_, url := newTestServer(t)

	conn := dial(t, url)
	require.NoError(t, conn.WriteJSON(domain.TurnRequest{
		ProjectID: "unknown",
		Messages:  []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}},
	}))

	var frame ErrorFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, FrameTypeError, frame.Type)
	assert.Equal(t, http.StatusNotFound, frame.Status)
	assert.Contains(t, frame.Error, "session not found")
}

func TestTurnStreamInvalidFrame(t *testing.T) {
	_, url := newTestServer(t)

	conn := dial(t, url)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	var frame ErrorFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, http.StatusBadRequest, frame.Status)
}
