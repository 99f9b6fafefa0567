// Package ws streams turn events to clients over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/agentcore/internal/domain"
	"github.com/xiaot623/gogo/agentcore/internal/service"
	v1 "github.com/xiaot623/gogo/agentcore/internal/transport/http/v1"
)

const (
	defaultMaxMessageSize = 64 << 20
	defaultPingInterval   = 30 * time.Second
	defaultWriteTimeout   = 10 * time.Second
	defaultReadTimeout    = 60 * time.Second
	sendBuffer            = 256
)

// FrameTypeError marks a frame reporting a request that was rejected
// before the turn ran.
const FrameTypeError = "error"

// ErrorFrame is sent instead of events when RunTurn rejects the request.
type ErrorFrame struct {
	Type   string `json:"type"`
	Ts     int64  `json:"ts"`
	Status int    `json:"status"`
	Error  string `json:"error"`
}

// Server handles turn streaming connections.
type Server struct {
	service  *service.Service
	logger   *slog.Logger
	upgrader websocket.Upgrader

	MaxMessageSize int64
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
}

// NewServer creates a new WebSocket server.
func NewServer(svc *service.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		service: svc,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		MaxMessageSize: defaultMaxMessageSize,
		PingInterval:   defaultPingInterval,
		WriteTimeout:   defaultWriteTimeout,
		ReadTimeout:    defaultReadTimeout,
	}
}

// RegisterRoutes registers the streaming endpoint.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/v1/turns/stream", s.HandleTurnStream)
}

// HandleTurnStream upgrades the connection, reads one TurnRequest and runs
// it, pushing every turn event as a JSON text frame. Closing the socket
// cancels the turn.
func (s *Server) HandleTurnStream(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("failed to upgrade websocket", "error", err)
		return err
	}
	defer conn.Close()

	conn.SetReadLimit(s.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(s.ReadTimeout))

	var req domain.TurnRequest
	if err := conn.ReadJSON(&req); err != nil {
		s.logger.Warn("failed to read turn request", "error", err)
		s.writeError(conn, http.StatusBadRequest, "invalid turn request")
		return nil
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	send := make(chan []byte, sendBuffer)
	writerDone := make(chan struct{})
	go s.writePump(conn, send, writerDone)
	go s.readPump(conn, cancel)

	sink := func(ev domain.TurnEvent) {
		data, err := json.Marshal(ev)
		if err != nil {
			s.logger.Warn("failed to marshal turn event", "type", ev.Type, "error", err)
			return
		}
		select {
		case send <- data:
		case <-writerDone:
		}
	}

	resp, err := s.service.RunTurn(ctx, req, sink)
	if err != nil {
		data, _ := json.Marshal(ErrorFrame{
			Type:   FrameTypeError,
			Ts:     time.Now().UnixMilli(),
			Status: v1.StatusFor(err),
			Error:  err.Error(),
		})
		select {
		case send <- data:
		case <-writerDone:
		}
	} else {
		s.logger.Info("turn stream finished", "turn_id", resp.TurnID, "state", resp.State)
	}

	close(send)
	<-writerDone
	return nil
}

// readPump watches the connection after the request frame. Further frames
// are ignored; any read error means the client is gone.
func (s *Server) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(s.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.ReadTimeout))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket closed unexpectedly", "error", err)
			}
			return
		}
	}
}

// writePump drains send and keeps the connection alive with pings. It closes
// the connection normally once send is closed.
func (s *Server) writePump(conn *websocket.Conn, send <-chan []byte, done chan<- struct{}) {
	ticker := time.NewTicker(s.PingInterval)
	defer func() {
		ticker.Stop()
		close(done)
	}()

	for {
		select {
		case message, ok := <-send:
			conn.SetWriteDeadline(time.Now().Add(s.WriteTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Warn("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeError(conn *websocket.Conn, status int, msg string) {
	conn.SetWriteDeadline(time.Now().Add(s.WriteTimeout))
	if err := conn.WriteJSON(ErrorFrame{Type: FrameTypeError, Ts: time.Now().UnixMilli(), Status: status, Error: msg}); err != nil {
		return
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
