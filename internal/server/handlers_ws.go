package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/wmtorode/poker-planning/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // transport-level CORS is not this core's concern
	},
}

func (s *Server) handleWatch(c echo.Context) error {
	sessionID := c.Param("id")
	ip := c.RealIP()

	ok, reason := s.limits.Acquire(ip)
	if !ok {
		metrics.ConnectionsRejected.WithLabelValues(string(reason)).Inc()
		slog.Warn("WebSocket connection rejected", "session_id", sessionID, "ip", ip, "reason", reason)
		return c.JSON(http.StatusTooManyRequests, errorBody("connection limit reached"))
	}
	defer s.limits.Release()

	// Watching an unseen session registers it, same lazy policy as join.
	s.app.EnsureSession(c.Request().Context(), sessionID)

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade WebSocket: %w", err)
	}

	if err := s.broadcaster.Register(sessionID, conn); err != nil {
		slog.Warn("Failed to register subscriber", "session_id", sessionID, "error", err)
		return nil
	}

	// Read pump: subscribers never send payloads, but reading drives pong
	// handling and detects disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.broadcaster.Unregister(sessionID, conn)
	return nil
}
