package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

func (s *Server) handleLiveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).Seconds(),
	})
}

// handleReadiness has no external dependencies to probe; state is in-process.
// It reports current load alongside readiness.
func (s *Server) handleReadiness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":      "ready",
		"connections": s.limits.Current(),
	})
}
