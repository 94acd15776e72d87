package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Session operations (RPC-style, addressed by caller-supplied session id)
	s.echo.GET("/api/deck", s.handleGetDeck)
	s.echo.GET("/api/sessions/:id", s.handleGetSession)
	s.echo.POST("/api/sessions/:id/join", s.handleJoin)
	s.echo.POST("/api/sessions/:id/vote", s.handleVote)
	s.echo.POST("/api/sessions/:id/reveal", s.handleReveal)
	s.echo.POST("/api/sessions/:id/reset", s.handleReset)
	s.echo.POST("/api/sessions/:id/topic", s.handleSetTopic)
	s.echo.POST("/api/sessions/:id/leave", s.handleLeave)

	// Live subscription stream
	s.echo.GET("/ws/sessions/:id", s.handleWatch)
}
