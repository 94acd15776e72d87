// Package server is the HTTP/WebSocket transport boundary. It binds requests,
// maps domain errors to status codes and hands subscriptions to the broadcast
// adapter; all session semantics live below it.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/wmtorode/poker-planning/internal/app"
	"github.com/wmtorode/poker-planning/internal/broadcast"
	"github.com/wmtorode/poker-planning/internal/config"
)

type Server struct {
	echo        *echo.Echo
	config      *config.Config
	app         *app.Service
	broadcaster *broadcast.Broadcaster
	limits      *ConnectionLimits
	startTime   time.Time
}

func NewServer(cfg *config.Config, svc *app.Service, broadcaster *broadcast.Broadcaster) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	srv := &Server{
		echo:        e,
		config:      cfg,
		app:         svc,
		broadcaster: broadcaster,
		limits:      NewConnectionLimits(cfg.MaxConnections, cfg.ConnectionRate, cfg.ConnectionBurst),
		startTime:   time.Now(),
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
