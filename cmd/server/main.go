package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/wmtorode/poker-planning/internal/app"
	"github.com/wmtorode/poker-planning/internal/broadcast"
	"github.com/wmtorode/poker-planning/internal/broker"
	"github.com/wmtorode/poker-planning/internal/config"
	"github.com/wmtorode/poker-planning/internal/domain"
	"github.com/wmtorode/poker-planning/internal/logging"
	"github.com/wmtorode/poker-planning/internal/server"
	"github.com/wmtorode/poker-planning/internal/store"
)

const shutdownTimeout = 10 * time.Second

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func runGracefulShutdown(srv *server.Server, broadcaster *broadcast.Broadcaster) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		broadcaster.Stop()
		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	deck, err := domain.ParseDeck(cfg.Deck)
	if err != nil {
		slog.Error("Invalid deck configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("Deck configured", "cards", deck)

	sessions := store.New()
	events := broker.New(cfg.SubscriberBuffer)
	svc := app.NewService(sessions, events, deck)
	broadcaster := broadcast.NewBroadcaster(svc, clock, cfg.MaxClientsPerSession)

	srv := server.NewServer(cfg, svc, broadcaster)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	<-runGracefulShutdown(srv, broadcaster)
	slog.Info("Shutdown complete")
}
