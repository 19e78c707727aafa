package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Yahya-Abdulselam/Nabrah/internal/app"
)

// ShutdownTimeout bounds graceful shutdown of the HTTP server.
const ShutdownTimeout = 10 * time.Second

// Run serves the API for a until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, a *app.App) error {
	cfg := a.Config
	logger := a.Logger

	httpServer := NewHTTPServer(cfg.HTTP, DependenciesFrom(a), logger.With(slog.String("component", "http")))
	logger.Info("HTTP API server initialized",
		slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		slog.Any("allowed_origins", cfg.HTTP.AllowedOrigins),
	)

	if err := httpServer.Start(); err != nil {
		return err
	}

	logger.Info("Service started successfully, waiting for signals...")

	<-ctx.Done()
	logger.Info("Starting graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	stats, err := a.Queue.Stats(shutdownCtx)
	if err == nil {
		logger.Info("Final queue statistics",
			slog.Int("total_cases", stats.TotalCount),
			slog.Int("active_cases", stats.ActiveCount),
		)
	}

	logger.Info("Service stopped", slog.Duration("uptime", a.Uptime().Round(time.Second)))
	return nil
}
