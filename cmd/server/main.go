package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Yahya-Abdulselam/Nabrah/internal/app"
	"github.com/Yahya-Abdulselam/Nabrah/internal/config"
	"github.com/Yahya-Abdulselam/Nabrah/internal/server"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger, closer := app.NewLogger(cfg.Logging)
	defer closer.Close()

	logger.Info("Service starting",
		slog.String("service", app.ServiceName),
		slog.String("version", app.ServiceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.Int("http_port", cfg.HTTP.Port),
		slog.String("http_address", cfg.HTTP.Address),
		slog.Int("max_upload_mb", cfg.HTTP.MaxUploadMB),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.String("correction", cfg.Analysis.Correction),
		slog.String("transcription_backend", cfg.Transcription.Backend),
		slog.String("transcription_endpoint", cfg.Transcription.Endpoint),
		slog.String("queue_backend", cfg.Queue.Backend),
		slog.String("queue_path", cfg.Queue.Path),
		slog.String("log_level", cfg.Logging.Level),
	)

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize service", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer a.Close()

	// Cancel on SIGINT/SIGTERM for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, a); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		a.Close()
		os.Exit(1)
	}
}
