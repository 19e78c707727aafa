// Package app assembles the service components from configuration. Both the
// daemon and the CLI build on it.
package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Yahya-Abdulselam/Nabrah/internal/acoustics"
	"github.com/Yahya-Abdulselam/Nabrah/internal/analysis"
	"github.com/Yahya-Abdulselam/Nabrah/internal/config"
	"github.com/Yahya-Abdulselam/Nabrah/internal/correction"
	"github.com/Yahya-Abdulselam/Nabrah/internal/metrics"
	"github.com/Yahya-Abdulselam/Nabrah/internal/queue"
	"github.com/Yahya-Abdulselam/Nabrah/internal/transcription"
)

const (
	ServiceName    = "nabrah-api"
	ServiceTitle   = "Nabrah Audio Analysis API"
	ServiceVersion = "2.0.0"
)

// App holds the wired components.
type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	Registry    *prometheus.Registry
	Metrics     *metrics.Metrics
	Pipeline    *analysis.Pipeline
	Transcriber *transcription.Service
	Queue       *queue.Manager
	Started     time.Time
}

// New builds every component. The caller must Close the returned App.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(registry)

	pipeline, err := NewPipeline(cfg, logger, m)
	if err != nil {
		return nil, err
	}

	transcriber := NewTranscriber(cfg.Transcription, logger, m)

	store, err := OpenStore(cfg.Queue, logger)
	if err != nil {
		return nil, err
	}
	broker := queue.NewBroker(m.SetEventListeners)
	manager := queue.NewManager(store, broker, logger.With(slog.String("component", "queue")), m)

	return &App{
		Config:      cfg,
		Logger:      logger,
		Registry:    registry,
		Metrics:     m,
		Pipeline:    pipeline,
		Transcriber: transcriber,
		Queue:       manager,
		Started:     time.Now(),
	}, nil
}

// NewPipeline builds the analysis pipeline.
func NewPipeline(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*analysis.Pipeline, error) {
	mode, err := correction.ParseMode(cfg.Analysis.Correction)
	if err != nil {
		return nil, fmt.Errorf("failed to configure analysis: %w", err)
	}
	return analysis.NewPipeline(acoustics.NewAnalyzer(), analysis.Config{
		SampleRate: cfg.Audio.SampleRate,
		Correction: mode,
	}, logger.With(slog.String("component", "analysis")), m), nil
}

// NewTranscriber builds the transcription service for the configured
// backend. Providers are created lazily on first use.
func NewTranscriber(cfg config.TranscriptionConfig, logger *slog.Logger, m *metrics.Metrics) *transcription.Service {
	logger = logger.With(slog.String("component", "transcription"))

	onRetry := func(attempt int, err error) {
		m.RecordTranscriptionRetry()
		logger.Warn("Retrying transcription request",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
	}

	factory := transcription.NewFactory(cfg.Backend, transcription.Config{
		Endpoint:      cfg.Endpoint,
		APIKey:        cfg.APIKey,
		Timeout:       cfg.GetTimeoutDuration(),
		MaxRetries:    cfg.MaxRetries,
		MaxConcurrent: cfg.MaxConcurrent,
	}, onRetry)

	return transcription.NewService(transcription.NewModelCache(factory, logger), logger, m)
}

// OpenStore opens the configured queue store.
func OpenStore(cfg config.QueueConfig, logger *slog.Logger) (queue.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		store, err := queue.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("Queue store opened", slog.String("backend", "sqlite"), slog.String("path", cfg.Path))
		return store, nil
	case "badger":
		store, err := queue.OpenBadger(queue.BadgerOptions{Dir: cfg.Path, Logger: logger})
		if err != nil {
			return nil, err
		}
		logger.Info("Queue store opened", slog.String("backend", "badger"), slog.String("path", cfg.Path))
		return store, nil
	}
	return nil, fmt.Errorf("unknown queue backend %q", cfg.Backend)
}

// Uptime reports how long the App has been running.
func (a *App) Uptime() time.Duration {
	return time.Since(a.Started)
}

// Close releases the queue store.
func (a *App) Close() error {
	return a.Queue.Close()
}
