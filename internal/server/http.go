package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Yahya-Abdulselam/Nabrah/internal/analysis"
	"github.com/Yahya-Abdulselam/Nabrah/internal/app"
	"github.com/Yahya-Abdulselam/Nabrah/internal/config"
	"github.com/Yahya-Abdulselam/Nabrah/internal/correction"
	"github.com/Yahya-Abdulselam/Nabrah/internal/metrics"
	"github.com/Yahya-Abdulselam/Nabrah/internal/queue"
	"github.com/Yahya-Abdulselam/Nabrah/internal/transcription"
)

// Analyzer runs the acoustic pipeline on an upload.
type Analyzer interface {
	AnalyzeWithMode(ctx context.Context, data []byte, mode correction.Mode) (*analysis.Result, error)
	DefaultMode() correction.Mode
}

// Transcriber transcribes an upload.
type Transcriber interface {
	Transcribe(ctx context.Context, data []byte, language string) (*transcription.Result, error)
	LoadedModels() []string
}

// Dependencies are the components the API serves.
type Dependencies struct {
	Analyzer        Analyzer
	Transcriber     Transcriber
	Queue           *queue.Manager
	Metrics         *metrics.Metrics
	Gatherer        prometheus.Gatherer
	QueueBackend    string
	EventBuffer     int
	AnalysisTimeout time.Duration
}

// DependenciesFrom exposes the components of a wired App.
func DependenciesFrom(a *app.App) Dependencies {
	return Dependencies{
		Analyzer:        a.Pipeline,
		Transcriber:     a.Transcriber,
		Queue:           a.Queue,
		Metrics:         a.Metrics,
		Gatherer:        a.Registry,
		QueueBackend:    a.Config.Queue.Backend,
		EventBuffer:     a.Config.Queue.EventBuffer,
		AnalysisTimeout: a.Config.Analysis.GetTimeoutDuration(),
	}
}

// HTTPServer provides the analysis, transcription and review queue API
type HTTPServer struct {
	server   *http.Server
	handler  http.Handler
	logger   *slog.Logger
	deps     Dependencies
	config   config.HTTPConfig
	upgrader websocket.Upgrader
	origins  map[string]bool

	// Server state
	startTime time.Time
	done      chan struct{}
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(cfg config.HTTPConfig, deps Dependencies, logger *slog.Logger) *HTTPServer {
	if deps.EventBuffer <= 0 {
		deps.EventBuffer = 16
	}
	if deps.AnalysisTimeout <= 0 {
		deps.AnalysisTimeout = 30 * time.Second
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	h := &HTTPServer{
		logger:    logger,
		deps:      deps,
		config:    cfg,
		origins:   make(map[string]bool, len(cfg.AllowedOrigins)),
		startTime: time.Now(),
		done:      make(chan struct{}),
	}
	for _, origin := range cfg.AllowedOrigins {
		h.origins[origin] = true
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}

	// Create HTTP server with routes
	mux := http.NewServeMux()
	h.setupRoutes(mux)
	h.handler = h.withCORS(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      h.handler,
		ReadTimeout:  cfg.GetReadTimeoutDuration(),
		WriteTimeout: cfg.GetWriteTimeoutDuration(),
		IdleTimeout:  cfg.GetIdleTimeoutDuration(),
	}

	return h
}

// Handler returns the routed handler, CORS included.
func (h *HTTPServer) Handler() http.Handler {
	return h.handler
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Service info and health
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))

	// Analysis endpoints
	mux.HandleFunc("/analyze", h.withMetrics("/analyze", h.handleAnalyze))
	mux.HandleFunc("/analyze/whisper", h.withMetrics("/analyze/whisper", h.handleWhisper))

	// Review queue endpoints
	mux.HandleFunc("/queue", h.withMetrics("/queue", h.handleQueue))
	mux.HandleFunc("/queue/{id}", h.withMetrics("/queue/{id}", h.handlePatient))
	mux.HandleFunc("/queue/stats/summary", h.withMetrics("/queue/stats/summary", h.handleQueueStats))
	mux.HandleFunc("/queue/export/csv", h.withMetrics("/queue/export/csv", h.handleExportCSV))
	mux.HandleFunc("/queue/events", h.withMetrics("/queue/events", h.handleEvents))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.HandlerFor(h.deps.Gatherer, promhttp.HandlerOpts{}))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Create a response writer wrapper to capture status code
		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.deps.Metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.deps.Metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrade take over the connection.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	ln, err := net.Listen("tcp", h.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.server.Addr, err)
	}

	go func() {
		if err := h.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server and closes event streams
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	close(h.done)
	return h.server.Shutdown(ctx)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "online",
		"service": app.ServiceTitle,
		"version": app.ServiceVersion,
		"features": []string{
			"Native Go acoustic analysis",
			"Frontend WAV encoding",
			"SNR bias correction",
			"Persistent review queue",
		},
		"supported_format": "WAV (16kHz mono, encoded in browser)",
		"endpoints": map[string]interface{}{
			"GET /":                    "API information",
			"GET /health":              "Service health check",
			"POST /analyze":            "Acoustic feature analysis (multipart 'file')",
			"POST /analyze/whisper":    "Transcription with confidence (?language=en|ar)",
			"GET /queue":               "Review queue (?status=)",
			"POST /queue":              "Add a triaged patient",
			"GET /queue/{id}":          "Patient detail",
			"PATCH /queue/{id}":        "Update patient status",
			"DELETE /queue/{id}":       "Remove patient",
			"GET /queue/stats/summary": "Queue statistics",
			"GET /queue/export/csv":    "Queue export",
			"GET /queue/events":        "Live queue events (WebSocket)",
			"GET /metrics":             "Prometheus metrics",
		},
	})
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	models := h.deps.Transcriber.LoadedModels()
	if models == nil {
		models = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":               "ok",
		"service":              app.ServiceName,
		"version":              app.ServiceVersion,
		"uptime":               time.Since(h.startTime).Round(time.Second).String(),
		"timestamp":            time.Now().UTC(),
		"queue_backend":        h.deps.QueueBackend,
		"transcription_models": models,
	})
}

// writeJSON encodes v with the given status code
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a {"detail": ...} error body
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]interface{}{"detail": detail})
}

// readBody reads a request body bounded by the upload limit
func (h *HTTPServer) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, h.config.GetMaxUploadBytes()))
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
