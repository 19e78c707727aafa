package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the Nabrah service
type Metrics struct {
	// Analysis metrics
	AnalysesTotal    prometheus.Counter
	AnalysesFailed   *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
	AudioDuration    prometheus.Histogram
	SNR              prometheus.Histogram
	QualityLevels    *prometheus.CounterVec
	SpeechPercentage prometheus.Histogram
	FeatureFailures  *prometheus.CounterVec

	// Transcription metrics
	TranscriptionRequests  prometheus.Counter
	TranscriptionSuccesses prometheus.Counter
	TranscriptionFailures  prometheus.Counter
	TranscriptionDuration  prometheus.Histogram
	TranscriptionRetries   prometheus.Counter

	// Queue metrics
	CasesCreated   *prometheus.CounterVec
	StatusUpdates  *prometheus.CounterVec
	CasesDeleted   prometheus.Counter
	ActiveCases    prometheus.Gauge
	EventListeners prometheus.Gauge

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Analysis metrics
		AnalysesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "nabrah_analyses_total",
			Help: "Total number of recordings analysed",
		}),
		AnalysesFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nabrah_analyses_failed_total",
			Help: "Total number of analyses that returned an error",
		}, []string{"reason"}),
		AnalysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "nabrah_analysis_duration_seconds",
			Help:    "Time spent analysing a recording",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		}),
		AudioDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "nabrah_audio_duration_seconds",
			Help:    "Duration of analysed recordings",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to ~1 minute
		}),
		SNR: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "nabrah_snr_db",
			Help:    "Estimated signal-to-noise ratio of analysed recordings",
			Buckets: prometheus.LinearBuckets(0, 5, 11), // 0 to 50 dB
		}),
		QualityLevels: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nabrah_quality_level_total",
			Help: "Recordings by quality level",
		}, []string{"level"}),
		SpeechPercentage: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "nabrah_speech_percentage",
			Help:    "Voiced share of the active region",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		FeatureFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nabrah_feature_failures_total",
			Help: "Feature measurements that fell back to 0",
		}, []string{"feature"}),

		// Transcription metrics
		TranscriptionRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "nabrah_transcription_requests_total",
			Help: "Total number of transcription requests sent",
		}),
		TranscriptionSuccesses: factory.NewCounter(prometheus.CounterOpts{
			Name: "nabrah_transcription_successes_total",
			Help: "Total number of successful transcription requests",
		}),
		TranscriptionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "nabrah_transcription_failures_total",
			Help: "Total number of failed transcription requests",
		}),
		TranscriptionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "nabrah_transcription_duration_seconds",
			Help:    "Duration of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),
		TranscriptionRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "nabrah_transcription_retries_total",
			Help: "Total number of transcription request retries",
		}),

		// Queue metrics
		CasesCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nabrah_queue_cases_created_total",
			Help: "Cases added to the review queue by triage level",
		}, []string{"level"}),
		StatusUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nabrah_queue_status_updates_total",
			Help: "Case status transitions by target status",
		}, []string{"status"}),
		CasesDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "nabrah_queue_cases_deleted_total",
			Help: "Cases removed from the review queue",
		}),
		ActiveCases: factory.NewGauge(prometheus.GaugeOpts{
			Name: "nabrah_queue_active_cases",
			Help: "Cases currently pending or under review",
		}),
		EventListeners: factory.NewGauge(prometheus.GaugeOpts{
			Name: "nabrah_queue_event_listeners",
			Help: "Connected queue event subscribers",
		}),

		// HTTP API metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nabrah_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nabrah_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nabrah_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordAnalysis records a completed analysis
func (m *Metrics) RecordAnalysis(durationSeconds, audioSeconds, snr float64, level string, speechPercentage float64) {
	m.AnalysesTotal.Inc()
	m.AnalysisDuration.Observe(durationSeconds)
	m.AudioDuration.Observe(audioSeconds)
	m.SNR.Observe(snr)
	m.QualityLevels.WithLabelValues(level).Inc()
	m.SpeechPercentage.Observe(speechPercentage)
}

// RecordAnalysisFailure increments the failed analyses counter
func (m *Metrics) RecordAnalysisFailure(reason string) {
	m.AnalysesFailed.WithLabelValues(reason).Inc()
}

// RecordFeatureFailure increments the per-feature fallback counter
func (m *Metrics) RecordFeatureFailure(feature string) {
	m.FeatureFailures.WithLabelValues(feature).Inc()
}

// RecordTranscriptionRequest increments transcription requests counter
func (m *Metrics) RecordTranscriptionRequest() {
	m.TranscriptionRequests.Inc()
}

// RecordTranscriptionSuccess records a successful transcription
func (m *Metrics) RecordTranscriptionSuccess(durationSeconds float64) {
	m.TranscriptionSuccesses.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionFailure records a failed transcription
func (m *Metrics) RecordTranscriptionFailure(durationSeconds float64) {
	m.TranscriptionFailures.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionRetry increments the retry counter
func (m *Metrics) RecordTranscriptionRetry() {
	m.TranscriptionRetries.Inc()
}

// RecordCaseCreated increments the created cases counter
func (m *Metrics) RecordCaseCreated(level string) {
	m.CasesCreated.WithLabelValues(level).Inc()
}

// RecordStatusUpdate increments the status transitions counter
func (m *Metrics) RecordStatusUpdate(status string) {
	m.StatusUpdates.WithLabelValues(status).Inc()
}

// RecordCaseDeleted increments the deleted cases counter
func (m *Metrics) RecordCaseDeleted() {
	m.CasesDeleted.Inc()
}

// SetActiveCases sets the number of pending and reviewing cases
func (m *Metrics) SetActiveCases(count int) {
	m.ActiveCases.Set(float64(count))
}

// SetEventListeners sets the number of connected event subscribers
func (m *Metrics) SetEventListeners(count int) {
	m.EventListeners.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
