package transcription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Yahya-Abdulselam/Nabrah/internal/audio"
	"github.com/Yahya-Abdulselam/Nabrah/internal/metrics"
)

// Backend names accepted by NewFactory.
const (
	BackendHTTP     = "http"
	BackendOpenAI   = "openai"
	BackendDisabled = "disabled"
)

// NewFactory returns a Factory building providers of the named backend.
func NewFactory(backend string, config Config, onRetry RetryHook) Factory {
	return func(model string) (Provider, error) {
		switch backend {
		case BackendHTTP:
			return NewHTTPClient(config, model, onRetry)
		case BackendOpenAI:
			return NewOpenAIClient(config, model)
		case BackendDisabled, "":
			return nil, fmt.Errorf("transcription is disabled")
		}
		return nil, fmt.Errorf("unknown transcription backend %q", backend)
	}
}

// Service validates transcription requests, picks the model for the
// language and summarizes the provider output.
type Service struct {
	cache   *ModelCache
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewService creates a transcription service over cache.
func NewService(cache *ModelCache, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		cache:   cache,
		logger:  logger,
		metrics: m,
	}
}

// Transcribe returns the summarized transcription of a WAV upload.
// Unsupported languages fail with ErrUnsupportedLanguage, an uninitializable
// model with ErrProviderUnavailable and a malformed upload with
// *audio.ValidationError.
func (s *Service) Transcribe(ctx context.Context, data []byte, language string) (*Result, error) {
	startTime := time.Now()

	if err := ValidateLanguage(language); err != nil {
		return nil, err
	}

	provider, err := s.cache.Get(ModelFor(language))
	if err != nil {
		return nil, err
	}

	if err := audio.ValidateWAV(data); err != nil {
		return nil, err
	}

	s.logger.Debug("Transcribing recording",
		slog.Int("bytes", len(data)),
		slog.String("language", language),
		slog.String("provider", provider.Name()),
	)

	s.metrics.RecordTranscriptionRequest()
	transcript, err := provider.Transcribe(ctx, data, language)
	if err != nil {
		s.metrics.RecordTranscriptionFailure(time.Since(startTime).Seconds())
		s.logger.Error("Transcription failed",
			slog.String("provider", provider.Name()),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("whisper transcription failed: %w", err)
	}

	elapsed := time.Since(startTime)
	s.metrics.RecordTranscriptionSuccess(elapsed.Seconds())

	result := Summarize(transcript, language)
	result.ProcessingTimeMS = round(float64(elapsed.Microseconds())/1000, 2)

	s.logger.Info("Transcription complete",
		slog.String("language", language),
		slog.Float64("confidence", result.ConfidenceScore),
		slog.Duration("processing_time", elapsed),
	)

	return &result, nil
}

// LoadedModels lists the models initialized so far.
func (s *Service) LoadedModels() []string {
	return s.cache.Loaded()
}
