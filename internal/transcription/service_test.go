package transcription

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Yahya-Abdulselam/Nabrah/internal/audio"
	"github.com/Yahya-Abdulselam/Nabrah/internal/metrics"
)

func testWAV(t *testing.T) []byte {
	t.Helper()
	data, err := audio.EncodeWAV(make([]int16, 8000), 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	return data
}

func newTestService(factory Factory) (*Service, *metrics.Metrics) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	return NewService(NewModelCache(factory, discardLogger()), discardLogger(), m), m
}

func TestServiceTranscribe(t *testing.T) {
	stub := &stubProvider{
		name: "stub",
		transcript: &Transcript{
			Language: "ar",
			Duration: 2.5,
			Segments: []Segment{{Text: " مرحبا", AvgLogprob: -1.0, NoSpeechProb: 0.1}},
		},
	}

	var requested []string
	service, m := newTestService(func(model string) (Provider, error) {
		requested = append(requested, model)
		return stub, nil
	})

	result, err := service.Transcribe(context.Background(), testWAV(t), "ar")
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	if result.Transcription != "مرحبا" {
		t.Errorf("Unexpected transcription %q", result.Transcription)
	}
	if result.ConfidenceScore != 50 {
		t.Errorf("Expected confidence 50, got %f", result.ConfidenceScore)
	}
	if len(requested) != 1 || requested[0] != "base" {
		t.Errorf("Expected the multilingual model for ar, got %v", requested)
	}
	if got := testutil.ToFloat64(m.TranscriptionSuccesses); got != 1 {
		t.Errorf("Expected 1 success recorded, got %f", got)
	}
}

func TestServiceErrors(t *testing.T) {
	failing := &stubProvider{name: "failing", err: errors.New("decoder crashed")}

	tests := []struct {
		name     string
		factory  Factory
		data     func(t *testing.T) []byte
		language string
		check    func(error) bool
	}{
		{
			name:     "unsupported language",
			factory:  func(string) (Provider, error) { return failing, nil },
			data:     testWAV,
			language: "fr",
			check:    func(err error) bool { return errors.Is(err, ErrUnsupportedLanguage) },
		},
		{
			name:     "provider unavailable",
			factory:  NewFactory(BackendDisabled, Config{}, nil),
			data:     testWAV,
			language: "en",
			check:    func(err error) bool { return errors.Is(err, ErrProviderUnavailable) },
		},
		{
			name:     "invalid upload",
			factory:  func(string) (Provider, error) { return failing, nil },
			data:     func(*testing.T) []byte { return []byte("nope") },
			language: "en",
			check: func(err error) bool {
				var v *audio.ValidationError
				return errors.As(err, &v)
			},
		},
		{
			name:     "provider failure",
			factory:  func(string) (Provider, error) { return failing, nil },
			data:     testWAV,
			language: "en",
			check: func(err error) bool {
				return err != nil && !errors.Is(err, ErrProviderUnavailable)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _ := newTestService(tt.factory)
			_, err := service.Transcribe(context.Background(), tt.data(t), tt.language)
			if !tt.check(err) {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestNewFactory(t *testing.T) {
	cfg := Config{Endpoint: "http://localhost:9000/asr", APIKey: "k"}

	p, err := NewFactory(BackendHTTP, cfg, nil)("base.en")
	if err != nil || p.Name() != "http:base.en" {
		t.Errorf("Expected http provider, got %v (%v)", p, err)
	}

	p, err = NewFactory(BackendOpenAI, cfg, nil)("whisper-1")
	if err != nil || p.Name() != "openai:whisper-1" {
		t.Errorf("Expected openai provider, got %v (%v)", p, err)
	}

	if _, err := NewFactory("carrier-pigeon", cfg, nil)("base"); err == nil {
		t.Error("Expected error for unknown backend")
	}
}
