package analysis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Yahya-Abdulselam/Nabrah/internal/acoustics"
	"github.com/Yahya-Abdulselam/Nabrah/internal/audio"
	"github.com/Yahya-Abdulselam/Nabrah/internal/correction"
	"github.com/Yahya-Abdulselam/Nabrah/internal/features"
	"github.com/Yahya-Abdulselam/Nabrah/internal/metrics"
	"github.com/Yahya-Abdulselam/Nabrah/internal/quality"
)

type fakeProvider struct {
	intensityValues []float64
	hnrValues       []float64
	pitchErr        error

	intensityCalls atomic.Int32
	pitchCalls     atomic.Int32
}

func (f *fakeProvider) Intensity(sig *audio.Signal, minPitch float64) (*acoustics.IntensityContour, error) {
	f.intensityCalls.Add(1)
	return &acoustics.IntensityContour{Step: 0.01, Values: f.intensityValues}, nil
}

func (f *fakeProvider) Pitch(sig *audio.Signal, floor, ceiling float64) (*acoustics.PitchContour, error) {
	f.pitchCalls.Add(1)
	if f.pitchErr != nil {
		return nil, f.pitchErr
	}
	frames := make([]float64, int(sig.Duration()*100))
	for i := range frames {
		frames[i] = 150
	}
	return &acoustics.PitchContour{Step: 0.01, Frames: frames}, nil
}

func (f *fakeProvider) PointProcess(sig *audio.Signal, floor, ceiling float64) (*acoustics.PointProcess, error) {
	return nil, acoustics.ErrNotEnoughPulses
}

func (f *fakeProvider) Harmonicity(sig *audio.Signal, step, minPitch, silenceThreshold, periodsPerWindow float64) (*acoustics.Harmonicity, error) {
	return &acoustics.Harmonicity{Step: step, Values: f.hnrValues}, nil
}

func (f *fakeProvider) Silences(sig *audio.Signal, params acoustics.SilenceParams) ([]acoustics.Interval, error) {
	return nil, nil
}

// 30 dB split between the quietest and loudest frames
var goodIntensity = []float64{40, 40, 40, 50, 50, 50, 50, 70, 70, 70}

// 12 dB
var acceptableIntensity = []float64{40, 40, 40, 45, 45, 45, 45, 52, 52, 52}

func newTestPipeline(p acoustics.Provider, cfg Config) (*Pipeline, *metrics.Metrics) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPipeline(p, cfg, logger, m), m
}

func signalOf(duration float64) *audio.Signal {
	return audio.NewSignal(make([]float64, int(duration*16000)), 16000)
}

func TestAnalyzeSignal(t *testing.T) {
	provider := &fakeProvider{intensityValues: goodIntensity, hnrValues: []float64{18, 20}}
	pipeline, m := newTestPipeline(provider, Config{})

	result, err := pipeline.AnalyzeSignal(context.Background(), signalOf(3), correction.ModeRaw)
	if err != nil {
		t.Fatalf("AnalyzeSignal failed: %v", err)
	}

	if result.Quality.SNRDB != 30 || result.Quality.QualityLevel != quality.LevelGood {
		t.Errorf("Expected good 30 dB quality, got %+v", result.Quality)
	}
	if result.Quality.SpeechPercentage != 100 || !result.Quality.HasSufficientSpeech {
		t.Errorf("Expected fully voiced recording, got %+v", result.Quality)
	}
	if !result.Quality.IsReliable {
		t.Error("Expected reliable result")
	}
	if result.Features.Stage != features.StageRaw || result.Correction != correction.ModeRaw {
		t.Errorf("Expected raw features, got stage %s mode %s", result.Features.Stage, result.Correction)
	}
	if result.Features.HNR != 19 {
		t.Errorf("Expected HNR 19, got %f", result.Features.HNR)
	}
	if result.DurationSeconds != 3 {
		t.Errorf("Expected duration 3, got %f", result.DurationSeconds)
	}

	if got := provider.intensityCalls.Load(); got != 1 {
		t.Errorf("Expected intensity computed once, got %d", got)
	}
	if got := provider.pitchCalls.Load(); got != 1 {
		t.Errorf("Expected pitch computed once, got %d", got)
	}
	if got := testutil.ToFloat64(m.AnalysesTotal); got != 1 {
		t.Errorf("Expected 1 analysis recorded, got %f", got)
	}
	if got := testutil.ToFloat64(m.FeatureFailures.WithLabelValues(features.FeatureJitter)); got != 1 {
		t.Errorf("Expected jitter failure recorded, got %f", got)
	}
}

func TestAnalyzeSignalCorrected(t *testing.T) {
	provider := &fakeProvider{intensityValues: acceptableIntensity, hnrValues: []float64{10}}
	pipeline, _ := newTestPipeline(provider, Config{Correction: correction.ModeCorrected})

	if pipeline.DefaultMode() != correction.ModeCorrected {
		t.Fatalf("Expected default mode corrected, got %s", pipeline.DefaultMode())
	}

	result, err := pipeline.AnalyzeSignal(context.Background(), signalOf(3), pipeline.DefaultMode())
	if err != nil {
		t.Fatalf("AnalyzeSignal failed: %v", err)
	}

	// 8 dB below reference: +2.4 dB HNR
	if result.RawFeatures.HNR != 10 {
		t.Errorf("Expected raw HNR 10, got %f", result.RawFeatures.HNR)
	}
	if math.Abs(result.Features.HNR-12.4) > 1e-9 {
		t.Errorf("Expected corrected HNR 12.4, got %f", result.Features.HNR)
	}
	if result.Features.Stage != features.StageCorrected {
		t.Errorf("Expected corrected stage, got %s", result.Features.Stage)
	}
}

func TestAnalyzeSignalTooShort(t *testing.T) {
	pipeline, m := newTestPipeline(&fakeProvider{intensityValues: goodIntensity}, Config{})

	_, err := pipeline.AnalyzeSignal(context.Background(), signalOf(1), correction.ModeRaw)

	var insufficient *features.InsufficientAudioError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Expected InsufficientAudioError, got %v", err)
	}
	if got := testutil.ToFloat64(m.AnalysesFailed.WithLabelValues("too_short")); got != 1 {
		t.Errorf("Expected too_short failure recorded, got %f", got)
	}
}

func TestAnalyzeSignalPitchFailure(t *testing.T) {
	provider := &fakeProvider{intensityValues: goodIntensity, pitchErr: errors.New("boom")}
	pipeline, _ := newTestPipeline(provider, Config{})

	result, err := pipeline.AnalyzeSignal(context.Background(), signalOf(3), correction.ModeRaw)
	if err != nil {
		t.Fatalf("Expected degraded result, got error %v", err)
	}

	if !strings.HasPrefix(result.Quality.VADMessage, "Voice activity detection failed") {
		t.Errorf("Unexpected VAD message %q", result.Quality.VADMessage)
	}
	if result.Quality.IsReliable {
		t.Error("Expected unreliable result without voice activity")
	}
	if result.Features.VoiceBreaks != 0 {
		t.Errorf("Expected voice breaks 0, got %d", result.Features.VoiceBreaks)
	}
}

func TestAnalyzeSignalCancelled(t *testing.T) {
	pipeline, _ := newTestPipeline(&fakeProvider{intensityValues: goodIntensity}, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := pipeline.AnalyzeSignal(ctx, signalOf(3), correction.ModeRaw); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestAnalyzeRejectsInvalidUpload(t *testing.T) {
	pipeline, _ := newTestPipeline(&fakeProvider{}, Config{})

	_, err := pipeline.Analyze(context.Background(), []byte("not a wav file at all"))

	var validation *audio.ValidationError
	if !errors.As(err, &validation) {
		t.Errorf("Expected ValidationError, got %v", err)
	}
}

func TestAnalyzeSyntheticVoice(t *testing.T) {
	const sampleRate = 16000
	samples := make([]int16, 0, sampleRate*3)
	for i := 0; i < sampleRate/2; i++ {
		samples = append(samples, 0)
	}
	for i := 0; i < sampleRate*5/2; i++ {
		tm := float64(i) / sampleRate
		v := 0.5*math.Sin(2*math.Pi*150*tm) + 0.2*math.Sin(2*math.Pi*300*tm)
		samples = append(samples, int16(v*32767*0.8))
	}

	data, err := audio.EncodeWAV(samples, sampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	pipeline, _ := newTestPipeline(acoustics.NewAnalyzer(), Config{})
	result, err := pipeline.Analyze(context.Background(), data)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if result.DurationSeconds != 3 {
		t.Errorf("Expected duration 3, got %f", result.DurationSeconds)
	}
	if result.Quality.SpeechPercentage <= 0 {
		t.Errorf("Expected voiced speech, got %+v", result.Quality)
	}
	if result.Region.FirstVoicedTime < 0.3 {
		t.Errorf("Expected voicing to start after the leading silence, got %f", result.Region.FirstVoicedTime)
	}

	values := []float64{
		result.Features.JitterLocal, result.Features.ShimmerDDA, result.Features.HNR,
		result.Features.SpeechRate, result.Features.PauseRatio, result.Features.MeanIntensity,
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("Expected finite features, got %+v", result.Features)
			break
		}
	}
}
