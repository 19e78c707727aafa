package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Yahya-Abdulselam/Nabrah/internal/acoustics"
	"github.com/Yahya-Abdulselam/Nabrah/internal/audio"
	"github.com/Yahya-Abdulselam/Nabrah/internal/correction"
	"github.com/Yahya-Abdulselam/Nabrah/internal/features"
	"github.com/Yahya-Abdulselam/Nabrah/internal/metrics"
	"github.com/Yahya-Abdulselam/Nabrah/internal/quality"
	"github.com/Yahya-Abdulselam/Nabrah/internal/vad"
)

// Config contains pipeline configuration
type Config struct {
	// SampleRate is the analysis rate; recordings at another rate are
	// resampled first. 0 analyses at the recorded rate.
	SampleRate int
	// Correction is the default correction mode.
	Correction correction.Mode
}

// Pipeline analyses uploaded recordings. It holds no per-request state and
// is safe for concurrent use.
type Pipeline struct {
	provider acoustics.Provider
	config   Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Quality is the combined recording-quality summary returned to clients.
type Quality struct {
	SNRDB               float64       `json:"snr_db"`
	QualityLevel        quality.Level `json:"quality_level"`
	SpeechPercentage    float64       `json:"speech_percentage"`
	HasSufficientSpeech bool          `json:"has_sufficient_speech"`
	IsReliable          bool          `json:"is_reliable"`
	SNRRecommendation   string        `json:"snr_recommendation"`
	VADMessage          string        `json:"vad_message"`
}

// Result is the outcome of one analysis.
type Result struct {
	Features         features.FeatureSet `json:"features"`
	RawFeatures      features.FeatureSet `json:"-"`
	Quality          Quality             `json:"quality"`
	SNR              quality.Result      `json:"-"`
	Region           vad.ActiveRegion    `json:"-"`
	Correction       correction.Mode     `json:"correction"`
	DurationSeconds  float64             `json:"duration_s"`
	ProcessingTimeMS float64             `json:"processing_time_ms"`
}

// NewPipeline creates a pipeline over provider.
func NewPipeline(provider acoustics.Provider, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Pipeline {
	if cfg.Correction == "" {
		cfg.Correction = correction.ModeRaw
	}
	return &Pipeline{
		provider: provider,
		config:   cfg,
		logger:   logger,
		metrics:  m,
	}
}

// DefaultMode returns the correction mode used when a request names none.
func (p *Pipeline) DefaultMode() correction.Mode {
	return p.config.Correction
}

// Analyze validates and decodes a WAV upload and analyses it with the
// default correction mode.
func (p *Pipeline) Analyze(ctx context.Context, data []byte) (*Result, error) {
	return p.AnalyzeWithMode(ctx, data, p.config.Correction)
}

// AnalyzeWithMode is Analyze with an explicit correction mode.
func (p *Pipeline) AnalyzeWithMode(ctx context.Context, data []byte, mode correction.Mode) (*Result, error) {
	if err := audio.ValidateWAV(data); err != nil {
		p.metrics.RecordAnalysisFailure("invalid_audio")
		return nil, err
	}

	sig, err := audio.Decode(data)
	if err != nil {
		p.metrics.RecordAnalysisFailure("invalid_audio")
		return nil, err
	}
	defer sig.Release()

	return p.AnalyzeSignal(ctx, sig, mode)
}

// AnalyzeSignal runs the pipeline on an already decoded signal.
func (p *Pipeline) AnalyzeSignal(ctx context.Context, sig *audio.Signal, mode correction.Mode) (*Result, error) {
	startTime := time.Now()

	if p.config.SampleRate > 0 && sig.SampleRate != p.config.SampleRate {
		resampled, err := audio.Resample(sig, p.config.SampleRate)
		if err != nil {
			p.metrics.RecordAnalysisFailure("resample")
			return nil, fmt.Errorf("failed to resample audio: %w", err)
		}
		if resampled != sig {
			defer resampled.Release()
		}
		sig = resampled
	}

	total := sig.Duration()
	p.logger.Debug("Analysing recording",
		slog.Float64("duration", total),
		slog.Int("sample_rate", sig.SampleRate),
	)

	prim, err := p.computePrimitives(ctx, sig)
	if err != nil {
		p.metrics.RecordAnalysisFailure("cancelled")
		return nil, err
	}

	var snr quality.Result
	switch {
	case errors.Is(prim.intensityErr, acoustics.ErrEmptySignal), errors.Is(prim.intensityErr, acoustics.ErrTooShort):
		snr = quality.Estimate(nil)
	case prim.intensityErr != nil:
		p.logger.Warn("SNR estimation failed", slog.String("error", prim.intensityErr.Error()))
		snr = quality.Unknown()
	default:
		snr = quality.Estimate(prim.intensity.Valid())
	}

	var region vad.ActiveRegion
	switch {
	case total == 0:
		region = vad.DetectActiveRegion(nil, 0)
	case prim.pitchErr != nil:
		p.logger.Warn("Voice activity detection failed", slog.String("error", prim.pitchErr.Error()))
		region = vad.Failed(prim.pitchErr)
	default:
		region = vad.DetectActiveRegion(prim.pitch.Frames, total)
	}

	if err := ctx.Err(); err != nil {
		p.metrics.RecordAnalysisFailure("cancelled")
		return nil, err
	}

	extractor := features.NewExtractor(&primed{Provider: p.provider, prim: prim}, p.logger, p.metrics.RecordFeatureFailure)
	raw, err := extractor.Extract(sig, region)
	if err != nil {
		var insufficient *features.InsufficientAudioError
		if errors.As(err, &insufficient) {
			p.metrics.RecordAnalysisFailure("too_short")
		} else {
			p.metrics.RecordAnalysisFailure("features")
		}
		return nil, err
	}

	final := correction.Apply(mode, raw, snr.SNRDB)

	elapsed := time.Since(startTime)
	result := &Result{
		Features:    final,
		RawFeatures: raw,
		Quality: Quality{
			SNRDB:               snr.SNRDB,
			QualityLevel:        snr.Level,
			SpeechPercentage:    region.SpeechPercentage,
			HasSufficientSpeech: region.HasSufficientSpeech,
			IsReliable:          snr.IsReliable && region.HasSufficientSpeech,
			SNRRecommendation:   snr.Recommendation,
			VADMessage:          region.Message,
		},
		SNR:              snr,
		Region:           region,
		Correction:       mode,
		DurationSeconds:  features.SafeRound(total, 2),
		ProcessingTimeMS: features.SafeRound(float64(elapsed.Microseconds())/1000, 2),
	}

	p.metrics.RecordAnalysis(elapsed.Seconds(), total, snr.SNRDB, string(snr.Level), region.SpeechPercentage)
	p.logger.Info("Analysis complete",
		slog.Float64("duration", total),
		slog.Float64("snr_db", snr.SNRDB),
		slog.Float64("speech_percentage", region.SpeechPercentage),
		slog.String("correction", string(mode)),
		slog.Duration("processing_time", elapsed),
	)

	return result, nil
}

type primitives struct {
	intensity    *acoustics.IntensityContour
	intensityErr error
	pitch        *acoustics.PitchContour
	pitchErr     error
}

// computePrimitives runs the intensity and pitch analyses concurrently.
// Their own failures are recorded in the result; only cancellation is
// returned as an error.
func (p *Pipeline) computePrimitives(ctx context.Context, sig *audio.Signal) (*primitives, error) {
	prim := &primitives{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		prim.intensity, prim.intensityErr = safely(func() (*acoustics.IntensityContour, error) {
			return p.provider.Intensity(sig, features.PitchFloor)
		})
		return nil
	})

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		prim.pitch, prim.pitchErr = safely(func() (*acoustics.PitchContour, error) {
			return p.provider.Pitch(sig, features.PitchFloor, features.PitchCeiling)
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis cancelled: %w", err)
	}
	return prim, nil
}

func safely[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// primed serves the intensity and pitch contours already computed for this
// request and delegates every other primitive.
type primed struct {
	acoustics.Provider
	prim *primitives
}

func (p *primed) Intensity(sig *audio.Signal, minPitch float64) (*acoustics.IntensityContour, error) {
	if minPitch == features.PitchFloor {
		return p.prim.intensity, p.prim.intensityErr
	}
	return p.Provider.Intensity(sig, minPitch)
}

func (p *primed) Pitch(sig *audio.Signal, floor, ceiling float64) (*acoustics.PitchContour, error) {
	if floor == features.PitchFloor && ceiling == features.PitchCeiling {
		return p.prim.pitch, p.prim.pitchErr
	}
	return p.Provider.Pitch(sig, floor, ceiling)
}
