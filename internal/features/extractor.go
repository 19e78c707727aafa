package features

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/Yahya-Abdulselam/Nabrah/internal/acoustics"
	"github.com/Yahya-Abdulselam/Nabrah/internal/audio"
	"github.com/Yahya-Abdulselam/Nabrah/internal/vad"
)

// Analysis parameters shared with the quality and active-region stages.
const (
	PitchFloor   = 75.0
	PitchCeiling = 600.0
)

const (
	// recordings shorter than this are treated as conversational prompts
	conversationalLimit = 8.0

	jitterShortestPeriod = 0.0001
	jitterLongestPeriod  = 0.03
	jitterMaxPeriodRatio = 1.3

	jitterHardGate  = 5.0
	jitterSoftGate  = 3.0
	jitterHardScale = 0.6
	jitterSoftScale = 0.8
	jitterCap       = 3.5

	shimmerShortestPeriod = 0.0001
	shimmerLongestPeriod  = 0.05
	shimmerMaxPeriodRatio = 1.3
	shimmerMaxAmpRatio    = 1.6

	shimmerHardGate  = 15.0
	shimmerSoftGate  = 8.0
	shimmerHardScale = 0.4
	shimmerSoftScale = 0.7
	shimmerCap       = 8.0

	harmonicityStep       = 0.01
	harmonicitySilence    = 0.1
	harmonicityPeriods    = 1.0
	minPauseDuration      = 0.3
	respiratoryPauseLimit = 0.8

	baseSyllableRate     = 2.8
	pausedRateFactor     = 0.85
	pausedRateGate       = 20.0
	voiceBreakResolution = 100
	voiceBreakDivisor    = 10
)

// Feature names used in logs and failure hooks.
const (
	FeatureJitter      = "jitter"
	FeatureShimmer     = "shimmer"
	FeatureHNR         = "hnr"
	FeatureIntensity   = "intensity"
	FeaturePauses      = "pauses"
	FeatureSpeechRate  = "speech_rate"
	FeatureVoiceBreaks = "voice_breaks"
)

// Extractor computes a raw FeatureSet from an acoustic Provider.
type Extractor struct {
	provider  acoustics.Provider
	logger    *slog.Logger
	onFailure func(feature string)
}

// NewExtractor creates an extractor. onFailure, if not nil, is called with
// the feature name whenever a sub-extraction falls back to 0.
func NewExtractor(provider acoustics.Provider, logger *slog.Logger, onFailure func(feature string)) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		provider:  provider,
		logger:    logger,
		onFailure: onFailure,
	}
}

// PauseBreakdown holds pause ratios as percentages of the active region.
type PauseBreakdown struct {
	Total       float64
	Brief       float64
	Respiratory float64
}

// Extract measures sig. Each feature is computed independently: a failing
// measurement is logged and reported as 0 without aborting the others.
// Recordings shorter than MinDuration fail with *InsufficientAudioError.
func (e *Extractor) Extract(sig *audio.Signal, region vad.ActiveRegion) (FeatureSet, error) {
	total := sig.Duration()
	if total == 0 || total < MinDuration {
		return FeatureSet{}, &InsufficientAudioError{Duration: total}
	}

	var (
		pp    *acoustics.PointProcess
		ppErr error
		ppSet bool
	)
	pointProcess := func() (*acoustics.PointProcess, error) {
		if !ppSet {
			pp, ppErr = e.provider.PointProcess(sig, PitchFloor, PitchCeiling)
			ppSet = true
		}
		return pp, ppErr
	}

	fs := FeatureSet{Stage: StageRaw}

	fs.JitterLocal = e.measure(FeatureJitter, func() (float64, error) {
		p, err := pointProcess()
		if err != nil {
			return 0, err
		}
		j, err := p.JitterLocal(jitterShortestPeriod, jitterLongestPeriod, jitterMaxPeriodRatio)
		if err != nil {
			return 0, err
		}
		return e.gateJitter(j*100, total), nil
	})

	fs.ShimmerDDA = e.measure(FeatureShimmer, func() (float64, error) {
		p, err := pointProcess()
		if err != nil {
			return 0, err
		}
		s, err := p.ShimmerDDA(shimmerShortestPeriod, shimmerLongestPeriod, shimmerMaxPeriodRatio, shimmerMaxAmpRatio)
		if err != nil {
			return 0, err
		}
		return e.gateShimmer(s*100, total), nil
	})

	fs.HNR = e.measure(FeatureHNR, func() (float64, error) {
		h, err := e.provider.Harmonicity(sig, harmonicityStep, PitchFloor, harmonicitySilence, harmonicityPeriods)
		if err != nil {
			return 0, err
		}
		return h.Mean()
	})

	fs.MeanIntensity = e.measure(FeatureIntensity, func() (float64, error) {
		c, err := e.provider.Intensity(sig, PitchFloor)
		if err != nil {
			return 0, err
		}
		return c.MeanEnergy(), nil
	})

	p := e.pauses(sig, region, total)
	fs.PauseRatio = p.Total
	fs.BriefPauseRatio = p.Brief
	fs.RespiratoryPauseRatio = p.Respiratory

	fs.SpeechRate = e.measure(FeatureSpeechRate, func() (float64, error) {
		return SpeechRate(total, fs.PauseRatio), nil
	})

	fs.VoiceBreaks = int(e.measure(FeatureVoiceBreaks, func() (float64, error) {
		pitch, err := e.provider.Pitch(sig, PitchFloor, PitchCeiling)
		if err != nil {
			return 0, err
		}
		return float64(VoiceBreaks(pitch, total)), nil
	}))

	return fs.Rounded(), nil
}

// measure runs fn, turning errors, panics and non-finite results into 0.
func (e *Extractor) measure(feature string, fn func() (float64, error)) (v float64) {
	defer func() {
		if r := recover(); r != nil {
			e.fail(feature, fmt.Errorf("panic: %v", r))
			v = 0
		}
	}()

	var err error
	v, err = fn()
	if err != nil {
		e.fail(feature, err)
		return 0
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		e.fail(feature, fmt.Errorf("non-finite value %v", v))
		return 0
	}
	return v
}

func (e *Extractor) fail(feature string, err error) {
	e.logger.Warn("Feature extraction failed",
		slog.String("feature", feature),
		slog.String("error", err.Error()))
	if e.onFailure != nil {
		e.onFailure(feature)
	}
}

func (e *Extractor) gateJitter(pct, total float64) float64 {
	switch {
	case pct > jitterHardGate && total < conversationalLimit:
		e.logger.Warn("Implausible jitter, scaling for conversational speech",
			slog.Float64("raw", pct), slog.Float64("duration", total))
		return pct * jitterHardScale
	case pct > jitterHardGate:
		e.logger.Warn("Implausible jitter, capping",
			slog.Float64("raw", pct), slog.Float64("cap", jitterCap))
		return jitterCap
	case pct > jitterSoftGate && total < conversationalLimit:
		e.logger.Debug("Scaling moderate jitter for conversational speech", slog.Float64("raw", pct))
		return pct * jitterSoftScale
	}
	return pct
}

func (e *Extractor) gateShimmer(pct, total float64) float64 {
	switch {
	case pct > shimmerHardGate && total < conversationalLimit:
		e.logger.Warn("Implausible shimmer, scaling for conversational speech",
			slog.Float64("raw", pct), slog.Float64("duration", total))
		return pct * shimmerHardScale
	case pct > shimmerHardGate:
		e.logger.Warn("Implausible shimmer, capping",
			slog.Float64("raw", pct), slog.Float64("cap", shimmerCap))
		return shimmerCap
	case pct > shimmerSoftGate && total < conversationalLimit:
		e.logger.Debug("Scaling moderate shimmer for conversational speech", slog.Float64("raw", pct))
		return pct * shimmerSoftScale
	}
	return pct
}

// pauses is isolated as a unit: all three ratios fall back to 0 together.
func (e *Extractor) pauses(sig *audio.Signal, region vad.ActiveRegion, total float64) (out PauseBreakdown) {
	defer func() {
		if r := recover(); r != nil {
			e.fail(FeaturePauses, fmt.Errorf("panic: %v", r))
			out = PauseBreakdown{}
		}
	}()

	intervals, err := e.provider.Silences(sig, acoustics.DefaultSilenceParams())
	if err != nil {
		e.fail(FeaturePauses, err)
		return PauseBreakdown{}
	}

	start, end := activeBounds(region, total)
	denominator := region.ActiveDuration
	if denominator <= 0 {
		denominator = end - start
	}
	return PauseRatios(intervals, acoustics.DefaultSilenceParams().SilentLabel, start, end, denominator)
}

func activeBounds(region vad.ActiveRegion, total float64) (float64, float64) {
	start := 0.0
	if region.FirstVoicedTime > 0 {
		start = region.FirstVoicedTime
	}
	end := total
	if region.Voiced {
		end = region.LastVoicedTime
	}
	return start, end
}

// PauseRatios clips each silent interval to [start, end], drops residues
// shorter than 0.3 s and bins the rest into brief (< 0.8 s) and respiratory
// pauses. Ratios are percentages of denominator.
func PauseRatios(intervals []acoustics.Interval, silentLabel string, start, end, denominator float64) PauseBreakdown {
	var total, brief, respiratory float64
	for _, iv := range intervals {
		if iv.Label != silentLabel {
			continue
		}
		if iv.End <= start || iv.Start >= end {
			continue
		}
		d := math.Min(iv.End, end) - math.Max(iv.Start, start)
		if d < minPauseDuration {
			continue
		}
		if d < respiratoryPauseLimit {
			brief += d
		} else {
			respiratory += d
		}
		total += d
	}

	if denominator <= 0 {
		return PauseBreakdown{}
	}
	return PauseBreakdown{
		Total:       total / denominator * 100,
		Brief:       brief / denominator * 100,
		Respiratory: respiratory / denominator * 100,
	}
}

// SpeechRate estimates syllables per second of speech from the pause ratio.
// It is a coarse rate model, not syllable-nucleus detection.
func SpeechRate(total, pauseRatio float64) float64 {
	speech := total * (1 - pauseRatio/100)
	rate := baseSyllableRate
	if pauseRatio > pausedRateGate {
		rate *= pausedRateFactor
	}
	syllables := math.Max(0, speech*rate)
	if speech <= 0 {
		return 0
	}
	return syllables / speech
}

// VoiceBreaks samples the pitch contour every 10 ms and divides the number
// of unvoiced samples by 10. The result approximates a break count; it does
// not detect individual break events.
func VoiceBreaks(pitch *acoustics.PitchContour, total float64) int {
	unvoiced := 0
	n := int(total * voiceBreakResolution)
	for i := 1; i < n; i++ {
		t := float64(i) / voiceBreakResolution
		if t >= total {
			break
		}
		if pitch.ValueAt(t) == 0 {
			unvoiced++
		}
	}
	return unvoiced / voiceBreakDivisor
}
