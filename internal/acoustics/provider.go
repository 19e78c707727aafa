package acoustics

import (
	"errors"
	"math"

	"github.com/Yahya-Abdulselam/Nabrah/internal/audio"
)

var (
	// ErrEmptySignal is returned when a primitive is requested for a signal with no samples.
	ErrEmptySignal = errors.New("signal has no samples")
	// ErrTooShort is returned when the signal cannot hold a single analysis window.
	ErrTooShort = errors.New("signal shorter than analysis window")
	// ErrNotEnoughPulses is returned when a perturbation measure has no valid period pairs.
	ErrNotEnoughPulses = errors.New("not enough glottal pulses")
	// ErrNoVoicedFrames is returned when harmonicity has no frame above the silence threshold.
	ErrNoVoicedFrames = errors.New("no frames above silence threshold")
)

// Provider computes the low-level acoustic measurements the analysis
// pipeline consumes.
type Provider interface {
	Intensity(sig *audio.Signal, minPitch float64) (*IntensityContour, error)
	Pitch(sig *audio.Signal, floor, ceiling float64) (*PitchContour, error)
	PointProcess(sig *audio.Signal, floor, ceiling float64) (*PointProcess, error)
	Harmonicity(sig *audio.Signal, step, minPitch, silenceThreshold, periodsPerWindow float64) (*Harmonicity, error)
	Silences(sig *audio.Signal, params SilenceParams) ([]Interval, error)
}

// Interval labels a span of the recording.
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Label string  `json:"label"`
}

// Duration returns End - Start.
func (i Interval) Duration() float64 {
	return i.End - i.Start
}

// SilenceParams controls silence/sounding segmentation.
type SilenceParams struct {
	MinPitch      float64 // Hz, sets the intensity window
	TimeStep      float64 // seconds, 0 picks 0.8/MinPitch
	Threshold     float64 // dB relative to the loudest frame, negative
	MinSilent     float64 // seconds
	MinSounding   float64 // seconds
	SilentLabel   string
	SoundingLabel string
}

// DefaultSilenceParams returns the pause-detection settings: -50 dB,
// 0.3 s minimum silence and 0.1 s minimum sounding.
func DefaultSilenceParams() SilenceParams {
	return SilenceParams{
		MinPitch:      100,
		Threshold:     -50,
		MinSilent:     0.3,
		MinSounding:   0.1,
		SilentLabel:   "silent",
		SoundingLabel: "sounding",
	}
}

// frameLayout centres n frames of the given window inside duration.
func frameLayout(duration, window, step float64) (int, float64) {
	if duration < window || step <= 0 {
		return 0, 0
	}
	n := int(math.Floor((duration-window)/step)) + 1
	t1 := (duration - float64(n-1)*step) / 2
	return n, t1
}

func peakAbs(x []float64) float64 {
	peak := 0.0
	for _, v := range x {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return peak
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
