package audio

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Signal is a mono PCM recording normalized to [-1, 1].
// A Signal belongs to the request that decoded it and must not be mutated.
type Signal struct {
	Samples    []float64
	SampleRate int
}

// NewSignal wraps samples recorded at sampleRate.
func NewSignal(samples []float64, sampleRate int) *Signal {
	return &Signal{Samples: samples, SampleRate: sampleRate}
}

// Duration returns the total length in seconds.
func (s *Signal) Duration() float64 {
	if s == nil || s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// Len returns the number of samples.
func (s *Signal) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Samples)
}

// Release drops the sample buffer so it can be collected even if the
// handle itself is still referenced by an abandoned request.
func (s *Signal) Release() {
	if s == nil {
		return
	}
	s.Samples = nil
}

// Resample converts sig to the target rate. The output keeps the input
// duration exactly: filter delay is compensated by padding or trimming
// the tail so downstream duration gates see the recorded length.
func Resample(sig *Signal, rate int) (*Signal, error) {
	if rate <= 0 || sig.SampleRate == rate || len(sig.Samples) == 0 {
		return sig, nil
	}

	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(sig.SampleRate),
		OutputRate: float64(rate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	out, err := r.Process(sig.Samples)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}

	expected := int(float64(len(sig.Samples)) * float64(rate) / float64(sig.SampleRate))
	if len(out) > expected {
		out = out[:expected]
	}
	for len(out) < expected {
		out = append(out, 0)
	}

	return NewSignal(out, rate), nil
}
