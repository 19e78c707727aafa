package acoustics

import (
	"errors"
	"math"
	"testing"

	"github.com/Yahya-Abdulselam/Nabrah/internal/audio"
)

const testRate = 16000

func tone(duration, frequency, amplitude float64) []float64 {
	n := int(duration * testRate)
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*frequency*float64(i)/testRate)
	}
	return out
}

func silence(duration float64) []float64 {
	return make([]float64, int(duration*testRate))
}

func concat(parts ...[]float64) *audio.Signal {
	var all []float64
	for _, p := range parts {
		all = append(all, p...)
	}
	return audio.NewSignal(all, testRate)
}

func TestIntensityOfSine(t *testing.T) {
	a := NewAnalyzer()
	sig := concat(tone(1, 200, 0.5))

	contour, err := a.Intensity(sig, 75)
	if err != nil {
		t.Fatalf("Intensity failed: %v", err)
	}

	if contour.Frames() < 10 {
		t.Fatalf("Expected at least 10 frames, got %d", contour.Frames())
	}

	// 0.5 amplitude sine has mean power 0.125
	expected := 10 * math.Log10(0.125/referencePower)
	for i, v := range contour.Values {
		if math.Abs(v-expected) > 1 {
			t.Fatalf("Frame %d: expected ~%.2f dB, got %.2f dB", i, expected, v)
		}
	}

	if got := contour.MeanEnergy(); math.Abs(got-expected) > 1 {
		t.Errorf("Expected mean energy ~%.2f dB, got %.2f dB", expected, got)
	}

	if len(contour.Valid()) != contour.Frames() {
		t.Errorf("Expected all %d frames valid, got %d", contour.Frames(), len(contour.Valid()))
	}
}

func TestIntensityOfSilence(t *testing.T) {
	a := NewAnalyzer()
	contour, err := a.Intensity(concat(silence(1)), 75)
	if err != nil {
		t.Fatalf("Intensity failed: %v", err)
	}

	if len(contour.Valid()) != 0 {
		t.Errorf("Expected no valid frames for digital silence, got %d", len(contour.Valid()))
	}

	if !math.IsNaN(contour.Max()) {
		t.Errorf("Expected NaN max for silence, got %f", contour.Max())
	}
}

func TestIntensityEmptySignal(t *testing.T) {
	a := NewAnalyzer()
	if _, err := a.Intensity(audio.NewSignal(nil, testRate), 75); !errors.Is(err, ErrEmptySignal) {
		t.Errorf("Expected ErrEmptySignal, got %v", err)
	}
}

func TestPitchOfSine(t *testing.T) {
	a := NewAnalyzer()
	pitch, err := a.Pitch(concat(tone(1, 200, 0.5)), 75, 600)
	if err != nil {
		t.Fatalf("Pitch failed: %v", err)
	}

	voiced := pitch.VoicedCount()
	if voiced < len(pitch.Frames)*8/10 {
		t.Fatalf("Expected most frames voiced, got %d of %d", voiced, len(pitch.Frames))
	}

	for i, f := range pitch.Frames {
		if f > 0 && math.Abs(f-200) > 2 {
			t.Errorf("Frame %d: expected ~200 Hz, got %.2f Hz", i, f)
		}
	}
}

func TestPitchOfSilence(t *testing.T) {
	a := NewAnalyzer()
	pitch, err := a.Pitch(concat(silence(1)), 75, 600)
	if err != nil {
		t.Fatalf("Pitch failed: %v", err)
	}
	if pitch.VoicedCount() != 0 {
		t.Errorf("Expected no voiced frames, got %d", pitch.VoicedCount())
	}
}

func TestPitchValueAt(t *testing.T) {
	p := &PitchContour{Start: 0.01, Step: 0.01, Frames: []float64{0, 100, 200, 0}}

	tests := []struct {
		name     string
		time     float64
		expected float64
	}{
		{name: "between voiced frames", time: 0.025, expected: 150},
		{name: "on voiced frame", time: 0.02, expected: 100},
		{name: "on unvoiced frame", time: 0.01, expected: 0},
		{name: "nearest unvoiced", time: 0.039, expected: 0},
		{name: "before range", time: 0.0, expected: 0},
		{name: "after range", time: 5, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.ValueAt(tt.time); math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Expected %f, got %f", tt.expected, got)
			}
		})
	}
}

func TestJitterLocal(t *testing.T) {
	pp := &PointProcess{
		Times:      []float64{0, 0.005, 0.0101, 0.0151, 0.0202},
		Amplitudes: []float64{1, 1, 1, 1, 1},
	}

	got, err := pp.JitterLocal(0.0001, 0.03, 1.3)
	if err != nil {
		t.Fatalf("JitterLocal failed: %v", err)
	}

	expected := 0.0001 / 0.00505
	if math.Abs(got-expected) > 1e-6 {
		t.Errorf("Expected jitter %f, got %f", expected, got)
	}
}

func TestJitterLocalExcludesLongPeriods(t *testing.T) {
	pp := &PointProcess{
		Times:      []float64{0, 0.005, 0.010, 0.060, 0.065},
		Amplitudes: []float64{1, 1, 1, 1, 1},
	}

	got, err := pp.JitterLocal(0.0001, 0.03, 1.3)
	if err != nil {
		t.Fatalf("JitterLocal failed: %v", err)
	}
	if got > 1e-9 {
		t.Errorf("Expected zero jitter once the 50 ms gap is excluded, got %f", got)
	}
}

func TestJitterLocalNotEnoughPulses(t *testing.T) {
	pp := &PointProcess{Times: []float64{0, 0.005}, Amplitudes: []float64{1, 1}}
	if _, err := pp.JitterLocal(0.0001, 0.03, 1.3); !errors.Is(err, ErrNotEnoughPulses) {
		t.Errorf("Expected ErrNotEnoughPulses, got %v", err)
	}
}

func TestShimmerDDA(t *testing.T) {
	pp := &PointProcess{
		Times:      []float64{0, 0.005, 0.010, 0.015, 0.020},
		Amplitudes: []float64{1, 1.1, 1, 1.1, 1},
	}

	got, err := pp.ShimmerDDA(0.0001, 0.05, 1.3, 1.6)
	if err != nil {
		t.Fatalf("ShimmerDDA failed: %v", err)
	}

	expected := 0.2 / (3.2 / 3)
	if math.Abs(got-expected) > 1e-9 {
		t.Errorf("Expected shimmer %f, got %f", expected, got)
	}
}

func TestPointProcessOfSine(t *testing.T) {
	a := NewAnalyzer()
	pp, err := a.PointProcess(concat(tone(1, 200, 0.5)), 75, 600)
	if err != nil {
		t.Fatalf("PointProcess failed: %v", err)
	}

	if pp.Len() < 150 {
		t.Fatalf("Expected roughly 200 pulses, got %d", pp.Len())
	}

	jitter, err := pp.JitterLocal(0.0001, 0.03, 1.3)
	if err != nil {
		t.Fatalf("JitterLocal failed: %v", err)
	}
	if jitter > 0.005 {
		t.Errorf("Expected near-zero jitter for a pure tone, got %f", jitter)
	}

	shimmer, err := pp.ShimmerDDA(0.0001, 0.05, 1.3, 1.6)
	if err != nil {
		t.Fatalf("ShimmerDDA failed: %v", err)
	}
	if shimmer > 0.01 {
		t.Errorf("Expected near-zero shimmer for a pure tone, got %f", shimmer)
	}
}

func TestHarmonicityOfSine(t *testing.T) {
	a := NewAnalyzer()
	h, err := a.Harmonicity(concat(tone(1, 200, 0.5)), 0.01, 75, 0.1, 1.0)
	if err != nil {
		t.Fatalf("Harmonicity failed: %v", err)
	}

	mean, err := h.Mean()
	if err != nil {
		t.Fatalf("Mean failed: %v", err)
	}
	if mean < 20 {
		t.Errorf("Expected HNR above 20 dB for a pure tone, got %.2f", mean)
	}
}

func TestHarmonicityOfSilence(t *testing.T) {
	a := NewAnalyzer()
	h, err := a.Harmonicity(concat(silence(1)), 0.01, 75, 0.1, 1.0)
	if err != nil {
		t.Fatalf("Harmonicity failed: %v", err)
	}
	if _, err := h.Mean(); !errors.Is(err, ErrNoVoicedFrames) {
		t.Errorf("Expected ErrNoVoicedFrames, got %v", err)
	}
}

func TestSilences(t *testing.T) {
	a := NewAnalyzer()
	sig := concat(tone(1, 200, 0.5), silence(1), tone(1, 200, 0.5))

	intervals, err := a.Silences(sig, DefaultSilenceParams())
	if err != nil {
		t.Fatalf("Silences failed: %v", err)
	}

	if len(intervals) != 3 {
		t.Fatalf("Expected 3 intervals, got %d: %+v", len(intervals), intervals)
	}

	if intervals[0].Start != 0 || intervals[2].End != sig.Duration() {
		t.Errorf("Expected intervals to span the whole signal, got %+v", intervals)
	}

	gap := intervals[1]
	if gap.Label != "silent" {
		t.Fatalf("Expected middle interval silent, got %q", gap.Label)
	}
	if math.Abs(gap.Start-1) > 0.05 || math.Abs(gap.End-2) > 0.05 {
		t.Errorf("Expected silence near [1, 2], got [%.3f, %.3f]", gap.Start, gap.End)
	}
}

func TestSilencesAllQuiet(t *testing.T) {
	a := NewAnalyzer()
	intervals, err := a.Silences(concat(silence(1)), DefaultSilenceParams())
	if err != nil {
		t.Fatalf("Silences failed: %v", err)
	}
	if len(intervals) != 1 || intervals[0].Label != "silent" {
		t.Errorf("Expected a single silent interval, got %+v", intervals)
	}
}

func TestRelabelShort(t *testing.T) {
	runs := []Interval{
		{Start: 0, End: 1, Label: "sounding"},
		{Start: 1, End: 1.2, Label: "silent"},
		{Start: 1.2, End: 2, Label: "sounding"},
		{Start: 2, End: 3, Label: "silent"},
	}

	got := relabelShort(runs, "silent", "sounding", 0.3)
	if len(got) != 2 {
		t.Fatalf("Expected 2 intervals, got %d: %+v", len(got), got)
	}
	if got[0].End != 2 || got[0].Label != "sounding" {
		t.Errorf("Expected merged sounding interval ending at 2, got %+v", got[0])
	}
	if got[1].Label != "silent" {
		t.Errorf("Expected trailing silent interval, got %+v", got[1])
	}
}
