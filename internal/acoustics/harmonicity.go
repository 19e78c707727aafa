package acoustics

import (
	"math"

	"github.com/Yahya-Abdulselam/Nabrah/internal/audio"
)

// Harmonicity is a per-frame harmonics-to-noise ratio in dB. Frames below
// the silence threshold hold NaN and are ignored by Mean.
type Harmonicity struct {
	Start  float64
	Step   float64
	Values []float64
}

// Mean averages the analysed frames.
func (h *Harmonicity) Mean() (float64, error) {
	sum := 0.0
	n := 0
	for _, v := range h.Values {
		if isFinite(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, ErrNoVoicedFrames
	}
	return sum / float64(n), nil
}

// Harmonicity uses forward cross-correlation: each frame compares a window of
// periodsPerWindow/minPitch seconds with the same window shifted by every
// candidate period, and converts the best normalized correlation r into
// 10*log10(r/(1-r)).
func (a *Analyzer) Harmonicity(sig *audio.Signal, step, minPitch, silenceThreshold, periodsPerWindow float64) (*Harmonicity, error) {
	if sig.Len() == 0 {
		return nil, ErrEmptySignal
	}
	if minPitch <= 0 {
		minPitch = 75
	}
	if step <= 0 {
		step = 0.01
	}
	if periodsPerWindow <= 0 {
		periodsPerWindow = 1
	}

	sr := float64(sig.SampleRate)
	window := periodsPerWindow / minPitch
	span := window + 1/minPitch

	n, t1 := frameLayout(sig.Duration(), span, step)
	h := &Harmonicity{Start: t1, Step: step, Values: make([]float64, n)}
	if n == 0 {
		return nil, ErrTooShort
	}

	size := int(window * sr)
	maxLag := int(math.Ceil(sr / minPitch))
	minLag := int(math.Floor(sr / a.MaxPitch))
	if minLag < 1 {
		minLag = 1
	}

	x := sig.Samples
	globalPeak := peakAbs(x)
	for i := 0; i < n; i++ {
		h.Values[i] = math.NaN()

		start := int(math.Round((t1 + float64(i)*step - span/2) * sr))
		if start < 0 {
			start = 0
		}
		if start+size+maxLag > len(x) {
			continue
		}

		if peakAbs(x[start:start+size+maxLag]) < silenceThreshold*globalPeak {
			continue
		}

		best := 0.0
		for lag := minLag; lag <= maxLag; lag++ {
			var sxy, sxx, syy float64
			for k := 0; k < size; k++ {
				u := x[start+k]
				v := x[start+k+lag]
				sxy += u * v
				sxx += u * u
				syy += v * v
			}
			if sxx == 0 || syy == 0 {
				continue
			}
			if r := sxy / math.Sqrt(sxx*syy); r > best {
				best = r
			}
		}
		if best <= 0 {
			continue
		}

		r := math.Min(best, 1-1e-9)
		h.Values[i] = 10 * math.Log10(r/(1-r))
	}

	return h, nil
}
