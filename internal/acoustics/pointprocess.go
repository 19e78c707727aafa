package acoustics

import (
	"math"

	"github.com/Yahya-Abdulselam/Nabrah/internal/audio"
)

// PointProcess is the sequence of glottal pulses found inside voiced
// stretches, with the peak amplitude at each pulse.
type PointProcess struct {
	Times      []float64
	Amplitudes []float64
}

// Len returns the number of pulses.
func (pp *PointProcess) Len() int {
	return len(pp.Times)
}

// PointProcess places one pulse per period inside every voiced stretch of
// the pitch contour, snapping each pulse to the waveform peak of the same
// polarity as the stretch's first pulse.
func (a *Analyzer) PointProcess(sig *audio.Signal, floor, ceiling float64) (*PointProcess, error) {
	pitch, err := a.Pitch(sig, floor, ceiling)
	if err != nil {
		return nil, err
	}
	return pointProcessFromPitch(sig, pitch), nil
}

func pointProcessFromPitch(sig *audio.Signal, pitch *PitchContour) *PointProcess {
	pp := &PointProcess{}
	x := sig.Samples
	sr := float64(sig.SampleRate)
	duration := sig.Duration()

	n := len(pitch.Frames)
	for i := 0; i < n; {
		if pitch.Frames[i] <= 0 {
			i++
			continue
		}
		j := i
		for j+1 < n && pitch.Frames[j+1] > 0 {
			j++
		}

		start := math.Max(0, pitch.TimeOf(i)-pitch.Step/2)
		end := math.Min(duration, pitch.TimeOf(j)+pitch.Step/2)
		pp.walkStretch(x, sr, pitch, i, start, end)

		i = j + 1
	}

	return pp
}

func (pp *PointProcess) walkStretch(x []float64, sr float64, pitch *PitchContour, firstFrame int, start, end float64) {
	period := 1 / pitch.Frames[firstFrame]

	idx := argmaxAbs(x, int(start*sr), int((start+period)*sr))
	if idx < 0 {
		return
	}
	polarity := 1.0
	if x[idx] < 0 {
		polarity = -1
	}

	prev := refinePeak(x, idx, sr)
	pp.Times = append(pp.Times, prev)
	pp.Amplitudes = append(pp.Amplitudes, math.Abs(x[idx]))

	for {
		if f := pitch.ValueAt(prev); f > 0 {
			period = 1 / f
		}
		lo := prev + 0.8*period
		hi := prev + 1.2*period
		if hi > end {
			return
		}

		idx = argmaxSigned(x, int(lo*sr), int(hi*sr), polarity)
		if idx < 0 {
			return
		}
		t := refinePeak(x, idx, sr)
		if t <= prev {
			return
		}
		pp.Times = append(pp.Times, t)
		pp.Amplitudes = append(pp.Amplitudes, math.Abs(x[idx]))
		prev = t
	}
}

func argmaxAbs(x []float64, lo, hi int) int {
	if lo < 0 {
		lo = 0
	}
	if hi > len(x)-1 {
		hi = len(x) - 1
	}
	best, bestV := -1, -1.0
	for i := lo; i <= hi; i++ {
		if v := math.Abs(x[i]); v > bestV {
			best, bestV = i, v
		}
	}
	return best
}

func argmaxSigned(x []float64, lo, hi int, polarity float64) int {
	if lo < 0 {
		lo = 0
	}
	if hi > len(x)-1 {
		hi = len(x) - 1
	}
	best, bestV := -1, math.Inf(-1)
	for i := lo; i <= hi; i++ {
		if v := polarity * x[i]; v > bestV {
			best, bestV = i, v
		}
	}
	return best
}

// refinePeak returns the sub-sample time of the extremum at idx.
func refinePeak(x []float64, idx int, sr float64) float64 {
	if idx <= 0 || idx >= len(x)-1 {
		return float64(idx) / sr
	}
	prev, cur, next := x[idx-1], x[idx], x[idx+1]
	denom := prev - 2*cur + next
	shift := 0.0
	if denom != 0 {
		shift = 0.5 * (prev - next) / denom
	}
	if shift > 0.5 || shift < -0.5 {
		shift = 0
	}
	return (float64(idx) + shift) / sr
}

func validPeriod(p, shortest, longest float64) bool {
	return p >= shortest && p <= longest
}

func ratio(a, b float64) float64 {
	if a < b {
		a, b = b, a
	}
	if b <= 0 {
		return math.Inf(1)
	}
	return a / b
}

// JitterLocal returns the mean absolute difference between consecutive
// periods divided by the mean period, as a fraction. Periods outside
// [shortest, longest] and neighbouring pairs whose ratio exceeds
// maxPeriodFactor are excluded.
func (pp *PointProcess) JitterLocal(shortest, longest, maxPeriodFactor float64) (float64, error) {
	if len(pp.Times) < 3 {
		return 0, ErrNotEnoughPulses
	}

	periods := make([]float64, len(pp.Times)-1)
	for i := 1; i < len(pp.Times); i++ {
		periods[i-1] = pp.Times[i] - pp.Times[i-1]
	}

	sumPeriods, nPeriods := 0.0, 0
	for _, p := range periods {
		if validPeriod(p, shortest, longest) {
			sumPeriods += p
			nPeriods++
		}
	}

	sumDiff, nDiff := 0.0, 0
	for i := 1; i < len(periods); i++ {
		p1, p2 := periods[i-1], periods[i]
		if !validPeriod(p1, shortest, longest) || !validPeriod(p2, shortest, longest) {
			continue
		}
		if ratio(p1, p2) > maxPeriodFactor {
			continue
		}
		sumDiff += math.Abs(p2 - p1)
		nDiff++
	}

	if nDiff == 0 || nPeriods == 0 {
		return 0, ErrNotEnoughPulses
	}

	return (sumDiff / float64(nDiff)) / (sumPeriods / float64(nPeriods)), nil
}

// ShimmerDDA returns the mean absolute difference of differences of
// consecutive peak amplitudes divided by the mean amplitude, as a fraction.
func (pp *PointProcess) ShimmerDDA(shortest, longest, maxPeriodFactor, maxAmplitudeFactor float64) (float64, error) {
	if len(pp.Times) < 3 || len(pp.Amplitudes) != len(pp.Times) {
		return 0, ErrNotEnoughPulses
	}

	sumDDA, sumAmp := 0.0, 0.0
	n := 0
	for i := 1; i < len(pp.Times)-1; i++ {
		p1 := pp.Times[i] - pp.Times[i-1]
		p2 := pp.Times[i+1] - pp.Times[i]
		if !validPeriod(p1, shortest, longest) || !validPeriod(p2, shortest, longest) {
			continue
		}
		if ratio(p1, p2) > maxPeriodFactor {
			continue
		}

		a0, a1, a2 := pp.Amplitudes[i-1], pp.Amplitudes[i], pp.Amplitudes[i+1]
		if ratio(a0, a1) > maxAmplitudeFactor || ratio(a1, a2) > maxAmplitudeFactor {
			continue
		}

		sumDDA += math.Abs(a2 - 2*a1 + a0)
		sumAmp += a1
		n++
	}

	if n == 0 || sumAmp == 0 {
		return 0, ErrNotEnoughPulses
	}

	return (sumDDA / float64(n)) / (sumAmp / float64(n)), nil
}
