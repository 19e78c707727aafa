package acoustics

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/Yahya-Abdulselam/Nabrah/internal/audio"
)

// PitchContour holds one F0 estimate per frame, 0 for unvoiced frames.
type PitchContour struct {
	Start    float64
	Step     float64
	Frames   []float64
	Strength []float64
}

// TimeOf returns the centre time of frame i.
func (p *PitchContour) TimeOf(i int) float64 {
	return p.Start + float64(i)*p.Step
}

// VoicedCount returns the number of voiced frames.
func (p *PitchContour) VoicedCount() int {
	n := 0
	for _, f := range p.Frames {
		if f > 0 {
			n++
		}
	}
	return n
}

// ValueAt returns the pitch at time t. Between two voiced frames the value
// is interpolated linearly; when the nearest frame is unvoiced, or t lies
// outside the analysed range, it returns 0.
func (p *PitchContour) ValueAt(t float64) float64 {
	n := len(p.Frames)
	if n == 0 || p.Step <= 0 {
		return 0
	}

	pos := (t - p.Start) / p.Step
	if pos < -0.5 || pos > float64(n-1)+0.5 {
		return 0
	}

	near := int(math.Round(pos))
	if near < 0 {
		near = 0
	}
	if near > n-1 {
		near = n - 1
	}
	if p.Frames[near] <= 0 {
		return 0
	}

	i0 := int(math.Floor(pos))
	if i0 < 0 || i0+1 >= n {
		return p.Frames[near]
	}
	a, b := p.Frames[i0], p.Frames[i0+1]
	if a <= 0 || b <= 0 {
		return p.Frames[near]
	}
	frac := pos - float64(i0)
	return a + frac*(b-a)
}

// Pitch tracks F0 with a windowed autocorrelation whose taper is divided
// out, choosing the candidate with the best octave-weighted strength.
func (a *Analyzer) Pitch(sig *audio.Signal, floor, ceiling float64) (*PitchContour, error) {
	if sig.Len() == 0 {
		return nil, ErrEmptySignal
	}
	if floor <= 0 {
		floor = 75
	}
	if ceiling <= floor {
		ceiling = 600
	}

	sr := float64(sig.SampleRate)
	window := 3.0 / floor
	step := 0.75 / floor

	n, t1 := frameLayout(sig.Duration(), window, step)
	contour := &PitchContour{
		Start:    t1,
		Step:     step,
		Frames:   make([]float64, n),
		Strength: make([]float64, n),
	}
	if n == 0 {
		return contour, nil
	}

	size := int(window * sr)
	minLag := int(math.Floor(sr / ceiling))
	maxLag := int(math.Ceil(sr / floor))
	if minLag < 2 {
		minLag = 2
	}
	if maxLag > size/2 {
		maxLag = size / 2
	}

	ac := newAutocorrelator(size)
	hann := make([]float64, size)
	for i := range hann {
		hann[i] = 0.5 - 0.5*math.Cos(2*math.Pi*(float64(i)+0.5)/float64(size))
	}
	windowAC := append([]float64(nil), ac.normalized(hann)...)

	globalPeak := peakAbs(sig.Samples)
	if globalPeak == 0 {
		return contour, nil
	}

	x := sig.Samples
	frame := make([]float64, size)
	for i := 0; i < n; i++ {
		start := int(math.Round(contour.TimeOf(i)*sr)) - size/2

		mean := 0.0
		for k := 0; k < size; k++ {
			idx := start + k
			if idx >= 0 && idx < len(x) {
				frame[k] = x[idx]
			} else {
				frame[k] = 0
			}
			mean += frame[k]
		}
		mean /= float64(size)

		localPeak := 0.0
		for k := range frame {
			frame[k] -= mean
			if v := math.Abs(frame[k]); v > localPeak {
				localPeak = v
			}
			frame[k] *= hann[k]
		}
		if localPeak < a.SilenceThreshold*globalPeak {
			continue
		}

		r := ac.normalized(frame)
		bestScore := math.Inf(-1)
		bestF, bestR := 0.0, 0.0
		for lag := minLag; lag <= maxLag && lag+1 < size; lag++ {
			rl := r[lag] / windowAC[lag]
			prev := r[lag-1] / windowAC[lag-1]
			next := r[lag+1] / windowAC[lag+1]
			if rl < prev || rl < next {
				continue
			}

			// parabolic refinement of the lag
			denom := prev - 2*rl + next
			shift := 0.0
			if denom != 0 {
				shift = 0.5 * (prev - next) / denom
			}
			if shift > 0.5 || shift < -0.5 {
				shift = 0
			}
			peak := rl - 0.25*(prev-next)*shift
			if peak > 1 {
				peak = 1
			}

			f := sr / (float64(lag) + shift)
			if f < floor || f > ceiling {
				continue
			}
			score := peak + a.OctaveCost*math.Log2(f/floor)
			if score > bestScore {
				bestScore, bestF, bestR = score, f, peak
			}
		}

		if bestR >= a.VoicingThreshold {
			contour.Frames[i] = bestF
			contour.Strength[i] = bestR
		}
	}

	return contour, nil
}

// autocorrelator computes normalized autocorrelations through a zero-padded FFT.
type autocorrelator struct {
	size   int
	fft    *fourier.FFT
	buf    []float64
	coeffs []complex128
	out    []float64
}

func newAutocorrelator(size int) *autocorrelator {
	padded := 1
	for padded < 2*size {
		padded <<= 1
	}
	return &autocorrelator{
		size:   size,
		fft:    fourier.NewFFT(padded),
		buf:    make([]float64, padded),
		coeffs: make([]complex128, padded/2+1),
		out:    make([]float64, padded),
	}
}

// normalized returns r[k]/r[0] for k in [0, size). The returned slice is
// reused by the next call.
func (ac *autocorrelator) normalized(frame []float64) []float64 {
	copy(ac.buf, frame)
	for i := len(frame); i < len(ac.buf); i++ {
		ac.buf[i] = 0
	}

	ac.coeffs = ac.fft.Coefficients(ac.coeffs, ac.buf)
	for i, c := range ac.coeffs {
		ac.coeffs[i] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}
	ac.out = ac.fft.Sequence(ac.out, ac.coeffs)

	r := ac.out[:ac.size]
	r0 := r[0]
	if r0 <= 0 {
		for i := range r {
			r[i] = 0
		}
		return r
	}
	for i := range r {
		r[i] /= r0
	}
	return r
}
