package acoustics

import (
	"math"

	"github.com/Yahya-Abdulselam/Nabrah/internal/audio"
)

// reference sound pressure squared, (2e-5 Pa)^2
const referencePower = 4e-10

// IntensityContour is a per-frame intensity track in dB.
// Frames without energy hold NaN.
type IntensityContour struct {
	Start  float64
	Step   float64
	Values []float64
}

// Frames returns the number of frames.
func (c *IntensityContour) Frames() int {
	return len(c.Values)
}

// TimeOf returns the centre time of frame i.
func (c *IntensityContour) TimeOf(i int) float64 {
	return c.Start + float64(i)*c.Step
}

// Valid returns the finite, positive frame values.
func (c *IntensityContour) Valid() []float64 {
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if isFinite(v) && v > 0 {
			out = append(out, v)
		}
	}
	return out
}

// Max returns the loudest finite frame, or NaN when there is none.
func (c *IntensityContour) Max() float64 {
	loudest := math.NaN()
	for _, v := range c.Values {
		if !isFinite(v) {
			continue
		}
		if math.IsNaN(loudest) || v > loudest {
			loudest = v
		}
	}
	return loudest
}

// MeanEnergy averages the frames in the power domain and converts back to dB.
func (c *IntensityContour) MeanEnergy() float64 {
	sum := 0.0
	n := 0
	for _, v := range c.Values {
		if !isFinite(v) {
			continue
		}
		sum += math.Pow(10, v/10)
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return 10 * math.Log10(sum/float64(n))
}

// Intensity computes a Gaussian-windowed intensity contour. The effective
// window is 3.2/minPitch seconds and the default step 0.8/minPitch.
func (a *Analyzer) Intensity(sig *audio.Signal, minPitch float64) (*IntensityContour, error) {
	return intensity(sig, minPitch, 0)
}

func intensity(sig *audio.Signal, minPitch, step float64) (*IntensityContour, error) {
	if sig.Len() == 0 {
		return nil, ErrEmptySignal
	}
	if minPitch <= 0 {
		minPitch = 75
	}
	if step <= 0 {
		step = 0.8 / minPitch
	}

	window := 3.2 / minPitch
	n, t1 := frameLayout(sig.Duration(), window, step)
	contour := &IntensityContour{Start: t1, Step: step, Values: make([]float64, n)}
	if n == 0 {
		return contour, nil
	}

	sr := float64(sig.SampleRate)
	half := int(window / 2 * sr)
	sigma := float64(half) / 3
	weights := make([]float64, 2*half+1)
	for k := -half; k <= half; k++ {
		x := float64(k) / sigma
		weights[k+half] = math.Exp(-0.5 * x * x)
	}

	x := sig.Samples
	for i := 0; i < n; i++ {
		centre := int(math.Round(contour.TimeOf(i) * sr))

		sumW, sumX := 0.0, 0.0
		for k := -half; k <= half; k++ {
			idx := centre + k
			if idx < 0 || idx >= len(x) {
				continue
			}
			w := weights[k+half]
			sumW += w
			sumX += w * x[idx]
		}
		if sumW == 0 {
			contour.Values[i] = math.NaN()
			continue
		}
		mean := sumX / sumW

		power := 0.0
		for k := -half; k <= half; k++ {
			idx := centre + k
			if idx < 0 || idx >= len(x) {
				continue
			}
			d := x[idx] - mean
			power += weights[k+half] * d * d
		}
		power /= sumW

		if power <= 0 {
			contour.Values[i] = math.NaN()
			continue
		}
		contour.Values[i] = 10 * math.Log10(power/referencePower)
	}

	return contour, nil
}
