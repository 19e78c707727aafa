package quality

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Level grades a recording's signal-to-noise ratio.
type Level string

const (
	LevelGood       Level = "good"
	LevelAcceptable Level = "acceptable"
	LevelPoor       Level = "poor"
	LevelUnknown    Level = "unknown"
)

// MinFrames is the number of valid intensity frames needed for an estimate.
const MinFrames = 10

const (
	maxSNR            = 50.0
	goodThreshold     = 15.0
	reliableThreshold = 10.0
)

const (
	recommendTooShort   = "Audio too short or no signal detected. Please try again."
	recommendGood       = "Audio quality is good for analysis."
	recommendAcceptable = "Audio quality is acceptable. Results may have reduced accuracy."
	recommendPoor       = "Audio quality is poor. Please record in a quieter environment."
	recommendUnknown    = "Could not calculate audio quality."
)

// Result is the quality verdict for one recording.
type Result struct {
	SNRDB          float64 `json:"snr_db"`
	Level          Level   `json:"quality_level"`
	IsReliable     bool    `json:"is_reliable"`
	Recommendation string  `json:"recommendation"`
}

// Unknown is returned when the intensity contour could not be computed.
func Unknown() Result {
	return Result{SNRDB: 0, Level: LevelUnknown, IsReliable: false, Recommendation: recommendUnknown}
}

// Estimate derives the SNR from a per-frame intensity series in dB. The
// series must already exclude non-finite and non-positive frames.
//
// The quietest 30% of frames estimate the noise floor and the loudest 30%
// the signal level, so the result does not depend on recording gain.
func Estimate(intensity []float64) Result {
	if len(intensity) < MinFrames {
		return Result{SNRDB: 0, Level: LevelPoor, IsReliable: false, Recommendation: recommendTooShort}
	}

	sorted := append([]float64(nil), intensity...)
	sort.Float64s(sorted)

	noiseThreshold := Percentile(sorted, 30)
	signalThreshold := Percentile(sorted, 70)

	var noise, signal []float64
	for _, v := range intensity {
		if v <= noiseThreshold {
			noise = append(noise, v)
		}
		if v >= signalThreshold {
			signal = append(signal, v)
		}
	}

	var signalPower, noisePower float64
	if len(noise) == 0 || len(signal) == 0 {
		signalPower = stat.Mean(intensity, nil)
		noisePower = floats.Min(intensity)
	} else {
		signalPower = stat.Mean(signal, nil)
		noisePower = stat.Mean(noise, nil)
	}

	snr := math.Max(0, math.Min(maxSNR, signalPower-noisePower))
	if math.IsNaN(snr) {
		return Unknown()
	}
	reported := math.Round(snr*100) / 100

	switch {
	case snr >= goodThreshold:
		return Result{SNRDB: reported, Level: LevelGood, IsReliable: true, Recommendation: recommendGood}
	case snr >= reliableThreshold:
		return Result{SNRDB: reported, Level: LevelAcceptable, IsReliable: true, Recommendation: recommendAcceptable}
	default:
		return Result{SNRDB: reported, Level: LevelPoor, IsReliable: false, Recommendation: recommendPoor}
	}
}

// Percentile returns the p-th percentile of an ascending-sorted slice,
// interpolating linearly between the two closest ranks.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}

	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
