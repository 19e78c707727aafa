package correction

import (
	"fmt"
	"math"

	"github.com/Yahya-Abdulselam/Nabrah/internal/features"
)

// ReferenceSNR is the SNR, in dB, at or above which no correction is applied.
const ReferenceSNR = 20.0

const (
	jitterPerDB  = 0.04
	jitterMax    = 0.4
	shimmerPerDB = 0.10
	shimmerMax   = 1.5
	hnrPerDB     = 0.30
	hnrMax       = 3.0
	hnrCeiling   = 40.0
	pausePerDB   = 0.004 * 100
	pauseMax     = 5.0
)

// Mode selects which FeatureSet the pipeline reports.
type Mode string

const (
	// ModeRaw reports measured features unchanged.
	ModeRaw Mode = "raw"
	// ModeCorrected applies CorrectForSNR.
	ModeCorrected Mode = "corrected"
)

// ParseMode accepts "raw", "corrected" or an empty string (raw).
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeRaw:
		return ModeRaw, nil
	case ModeCorrected:
		return ModeCorrected, nil
	}
	return "", fmt.Errorf("unknown correction mode %q", s)
}

// Apply returns fs unchanged in raw mode and the SNR-corrected set otherwise.
func Apply(mode Mode, fs features.FeatureSet, snr float64) features.FeatureSet {
	if mode != ModeCorrected {
		return fs
	}
	return CorrectForSNR(fs, snr)
}

// CorrectForSNR lowers jitter, shimmer and the pause ratios and raises HNR
// in proportion to how far snr falls below ReferenceSNR. Each adjustment is
// bounded and the result is clamped to its physical range. Speech rate,
// voice breaks and mean intensity are left alone.
func CorrectForSNR(fs features.FeatureSet, snr float64) features.FeatureSet {
	if snr >= ReferenceSNR || math.IsNaN(snr) {
		return fs
	}

	delta := ReferenceSNR - snr

	fs.JitterLocal = math.Max(0, fs.JitterLocal-math.Min(jitterPerDB*delta, jitterMax))
	fs.ShimmerDDA = math.Max(0, fs.ShimmerDDA-math.Min(shimmerPerDB*delta, shimmerMax))
	fs.HNR = math.Max(fs.HNR, math.Min(hnrCeiling, fs.HNR+math.Min(hnrPerDB*delta, hnrMax)))

	pause := math.Min(pausePerDB*delta, pauseMax)
	fs.PauseRatio = clampPercent(fs.PauseRatio - pause)
	fs.BriefPauseRatio = clampPercent(fs.BriefPauseRatio - pause)
	fs.RespiratoryPauseRatio = clampPercent(fs.RespiratoryPauseRatio - pause)

	fs.Stage = features.StageCorrected
	return fs.Rounded()
}

func clampPercent(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
