package features

import (
	"math"
)

// Stage tells whether a FeatureSet comes straight from measurement or has
// been through SNR bias correction.
type Stage string

const (
	StageRaw       Stage = "raw"
	StageCorrected Stage = "corrected"
)

// FeatureSet is the per-recording feature vector. Percentages are in
// [0, 100], HNR and intensity in dB, speech rate in syllables per second.
type FeatureSet struct {
	Stage                 Stage   `json:"stage" msgpack:"stage"`
	JitterLocal           float64 `json:"jitter_local" msgpack:"jitter_local"`
	ShimmerDDA            float64 `json:"shimmer_dda" msgpack:"shimmer_dda"`
	HNR                   float64 `json:"hnr" msgpack:"hnr"`
	SpeechRate            float64 `json:"speech_rate" msgpack:"speech_rate"`
	PauseRatio            float64 `json:"pause_ratio" msgpack:"pause_ratio"`
	BriefPauseRatio       float64 `json:"brief_pause_ratio" msgpack:"brief_pause_ratio"`
	RespiratoryPauseRatio float64 `json:"respiratory_pause_ratio" msgpack:"respiratory_pause_ratio"`
	VoiceBreaks           int     `json:"voice_breaks" msgpack:"voice_breaks"`
	MeanIntensity         float64 `json:"mean_intensity" msgpack:"mean_intensity"`
}

// Rounded returns a copy with NaN/Inf replaced by 0, perturbation measures
// rounded to 3 decimals and everything else to 2.
func (fs FeatureSet) Rounded() FeatureSet {
	fs.JitterLocal = SafeRound(fs.JitterLocal, 3)
	fs.ShimmerDDA = SafeRound(fs.ShimmerDDA, 3)
	fs.HNR = SafeRound(fs.HNR, 2)
	fs.SpeechRate = SafeRound(fs.SpeechRate, 2)
	fs.PauseRatio = SafeRound(fs.PauseRatio, 2)
	fs.BriefPauseRatio = SafeRound(fs.BriefPauseRatio, 2)
	fs.RespiratoryPauseRatio = SafeRound(fs.RespiratoryPauseRatio, 2)
	fs.MeanIntensity = SafeRound(fs.MeanIntensity, 2)
	if fs.VoiceBreaks < 0 {
		fs.VoiceBreaks = 0
	}
	return fs
}

// SafeRound rounds v half away from zero, mapping NaN and Inf to 0.
func SafeRound(v float64, decimals int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
