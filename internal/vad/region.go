package vad

import (
	"math"
)

// MinActiveDuration floors the active span so short bursts of speech do not
// produce inflated percentages.
const MinActiveDuration = 2.0

const (
	sufficientPercentage = 40.0
	marginalPercentage   = 20.0
)

const (
	messageZeroDuration = "Audio has zero duration."
	messageSufficient   = "Sufficient speech detected for analysis."
	messageMarginal     = "Marginal speech detected. Results may be less reliable."
	messageInsufficient = "Insufficient speech detected. Please speak more during the recording."
)

// ActiveRegion describes where speech occurs in a recording.
type ActiveRegion struct {
	TotalDuration       float64 `json:"total_duration_s"`
	SpeechDuration      float64 `json:"speech_duration_s"`
	ActiveDuration      float64 `json:"active_duration_s"`
	SpeechPercentage    float64 `json:"speech_percentage"`
	HasSufficientSpeech bool    `json:"has_sufficient_speech"`
	VoicedSegmentCount  int     `json:"voiced_segment_count"`
	FirstVoicedTime     float64 `json:"first_voiced_time"`
	LastVoicedTime      float64 `json:"last_voiced_time"`
	Voiced              bool    `json:"-"`
	Message             string  `json:"message"`
}

// Failed returns the region reported when the pitch contour could not be
// computed.
func Failed(err error) ActiveRegion {
	return ActiveRegion{Message: "Voice activity detection failed: " + err.Error()}
}

// DetectActiveRegion walks a per-frame pitch contour (Hz, 0 or NaN when
// unvoiced) spanning totalDuration seconds.
//
// Percentages use the active span between the first and last voiced frame
// as denominator, not the whole recording, so leading and trailing silence
// does not count against the speaker.
func DetectActiveRegion(pitch []float64, totalDuration float64) ActiveRegion {
	if totalDuration <= 0 {
		return ActiveRegion{Message: messageZeroDuration}
	}

	voicedFrames := 0
	segments := 0
	first, last := -1, -1
	inSegment := false

	for i, f := range pitch {
		if !isVoiced(f) {
			inSegment = false
			continue
		}
		voicedFrames++
		if first < 0 {
			first = i
		}
		last = i
		if !inSegment {
			segments++
			inSegment = true
		}
	}

	frameDuration := 0.0
	if len(pitch) > 0 {
		frameDuration = totalDuration / float64(len(pitch))
	}
	speechDuration := float64(voicedFrames) * frameDuration

	region := ActiveRegion{
		TotalDuration:      round(totalDuration, 2),
		SpeechDuration:     round(speechDuration, 2),
		VoicedSegmentCount: segments,
		Voiced:             first >= 0,
	}

	active := totalDuration
	firstTime, lastTime := 0.0, totalDuration
	if region.Voiced {
		active = math.Max(MinActiveDuration, float64(last-first+1)*frameDuration)
		firstTime = float64(first) * frameDuration
		lastTime = float64(last+1) * frameDuration
	}

	percentage := 0.0
	if active > 0 {
		percentage = speechDuration / active * 100
	}

	region.ActiveDuration = round(active, 2)
	region.SpeechPercentage = round(percentage, 2)
	region.FirstVoicedTime = round(firstTime, 3)
	region.LastVoicedTime = round(lastTime, 3)

	switch {
	case percentage >= sufficientPercentage:
		region.HasSufficientSpeech = true
		region.Message = messageSufficient
	case percentage >= marginalPercentage:
		region.HasSufficientSpeech = true
		region.Message = messageMarginal
	default:
		region.Message = messageInsufficient
	}

	return region
}

func isVoiced(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f > 0
}

func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
