package features

import "fmt"

// MinDuration is the shortest recording accepted for feature extraction, in seconds.
const MinDuration = 2.0

// InsufficientAudioError reports a recording too short for reliable analysis.
type InsufficientAudioError struct {
	Duration float64
}

func (e *InsufficientAudioError) Error() string {
	if e.Duration <= 0 {
		return "audio file is empty or has zero duration"
	}
	return fmt.Sprintf("audio too short (%.2fs): minimum %.0f seconds required for reliable analysis, please record again",
		e.Duration, MinDuration)
}
