package acoustics

// Analyzer is the built-in Provider. It is stateless and safe for
// concurrent use; every call allocates its own buffers.
type Analyzer struct {
	// VoicingThreshold is the minimum normalized autocorrelation for a voiced frame.
	VoicingThreshold float64
	// SilenceThreshold is the minimum frame peak, relative to the global peak,
	// for a frame to be considered for voicing.
	SilenceThreshold float64
	// OctaveCost favours higher pitch candidates per octave.
	OctaveCost float64
	// MaxPitch bounds the shortest lag searched by Harmonicity.
	MaxPitch float64
}

// NewAnalyzer returns an Analyzer with the usual speech-analysis defaults.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		VoicingThreshold: 0.45,
		SilenceThreshold: 0.03,
		OctaveCost:       0.01,
		MaxPitch:         600,
	}
}

var _ Provider = (*Analyzer)(nil)
