package transcription

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrProviderUnavailable is returned when the provider for a model could not be initialized.
	ErrProviderUnavailable = errors.New("transcription provider unavailable")
	// ErrUnsupportedLanguage is returned for language codes other than en and ar.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// Provider transcribes a WAV recording in the given language.
type Provider interface {
	Name() string
	Transcribe(ctx context.Context, audio []byte, language string) (*Transcript, error)
}

// Segment is one decoded span of speech.
type Segment struct {
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Text         string  `json:"text"`
	AvgLogprob   float64 `json:"avg_logprob"`
	NoSpeechProb float64 `json:"no_speech_prob"`
}

// Transcript is the raw provider output.
type Transcript struct {
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
}

// Result is the summarized transcription returned to clients.
type Result struct {
	Transcription    string  `json:"transcription"`
	AvgLogprob       float64 `json:"avg_logprob"`
	NoSpeechProb     float64 `json:"no_speech_prob"`
	ConfidenceScore  float64 `json:"confidence_score"`
	Language         string  `json:"language"`
	DetectedLanguage string  `json:"detected_language"`
	DurationS        float64 `json:"duration_s"`
	ProcessingTimeMS float64 `json:"processing_time_ms"`
}

var models = map[string]string{
	"en": "base.en",
	"ar": "base",
}

// ValidateLanguage accepts "en" and "ar".
func ValidateLanguage(language string) error {
	if _, ok := models[language]; !ok {
		return fmt.Errorf("%w: %s. Use 'en' or 'ar'", ErrUnsupportedLanguage, language)
	}
	return nil
}

// ModelFor returns the model used for language: the English-only model for
// en and the multilingual one otherwise.
func ModelFor(language string) string {
	if m, ok := models[language]; ok {
		return m
	}
	return models["ar"]
}

// Summarize averages segment probabilities and maps the mean log-probability
// onto a 0-100 confidence score. A transcript without segments yields a log
// probability of -2.0 and a no-speech probability of 1.0.
func Summarize(t *Transcript, language string) Result {
	parts := make([]string, 0, len(t.Segments))
	avgLogprob, noSpeech := -2.0, 1.0

	if len(t.Segments) > 0 {
		var sumLogprob, sumNoSpeech float64
		for _, s := range t.Segments {
			parts = append(parts, s.Text)
			sumLogprob += s.AvgLogprob
			sumNoSpeech += s.NoSpeechProb
		}
		avgLogprob = sumLogprob / float64(len(t.Segments))
		noSpeech = sumNoSpeech / float64(len(t.Segments))
	}

	confidence := math.Max(0, math.Min(100, (avgLogprob+2.0)*50))

	detected := t.Language
	if detected == "" {
		detected = language
	}

	return Result{
		Transcription:    strings.TrimSpace(strings.Join(parts, " ")),
		AvgLogprob:       round(avgLogprob, 3),
		NoSpeechProb:     round(noSpeech, 3),
		ConfidenceScore:  round(confidence, 1),
		Language:         language,
		DetectedLanguage: detected,
		DurationS:        round(t.Duration, 2),
	}
}

func round(v float64, decimals int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
