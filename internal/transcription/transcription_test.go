package transcription

import (
	"errors"
	"testing"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name       string
		transcript Transcript
		text       string
		logprob    float64
		noSpeech   float64
		confidence float64
		detected   string
	}{
		{
			name:       "no segments",
			transcript: Transcript{Duration: 3.456},
			text:       "",
			logprob:    -2.0,
			noSpeech:   1.0,
			confidence: 0,
			detected:   "en",
		},
		{
			name: "two segments",
			transcript: Transcript{
				Language: "english",
				Duration: 4,
				Segments: []Segment{
					{Text: " I need help", AvgLogprob: -0.4, NoSpeechProb: 0.1},
					{Text: " with my chest.", AvgLogprob: -0.6, NoSpeechProb: 0.3},
				},
			},
			text:       "I need help  with my chest.",
			logprob:    -0.5,
			noSpeech:   0.2,
			confidence: 75,
			detected:   "english",
		},
		{
			name: "confidence clamped high",
			transcript: Transcript{
				Segments: []Segment{{Text: "ok", AvgLogprob: 0.4}},
			},
			text:       "ok",
			logprob:    0.4,
			noSpeech:   0,
			confidence: 100,
			detected:   "en",
		},
		{
			name: "confidence clamped low",
			transcript: Transcript{
				Segments: []Segment{{Text: "mm", AvgLogprob: -3.2, NoSpeechProb: 0.9}},
			},
			text:       "mm",
			logprob:    -3.2,
			noSpeech:   0.9,
			confidence: 0,
			detected:   "en",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(&tt.transcript, "en")

			if got.Transcription != tt.text {
				t.Errorf("Expected transcription %q, got %q", tt.text, got.Transcription)
			}
			if got.AvgLogprob != tt.logprob {
				t.Errorf("Expected avg_logprob %f, got %f", tt.logprob, got.AvgLogprob)
			}
			if got.NoSpeechProb != tt.noSpeech {
				t.Errorf("Expected no_speech_prob %f, got %f", tt.noSpeech, got.NoSpeechProb)
			}
			if got.ConfidenceScore != tt.confidence {
				t.Errorf("Expected confidence %f, got %f", tt.confidence, got.ConfidenceScore)
			}
			if got.DetectedLanguage != tt.detected {
				t.Errorf("Expected detected language %s, got %s", tt.detected, got.DetectedLanguage)
			}
			if got.Language != "en" {
				t.Errorf("Expected requested language en, got %s", got.Language)
			}
		})
	}
}

func TestSummarizeRoundsDuration(t *testing.T) {
	got := Summarize(&Transcript{Duration: 3.456}, "ar")
	if got.DurationS != 3.46 {
		t.Errorf("Expected duration 3.46, got %f", got.DurationS)
	}
}

func TestValidateLanguage(t *testing.T) {
	for _, lang := range []string{"en", "ar"} {
		if err := ValidateLanguage(lang); err != nil {
			t.Errorf("Expected %s to be supported, got %v", lang, err)
		}
	}

	for _, lang := range []string{"", "fr", "EN"} {
		if err := ValidateLanguage(lang); !errors.Is(err, ErrUnsupportedLanguage) {
			t.Errorf("Expected ErrUnsupportedLanguage for %q, got %v", lang, err)
		}
	}
}

func TestModelFor(t *testing.T) {
	if got := ModelFor("en"); got != "base.en" {
		t.Errorf("Expected base.en, got %s", got)
	}
	if got := ModelFor("ar"); got != "base" {
		t.Errorf("Expected base, got %s", got)
	}
}
