package queue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Intake is a case submitted for queueing. Every part is optional; missing
// triage data falls back to a GREEN case at 50% confidence.
type Intake struct {
	Triage    *TriageIntake    `json:"triage"`
	Quality   *QualityIntake   `json:"quality"`
	Whisper   *WhisperIntake   `json:"whisper"`
	WER       *WERIntake       `json:"wer"`
	Agreement *AgreementIntake `json:"agreement"`
	Features  json.RawMessage  `json:"features"`
	Notes     *string          `json:"notes"`
}

// TriageIntake is the classifier verdict.
type TriageIntake struct {
	Level         *string         `json:"level"`
	Score         *int            `json:"score"`
	Confidence    *float64        `json:"confidence"`
	Message       *string         `json:"message"`
	Action        *string         `json:"action"`
	Flags         json.RawMessage `json:"flags"`
	DetailedFlags json.RawMessage `json:"detailedFlags"`
}

type QualityIntake struct {
	SNRDB            *float64 `json:"snr_db"`
	SpeechPercentage *float64 `json:"speech_percentage"`
	IsReliable       *bool    `json:"is_reliable"`
}

type WhisperIntake struct {
	Transcription   *string  `json:"transcription"`
	ConfidenceScore *float64 `json:"confidence_score"`
	AvgLogprob      *float64 `json:"avg_logprob"`
}

type WERIntake struct {
	WER      *float64 `json:"wer"`
	Severity *string  `json:"severity"`
}

type AgreementIntake struct {
	AgreementPercentage *float64 `json:"agreementPercentage"`
	ConsensusLevel      *string  `json:"consensusLevel"`
	OverallVerdict      *string  `json:"overallVerdict"`
}

const defaultConfidence = 50.0

var (
	emptyList   = json.RawMessage("[]")
	emptyObject = json.RawMessage("{}")
)

// Normalize resolves every default and validates the triage verdict. The
// returned case has no ID, timestamps or status; the Manager assigns those.
func (in *Intake) Normalize() (*Case, error) {
	c := &Case{
		TriageLevel:      LevelGreen,
		TriageConfidence: defaultConfidence,
		Flags:            emptyList,
		DetailedFlags:    emptyList,
		Features:         emptyObject,
	}

	if t := in.Triage; t != nil {
		if t.Level != nil {
			c.TriageLevel = strings.ToUpper(strings.TrimSpace(*t.Level))
		}
		if t.Score != nil {
			c.TriageScore = *t.Score
		}
		if t.Confidence != nil {
			c.TriageConfidence = *t.Confidence
		}
		c.TriageMessage = deref(t.Message)
		c.TriageAction = deref(t.Action)

		var err error
		if c.Flags, err = rawOrDefault(t.Flags, emptyList, '['); err != nil {
			return nil, fmt.Errorf("%w: flags %v", ErrInvalidIntake, err)
		}
		if c.DetailedFlags, err = rawOrDefault(t.DetailedFlags, emptyList, '['); err != nil {
			return nil, fmt.Errorf("%w: detailedFlags %v", ErrInvalidIntake, err)
		}
	}

	switch c.TriageLevel {
	case LevelRed, LevelYellow, LevelGreen:
	default:
		return nil, fmt.Errorf("%w: unknown triage level %q", ErrInvalidIntake, c.TriageLevel)
	}
	if math.IsNaN(c.TriageConfidence) || c.TriageConfidence < 0 || c.TriageConfidence > 100 {
		return nil, fmt.Errorf("%w: triage confidence %v outside [0, 100]", ErrInvalidIntake, c.TriageConfidence)
	}

	if q := in.Quality; q != nil {
		c.SNRDB = finite(q.SNRDB)
		c.SpeechPercentage = finite(q.SpeechPercentage)
		c.QualityIsReliable = q.IsReliable != nil && *q.IsReliable
	}
	if w := in.Whisper; w != nil {
		c.WhisperTranscription = w.Transcription
		c.WhisperConfidence = finite(w.ConfidenceScore)
		c.WhisperAvgLogprob = finite(w.AvgLogprob)
	}
	if w := in.WER; w != nil {
		c.WERScore = finite(w.WER)
		c.WERSeverity = w.Severity
	}
	if a := in.Agreement; a != nil {
		c.AgreementPercentage = finite(a.AgreementPercentage)
		c.AgreementConsensus = a.ConsensusLevel
		c.AgreementVerdict = a.OverallVerdict
	}

	var err error
	if c.Features, err = rawOrDefault(in.Features, emptyObject, '{'); err != nil {
		return nil, fmt.Errorf("%w: features %v", ErrInvalidIntake, err)
	}
	c.Notes = deref(in.Notes)
	c.Priority = Priority(c.TriageLevel, c.TriageConfidence)

	return c, nil
}

// rawOrDefault returns def for an absent or null value and rejects values
// of the wrong JSON kind.
func rawOrDefault(raw, def json.RawMessage, open byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return def, nil
	}
	if trimmed[0] != open {
		return nil, fmt.Errorf("expected %s", kindName(open))
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err != nil {
		return nil, err
	}
	return json.RawMessage(compact.Bytes()), nil
}

func kindName(open byte) string {
	if open == '[' {
		return "a JSON array"
	}
	return "a JSON object"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// finite copies v, replacing NaN and infinities with 0.
func finite(v *float64) *float64 {
	if v == nil {
		return nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		zero := 0.0
		return &zero
	}
	x := *v
	return &x
}
