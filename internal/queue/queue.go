package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no case has the requested ID.
	ErrNotFound = errors.New("patient not found")

	// ErrInvalidStatus is returned for a status outside the review workflow.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidIntake is returned when a submitted case cannot be queued.
	ErrInvalidIntake = errors.New("invalid patient data")

	// ErrDuplicateID is returned by Store.Create when the ID is taken.
	ErrDuplicateID = errors.New("duplicate patient id")
)

// Status is the review state of a case.
type Status string

const (
	StatusPending   Status = "pending"
	StatusReviewing Status = "reviewing"
	StatusReferred  Status = "referred"
	StatusCompleted Status = "completed"
)

// Statuses lists the valid statuses in queue order.
var Statuses = []Status{StatusPending, StatusReviewing, StatusReferred, StatusCompleted}

// ParseStatus validates s as a Status.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q (expected pending, reviewing, completed or referred)", ErrInvalidStatus, s)
}

// Rank orders statuses so open work sorts first.
func (s Status) Rank() int {
	switch s {
	case StatusPending:
		return 1
	case StatusReviewing:
		return 2
	case StatusReferred:
		return 3
	case StatusCompleted:
		return 4
	}
	return 5
}

// Active reports whether the case still needs a clinician.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusReviewing
}

// Triage levels.
const (
	LevelRed    = "RED"
	LevelYellow = "YELLOW"
	LevelGreen  = "GREEN"
)

// Levels lists the triage levels from most to least urgent.
var Levels = []string{LevelRed, LevelYellow, LevelGreen}

// Priority maps a triage level and classifier confidence (0-100) to a queue
// priority between 1 and 9. RED occupies 1-3, YELLOW 4-6 and GREEN 7-9;
// within a level higher confidence moves the case forward. Unknown levels
// are treated as GREEN.
func Priority(level string, confidence float64) int {
	base := 7
	switch strings.ToUpper(level) {
	case LevelRed:
		base = 1
	case LevelYellow:
		base = 4
	}

	if math.IsNaN(confidence) || math.IsInf(confidence, 0) {
		confidence = 0
	}
	adjustment := 2 - int(math.Floor(confidence/50))

	return min(9, max(1, base+adjustment))
}

// TimeLayout is the UTC timestamp format of created_at and updated_at.
// Fixed-width fractions keep lexicographic and chronological order equal.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// Timestamp formats t for storage.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// NewCaseID returns a short readable identifier: the first eight
// characters of a random UUID, uppercased.
func NewCaseID() string {
	return strings.ToUpper(uuid.NewString()[:8])
}

// Case is a triaged recording in the review queue. Snapshot fields are nil
// when the submitting client did not provide them.
type Case struct {
	ID        string `json:"id" msgpack:"id"`
	CreatedAt string `json:"created_at" msgpack:"created_at"`
	UpdatedAt string `json:"updated_at" msgpack:"updated_at"`

	TriageLevel      string  `json:"triage_level" msgpack:"triage_level"`
	TriageScore      int     `json:"triage_score" msgpack:"triage_score"`
	TriageConfidence float64 `json:"triage_confidence" msgpack:"triage_confidence"`
	TriageMessage    string  `json:"triage_message" msgpack:"triage_message"`
	TriageAction     string  `json:"triage_action" msgpack:"triage_action"`

	SNRDB             *float64 `json:"snr_db" msgpack:"snr_db"`
	SpeechPercentage  *float64 `json:"speech_percentage" msgpack:"speech_percentage"`
	QualityIsReliable bool     `json:"quality_is_reliable" msgpack:"quality_is_reliable"`

	WhisperTranscription *string  `json:"whisper_transcription" msgpack:"whisper_transcription"`
	WhisperConfidence    *float64 `json:"whisper_confidence" msgpack:"whisper_confidence"`
	WhisperAvgLogprob    *float64 `json:"whisper_avg_logprob" msgpack:"whisper_avg_logprob"`

	WERScore    *float64 `json:"wer_score" msgpack:"wer_score"`
	WERSeverity *string  `json:"wer_severity" msgpack:"wer_severity"`

	AgreementPercentage *float64 `json:"agreement_percentage" msgpack:"agreement_percentage"`
	AgreementConsensus  *string  `json:"agreement_consensus" msgpack:"agreement_consensus"`
	AgreementVerdict    *string  `json:"agreement_verdict" msgpack:"agreement_verdict"`

	Status     Status  `json:"status" msgpack:"status"`
	Priority   int     `json:"priority" msgpack:"priority"`
	Notes      string  `json:"notes" msgpack:"notes"`
	ReviewedBy *string `json:"reviewed_by" msgpack:"reviewed_by"`
	ReferredTo *string `json:"referred_to" msgpack:"referred_to"`

	Flags         json.RawMessage `json:"flags" msgpack:"flags"`
	DetailedFlags json.RawMessage `json:"detailedFlags" msgpack:"detailed_flags"`
	Features      json.RawMessage `json:"features" msgpack:"features"`

	// Seq breaks ordering ties between cases created in the same instant.
	Seq uint64 `json:"-" msgpack:"seq"`
}

// Update is a status change. Nil fields leave the stored value untouched.
type Update struct {
	Status     Status
	Notes      *string
	ReviewedBy *string
	ReferredTo *string
	UpdatedAt  string
}

// Apply writes the update onto c.
func (u Update) Apply(c *Case) {
	c.Status = u.Status
	c.UpdatedAt = u.UpdatedAt
	if u.Notes != nil {
		c.Notes = *u.Notes
	}
	if u.ReviewedBy != nil {
		v := *u.ReviewedBy
		c.ReviewedBy = &v
	}
	if u.ReferredTo != nil {
		v := *u.ReferredTo
		c.ReferredTo = &v
	}
}

// Stats summarizes the queue.
type Stats struct {
	ByLevel     map[string]int `json:"by_level"`
	ByStatus    map[string]int `json:"by_status"`
	ActiveCount int            `json:"active_count"`
	TotalCount  int            `json:"total_count"`
}

func newStats() Stats {
	byLevel := make(map[string]int, len(Levels))
	for _, l := range Levels {
		byLevel[l] = 0
	}
	return Stats{ByLevel: byLevel, ByStatus: make(map[string]int)}
}

// ComputeStats counts cases by status, and by triage level over the
// cases still awaiting review.
func ComputeStats(cases []Case) Stats {
	stats := newStats()
	for _, c := range cases {
		stats.ByStatus[string(c.Status)]++
		stats.TotalCount++
		if c.Status.Active() {
			stats.ActiveCount++
			if _, ok := stats.ByLevel[c.TriageLevel]; ok {
				stats.ByLevel[c.TriageLevel]++
			}
		}
	}
	return stats
}

// SortCases orders cases for display. Without a status filter cases are
// grouped by status rank first; with one, only priority and arrival count.
func SortCases(cases []Case, filtered bool) {
	sort.SliceStable(cases, func(i, j int) bool {
		a, b := cases[i], cases[j]
		if !filtered && a.Status.Rank() != b.Status.Rank() {
			return a.Status.Rank() < b.Status.Rank()
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt < b.CreatedAt
		}
		return a.Seq < b.Seq
	})
}

// Store persists cases. List with an empty status returns every case in
// default order; otherwise only cases with that status, by priority.
type Store interface {
	Create(ctx context.Context, c *Case) error
	List(ctx context.Context, status Status) ([]Case, error)
	Get(ctx context.Context, id string) (*Case, error)
	UpdateStatus(ctx context.Context, id string, u Update) (*Case, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (Stats, error)
	Close() error
}
