package queue

import (
	"errors"
	"regexp"
	"testing"
	"time"
)

func TestPriority(t *testing.T) {
	tests := []struct {
		level      string
		confidence float64
		expected   int
	}{
		{"RED", 100, 1},
		{"RED", 95, 2},
		{"RED", 10, 3},
		{"red", 100, 1},
		{"YELLOW", 50, 5},
		{"YELLOW", 49.9, 6},
		{"YELLOW", 100, 4},
		{"GREEN", 0, 9},
		{"GREEN", 100, 7},
		{"BLUE", 50, 8},
		{"", 0, 9},
	}

	for _, tt := range tests {
		if got := Priority(tt.level, tt.confidence); got != tt.expected {
			t.Errorf("Priority(%q, %v): expected %d, got %d", tt.level, tt.confidence, tt.expected, got)
		}
	}
}

func TestPriorityBounds(t *testing.T) {
	for _, level := range []string{"RED", "YELLOW", "GREEN", "other"} {
		for conf := 0.0; conf <= 100; conf += 0.5 {
			p := Priority(level, conf)
			if p < 1 || p > 9 {
				t.Fatalf("Priority(%q, %v) = %d out of range", level, conf, p)
			}
		}
	}
}

func TestPriorityNonIncreasing(t *testing.T) {
	for _, level := range Levels {
		prev := Priority(level, 0)
		for conf := 0.5; conf <= 100; conf += 0.5 {
			p := Priority(level, conf)
			if p > prev {
				t.Fatalf("Priority(%q, %v) = %d rose from %d", level, conf, p, prev)
			}
			prev = p
		}
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"pending", "reviewing", "completed", "referred"} {
		if st, err := ParseStatus(s); err != nil || string(st) != s {
			t.Errorf("Expected %q to parse, got %q (%v)", s, st, err)
		}
	}

	for _, s := range []string{"", "PENDING", "done"} {
		if _, err := ParseStatus(s); !errors.Is(err, ErrInvalidStatus) {
			t.Errorf("Expected ErrInvalidStatus for %q, got %v", s, err)
		}
	}
}

func TestNewCaseID(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9A-F]{8}$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewCaseID()
		if !pattern.MatchString(id) {
			t.Fatalf("Unexpected ID format %q", id)
		}
		seen[id] = true
	}
	if len(seen) < 95 {
		t.Errorf("Expected mostly unique IDs, got %d distinct", len(seen))
	}
}

func TestTimestamp(t *testing.T) {
	ts := time.Date(2025, 3, 4, 5, 6, 7, 8000, time.FixedZone("AST", 3*3600))
	if got := Timestamp(ts); got != "2025-03-04T02:06:07.000008Z" {
		t.Errorf("Unexpected timestamp %q", got)
	}
}

func sampleCases() []Case {
	return []Case{
		{ID: "C1", Status: StatusCompleted, Priority: 1, CreatedAt: "2025-01-01T00:00:01.000000Z", TriageLevel: LevelRed, Seq: 1},
		{ID: "P7", Status: StatusPending, Priority: 7, CreatedAt: "2025-01-01T00:00:02.000000Z", TriageLevel: LevelGreen, Seq: 2},
		{ID: "R2", Status: StatusReviewing, Priority: 2, CreatedAt: "2025-01-01T00:00:03.000000Z", TriageLevel: LevelRed, Seq: 3},
		{ID: "P2b", Status: StatusPending, Priority: 2, CreatedAt: "2025-01-01T00:00:05.000000Z", TriageLevel: LevelRed, Seq: 5},
		{ID: "P2a", Status: StatusPending, Priority: 2, CreatedAt: "2025-01-01T00:00:04.000000Z", TriageLevel: LevelRed, Seq: 4},
		{ID: "F1", Status: StatusReferred, Priority: 5, CreatedAt: "2025-01-01T00:00:06.000000Z", TriageLevel: LevelYellow, Seq: 6},
		{ID: "P2c", Status: StatusPending, Priority: 2, CreatedAt: "2025-01-01T00:00:05.000000Z", TriageLevel: LevelRed, Seq: 7},
	}
}

func ids(cases []Case) []string {
	out := make([]string, len(cases))
	for i, c := range cases {
		out[i] = c.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSortCases(t *testing.T) {
	cases := sampleCases()
	SortCases(cases, false)

	expected := []string{"P2a", "P2b", "P2c", "P7", "R2", "F1", "C1"}
	if got := ids(cases); !equalIDs(got, expected) {
		t.Errorf("Expected order %v, got %v", expected, got)
	}

	filtered := sampleCases()
	SortCases(filtered, true)
	expected = []string{"C1", "R2", "P2a", "P2b", "P2c", "F1", "P7"}
	if got := ids(filtered); !equalIDs(got, expected) {
		t.Errorf("Expected filtered order %v, got %v", expected, got)
	}
}

func TestComputeStats(t *testing.T) {
	stats := ComputeStats(sampleCases())

	if stats.TotalCount != 7 || stats.ActiveCount != 5 {
		t.Errorf("Expected total 7 active 5, got %d/%d", stats.TotalCount, stats.ActiveCount)
	}

	expectedLevels := map[string]int{LevelRed: 4, LevelYellow: 0, LevelGreen: 1}
	for level, n := range expectedLevels {
		if stats.ByLevel[level] != n {
			t.Errorf("Expected %d %s, got %d", n, level, stats.ByLevel[level])
		}
	}

	expectedStatus := map[string]int{"pending": 4, "reviewing": 1, "completed": 1, "referred": 1}
	for status, n := range expectedStatus {
		if stats.ByStatus[status] != n {
			t.Errorf("Expected %d %s, got %d", n, status, stats.ByStatus[status])
		}
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	stats := ComputeStats(nil)
	if len(stats.ByLevel) != 3 || stats.ByLevel[LevelRed] != 0 {
		t.Errorf("Expected zeroed level counts, got %v", stats.ByLevel)
	}
	if len(stats.ByStatus) != 0 || stats.TotalCount != 0 {
		t.Errorf("Expected empty status counts, got %+v", stats)
	}
}
