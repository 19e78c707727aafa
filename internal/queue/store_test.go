package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Yahya-Abdulselam/Nabrah/internal/features"
	"github.com/Yahya-Abdulselam/Nabrah/internal/metrics"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type storeFactory struct {
	name string
	open func(t *testing.T) Store
}

func storeFactories() []storeFactory {
	return []storeFactory{
		{
			name: "sqlite",
			open: func(t *testing.T) Store {
				s, err := OpenSQLite(":memory:")
				if err != nil {
					t.Fatalf("OpenSQLite failed: %v", err)
				}
				return s
			},
		},
		{
			name: "badger",
			open: func(t *testing.T) Store {
				s, err := OpenBadger(BadgerOptions{InMemory: true, Logger: discardLogger()})
				if err != nil {
					t.Fatalf("OpenBadger failed: %v", err)
				}
				return s
			},
		},
	}
}

func newCase(id, level string, confidence float64, createdAt string) *Case {
	return &Case{
		ID:               id,
		CreatedAt:        createdAt,
		UpdatedAt:        createdAt,
		TriageLevel:      level,
		TriageConfidence: confidence,
		Status:           StatusPending,
		Priority:         Priority(level, confidence),
		Flags:            emptyList,
		DetailedFlags:    emptyList,
		Features:         emptyObject,
	}
}

func ts(second int) string {
	return fmt.Sprintf("2025-06-01T08:00:%02d.000000Z", second)
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func TestStores(t *testing.T) {
	for _, f := range storeFactories() {
		t.Run(f.name, func(t *testing.T) {
			t.Run("ordering", func(t *testing.T) { testStoreOrdering(t, f.open(t)) })
			t.Run("update", func(t *testing.T) { testStoreUpdate(t, f.open(t)) })
			t.Run("delete", func(t *testing.T) { testStoreDelete(t, f.open(t)) })
			t.Run("stats", func(t *testing.T) { testStoreStats(t, f.open(t)) })
			t.Run("snapshots", func(t *testing.T) { testStoreSnapshots(t, f.open(t)) })
			t.Run("duplicate", func(t *testing.T) { testStoreDuplicateID(t, f.open(t)) })
			t.Run("features", func(t *testing.T) { testStoreFeatureSets(t, f.open(t)) })
		})
	}
}

func seed(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	cases := []*Case{
		newCase("GREEN001", LevelGreen, 90, ts(1)),
		newCase("RED00001", LevelRed, 60, ts(2)),
		newCase("YELLOW01", LevelYellow, 30, ts(3)),
		newCase("RED00002", LevelRed, 60, ts(2)),
		newCase("RED00003", LevelRed, 100, ts(4)),
	}
	for _, c := range cases {
		if err := store.Create(ctx, c); err != nil {
			t.Fatalf("Create %s failed: %v", c.ID, err)
		}
	}
}

func testStoreOrdering(t *testing.T, store Store) {
	defer store.Close()
	ctx := context.Background()
	seed(t, store)

	if _, err := store.UpdateStatus(ctx, "RED00003", Update{Status: StatusCompleted, UpdatedAt: ts(10)}); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if _, err := store.UpdateStatus(ctx, "GREEN001", Update{Status: StatusReviewing, UpdatedAt: ts(11)}); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	all, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	// pending by priority then arrival (insertion order breaks the tie at ts(2)),
	// then reviewing, then completed
	expected := []string{"RED00001", "RED00002", "YELLOW01", "GREEN001", "RED00003"}
	if got := ids(all); !equalIDs(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}

	pending, err := store.List(ctx, StatusPending)
	if err != nil {
		t.Fatalf("List pending failed: %v", err)
	}
	expected = []string{"RED00001", "RED00002", "YELLOW01"}
	if got := ids(pending); !equalIDs(got, expected) {
		t.Errorf("Expected pending %v, got %v", expected, got)
	}

	referred, err := store.List(ctx, StatusReferred)
	if err != nil {
		t.Fatalf("List referred failed: %v", err)
	}
	if referred == nil || len(referred) != 0 {
		t.Errorf("Expected an empty non-nil list, got %v", referred)
	}
}

func testStoreUpdate(t *testing.T, store Store) {
	defer store.Close()
	ctx := context.Background()

	c := newCase("ABCDEF12", LevelYellow, 75, ts(1))
	c.Notes = "initial"
	if err := store.Create(ctx, c); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := store.UpdateStatus(ctx, c.ID, Update{
		Status:     StatusReviewing,
		ReviewedBy: strPtr("Dr. Salem"),
		UpdatedAt:  ts(30),
	})
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if updated.Status != StatusReviewing || updated.UpdatedAt != ts(30) {
		t.Errorf("Unexpected update result: %+v", updated)
	}
	if updated.Notes != "initial" {
		t.Errorf("Expected notes untouched, got %q", updated.Notes)
	}
	if updated.ReviewedBy == nil || *updated.ReviewedBy != "Dr. Salem" {
		t.Errorf("Expected reviewer to be set, got %v", updated.ReviewedBy)
	}
	if updated.ReferredTo != nil {
		t.Errorf("Expected referral to stay unset, got %v", *updated.ReferredTo)
	}
	if updated.Priority != c.Priority || updated.CreatedAt != c.CreatedAt {
		t.Error("Expected priority and created_at to be preserved")
	}

	updated, err = store.UpdateStatus(ctx, c.ID, Update{
		Status:     StatusReferred,
		Notes:      strPtr(""),
		ReferredTo: strPtr("Cardiology"),
		UpdatedAt:  ts(40),
	})
	if err != nil {
		t.Fatalf("Second UpdateStatus failed: %v", err)
	}
	if updated.Notes != "" || *updated.ReferredTo != "Cardiology" || *updated.ReviewedBy != "Dr. Salem" {
		t.Errorf("Unexpected second update: %+v", updated)
	}

	got, err := store.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != StatusReferred || got.UpdatedAt != ts(40) {
		t.Errorf("Expected persisted update, got %+v", got)
	}

	if _, err := store.UpdateStatus(ctx, "MISSING0", Update{Status: StatusCompleted, UpdatedAt: ts(50)}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func testStoreDelete(t *testing.T, store Store) {
	defer store.Close()
	ctx := context.Background()
	seed(t, store)

	if err := store.Delete(ctx, "YELLOW01"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "YELLOW01"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, "YELLOW01"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}

	all, _ := store.List(ctx, "")
	if len(all) != 4 {
		t.Errorf("Expected 4 remaining cases, got %d", len(all))
	}
}

func testStoreStats(t *testing.T, store Store) {
	defer store.Close()
	ctx := context.Background()

	empty, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if empty.TotalCount != 0 || empty.ByLevel[LevelRed] != 0 || len(empty.ByLevel) != 3 {
		t.Errorf("Unexpected empty stats: %+v", empty)
	}

	seed(t, store)
	store.UpdateStatus(ctx, "RED00003", Update{Status: StatusCompleted, UpdatedAt: ts(10)})
	store.UpdateStatus(ctx, "GREEN001", Update{Status: StatusReviewing, UpdatedAt: ts(11)})

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if stats.TotalCount != 5 || stats.ActiveCount != 4 {
		t.Errorf("Expected total 5 active 4, got %d/%d", stats.TotalCount, stats.ActiveCount)
	}
	if stats.ByLevel[LevelRed] != 2 || stats.ByLevel[LevelYellow] != 1 || stats.ByLevel[LevelGreen] != 1 {
		t.Errorf("Unexpected level counts %v", stats.ByLevel)
	}
	if stats.ByStatus["pending"] != 3 || stats.ByStatus["reviewing"] != 1 || stats.ByStatus["completed"] != 1 {
		t.Errorf("Unexpected status counts %v", stats.ByStatus)
	}
	if _, ok := stats.ByStatus["referred"]; ok {
		t.Error("Expected statuses without cases to be absent")
	}
}

func testStoreSnapshots(t *testing.T, store Store) {
	defer store.Close()
	ctx := context.Background()

	c := newCase("SNAP0001", LevelRed, 88, ts(1))
	c.TriageScore = 6
	c.TriageMessage = "Needs attention"
	c.SNRDB = floatPtr(18.25)
	c.QualityIsReliable = true
	c.WhisperTranscription = strPtr("أحتاج مساعدة")
	c.WERScore = floatPtr(0.41)
	c.AgreementVerdict = strPtr("concerning")
	c.Flags = json.RawMessage(`["slurred speech"]`)
	c.Features = json.RawMessage(`{"stage":"raw","jitter_local":1.981,"voice_breaks":3}`)

	if err := store.Create(ctx, c); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if got.TriageScore != 6 || got.TriageConfidence != 88 || got.TriageMessage != "Needs attention" {
		t.Errorf("Unexpected triage fields: %+v", got)
	}
	if got.SNRDB == nil || *got.SNRDB != 18.25 || !got.QualityIsReliable {
		t.Error("Quality snapshot not preserved")
	}
	if got.SpeechPercentage != nil || got.WhisperConfidence != nil {
		t.Error("Expected missing snapshot values to stay nil")
	}
	if got.WhisperTranscription == nil || *got.WhisperTranscription != "أحتاج مساعدة" {
		t.Error("Transcription not preserved")
	}
	if string(got.Flags) != `["slurred speech"]` || string(got.DetailedFlags) != "[]" {
		t.Errorf("Unexpected flags %s / %s", got.Flags, got.DetailedFlags)
	}

	var features map[string]any
	if err := json.Unmarshal(got.Features, &features); err != nil {
		t.Fatalf("Features not valid JSON: %v", err)
	}
	if features["jitter_local"] != 1.981 || features["voice_breaks"] != 3.0 {
		t.Errorf("Unexpected features %v", features)
	}
}

func TestSQLiteStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.db")
	ctx := context.Background()

	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	if err := store.Create(ctx, newCase("PERSIST1", LevelYellow, 55, ts(1))); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	store.Close()

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, "PERSIST1")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if got.Priority != 5 {
		t.Errorf("Expected priority 5, got %d", got.Priority)
	}
}

func TestBadgerStorePersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := OpenBadger(BadgerOptions{Dir: dir, Logger: discardLogger()})
	if err != nil {
		t.Fatalf("OpenBadger failed: %v", err)
	}
	first := newCase("PERSIST1", LevelGreen, 10, ts(1))
	if err := store.Create(ctx, first); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := OpenBadger(BadgerOptions{Dir: dir, Logger: discardLogger()})
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer reopened.Close()

	second := newCase("PERSIST2", LevelGreen, 10, ts(1))
	if err := reopened.Create(ctx, second); err != nil {
		t.Fatalf("Create after reopen failed: %v", err)
	}
	if second.Seq <= first.Seq {
		t.Errorf("Expected sequence to advance across restarts, got %d then %d", first.Seq, second.Seq)
	}

	all, err := reopened.List(ctx, "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if got := ids(all); !equalIDs(got, []string{"PERSIST1", "PERSIST2"}) {
		t.Errorf("Expected insertion order tie-break, got %v", got)
	}
}

func TestOpenBadgerRequiresDir(t *testing.T) {
	if _, err := OpenBadger(BadgerOptions{}); err == nil {
		t.Error("Expected error without directory")
	}
}

func testStoreDuplicateID(t *testing.T, store Store) {
	defer store.Close()
	ctx := context.Background()

	first := newCase("ABCDEF12", LevelRed, 90, ts(1))
	first.Notes = "first"
	if err := store.Create(ctx, first); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	second := newCase("ABCDEF12", LevelGreen, 90, ts(2))
	second.Notes = "second"
	if err := store.Create(ctx, second); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("Expected ErrDuplicateID, got %v", err)
	}

	got, err := store.Get(ctx, "ABCDEF12")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.TriageLevel != LevelRed || got.Notes != "first" {
		t.Errorf("Expected the first case to be kept, got %s %q", got.TriageLevel, got.Notes)
	}

	all, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("Expected 1 case, got %d", len(all))
	}
}

func testStoreFeatureSets(t *testing.T, store Store) {
	mgr := NewManager(store, nil, discardLogger(), metrics.NewMetrics(prometheus.NewRegistry()))
	defer mgr.Close()
	ctx := context.Background()

	tests := []struct {
		name string
		fs   features.FeatureSet
	}{
		{
			name: "corrected",
			fs: features.FeatureSet{
				Stage:                 features.StageCorrected,
				JitterLocal:           1.234,
				ShimmerDDA:            4.567,
				HNR:                   18.25,
				SpeechRate:            3.12,
				PauseRatio:            22.5,
				BriefPauseRatio:       10.25,
				RespiratoryPauseRatio: 12.25,
				VoiceBreaks:           3,
				MeanIntensity:         61.43,
			},
		},
		{
			name: "raw",
			fs: features.FeatureSet{
				Stage:                 features.StageRaw,
				JitterLocal:           0.001,
				ShimmerDDA:            12.999,
				HNR:                   0.01,
				SpeechRate:            0.5,
				PauseRatio:            99.99,
				BriefPauseRatio:       0.01,
				RespiratoryPauseRatio: 99.98,
				VoiceBreaks:           41,
				MeanIntensity:         33.33,
			},
		},
	}

	for _, tt := range tests {
		raw, err := json.Marshal(tt.fs)
		if err != nil {
			t.Fatalf("%s: Marshal failed: %v", tt.name, err)
		}
		in := level(LevelYellow, 70)
		in.Features = raw

		added, err := mgr.Add(ctx, in)
		if err != nil {
			t.Fatalf("%s: Add failed: %v", tt.name, err)
		}
		got, err := mgr.Get(ctx, added.ID)
		if err != nil {
			t.Fatalf("%s: Get failed: %v", tt.name, err)
		}

		var fs features.FeatureSet
		if err := json.Unmarshal(got.Features, &fs); err != nil {
			t.Fatalf("%s: Unmarshal failed: %v", tt.name, err)
		}
		if fs != tt.fs {
			t.Errorf("%s: Expected %+v, got %+v", tt.name, tt.fs, fs)
		}
	}
}
