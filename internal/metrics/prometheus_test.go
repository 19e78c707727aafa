package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAnalysis(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordAnalysis(0.2, 5, 18, "good", 60)
	m.RecordAnalysis(0.3, 4, 8, "poor", 30)

	if got := testutil.ToFloat64(m.AnalysesTotal); got != 2 {
		t.Errorf("Expected 2 analyses, got %f", got)
	}
	if got := testutil.ToFloat64(m.QualityLevels.WithLabelValues("poor")); got != 1 {
		t.Errorf("Expected 1 poor recording, got %f", got)
	}
}

func TestQueueMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordCaseCreated("RED")
	m.RecordCaseCreated("RED")
	m.RecordStatusUpdate("completed")
	m.SetActiveCases(7)

	if got := testutil.ToFloat64(m.CasesCreated.WithLabelValues("RED")); got != 2 {
		t.Errorf("Expected 2 RED cases, got %f", got)
	}
	if got := testutil.ToFloat64(m.StatusUpdates.WithLabelValues("completed")); got != 1 {
		t.Errorf("Expected 1 completed update, got %f", got)
	}
	if got := testutil.ToFloat64(m.ActiveCases); got != 7 {
		t.Errorf("Expected 7 active cases, got %f", got)
	}
}

func TestSeparateRegistries(t *testing.T) {
	// registering twice on the same registry would panic
	NewMetrics(prometheus.NewRegistry())
	NewMetrics(prometheus.NewRegistry())
}
