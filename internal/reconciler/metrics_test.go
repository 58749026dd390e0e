package reconciler

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestMetricsRecordPass(t *testing.T) {
	metrics := NewMetrics()

	metrics.RecordPass(3, 40*time.Millisecond)
	metrics.RecordPass(0, 10*time.Millisecond)

	summary := metrics.Summary()
	if summary.Passes != 2 {
		t.Errorf("expected Passes=2, got %d", summary.Passes)
	}
	if summary.StepsPlanned != 3 {
		t.Errorf("expected StepsPlanned=3, got %d", summary.StepsPlanned)
	}
	if summary.EmptyPasses != 1 {
		t.Errorf("expected EmptyPasses=1, got %d", summary.EmptyPasses)
	}
	if summary.LastPassAt.IsZero() {
		t.Error("expected LastPassAt to be set")
	}
	if summary.LastPassDuration != 10*time.Millisecond {
		t.Errorf("expected LastPassDuration to track the latest pass, got %s", summary.LastPassDuration)
	}
}

func TestMetricsRecordTargetUpdate(t *testing.T) {
	metrics := NewMetrics()

	metrics.RecordTargetUpdate(4)
	metrics.RecordTargetUpdate(2)

	summary := metrics.Summary()
	if summary.TargetUpdates != 2 {
		t.Errorf("expected TargetUpdates=2, got %d", summary.TargetUpdates)
	}
	if summary.LastTargetSize != 2 {
		t.Errorf("expected LastTargetSize=2, got %d", summary.LastTargetSize)
	}
}

func TestMetricsRecordEvents(t *testing.T) {
	metrics := NewMetrics()

	metrics.RecordEvents(3)
	metrics.RecordEvents(1)

	summary := metrics.Summary()
	if summary.EventBatches != 2 {
		t.Errorf("expected EventBatches=2, got %d", summary.EventBatches)
	}
	if summary.EventsFolded != 4 {
		t.Errorf("expected EventsFolded=4, got %d", summary.EventsFolded)
	}
}

func TestMetricsRecordListing(t *testing.T) {
	metrics := NewMetrics()

	metrics.RecordListing(7)

	summary := metrics.Summary()
	if summary.Listings != 1 {
		t.Errorf("expected Listings=1, got %d", summary.Listings)
	}
	if summary.LastListingSize != 7 {
		t.Errorf("expected LastListingSize=7, got %d", summary.LastListingSize)
	}
	if summary.LastListingAt.IsZero() {
		t.Error("expected LastListingAt to be set")
	}
}

func TestMetricsEmptySummary(t *testing.T) {
	summary := NewMetrics().Summary()

	if summary.Passes != 0 || summary.StepsPlanned != 0 || summary.TargetUpdates != 0 {
		t.Errorf("expected zeroed summary, got %+v", summary)
	}
	if !summary.LastPassAt.IsZero() {
		t.Error("expected LastPassAt to be zero before any pass")
	}
}

func TestMetricsSummaryMarshalsToJSON(t *testing.T) {
	metrics := NewMetrics()
	metrics.RecordPass(2, 5*time.Millisecond)
	metrics.RecordListing(1)

	raw, err := json.Marshal(metrics.Summary())
	if err != nil {
		t.Fatalf("failed to marshal summary: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("failed to unmarshal summary: %v", err)
	}
	for _, key := range []string{"passes", "steps_planned", "listings"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("expected %q in summary JSON, got %s", key, raw)
		}
	}
}

func TestMetricsConcurrentRecording(t *testing.T) {
	metrics := NewMetrics()

	const goroutines = 10
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			metrics.RecordPass(1, time.Millisecond)
			metrics.RecordEvents(2)
			metrics.Summary()
		}()
	}
	wg.Wait()

	summary := metrics.Summary()
	if summary.Passes != goroutines {
		t.Errorf("expected Passes=%d, got %d", goroutines, summary.Passes)
	}
	if summary.EventsFolded != 2*goroutines {
		t.Errorf("expected EventsFolded=%d, got %d", 2*goroutines, summary.EventsFolded)
	}
}
