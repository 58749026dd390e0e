package reconciler

import (
	"sync"
	"time"
)

// Metrics tracks control-loop activity for monitoring and debugging.
//
// This provides visibility into reconciliation patterns: how often the
// loop wakes, how much work each pass plans, and how fresh the observed
// state is. Counters only ever grow; rates are for the reader to derive.
type Metrics struct {
	mu sync.Mutex

	passes        int64
	stepsPlanned  int64
	emptyPasses   int64
	targetUpdates int64
	eventBatches  int64
	eventsFolded  int64
	listings      int64

	lastPassAt       time.Time
	lastPassDuration time.Duration
	lastTargetSize   int
	lastListingAt    time.Time
	lastListingSize  int
}

// NewMetrics creates an empty metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordTargetUpdate records a target replacement and its pod count.
func (m *Metrics) RecordTargetUpdate(pods int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.targetUpdates++
	m.lastTargetSize = pods
}

// RecordEvents records one delivered event batch.
func (m *Metrics) RecordEvents(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.eventBatches++
	m.eventsFolded += int64(count)
}

// RecordListing records one full-listing replacement and its pod count.
func (m *Metrics) RecordListing(pods int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listings++
	m.lastListingAt = time.Now()
	m.lastListingSize = pods
}

// RecordPass records one reconciliation pass and the size of its plan.
func (m *Metrics) RecordPass(steps int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.passes++
	m.stepsPlanned += int64(steps)
	if steps == 0 {
		m.emptyPasses++
	}
	m.lastPassAt = time.Now()
	m.lastPassDuration = duration
}

// MetricsSummary is a read-only view of the loop's counters.
type MetricsSummary struct {
	Passes           int64         `json:"passes"`
	StepsPlanned     int64         `json:"steps_planned"`
	EmptyPasses      int64         `json:"empty_passes"`
	TargetUpdates    int64         `json:"target_updates"`
	EventBatches     int64         `json:"event_batches"`
	EventsFolded     int64         `json:"events_folded"`
	Listings         int64         `json:"listings"`
	LastPassAt       time.Time     `json:"last_pass_at,omitempty"`
	LastPassDuration time.Duration `json:"last_pass_duration,omitempty"`
	LastTargetSize   int           `json:"last_target_size"`
	LastListingAt    time.Time     `json:"last_listing_at,omitempty"`
	LastListingSize  int           `json:"last_listing_size"`
}

// Summary returns a snapshot of all counters.
func (m *Metrics) Summary() MetricsSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	return MetricsSummary{
		Passes:           m.passes,
		StepsPlanned:     m.stepsPlanned,
		EmptyPasses:      m.emptyPasses,
		TargetUpdates:    m.targetUpdates,
		EventBatches:     m.eventBatches,
		EventsFolded:     m.eventsFolded,
		Listings:         m.listings,
		LastPassAt:       m.lastPassAt,
		LastPassDuration: m.lastPassDuration,
		LastTargetSize:   m.lastTargetSize,
		LastListingAt:    m.lastListingAt,
		LastListingSize:  m.lastListingSize,
	}
}
