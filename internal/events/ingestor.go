package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"podlet/internal/runtime"
	"podlet/internal/state"
	"podlet/pkg/logging"
)

// Batch is one unit of observed-state change delivered to the control loop.
// Exactly one of the two forms is populated:
//
//   - Events: a debounced run of runtime lifecycle events, in arrival order,
//     each folded into the observed state individually.
//   - Replace: a complete runtime listing that replaces the observed state
//     wholesale. Non-nil even when the node runs nothing.
type Batch struct {
	Events  []state.Event
	Replace state.ObservedState
}

const (
	defaultDebounceWindow  = 2 * time.Second
	defaultRefreshInterval = 15 * time.Second

	// batchBuffer absorbs flushes while the consumer is mid-pass.
	batchBuffer = 16
)

// Ingestor watches the runtime and turns what it sees into Batches.
//
// Runtime events are debounced: each arrival restarts a quiet-period timer,
// and only when the runtime has been silent for the full window is the
// accumulated run delivered. A cascade (one pod start emitting a dozen
// events) therefore reaches the consumer as one batch.
//
// The runtime's event stream makes no delivery guarantee, so the ingestor
// also re-lists the runtime on a fixed interval and delivers the listing as
// a Replace batch. Listings are a correction for dropped events and are
// never debounced.
//
// The ingestor never applies a mutation itself; it decides what the
// mutation is and the consuming loop applies it.
type Ingestor struct {
	mu sync.Mutex

	client          runtime.Client
	debounceWindow  time.Duration
	refreshInterval time.Duration

	batches chan Batch

	// pending accumulates events until the quiet period elapses
	pending []state.Event

	// flushTimer is the pending quiet-period expiry, if any
	flushTimer *time.Timer

	stopCh  chan struct{}
	running bool
}

// NewIngestor creates an ingestor over a runtime client.
func NewIngestor(client runtime.Client, debounceWindow, refreshInterval time.Duration) *Ingestor {
	if debounceWindow <= 0 {
		debounceWindow = defaultDebounceWindow
	}
	if refreshInterval <= 0 {
		refreshInterval = defaultRefreshInterval
	}
	return &Ingestor{
		client:          client,
		debounceWindow:  debounceWindow,
		refreshInterval: refreshInterval,
		batches:         make(chan Batch, batchBuffer),
		stopCh:          make(chan struct{}),
	}
}

// Batches is the delivery channel. The consumer should drain everything
// pending before acting, so bursts coalesce into one pass.
func (i *Ingestor) Batches() <-chan Batch {
	return i.batches
}

// Start subscribes to the runtime's event stream and begins ingesting.
func (i *Ingestor) Start(ctx context.Context) error {
	i.mu.Lock()
	if i.running {
		i.mu.Unlock()
		return nil
	}
	i.running = true
	i.stopCh = make(chan struct{})
	i.mu.Unlock()

	eventCh, err := i.client.Events(ctx)
	if err != nil {
		i.Stop()
		return fmt.Errorf("failed to subscribe to runtime events: %w", err)
	}

	go i.run(ctx, eventCh)
	logging.Info("Ingestor", "Started (debounce %s, refresh %s)", i.debounceWindow, i.refreshInterval)
	return nil
}

// run consumes events and drives the refresh ticker until shutdown.
func (i *Ingestor) run(ctx context.Context, eventCh <-chan state.Event) {
	ticker := time.NewTicker(i.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			i.cancelPendingFlush()
			return

		case <-i.stopCh:
			i.cancelPendingFlush()
			return

		case ev, ok := <-eventCh:
			if !ok {
				// Stream ended; the refresh ticker is now the only
				// source of observations.
				logging.Warn("Ingestor", "Runtime event stream closed, relying on refresh listings")
				eventCh = nil
				continue
			}
			i.observe(ev)

		case <-ticker.C:
			i.refresh(ctx)
		}
	}
}

// observe buffers an event and restarts the quiet-period timer.
func (i *Ingestor) observe(ev state.Event) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.pending = append(i.pending, ev)
	if i.flushTimer != nil {
		i.flushTimer.Stop()
	}
	i.flushTimer = time.AfterFunc(i.debounceWindow, i.flush)
	logging.Debug("Ingestor", "Event %s for %s buffered (%d pending)", ev.Kind, ev.ID, len(i.pending))
}

// flush delivers the accumulated events as one batch.
func (i *Ingestor) flush() {
	i.mu.Lock()
	events := i.pending
	i.pending = nil
	i.flushTimer = nil
	stopCh := i.stopCh
	i.mu.Unlock()

	if len(events) == 0 {
		return
	}

	select {
	case i.batches <- Batch{Events: events}:
		logging.Debug("Ingestor", "Delivered %d event(s) after quiet period", len(events))
	case <-stopCh:
	}
}

// refresh lists the runtime and delivers the listing immediately.
func (i *Ingestor) refresh(ctx context.Context) {
	listing, err := i.client.ListPods(ctx)
	if err != nil {
		logging.Error("Ingestor", err, "Refresh listing failed")
		return
	}
	if listing == nil {
		listing = state.ObservedState{}
	}

	select {
	case i.batches <- Batch{Replace: listing}:
		logging.Debug("Ingestor", "Delivered refresh listing (%d pod(s))", len(listing))
	case <-i.stopCh:
	case <-ctx.Done():
	}
}

func (i *Ingestor) cancelPendingFlush() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.flushTimer != nil {
		i.flushTimer.Stop()
		i.flushTimer = nil
	}
	i.pending = nil
}

// Stop gracefully stops the ingestor.
func (i *Ingestor) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.running {
		return
	}
	i.running = false
	close(i.stopCh)

	if i.flushTimer != nil {
		i.flushTimer.Stop()
		i.flushTimer = nil
	}

	logging.Info("Ingestor", "Stopped event ingestor")
}
