package reconciler

import (
	"context"
	"sync"
	"time"

	"podlet/internal/diff"
	"podlet/internal/events"
	"podlet/internal/state"
	"podlet/internal/worktree"
	"podlet/pkg/logging"
)

// Loop is the agent's control loop: one goroutine that owns the observed
// state, the current target, and the live worktree. Every mutation of
// those happens here and only here; collaborators talk to the loop through
// its two input channels, never through shared memory.
//
// The loop alternates between waiting for a trigger and running exactly
// one reconciliation pass. It never runs a pass without a trigger and
// never two passes at once.
type Loop struct {
	mu sync.Mutex

	store    *state.Store
	executor *worktree.Executor

	// targets delivers replacement desired state
	targets <-chan state.Target

	// batches delivers observed-state changes from the ingestor
	batches <-chan events.Batch

	metrics *Metrics

	cancelFunc context.CancelFunc
	doneCh     chan struct{}
	running    bool
}

// NewLoop creates the control loop. store carries the seeded observed
// state; the loop takes sole ownership of it from Start on.
func NewLoop(store *state.Store, executor *worktree.Executor, targets <-chan state.Target, batches <-chan events.Batch) *Loop {
	return &Loop{
		store:    store,
		executor: executor,
		targets:  targets,
		batches:  batches,
		metrics:  NewMetrics(),
	}
}

// Metrics returns the loop's activity counters.
func (l *Loop) Metrics() *Metrics {
	return l.metrics
}

// Start launches the loop goroutine.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	l.cancelFunc = cancel
	l.doneCh = make(chan struct{})
	l.running = true

	go l.run(loopCtx)
	logging.Info("Reconciler", "Control loop started")
	return nil
}

// Stop cancels the loop and blocks until it has disposed its worktree and
// exited.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	cancel := l.cancelFunc
	done := l.doneCh
	l.mu.Unlock()

	cancel()
	<-done
	logging.Info("Reconciler", "Control loop stopped")
}

// run is the loop body. target and the live worktree are locals of this
// goroutine on purpose: nothing else may see them.
func (l *Loop) run(ctx context.Context) {
	defer close(l.doneCh)

	var (
		target    state.Target
		hasTarget bool
		live      *worktree.Worktree
	)

	defer func() {
		live.Dispose()
		logging.Info("Reconciler", "Worktree disposed, loop exiting")
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case newTarget := <-l.targets:
			target = newTarget
			hasTarget = true
			l.metrics.RecordTargetUpdate(len(newTarget))

		case batch := <-l.batches:
			l.applyBatch(batch)
		}

		// Coalesce: fold in everything already queued so one pass
		// covers the whole burst.
		target, hasTarget = l.drainPending(target, hasTarget)

		// No reconciliation before the first valid target. Diffing
		// against an implicit empty target would terminate every pod
		// on the node.
		if !hasTarget {
			continue
		}

		live = l.pass(ctx, target, live)
	}
}

// drainPending consumes every trigger already buffered without blocking.
func (l *Loop) drainPending(target state.Target, hasTarget bool) (state.Target, bool) {
	for {
		select {
		case newTarget := <-l.targets:
			target = newTarget
			hasTarget = true
			l.metrics.RecordTargetUpdate(len(newTarget))

		case batch := <-l.batches:
			l.applyBatch(batch)

		default:
			return target, hasTarget
		}
	}
}

// applyBatch mutates the observed state as the ingestor decided.
func (l *Loop) applyBatch(batch events.Batch) {
	if batch.Replace != nil {
		l.store.Replace(batch.Replace)
		l.metrics.RecordListing(len(batch.Replace))
		return
	}
	for _, ev := range batch.Events {
		l.store.Fold(ev)
	}
	l.metrics.RecordEvents(len(batch.Events))
}

// pass runs one reconciliation: snapshot, diff, rebuild the worktree.
func (l *Loop) pass(ctx context.Context, target state.Target, previous *worktree.Worktree) *worktree.Worktree {
	started := time.Now()

	observed := l.store.Snapshot()
	plan := diff.Diff(target, observed, previous.InFlight())

	next := worktree.Build(ctx, plan, previous, l.executor)
	previous.Dispose()

	l.metrics.RecordPass(len(plan), time.Since(started))

	if len(plan) > 0 {
		logging.Info("Reconciler", "Pass planned %d step(s) (%d targeted, %d observed pod(s))",
			len(plan), len(target), len(observed))
		for _, step := range plan {
			logging.Debug("Reconciler", "Step: %s", step)
		}
	}
	return next
}
