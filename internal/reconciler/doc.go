// Package reconciler drives the node toward the target state.
//
// # Overview
//
// The package owns the control loop: a single goroutine that consumes
// target updates from the manifest watcher and observation batches from
// the event ingestor, and after every input change runs one
// reconciliation pass. A pass snapshots the observed state, computes a
// plan of next steps, and rebuilds the worktree that executes them.
//
// # Single writer
//
// Only the loop goroutine touches the observed state store, the current
// target, and the live worktree. Producers hand their data over on
// channels and never share locks with the loop. This keeps every pass a
// consistent read-modify-write with no interleaving writers.
//
// # Pass structure
//
// Each pass is pull-based and stateless:
//
//	observed := store.Snapshot()
//	plan := diff.Diff(target, observed, live.InFlight())
//	live = worktree.Build(ctx, plan, live, executor)
//
// Tasks whose step identity survives the rebuild carry over without
// interruption; superseded tasks are cancelled and joined before the
// pass returns. The loop performs no reconciliation until the first
// valid target arrives.
//
// # Metrics
//
// The loop maintains in-memory counters (passes, planned steps, folded
// events, listings) exposed through a JSON-friendly summary for logging
// at shutdown or on demand.
package reconciler
