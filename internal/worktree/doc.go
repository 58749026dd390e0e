// Package worktree executes plans as supervised concurrent tasks.
//
// Each step of a plan runs in its own task goroutine, retrying with capped
// exponential backoff until the runtime accepts it or the task is
// cancelled. When a new plan replaces the current one, tasks whose step
// identity recurs move into the new worktree untouched; the rest are
// cancelled and joined by disposing the old worktree. Task teardown happens
// on every exit path, so switching plans can never leak a goroutine or a
// half-cancelled operation.
//
// Tasks never write to the agent's state stores. Their work becomes visible
// only through the runtime's own events and listings, which keeps every
// store mutation on the control loop's goroutine.
package worktree
