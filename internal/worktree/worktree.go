package worktree

import (
	"context"

	"podlet/internal/diff"
	"podlet/pkg/logging"
)

// Worktree owns the tasks of the most recent plan. It belongs to the
// control loop goroutine exclusively; none of its methods are safe for
// concurrent use.
type Worktree struct {
	tasks map[diff.StepID]*Task
}

// Build turns a plan into a worktree. Steps whose identity matches a task
// still running in previous move over as-is, keeping their execution state
// (an in-flight image pull survives a replan); everything else gets a fresh
// task. Build never waits on any task.
//
// Tasks moved out of previous are no longer previous's to cancel; the
// remainder is cleaned up by previous.Dispose.
func Build(ctx context.Context, plan diff.Plan, previous *Worktree, exec *Executor) *Worktree {
	w := &Worktree{tasks: make(map[diff.StepID]*Task, len(plan))}

	carried := 0
	for _, step := range plan {
		id := step.ID()
		if previous != nil {
			if task, ok := previous.tasks[id]; ok && !task.finished() {
				w.tasks[id] = task
				delete(previous.tasks, id)
				carried++
				continue
			}
		}
		w.tasks[id] = startTask(ctx, step, exec)
	}

	if len(plan) > 0 {
		logging.Debug("Worktree", "Built worktree: %d task(s), %d carried over", len(w.tasks), carried)
	}
	return w
}

// Dispose cancels every task the worktree still owns and blocks until each
// goroutine has exited. Safe on a nil worktree.
func (w *Worktree) Dispose() {
	if w == nil {
		return
	}
	for _, task := range w.tasks {
		task.cancel()
	}
	for _, task := range w.tasks {
		<-task.done
	}
	w.tasks = nil
}

// InFlight returns the steps whose tasks are still running, keyed by step
// identity. This is the carry-over input for the next differencer pass.
func (w *Worktree) InFlight() map[diff.StepID]diff.Step {
	if w == nil || len(w.tasks) == 0 {
		return nil
	}
	inflight := make(map[diff.StepID]diff.Step, len(w.tasks))
	for id, task := range w.tasks {
		if !task.finished() {
			inflight[id] = task.step
		}
	}
	return inflight
}

// Len returns the number of tasks the worktree owns, finished or not.
func (w *Worktree) Len() int {
	if w == nil {
		return 0
	}
	return len(w.tasks)
}
