package worktree

import (
	"context"
	"fmt"
	"math"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"podlet/internal/diff"
	"podlet/pkg/logging"
)

// retryBackoff shapes a task's retry delays: exponential with jitter,
// capped, never exhausted. Variable so tests can shrink it.
var retryBackoff = func() wait.Backoff {
	return wait.Backoff{
		Duration: 500 * time.Millisecond,
		Factor:   2,
		Jitter:   0.1,
		Steps:    math.MaxInt32,
		Cap:      15 * time.Second,
	}
}

// Task supervises one step: a single goroutine that retries the operation
// until it lands or the task is cancelled. Those are the only two exits; a
// task never gives up on its own.
type Task struct {
	step   diff.Step
	cancel context.CancelFunc
	done   chan struct{}
}

// startTask spawns the task's goroutine and returns immediately.
func startTask(ctx context.Context, step diff.Step, exec *Executor) *Task {
	taskCtx, cancel := context.WithCancel(ctx)
	t := &Task{
		step:   step,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go t.run(taskCtx, exec)
	return t
}

// Step returns the step this task is executing.
func (t *Task) Step() diff.Step {
	return t.step
}

func (t *Task) run(ctx context.Context, exec *Executor) {
	defer close(t.done)

	backoff := retryBackoff()
	for {
		err := t.attempt(ctx, exec)
		if err == nil {
			logging.Debug("Task", "%s succeeded", t.step)
			return
		}
		if ctx.Err() != nil {
			logging.Debug("Task", "%s cancelled", t.step)
			return
		}

		delay := backoff.Step()
		logging.Warn("Task", "%s failed, retrying in %s: %v", t.step, delay.Round(time.Millisecond), err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			logging.Debug("Task", "%s cancelled during backoff", t.step)
			return
		}
	}
}

// attempt runs one try. A panic inside the attempt is recovered and
// reported as an ordinary failure, so one bad attempt cannot take the
// agent down.
func (t *Task) attempt(ctx context.Context, exec *Executor) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("attempt panicked: %v", r)
		}
	}()
	return exec.Run(ctx, t.step)
}

// stop cancels the task and waits for its goroutine to exit.
func (t *Task) stop() {
	t.cancel()
	<-t.done
}

// finished reports whether the task's goroutine has exited.
func (t *Task) finished() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}
