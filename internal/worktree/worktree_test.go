package worktree

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podlet/internal/diff"
	"podlet/internal/runtime"
	"podlet/internal/state"
)

// tracking counts operations currently holding runtime resources; every
// call parks until its context is cancelled.
type tracking struct {
	runtime.Client
	mu     sync.Mutex
	active int
}

func (c *tracking) hold(ctx context.Context) error {
	c.mu.Lock()
	c.active++
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.active--
		c.mu.Unlock()
	}()
	<-ctx.Done()
	return ctx.Err()
}

func (c *tracking) StopContainer(ctx context.Context, id state.Identifier) error {
	return c.hold(ctx)
}

func (c *tracking) DeletePod(ctx context.Context, id state.Identifier) error {
	return c.hold(ctx)
}

func (c *tracking) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func stopStep(key state.ResourceKey, name string) diff.Step {
	return diff.Step{Kind: diff.StopContainer, Key: key, Container: name, ContainerID: state.Identifier("id-" + name)}
}

func TestBuildRunsPlan(t *testing.T) {
	fake := runtime.NewFake()
	pod, ctrID := stoppableContainer(t, fake)

	plan := diff.Plan{{Kind: diff.StopContainer, Key: pod.Key, Container: "app", ContainerID: ctrID}}
	w := Build(t.Context(), plan, nil, NewExecutor(fake, 1))
	defer w.Dispose()

	require.Equal(t, 1, w.Len())

	deadline := time.Now().Add(2 * time.Second)
	for fake.Pods()[pod.Key].Containers["app"].State != state.ContainerExited {
		if time.Now().After(deadline) {
			t.Fatal("step never executed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBuildCarriesRunningTask(t *testing.T) {
	client := &tracking{Client: runtime.NewFake()}
	exec := NewExecutor(client, 1)
	key := testPod("web", "app").Key
	plan := diff.Plan{stopStep(key, "app")}

	first := Build(context.Background(), plan, nil, exec)
	task := first.tasks[plan[0].ID()]
	require.NotNil(t, task)

	second := Build(context.Background(), plan, first, exec)
	defer second.Dispose()

	assert.Same(t, task, second.tasks[plan[0].ID()], "a recurring step keeps its running task")
	assert.Zero(t, first.Len(), "the carried task no longer belongs to the old worktree")

	// Disposing the old worktree must not touch the carried task.
	first.Dispose()
	assert.False(t, task.finished())
}

func TestBuildReplacesFinishedTask(t *testing.T) {
	fake := runtime.NewFake()
	pod, ctrID := stoppableContainer(t, fake)
	exec := NewExecutor(fake, 1)

	plan := diff.Plan{{Kind: diff.StopContainer, Key: pod.Key, Container: "app", ContainerID: ctrID}}
	first := Build(context.Background(), plan, nil, exec)
	task := first.tasks[plan[0].ID()]
	waitDone(t, task, 2*time.Second)

	second := Build(context.Background(), plan, first, exec)
	defer second.Dispose()
	defer first.Dispose()

	assert.NotSame(t, task, second.tasks[plan[0].ID()], "finished tasks are not carried")
}

func TestBuildMixedCarryAndSpawn(t *testing.T) {
	client := &tracking{Client: runtime.NewFake()}
	exec := NewExecutor(client, 1)
	key := testPod("web", "a", "b").Key

	first := Build(context.Background(), diff.Plan{stopStep(key, "a")}, nil, exec)
	carried := first.tasks[stopStep(key, "a").ID()]

	second := Build(context.Background(), diff.Plan{stopStep(key, "a"), stopStep(key, "b")}, first, exec)
	defer second.Dispose()
	first.Dispose()

	require.Equal(t, 2, second.Len())
	assert.Same(t, carried, second.tasks[stopStep(key, "a").ID()])
}

func TestDisposeCancelsAndJoins(t *testing.T) {
	client := &tracking{Client: runtime.NewFake()}
	exec := NewExecutor(client, 1)
	key := testPod("web", "a", "b", "c").Key

	plan := diff.Plan{
		stopStep(key, "a"),
		stopStep(key, "b"),
		{Kind: diff.DeletePod, Key: key, PodID: "sb-1"},
	}
	w := Build(context.Background(), plan, nil, exec)

	deadline := time.Now().Add(2 * time.Second)
	for client.Active() != 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 3 holds, got %d", client.Active())
		}
		time.Sleep(5 * time.Millisecond)
	}

	w.Dispose()

	assert.Zero(t, client.Active(), "Dispose returns only after every task released its hold")
	assert.Zero(t, w.Len())
	assert.Empty(t, w.InFlight())
}

func TestDisposeNilAndEmpty(t *testing.T) {
	var w *Worktree
	w.Dispose()
	assert.Zero(t, w.Len())
	assert.Nil(t, w.InFlight())

	empty := Build(context.Background(), nil, nil, NewExecutor(runtime.NewFake(), 1))
	empty.Dispose()
}

func TestInFlightTracksRunningTasks(t *testing.T) {
	client := &tracking{Client: runtime.NewFake()}
	exec := NewExecutor(client, 1)
	key := testPod("web", "app").Key
	step := stopStep(key, "app")

	w := Build(context.Background(), diff.Plan{step}, nil, exec)
	defer w.Dispose()

	inflight := w.InFlight()
	require.Len(t, inflight, 1)
	assert.Equal(t, step, inflight[step.ID()])
}

func TestInFlightOmitsFinishedTasks(t *testing.T) {
	fake := runtime.NewFake()
	pod, ctrID := stoppableContainer(t, fake)

	step := diff.Step{Kind: diff.StopContainer, Key: pod.Key, Container: "app", ContainerID: ctrID}
	w := Build(context.Background(), diff.Plan{step}, nil, NewExecutor(fake, 1))
	defer w.Dispose()

	waitDone(t, w.tasks[step.ID()], 2*time.Second)
	assert.Empty(t, w.InFlight())
}

func TestCarriedTaskSurvivesManyRebuilds(t *testing.T) {
	client := &tracking{Client: runtime.NewFake()}
	exec := NewExecutor(client, 1)
	key := testPod("web", "app").Key
	plan := diff.Plan{stopStep(key, "app")}

	w := Build(context.Background(), plan, nil, exec)
	original := w.tasks[plan[0].ID()]

	for i := 0; i < 5; i++ {
		next := Build(context.Background(), plan, w, exec)
		w.Dispose()
		w = next
	}
	defer w.Dispose()

	assert.Same(t, original, w.tasks[plan[0].ID()])
	assert.False(t, original.finished())
}
