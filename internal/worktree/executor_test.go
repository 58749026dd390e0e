package worktree

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podlet/internal/diff"
	"podlet/internal/runtime"
	"podlet/internal/state"
)

func testPod(name string, containers ...string) state.PodConfig {
	cfg := state.PodConfig{Name: name, Containers: map[string]state.ContainerConfig{}}
	for _, c := range containers {
		cfg.Containers[c] = state.ContainerConfig{Name: c, Image: c + ":1"}
	}
	cfg.Key = state.KeyFor(cfg)
	return cfg
}

func TestExecutorCreatePod(t *testing.T) {
	fake := runtime.NewFake()
	exec := NewExecutor(fake, 1)
	pod := testPod("web", "app")

	err := exec.Run(context.Background(), diff.Step{Kind: diff.CreatePod, Key: pod.Key, Pod: pod})
	require.NoError(t, err)

	observed := fake.Pods()
	require.Len(t, observed, 1)
	assert.Contains(t, observed, pod.Key)
}

func TestExecutorAddContainerPullsMissingImage(t *testing.T) {
	fake := runtime.NewFake()
	ctx := context.Background()
	pod := testPod("web", "app")

	podID, err := fake.CreateSandbox(ctx, pod)
	require.NoError(t, err)

	exec := NewExecutor(fake, 1)
	step := diff.Step{Kind: diff.AddContainer, Key: pod.Key, Container: "app", Pod: pod, PodID: podID}
	require.NoError(t, exec.Run(ctx, step))

	assert.Equal(t, 1, fake.CallCount("PullImage"))
	assert.Equal(t, 1, fake.CallCount("CreateContainer"))
	assert.Equal(t, 1, fake.CallCount("StartContainer"))

	status := fake.Pods()[pod.Key]
	require.Contains(t, status.Containers, "app")
	assert.Equal(t, state.ContainerRunning, status.Containers["app"].State)
}

func TestExecutorAddContainerSkipsPresentImage(t *testing.T) {
	fake := runtime.NewFake()
	ctx := context.Background()
	pod := testPod("web", "app")
	fake.SetImage("app:1", true)

	podID, err := fake.CreateSandbox(ctx, pod)
	require.NoError(t, err)

	exec := NewExecutor(fake, 1)
	step := diff.Step{Kind: diff.AddContainer, Key: pod.Key, Container: "app", Pod: pod, PodID: podID}
	require.NoError(t, exec.Run(ctx, step))

	assert.Zero(t, fake.CallCount("PullImage"))
	assert.Equal(t, 1, fake.CallCount("StartContainer"))
}

func TestExecutorAddContainerUnknownName(t *testing.T) {
	exec := NewExecutor(runtime.NewFake(), 1)
	pod := testPod("web", "app")

	err := exec.Run(context.Background(), diff.Step{
		Kind: diff.AddContainer, Key: pod.Key, Container: "ghost", Pod: pod, PodID: "sb-1",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestExecutorStopContainer(t *testing.T) {
	fake := runtime.NewFake()
	ctx := context.Background()
	pod := testPod("web", "app")

	podID, err := fake.CreateSandbox(ctx, pod)
	require.NoError(t, err)
	ctrID, err := fake.CreateContainer(ctx, podID, pod, pod.Containers["app"])
	require.NoError(t, err)
	require.NoError(t, fake.StartContainer(ctx, ctrID))

	exec := NewExecutor(fake, 1)
	err = exec.Run(ctx, diff.Step{Kind: diff.StopContainer, Key: pod.Key, Container: "app", ContainerID: ctrID})
	require.NoError(t, err)

	assert.Equal(t, state.ContainerExited, fake.Pods()[pod.Key].Containers["app"].State)
}

func TestExecutorRemoveContainerStopsFirst(t *testing.T) {
	fake := runtime.NewFake()
	ctx := context.Background()
	pod := testPod("web", "app")

	podID, err := fake.CreateSandbox(ctx, pod)
	require.NoError(t, err)
	ctrID, err := fake.CreateContainer(ctx, podID, pod, pod.Containers["app"])
	require.NoError(t, err)
	require.NoError(t, fake.StartContainer(ctx, ctrID))

	exec := NewExecutor(fake, 1)
	err = exec.Run(ctx, diff.Step{Kind: diff.RemoveContainer, Key: pod.Key, Container: "app", ContainerID: ctrID})
	require.NoError(t, err)

	var stopAt, removeAt int
	for i, call := range fake.Calls() {
		switch {
		case strings.HasPrefix(call, "StopContainer"):
			stopAt = i
		case strings.HasPrefix(call, "RemoveContainer"):
			removeAt = i
		}
	}
	assert.Less(t, stopAt, removeAt, "stop must precede remove")
	assert.NotContains(t, fake.Pods()[pod.Key].Containers, "app")
}

func TestExecutorDeletePod(t *testing.T) {
	fake := runtime.NewFake()
	ctx := context.Background()
	pod := testPod("web", "app")

	podID, err := fake.CreateSandbox(ctx, pod)
	require.NoError(t, err)

	exec := NewExecutor(fake, 1)
	require.NoError(t, exec.Run(ctx, diff.Step{Kind: diff.DeletePod, Key: pod.Key, PodID: podID}))
	assert.Empty(t, fake.Pods())
}

func TestExecutorUnknownKind(t *testing.T) {
	exec := NewExecutor(runtime.NewFake(), 1)
	err := exec.Run(context.Background(), diff.Step{Kind: diff.StepKind(42)})
	require.Error(t, err)
}

// slowPulls wraps a client so the test can measure pull concurrency.
type slowPulls struct {
	runtime.Client
	mu     sync.Mutex
	active int
	peak   int
}

func (s *slowPulls) PullImage(ctx context.Context, ref string) error {
	s.mu.Lock()
	s.active++
	if s.active > s.peak {
		s.peak = s.active
	}
	s.mu.Unlock()

	time.Sleep(40 * time.Millisecond)

	s.mu.Lock()
	s.active--
	s.mu.Unlock()
	return s.Client.PullImage(ctx, ref)
}

func (s *slowPulls) Peak() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}

func TestExecutorBoundsConcurrentPulls(t *testing.T) {
	fake := runtime.NewFake()
	client := &slowPulls{Client: fake}
	ctx := context.Background()

	pod := testPod("web", "a", "b", "c")
	podID, err := fake.CreateSandbox(ctx, pod)
	require.NoError(t, err)

	exec := NewExecutor(client, 1)

	var wg sync.WaitGroup
	for _, name := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			step := diff.Step{Kind: diff.AddContainer, Key: pod.Key, Container: name, Pod: pod, PodID: podID}
			assert.NoError(t, exec.Run(ctx, step))
		}(name)
	}
	wg.Wait()

	assert.Equal(t, 1, client.Peak(), "at most one pull may run at a time")
	require.Len(t, fake.Pods()[pod.Key].Containers, 3)
}
