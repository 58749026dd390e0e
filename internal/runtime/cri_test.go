package runtime

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	runtimeapi "k8s.io/cri-api/pkg/apis/runtime/v1"

	"podlet/internal/state"
)

func TestStateFromCRI(t *testing.T) {
	tests := []struct {
		in       runtimeapi.ContainerState
		expected state.ContainerState
	}{
		{runtimeapi.ContainerState_CONTAINER_CREATED, state.ContainerCreated},
		{runtimeapi.ContainerState_CONTAINER_RUNNING, state.ContainerRunning},
		{runtimeapi.ContainerState_CONTAINER_EXITED, state.ContainerExited},
		{runtimeapi.ContainerState_CONTAINER_UNKNOWN, state.ContainerUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, stateFromCRI(tt.in), "state %v", tt.in)
	}
}

func TestKeyFromMetadata(t *testing.T) {
	key := state.KeyFor(state.PodConfig{Name: "web"})

	got := keyFromMetadata(&runtimeapi.PodSandboxMetadata{
		Name: "web", Uid: key.String(), Namespace: "default",
	}, "sb-1")
	assert.Equal(t, key, got, "a parseable uid round-trips")

	foreign := keyFromMetadata(&runtimeapi.PodSandboxMetadata{
		Name: "stray", Uid: "not-a-uuid",
	}, "sb-2")
	assert.Equal(t, state.ForeignKey("sb-2"), foreign)
	assert.Equal(t, foreign, keyFromMetadata(nil, "sb-2"), "missing metadata behaves like a foreign sandbox")
}

func TestEventFromCRI_ContainerEventCarriesSnapshot(t *testing.T) {
	key := state.KeyFor(state.PodConfig{Name: "web"})

	ev, ok := eventFromCRI(&runtimeapi.ContainerEventResponse{
		ContainerId:        "ctr-1",
		ContainerEventType: runtimeapi.ContainerEventType_CONTAINER_STARTED_EVENT,
		PodSandboxStatus: &runtimeapi.PodSandboxStatus{
			Id:       "sb-1",
			Metadata: &runtimeapi.PodSandboxMetadata{Name: "web", Uid: key.String()},
		},
		ContainersStatuses: []*runtimeapi.ContainerStatus{
			{
				Id:       "ctr-1",
				Metadata: &runtimeapi.ContainerMetadata{Name: "server"},
				State:    runtimeapi.ContainerState_CONTAINER_RUNNING,
			},
			{
				Id:       "ctr-2",
				Metadata: &runtimeapi.ContainerMetadata{Name: "redis"},
				State:    runtimeapi.ContainerState_CONTAINER_EXITED,
			},
		},
	})
	require.True(t, ok)

	assert.Equal(t, state.EventStarted, ev.Kind)
	assert.Equal(t, state.Identifier("ctr-1"), ev.ID)
	require.NotNil(t, ev.Pod)
	assert.Equal(t, key, ev.Pod.Key)
	assert.Equal(t, state.Identifier("sb-1"), ev.Pod.Status.ID)
	assert.Equal(t, map[string]state.ContainerStatus{
		"server": {ID: "ctr-1", State: state.ContainerRunning},
		"redis":  {ID: "ctr-2", State: state.ContainerExited},
	}, ev.Pod.Status.Containers)
}

func TestEventFromCRI_SandboxDeletionHasNoSnapshot(t *testing.T) {
	ev, ok := eventFromCRI(&runtimeapi.ContainerEventResponse{
		ContainerId:        "sb-1",
		ContainerEventType: runtimeapi.ContainerEventType_CONTAINER_DELETED_EVENT,
	})
	require.True(t, ok)

	assert.Equal(t, state.EventRemoved, ev.Kind)
	assert.Equal(t, state.Identifier("sb-1"), ev.ID)
	assert.Nil(t, ev.Pod, "deletion events carry only the event id")
}

func TestIsNotFound(t *testing.T) {
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsNotFound(errors.New("boom")))
	assert.True(t, IsNotFound(ErrNotFound))
	assert.True(t, IsNotFound(fmt.Errorf("container x: %w", ErrNotFound)))
	assert.True(t, IsNotFound(status.Error(codes.NotFound, "no such container")))
	assert.False(t, IsNotFound(status.Error(codes.Unavailable, "down")))
}

func TestFake_DeletePodEmitsIdOnlyEvent(t *testing.T) {
	f := NewFake()
	pod := state.PodConfig{Name: "web"}
	pod.Key = state.KeyFor(pod)

	sbID, err := f.CreateSandbox(t.Context(), pod)
	require.NoError(t, err)
	require.NoError(t, f.DeletePod(t.Context(), sbID))

	ch, err := f.Events(t.Context())
	require.NoError(t, err)

	var last state.Event
	for len(ch) > 0 {
		last = <-ch
	}
	assert.Equal(t, state.EventRemoved, last.Kind)
	assert.Equal(t, sbID, last.ID)
	assert.Nil(t, last.Pod)
}

func TestFake_SandboxKeyUniqueness(t *testing.T) {
	f := NewFake()
	pod := state.PodConfig{Name: "web"}
	pod.Key = state.KeyFor(pod)

	_, err := f.CreateSandbox(t.Context(), pod)
	require.NoError(t, err)

	_, err = f.CreateSandbox(t.Context(), pod)
	assert.Error(t, err, "duplicate keys signal a hashing bug and must be rejected")
}
