package runtime

import (
	"context"
	"fmt"
	"sort"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	runtimeapi "k8s.io/cri-api/pkg/apis/runtime/v1"

	"podlet/internal/state"
	"podlet/pkg/logging"
)

const (
	// stopGraceSeconds is the grace the runtime gives a container between
	// SIGTERM and SIGKILL on stop.
	stopGraceSeconds = 10

	// eventRedialDelay spaces out attempts to re-establish the lifecycle
	// event stream. Missed events during the gap are compensated by the
	// periodic refresh, never replayed.
	eventRedialDelay = 2 * time.Second

	eventBuffer = 64

	// podNamespace is the namespace recorded in sandbox metadata. The agent
	// manages a flat node-local pod set.
	podNamespace = "default"

	managedByLabel = "io.podlet/managed-by"
	managedByValue = "podlet"
)

// CRI implements Client over the Kubernetes Container Runtime Interface on a
// local socket (containerd, CRI-O).
type CRI struct {
	conn    *grpc.ClientConn
	runtime runtimeapi.RuntimeServiceClient
	images  runtimeapi.ImageServiceClient
}

// NewCRI connects to a CRI endpoint, e.g.
// unix:///run/containerd/containerd.sock. The connection is lazy; failures
// surface on the first call.
func NewCRI(endpoint string) (*CRI, error) {
	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to CRI endpoint %s: %w", endpoint, err)
	}
	return &CRI{
		conn:    conn,
		runtime: runtimeapi.NewRuntimeServiceClient(conn),
		images:  runtimeapi.NewImageServiceClient(conn),
	}, nil
}

// Version probes the runtime and returns its identification string.
func (c *CRI) Version(ctx context.Context) (string, error) {
	resp, err := c.runtime.Version(ctx, &runtimeapi.VersionRequest{})
	if err != nil {
		return "", fmt.Errorf("failed to query runtime version: %w", err)
	}
	return fmt.Sprintf("%s %s (API %s)", resp.RuntimeName, resp.RuntimeVersion, resp.RuntimeApiVersion), nil
}

func (c *CRI) ListPods(ctx context.Context) (state.ObservedState, error) {
	sandboxes, err := c.runtime.ListPodSandbox(ctx, &runtimeapi.ListPodSandboxRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list pod sandboxes: %w", err)
	}
	containers, err := c.runtime.ListContainers(ctx, &runtimeapi.ListContainersRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	byPod := make(map[string][]*runtimeapi.Container)
	for _, ctr := range containers.Containers {
		byPod[ctr.PodSandboxId] = append(byPod[ctr.PodSandboxId], ctr)
	}

	observed := make(state.ObservedState, len(sandboxes.Items))
	for _, sb := range sandboxes.Items {
		status := state.PodStatus{
			ID:         state.Identifier(sb.Id),
			Containers: make(map[string]state.ContainerStatus),
		}
		for _, ctr := range byPod[sb.Id] {
			name := ""
			if ctr.Metadata != nil {
				name = ctr.Metadata.Name
			}
			status.Containers[name] = state.ContainerStatus{
				ID:    state.Identifier(ctr.Id),
				State: stateFromCRI(ctr.State),
			}
		}
		observed[keyFromMetadata(sb.Metadata, sb.Id)] = status
	}
	return observed, nil
}

func (c *CRI) CreateSandbox(ctx context.Context, pod state.PodConfig) (state.Identifier, error) {
	resp, err := c.runtime.RunPodSandbox(ctx, &runtimeapi.RunPodSandboxRequest{
		Config: sandboxConfig(pod),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create sandbox for pod %s: %w", pod.Name, err)
	}
	return state.Identifier(resp.PodSandboxId), nil
}

func (c *CRI) ImageStatus(ctx context.Context, ref string) (bool, error) {
	resp, err := c.images.ImageStatus(ctx, &runtimeapi.ImageStatusRequest{
		Image: &runtimeapi.ImageSpec{Image: ref},
	})
	if err != nil {
		return false, fmt.Errorf("failed to query image status for %s: %w", ref, err)
	}
	return resp.Image != nil, nil
}

func (c *CRI) PullImage(ctx context.Context, ref string) error {
	if _, err := c.images.PullImage(ctx, &runtimeapi.PullImageRequest{
		Image: &runtimeapi.ImageSpec{Image: ref},
	}); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}
	return nil
}

func (c *CRI) CreateContainer(ctx context.Context, podID state.Identifier, pod state.PodConfig, cfg state.ContainerConfig) (state.Identifier, error) {
	envs := make([]*runtimeapi.KeyValue, 0, len(cfg.Env))
	envKeys := make([]string, 0, len(cfg.Env))
	for k := range cfg.Env {
		envKeys = append(envKeys, k)
	}
	sort.Strings(envKeys)
	for _, k := range envKeys {
		envs = append(envs, &runtimeapi.KeyValue{Key: k, Value: cfg.Env[k]})
	}

	resp, err := c.runtime.CreateContainer(ctx, &runtimeapi.CreateContainerRequest{
		PodSandboxId: string(podID),
		Config: &runtimeapi.ContainerConfig{
			Metadata: &runtimeapi.ContainerMetadata{Name: cfg.Name},
			Image:    &runtimeapi.ImageSpec{Image: cfg.Image},
			Command:  cfg.Command,
			Args:     cfg.Args,
			Envs:     envs,
			Labels:   map[string]string{managedByLabel: managedByValue},
		},
		SandboxConfig: sandboxConfig(pod),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create container %s in pod %s: %w", cfg.Name, pod.Name, err)
	}
	return state.Identifier(resp.ContainerId), nil
}

func (c *CRI) StartContainer(ctx context.Context, id state.Identifier) error {
	if _, err := c.runtime.StartContainer(ctx, &runtimeapi.StartContainerRequest{
		ContainerId: string(id),
	}); err != nil {
		return fmt.Errorf("failed to start container %s: %w", id, err)
	}
	return nil
}

func (c *CRI) StopContainer(ctx context.Context, id state.Identifier) error {
	if _, err := c.runtime.StopContainer(ctx, &runtimeapi.StopContainerRequest{
		ContainerId: string(id),
		Timeout:     stopGraceSeconds,
	}); err != nil && !IsNotFound(err) {
		return fmt.Errorf("failed to stop container %s: %w", id, err)
	}
	return nil
}

func (c *CRI) RemoveContainer(ctx context.Context, id state.Identifier) error {
	if _, err := c.runtime.RemoveContainer(ctx, &runtimeapi.RemoveContainerRequest{
		ContainerId: string(id),
	}); err != nil && !IsNotFound(err) {
		return fmt.Errorf("failed to remove container %s: %w", id, err)
	}
	return nil
}

func (c *CRI) DeletePod(ctx context.Context, id state.Identifier) error {
	if _, err := c.runtime.StopPodSandbox(ctx, &runtimeapi.StopPodSandboxRequest{
		PodSandboxId: string(id),
	}); err != nil && !IsNotFound(err) {
		return fmt.Errorf("failed to stop sandbox %s: %w", id, err)
	}
	if _, err := c.runtime.RemovePodSandbox(ctx, &runtimeapi.RemovePodSandboxRequest{
		PodSandboxId: string(id),
	}); err != nil && !IsNotFound(err) {
		return fmt.Errorf("failed to remove sandbox %s: %w", id, err)
	}
	return nil
}

func (c *CRI) Events(ctx context.Context) (<-chan state.Event, error) {
	out := make(chan state.Event, eventBuffer)
	go c.pumpEvents(ctx, out)
	return out, nil
}

func (c *CRI) Close() error {
	return c.conn.Close()
}

// pumpEvents keeps the lifecycle stream flowing into out until ctx ends.
// Each (re)subscription starts a fresh sequence; whatever happened while
// disconnected is lost and left to the refresh tick.
func (c *CRI) pumpEvents(ctx context.Context, out chan<- state.Event) {
	defer close(out)
	for {
		stream, err := c.runtime.GetContainerEvents(ctx, &runtimeapi.GetEventsRequest{})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logging.Warn("CRI", "event stream unavailable, redialing in %s: %v", eventRedialDelay, err)
			if !sleepCtx(ctx, eventRedialDelay) {
				return
			}
			continue
		}
		logging.Debug("CRI", "lifecycle event stream established")

		for {
			resp, err := stream.Recv()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logging.Warn("CRI", "event stream interrupted: %v", err)
				break
			}
			ev, ok := eventFromCRI(resp)
			if !ok {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}

		if !sleepCtx(ctx, eventRedialDelay) {
			return
		}
	}
}

func eventFromCRI(resp *runtimeapi.ContainerEventResponse) (state.Event, bool) {
	var kind state.EventKind
	switch resp.ContainerEventType {
	case runtimeapi.ContainerEventType_CONTAINER_CREATED_EVENT:
		kind = state.EventCreated
	case runtimeapi.ContainerEventType_CONTAINER_STARTED_EVENT:
		kind = state.EventStarted
	case runtimeapi.ContainerEventType_CONTAINER_STOPPED_EVENT:
		kind = state.EventStopped
	case runtimeapi.ContainerEventType_CONTAINER_DELETED_EVENT:
		kind = state.EventRemoved
	default:
		return state.Event{}, false
	}

	ev := state.Event{Kind: kind, ID: state.Identifier(resp.ContainerId)}

	// Sandbox-deletion responses arrive without a status: the pod is gone
	// and only its id survives in the event.
	sb := resp.PodSandboxStatus
	if sb == nil {
		return ev, true
	}

	snap := &state.PodSnapshot{
		Key: keyFromMetadata(sb.Metadata, sb.Id),
		Status: state.PodStatus{
			ID:         state.Identifier(sb.Id),
			Containers: make(map[string]state.ContainerStatus, len(resp.ContainersStatuses)),
		},
	}
	for _, cs := range resp.ContainersStatuses {
		name := ""
		if cs.Metadata != nil {
			name = cs.Metadata.Name
		}
		snap.Status.Containers[name] = state.ContainerStatus{
			ID:    state.Identifier(cs.Id),
			State: stateFromCRI(cs.State),
		}
	}
	ev.Pod = snap
	return ev, true
}

// keyFromMetadata recovers the resource key a sandbox was created with. A
// sandbox without a parseable key was not created by this agent; it gets a
// stable synthetic key so reconciliation can still converge on it.
func keyFromMetadata(md *runtimeapi.PodSandboxMetadata, sandboxID string) state.ResourceKey {
	if md != nil {
		if key, err := state.ParseKey(md.Uid); err == nil {
			return key
		}
	}
	return state.ForeignKey(state.Identifier(sandboxID))
}

func stateFromCRI(s runtimeapi.ContainerState) state.ContainerState {
	switch s {
	case runtimeapi.ContainerState_CONTAINER_CREATED:
		return state.ContainerCreated
	case runtimeapi.ContainerState_CONTAINER_RUNNING:
		return state.ContainerRunning
	case runtimeapi.ContainerState_CONTAINER_EXITED:
		return state.ContainerExited
	default:
		return state.ContainerUnknown
	}
}

func sandboxConfig(pod state.PodConfig) *runtimeapi.PodSandboxConfig {
	return &runtimeapi.PodSandboxConfig{
		Metadata: &runtimeapi.PodSandboxMetadata{
			Name:      pod.Name,
			Uid:       pod.Key.String(),
			Namespace: podNamespace,
		},
		Labels: map[string]string{managedByLabel: managedByValue},
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
