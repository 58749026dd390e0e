package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"podlet/internal/state"
)

// ErrUnavailable simulates the runtime process being down.
var ErrUnavailable = errors.New("runtime unavailable")

// Fake is an in-memory Client for tests. It keeps a real sandbox/container
// model, emits lifecycle events on mutations so consumers can close the
// observe loop, records every call, and supports per-operation error
// injection plus a global unavailability switch.
type Fake struct {
	mu          sync.Mutex
	seq         int
	sandboxes   map[state.Identifier]*fakeSandbox
	containers  map[state.Identifier]*fakeContainer
	images      map[string]bool
	events      chan state.Event
	calls       []string
	errs        map[string][]error
	unavailable bool
}

type fakeSandbox struct {
	id   state.Identifier
	key  state.ResourceKey
	name string
}

type fakeContainer struct {
	id      state.Identifier
	sandbox state.Identifier
	name    string
	state   state.ContainerState
}

// NewFake returns an empty fake runtime.
func NewFake() *Fake {
	return &Fake{
		sandboxes:  make(map[state.Identifier]*fakeSandbox),
		containers: make(map[state.Identifier]*fakeContainer),
		images:     make(map[string]bool),
		events:     make(chan state.Event, 256),
		errs:       make(map[string][]error),
	}
}

// InjectError queues errors to be returned by the next calls of op
// ("CreateSandbox", "PullImage", ...), one per call, in order.
func (f *Fake) InjectError(op string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = append(f.errs[op], errs...)
}

// SetUnavailable flips the global runtime-down switch; while set, every call
// fails with ErrUnavailable.
func (f *Fake) SetUnavailable(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unavailable = down
}

// SetImage marks an image as present or absent on the node.
func (f *Fake) SetImage(ref string, present bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images[ref] = present
}

// SetContainerState overrides a container's reported state. The change shows
// up in the next listing; no event is emitted.
func (f *Fake) SetContainerState(id state.Identifier, st state.ContainerState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ctr, ok := f.containers[id]; ok {
		ctr.state = st
	}
}

// Calls returns a copy of the recorded call log ("op arg").
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many recorded calls used op.
func (f *Fake) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if len(c) >= len(op) && c[:len(op)] == op {
			n++
		}
	}
	return n
}

// Pods returns the current pod set without error plumbing, for assertions.
func (f *Fake) Pods() state.ObservedState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listLocked()
}

func (f *Fake) begin(op string, args ...interface{}) error {
	f.calls = append(f.calls, fmt.Sprintf("%s %s", op, fmt.Sprint(args...)))
	if f.unavailable {
		return ErrUnavailable
	}
	if queue := f.errs[op]; len(queue) > 0 {
		err := queue[0]
		f.errs[op] = queue[1:]
		return err
	}
	return nil
}

func (f *Fake) ListPods(ctx context.Context) (state.ObservedState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("ListPods"); err != nil {
		return nil, err
	}
	return f.listLocked(), nil
}

func (f *Fake) listLocked() state.ObservedState {
	observed := make(state.ObservedState, len(f.sandboxes))
	for _, sb := range f.sandboxes {
		status := state.PodStatus{ID: sb.id, Containers: map[string]state.ContainerStatus{}}
		for _, ctr := range f.containers {
			if ctr.sandbox == sb.id {
				status.Containers[ctr.name] = state.ContainerStatus{ID: ctr.id, State: ctr.state}
			}
		}
		observed[sb.key] = status
	}
	return observed
}

func (f *Fake) CreateSandbox(ctx context.Context, pod state.PodConfig) (state.Identifier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("CreateSandbox", pod.Name); err != nil {
		return "", err
	}
	for _, sb := range f.sandboxes {
		if sb.key == pod.Key {
			return "", fmt.Errorf("sandbox with key %s already exists", pod.Key)
		}
	}
	f.seq++
	sb := &fakeSandbox{
		id:   state.Identifier(fmt.Sprintf("sb-%d", f.seq)),
		key:  pod.Key,
		name: pod.Name,
	}
	f.sandboxes[sb.id] = sb
	f.emitLocked(state.Event{Kind: state.EventCreated, ID: sb.id, Pod: f.snapshotLocked(sb)})
	return sb.id, nil
}

func (f *Fake) ImageStatus(ctx context.Context, ref string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("ImageStatus", ref); err != nil {
		return false, err
	}
	return f.images[ref], nil
}

func (f *Fake) PullImage(ctx context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("PullImage", ref); err != nil {
		return err
	}
	f.images[ref] = true
	return nil
}

func (f *Fake) CreateContainer(ctx context.Context, podID state.Identifier, pod state.PodConfig, cfg state.ContainerConfig) (state.Identifier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("CreateContainer", podID, " ", cfg.Name); err != nil {
		return "", err
	}
	sb, ok := f.sandboxes[podID]
	if !ok {
		return "", fmt.Errorf("sandbox %s: %w", podID, ErrNotFound)
	}
	for _, ctr := range f.containers {
		if ctr.sandbox == podID && ctr.name == cfg.Name {
			return "", fmt.Errorf("container %s already exists in sandbox %s", cfg.Name, podID)
		}
	}
	f.seq++
	ctr := &fakeContainer{
		id:      state.Identifier(fmt.Sprintf("ctr-%d", f.seq)),
		sandbox: podID,
		name:    cfg.Name,
		state:   state.ContainerCreated,
	}
	f.containers[ctr.id] = ctr
	f.emitLocked(state.Event{Kind: state.EventCreated, ID: ctr.id, Pod: f.snapshotLocked(sb)})
	return ctr.id, nil
}

func (f *Fake) StartContainer(ctx context.Context, id state.Identifier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("StartContainer", id); err != nil {
		return err
	}
	ctr, ok := f.containers[id]
	if !ok {
		return fmt.Errorf("container %s: %w", id, ErrNotFound)
	}
	ctr.state = state.ContainerRunning
	f.emitLocked(state.Event{Kind: state.EventStarted, ID: id, Pod: f.snapshotLocked(f.sandboxes[ctr.sandbox])})
	return nil
}

func (f *Fake) StopContainer(ctx context.Context, id state.Identifier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("StopContainer", id); err != nil {
		return err
	}
	ctr, ok := f.containers[id]
	if !ok {
		return nil // already gone
	}
	ctr.state = state.ContainerExited
	f.emitLocked(state.Event{Kind: state.EventStopped, ID: id, Pod: f.snapshotLocked(f.sandboxes[ctr.sandbox])})
	return nil
}

func (f *Fake) RemoveContainer(ctx context.Context, id state.Identifier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("RemoveContainer", id); err != nil {
		return err
	}
	ctr, ok := f.containers[id]
	if !ok {
		return nil // already gone
	}
	delete(f.containers, id)
	f.emitLocked(state.Event{Kind: state.EventRemoved, ID: id, Pod: f.snapshotLocked(f.sandboxes[ctr.sandbox])})
	return nil
}

func (f *Fake) DeletePod(ctx context.Context, id state.Identifier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("DeletePod", id); err != nil {
		return err
	}
	if _, ok := f.sandboxes[id]; !ok {
		return nil // already gone
	}
	delete(f.sandboxes, id)
	for ctrID, ctr := range f.containers {
		if ctr.sandbox == id {
			delete(f.containers, ctrID)
		}
	}
	// Pod-deletion events carry only the vanished sandbox's id.
	f.emitLocked(state.Event{Kind: state.EventRemoved, ID: id})
	return nil
}

func (f *Fake) Events(ctx context.Context) (<-chan state.Event, error) {
	return f.events, nil
}

func (f *Fake) Close() error {
	return nil
}

func (f *Fake) snapshotLocked(sb *fakeSandbox) *state.PodSnapshot {
	if sb == nil {
		return nil
	}
	snap := &state.PodSnapshot{
		Key:    sb.key,
		Status: state.PodStatus{ID: sb.id, Containers: map[string]state.ContainerStatus{}},
	}
	for _, ctr := range f.containers {
		if ctr.sandbox == sb.id {
			snap.Status.Containers[ctr.name] = state.ContainerStatus{ID: ctr.id, State: ctr.state}
		}
	}
	return snap
}

// emitLocked delivers an event without ever blocking a runtime call; a full
// buffer drops the event, which consumers must tolerate anyway.
func (f *Fake) emitLocked(ev state.Event) {
	select {
	case f.events <- ev:
	default:
	}
}
