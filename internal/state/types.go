package state

import "sort"

// Identifier is the opaque handle the container runtime assigns to a pod
// sandbox or container. It has no meaning outside the runtime that issued it.
type Identifier string

// ContainerState describes the lifecycle state of one container as last
// reported by the runtime.
type ContainerState int

const (
	// ContainerCreated means the container exists but has never been started.
	ContainerCreated ContainerState = iota
	// ContainerRunning means the container is currently executing.
	ContainerRunning
	// ContainerExited means the container has stopped.
	ContainerExited
	// ContainerUnknown means the runtime's report for this container cannot
	// currently be trusted. Unknown produces no corrective action; the agent
	// waits for a later event or listing to disambiguate.
	ContainerUnknown
)

// String returns the human-readable state name.
func (s ContainerState) String() string {
	switch s {
	case ContainerCreated:
		return "created"
	case ContainerRunning:
		return "running"
	case ContainerExited:
		return "exited"
	case ContainerUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// ContainerStatus is the observed status of one container: its runtime
// handle and lifecycle state.
type ContainerStatus struct {
	ID    Identifier
	State ContainerState
}

// PodStatus is the currently-known container set of one pod. Containers is
// keyed by container name, which the runtime keeps unique within a pod.
type PodStatus struct {
	ID         Identifier
	Containers map[string]ContainerStatus
}

// Clone returns a deep copy of the status.
func (p PodStatus) Clone() PodStatus {
	out := PodStatus{ID: p.ID}
	if p.Containers != nil {
		out.Containers = make(map[string]ContainerStatus, len(p.Containers))
		for name, cs := range p.Containers {
			out.Containers[name] = cs
		}
	}
	return out
}

// AllExited reports whether every container of the pod has exited. Pods with
// no containers count as fully exited. A container in Unknown state blocks
// the answer: its exit cannot be confirmed.
func (p PodStatus) AllExited() bool {
	for _, cs := range p.Containers {
		if cs.State != ContainerExited {
			return false
		}
	}
	return true
}

// ObservedState is the node's believed-true pod set, keyed by resource key.
type ObservedState map[ResourceKey]PodStatus

// Clone returns a deep copy of the observed state.
func (o ObservedState) Clone() ObservedState {
	out := make(ObservedState, len(o))
	for key, status := range o {
		out[key] = status.Clone()
	}
	return out
}

// ContainerConfig is the desired specification of one container.
type ContainerConfig struct {
	Name    string
	Image   string
	Command []string
	Args    []string
	Env     map[string]string
}

// PodConfig is the desired specification of one pod. Key is derived from the
// rest of the spec (see KeyFor); any change to the spec changes the key.
type PodConfig struct {
	Key        ResourceKey
	Name       string
	Containers map[string]ContainerConfig
}

// ContainerNames returns the pod's desired container names in sorted order.
func (p PodConfig) ContainerNames() []string {
	names := make([]string, 0, len(p.Containers))
	for name := range p.Containers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Target is the desired pod set for the node. A new Target always replaces
// the previous one wholesale; there are no partial merges.
type Target map[ResourceKey]PodConfig

// EventKind classifies a runtime lifecycle event.
type EventKind int

const (
	EventCreated EventKind = iota
	EventStarted
	EventStopped
	EventRemoved
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventStarted:
		return "started"
	case EventStopped:
		return "stopped"
	case EventRemoved:
		return "removed"
	default:
		return "invalid"
	}
}

// PodSnapshot is the full pod status a lifecycle event carries: the pod's
// resource key plus every container the runtime currently believes belongs
// to it. Applying a snapshot replaces the pod's observed status wholesale,
// which re-synchronizes the pod even when earlier events were dropped.
type PodSnapshot struct {
	Key    ResourceKey
	Status PodStatus
}

// Event is one runtime lifecycle event. ID names the subject of the event
// (a container, or the pod sandbox itself for pod-scoped events).
//
// Pod is nil exactly for pod-deletion events: the pod no longer exists, so
// the runtime sends only the vanished sandbox's id, with no key and no
// snapshot. Consumers resolve the deletion by matching ID against the
// observed pods' runtime ids.
type Event struct {
	Kind EventKind
	ID   Identifier
	Pod  *PodSnapshot
}
