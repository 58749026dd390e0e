package diff

import (
	"fmt"

	"podlet/internal/state"
)

// StepKind names the runtime operation a step performs.
type StepKind int

const (
	// CreatePod creates the pod's sandbox. Containers follow in later
	// passes, once the sandbox is observed.
	CreatePod StepKind = iota

	// AddContainer materializes one desired container inside an observed
	// sandbox: image check, pull if absent, create, start.
	AddContainer

	// StopContainer stops one container of a pod leaving the target.
	StopContainer

	// DeletePod removes a sandbox whose containers have all exited. The
	// runtime disposes the containers with it.
	DeletePod

	// RemoveContainer stops and removes one container the target no
	// longer lists for a pod that itself stays.
	RemoveContainer
)

// String returns the step kind name.
func (k StepKind) String() string {
	switch k {
	case CreatePod:
		return "create-pod"
	case AddContainer:
		return "add-container"
	case StopContainer:
		return "stop-container"
	case DeletePod:
		return "delete-pod"
	case RemoveContainer:
		return "remove-container"
	default:
		return "invalid"
	}
}

// Step is one concrete next action for one resource. Only the fields the
// kind needs are populated:
//
//	CreatePod        Key, Pod
//	AddContainer     Key, Container, Pod, PodID
//	StopContainer    Key, Container, ContainerID
//	DeletePod        Key, PodID
//	RemoveContainer  Key, Container, ContainerID
type Step struct {
	Kind StepKind
	Key  state.ResourceKey

	// Container is the container name for container-scoped kinds.
	Container string

	// Pod is the desired pod spec, needed to create sandboxes and
	// containers.
	Pod state.PodConfig

	// PodID is the observed sandbox id.
	PodID state.Identifier

	// ContainerID is the observed container id.
	ContainerID state.Identifier
}

// StepID identifies a step for carry-over matching. Two steps with the same
// id describe the same work: key equality implies spec equality, so the
// payload is deliberately not part of the identity.
type StepID struct {
	Key       state.ResourceKey
	Kind      StepKind
	Container string
}

// ID returns the step's carry-over identity.
func (s Step) ID() StepID {
	return StepID{Key: s.Key, Kind: s.Kind, Container: s.Container}
}

func (s Step) String() string {
	if s.Container != "" {
		return fmt.Sprintf("%s %s/%s", s.Kind, s.Key, s.Container)
	}
	return fmt.Sprintf("%s %s", s.Kind, s.Key)
}

// Plan is the ordered set of next steps produced by one differencer pass.
type Plan []Step
