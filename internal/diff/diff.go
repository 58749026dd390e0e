package diff

import (
	"sort"

	"k8s.io/apimachinery/pkg/util/sets"

	"podlet/internal/state"
)

// Diff compares desired and observed state and returns the single next step
// for every diverging resource. It is a pure function: no I/O, no clock, no
// retained state. Convergence comes from calling it again as observations
// arrive, not from planning ahead.
//
// inflight is the step set of tasks still running from the previous plan.
// It is consulted only for containers in Unknown state: their steps are
// copied through unchanged so the owning tasks keep running, and nothing
// new is scheduled for them.
//
// Plans are deterministic: resources in key order, container names sorted,
// additions before removals within a pod.
func Diff(target state.Target, observed state.ObservedState, inflight map[StepID]Step) Plan {
	var plan Plan

	for _, key := range unionKeys(target, observed) {
		pod, targeted := target[key]
		status, present := observed[key]

		switch {
		case targeted && !present:
			plan = append(plan, Step{Kind: CreatePod, Key: key, Pod: pod})

		case targeted && present:
			plan = append(plan, convergeContainers(key, pod, status, inflight)...)

		default:
			plan = append(plan, terminate(key, status, inflight)...)
		}
	}

	return plan
}

// convergeContainers reconciles the container set of a pod that exists and
// is wanted.
func convergeContainers(key state.ResourceKey, pod state.PodConfig, status state.PodStatus, inflight map[StepID]Step) []Step {
	var steps []Step

	desired := sets.KeySet(pod.Containers)
	present := sets.KeySet(status.Containers)

	for _, name := range sets.List(desired.Difference(present)) {
		steps = append(steps, Step{
			Kind:      AddContainer,
			Key:       key,
			Container: name,
			Pod:       pod,
			PodID:     status.ID,
		})
	}

	for _, name := range sets.List(present) {
		ctr := status.Containers[name]
		if ctr.State == state.ContainerUnknown {
			steps = append(steps, carriedSteps(key, name, inflight)...)
			continue
		}
		if !desired.Has(name) {
			steps = append(steps, Step{
				Kind:        RemoveContainer,
				Key:         key,
				Container:   name,
				ContainerID: ctr.ID,
			})
		}
	}

	return steps
}

// terminate winds down a pod the target no longer contains: stop whatever
// still runs, and only once every container has verifiably exited, delete
// the sandbox. Containers are never removed individually from a dying pod;
// sandbox deletion disposes them.
func terminate(key state.ResourceKey, status state.PodStatus, inflight map[StepID]Step) []Step {
	var steps []Step

	names := make([]string, 0, len(status.Containers))
	for name := range status.Containers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ctr := status.Containers[name]
		switch ctr.State {
		case state.ContainerExited:
			// nothing left to stop
		case state.ContainerUnknown:
			steps = append(steps, carriedSteps(key, name, inflight)...)
		default:
			steps = append(steps, Step{
				Kind:        StopContainer,
				Key:         key,
				Container:   name,
				ContainerID: ctr.ID,
			})
		}
	}

	// An Unknown container makes AllExited false, which also holds the
	// deletion back: an unconfirmed exit is not an exit.
	if status.AllExited() {
		steps = append(steps, Step{Kind: DeletePod, Key: key, PodID: status.ID})
	}

	return steps
}

// carriedSteps copies the in-flight steps working on one container. At most
// one exists per kind; the fixed kind order keeps plans deterministic.
func carriedSteps(key state.ResourceKey, container string, inflight map[StepID]Step) []Step {
	var steps []Step
	for _, kind := range []StepKind{AddContainer, StopContainer, RemoveContainer} {
		if step, ok := inflight[StepID{Key: key, Kind: kind, Container: container}]; ok {
			steps = append(steps, step)
		}
	}
	return steps
}

func unionKeys(target state.Target, observed state.ObservedState) []state.ResourceKey {
	keys := make([]state.ResourceKey, 0, len(target)+len(observed))
	for key := range target {
		keys = append(keys, key)
	}
	for key := range observed {
		if _, dup := target[key]; !dup {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}
