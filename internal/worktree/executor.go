package worktree

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"podlet/internal/diff"
	"podlet/internal/runtime"
	"podlet/pkg/logging"
)

// Executor performs one step against the runtime. It is shared by all
// tasks; the only coordination it carries is the image pull bound.
type Executor struct {
	client runtime.Client
	pulls  *semaphore.Weighted
}

// NewExecutor creates an executor. pullConcurrency bounds how many image
// pulls run at once across all tasks.
func NewExecutor(client runtime.Client, pullConcurrency int) *Executor {
	if pullConcurrency < 1 {
		pullConcurrency = 1
	}
	return &Executor{
		client: client,
		pulls:  semaphore.NewWeighted(int64(pullConcurrency)),
	}
}

// Run executes one step to completion or first failure. Every blocking
// point honors ctx.
func (e *Executor) Run(ctx context.Context, step diff.Step) error {
	switch step.Kind {
	case diff.CreatePod:
		_, err := e.client.CreateSandbox(ctx, step.Pod)
		return err

	case diff.AddContainer:
		return e.addContainer(ctx, step)

	case diff.StopContainer:
		return e.client.StopContainer(ctx, step.ContainerID)

	case diff.DeletePod:
		return e.client.DeletePod(ctx, step.PodID)

	case diff.RemoveContainer:
		if err := e.client.StopContainer(ctx, step.ContainerID); err != nil {
			return err
		}
		return e.client.RemoveContainer(ctx, step.ContainerID)

	default:
		return fmt.Errorf("unsupported step kind %d", step.Kind)
	}
}

// addContainer materializes one desired container: ensure the image, create
// inside the pod's sandbox, start.
func (e *Executor) addContainer(ctx context.Context, step diff.Step) error {
	cfg, ok := step.Pod.Containers[step.Container]
	if !ok {
		return fmt.Errorf("container %q is not in the spec of pod %q", step.Container, step.Pod.Name)
	}

	if err := e.ensureImage(ctx, cfg.Image); err != nil {
		return err
	}

	id, err := e.client.CreateContainer(ctx, step.PodID, step.Pod, cfg)
	if err != nil {
		return err
	}
	return e.client.StartContainer(ctx, id)
}

// ensureImage pulls ref unless the runtime already has it. Pulls are
// bounded by the semaphore; the recheck after acquiring covers the case
// where a sibling task pulled the same image while this one waited.
func (e *Executor) ensureImage(ctx context.Context, ref string) error {
	present, err := e.client.ImageStatus(ctx, ref)
	if err != nil {
		return fmt.Errorf("failed to check image %s: %w", ref, err)
	}
	if present {
		return nil
	}

	if err := e.pulls.Acquire(ctx, 1); err != nil {
		return err
	}
	defer e.pulls.Release(1)

	present, err = e.client.ImageStatus(ctx, ref)
	if err == nil && present {
		return nil
	}

	logging.Info("Task", "Pulling image %s", ref)
	if err := e.client.PullImage(ctx, ref); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}
	return nil
}
