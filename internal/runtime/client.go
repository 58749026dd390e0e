package runtime

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"podlet/internal/state"
)

// ErrNotFound is returned (or wrapped) by Client implementations when the
// referenced pod or container no longer exists on the runtime.
var ErrNotFound = errors.New("not found")

// IsNotFound reports whether err means the target object is already gone,
// either as the package sentinel or as a gRPC NOT_FOUND status.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) {
		return true
	}
	return status.Code(err) == codes.NotFound
}

// Client is the consumed capability set of the container runtime. All calls
// take a context and are safe for concurrent use; the agent shares one
// client between the control loop's refresh path and every running task.
//
// Stop, remove and delete calls treat an already-gone object as success:
// convergence work that turns out to be done is done.
type Client interface {
	// ListPods returns the full believed pod set. Used to seed observed
	// state at startup and by the periodic refresh.
	ListPods(ctx context.Context) (state.ObservedState, error)

	// CreateSandbox creates the pod-level sandbox for a desired pod and
	// returns its runtime handle. The resource key travels with the sandbox
	// so listings and events can report it back.
	CreateSandbox(ctx context.Context, pod state.PodConfig) (state.Identifier, error)

	// ImageStatus reports whether an image is already present on the node.
	ImageStatus(ctx context.Context, ref string) (bool, error)

	// PullImage fetches an image. The runtime does not cache the request
	// itself; callers bound pull concurrency.
	PullImage(ctx context.Context, ref string) error

	// CreateContainer creates a container inside an existing sandbox. The
	// desired pod spec rides along because the runtime protocol requires
	// the sandbox configuration on container creation.
	CreateContainer(ctx context.Context, podID state.Identifier, pod state.PodConfig, cfg state.ContainerConfig) (state.Identifier, error)

	StartContainer(ctx context.Context, id state.Identifier) error
	StopContainer(ctx context.Context, id state.Identifier) error
	RemoveContainer(ctx context.Context, id state.Identifier) error

	// DeletePod tears down a sandbox. Legal only once every container in the
	// pod has stopped; the runtime removes leftover containers itself.
	DeletePod(ctx context.Context, id state.Identifier) error

	// Events returns the lifecycle event channel. The sequence is infinite
	// and gap-prone: implementations keep it flowing for the life of ctx
	// (re-establishing transport internally as needed) but never replay
	// missed events. The periodic refresh compensates for gaps.
	Events(ctx context.Context) (<-chan state.Event, error)

	// Close releases the underlying connection.
	Close() error
}
