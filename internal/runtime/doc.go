// Package runtime is the boundary to the local container runtime.
//
// Client is the capability set the reconciliation core consumes: listing,
// sandbox and container lifecycle, image check-then-pull, and the lifecycle
// event stream. CRI implements it over the Kubernetes Container Runtime
// Interface (containerd, CRI-O) on a local socket; Fake implements it in
// memory for tests.
//
// The event stream deserves care: it is infinite and gap-prone. The CRI
// adapter re-establishes the underlying gRPC stream whenever it breaks, but
// events that occurred while disconnected are gone for good. Consumers
// reconcile that with the periodic full listing, not with replay. Sandbox
// deletion events arrive carrying only the vanished sandbox's id, with no
// status snapshot; that quirk is part of the protocol and is passed through
// unchanged.
package runtime
