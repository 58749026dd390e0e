// Package events feeds runtime observations to the control loop.
//
// The Ingestor subscribes to the runtime's lifecycle event stream and
// delivers Batches over a channel: debounced event runs during normal
// operation, and periodic full listings that resynchronize the observed
// state when events were dropped. The loop owns the observed state; this
// package never mutates it, it only reports what the runtime said.
package events
