// Package state defines the agent's reconciliation vocabulary: resource
// keys, desired pod specifications (Target), observed pod statuses
// (ObservedState), runtime lifecycle events, and the Store that folds events
// and listings into the observed state.
//
// Ownership rules are strict. Target and ObservedState are mutated only by
// the control loop goroutine; everything handed to other components is a
// deep copy. Tasks executing corrective steps never write observed state;
// their effects surface as runtime events that the loop folds back in.
package state
