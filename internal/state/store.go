package state

import "podlet/pkg/logging"

// Store holds the node's observed pod set. It is owned by the control loop:
// every method must be called from the loop goroutine only. Tasks never
// write here; they act on the runtime, and the runtime's events and listings
// flow back in through Fold and Replace.
type Store struct {
	pods ObservedState
}

// NewStore returns a store seeded with an initial listing, usually the
// startup ListPods result. A nil seed starts empty.
func NewStore(seed ObservedState) *Store {
	if seed == nil {
		seed = ObservedState{}
	}
	return &Store{pods: seed}
}

// Fold applies one lifecycle event.
//
// Events that carry a pod snapshot replace that pod's entire status,
// container map included: any surviving event for a pod re-synchronizes its
// full container set, which is what makes individually dropped events
// harmless. Pod-deletion events carry no snapshot and no key, only the
// vanished sandbox's runtime id, so the entry to remove is found by matching
// runtime ids.
func (s *Store) Fold(ev Event) {
	if ev.Pod == nil {
		for key, status := range s.pods {
			if status.ID == ev.ID {
				delete(s.pods, key)
				logging.Debug("State", "pod %s removed from observed state (%s event)", key, ev.Kind)
				return
			}
		}
		logging.Debug("State", "deletion event for unknown sandbox %s ignored", ev.ID)
		return
	}

	s.pods[ev.Pod.Key] = ev.Pod.Status.Clone()
}

// Replace swaps in a complete fresh listing, discarding everything known
// before. Used by the periodic refresh and nothing else.
func (s *Store) Replace(listing ObservedState) {
	if listing == nil {
		listing = ObservedState{}
	}
	s.pods = listing
}

// Snapshot returns a deep copy for a reconciliation pass. The differencer
// and the plan it produces hold only copies, so running tasks can never
// alias loop-owned memory.
func (s *Store) Snapshot() ObservedState {
	return s.pods.Clone()
}

// Len returns the number of observed pods.
func (s *Store) Len() int {
	return len(s.pods)
}
