// Package diff computes what to do next from what is and what should be.
//
// Diff emits at most one step per diverging resource per pass and never
// plans beyond what the current observations justify: a missing pod yields
// only its sandbox creation, and the containers follow on later passes once
// the sandbox shows up in observed state. Multi-step work therefore emerges
// across repeated passes rather than from a precomputed program, which makes
// every pass safe to redo from scratch.
//
// Containers in Unknown state are inert: the differencer schedules nothing
// new for them and holds back pod deletion, but copies their in-flight
// steps through so running tasks are not torn down by a stale observation.
package diff
