// Package manifest loads desired pod state from a directory of YAML files.
//
// Each file declares one pod using the Kubernetes core/v1 Pod schema, of
// which only the subset relevant to this agent is honored: metadata.name
// and the per-container name, image, command, args and env fields. The
// whole directory is read as a unit into a state.Target keyed by content
// hash.
//
// Validation is all-or-nothing per scan: if any file in the directory is
// malformed, unparseable, or conflicts with another file, the entire scan
// is rejected with a ScanError listing every problem, and the previous
// target remains in force. A half-applied directory is never produced.
//
// The Watcher couples a scan loop to fsnotify so edits to the directory
// republish the target automatically, debounced to absorb editor write
// bursts.
package manifest
