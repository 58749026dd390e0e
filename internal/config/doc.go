// Package config provides configuration management for podlet.
//
// Configuration is a single YAML file (default /etc/podlet/config.yaml,
// overridable with --config). Loading starts from built-in defaults, overlays
// the file when present, and validates the result; a missing file means pure
// defaults, a malformed or invalid file refuses startup.
//
// # Structure
//
//	runtime:
//	  endpoint: unix:///run/containerd/containerd.sock
//	manifests:
//	  directory: /etc/podlet/manifests
//	reconcile:
//	  debounceWindow: 2s
//	  refreshInterval: 15s
//	  imagePullConcurrency: 2
//	log:
//	  level: info
//	  format: text
//
// Durations are YAML strings in Go duration syntax. Validation gathers every
// problem into a ValidationErrors value rather than stopping at the first.
package config
