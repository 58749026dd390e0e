// Package logging provides the structured logging system for podlet with
// unified log handling and level filtering.
//
// The package wraps Go's standard slog package. Every entry carries a
// subsystem identifier so logs from the reconciliation pipeline can be
// filtered by component.
//
// # Usage
//
//	import "podlet/pkg/logging"
//
//	// Initialize once at startup (text or JSON output).
//	if err := logging.Init(logging.LevelInfo, logging.FormatJSON, os.Stderr); err != nil { ... }
//
//	logging.Info("Agent", "starting with manifest dir %s", dir)
//	logging.Debug("Ingestor", "debounce timer armed (%s)", window)
//	logging.Warn("Runtime", "event stream interrupted, redialing")
//	logging.Error("Task", err, "create sandbox attempt failed")
//
// # Subsystems
//
// The agent logs under: Agent, Config, Manifest, Ingestor, State,
// Reconciler, Worktree, Task, Runtime, CRI.
//
// # Thread safety
//
// Logging is safe from multiple goroutines; filtering happens at the handler
// level so suppressed messages cost no allocation beyond the call itself.
package logging
