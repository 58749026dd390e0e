// Package agent bootstraps and runs the podlet daemon.
//
// The agent follows a two-phase pattern:
//
//  1. Bootstrap (New): load configuration, initialize logging, connect to
//     the container runtime.
//  2. Execution (Run): seed the observed state, start the manifest watcher,
//     the event ingestor and the control loop, then block until shutdown.
//
// Shutdown is triggered by context cancellation or by SIGINT/SIGTERM and
// stops components in reverse startup order, so the control loop is the
// last to go and joins every in-flight task before the process exits. When
// running under systemd the agent reports readiness and impending shutdown
// through sd_notify.
package agent
