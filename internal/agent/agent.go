package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"

	"podlet/internal/config"
	"podlet/internal/events"
	"podlet/internal/manifest"
	"podlet/internal/reconciler"
	"podlet/internal/runtime"
	"podlet/internal/state"
	"podlet/internal/worktree"
	"podlet/pkg/logging"
)

// newRuntime dials the configured runtime endpoint. Variable so tests can
// substitute an in-memory runtime.
var newRuntime = func(endpoint string) (runtime.Client, error) {
	return runtime.NewCRI(endpoint)
}

// Options carries the serve command's inputs into the bootstrap. Zero-value
// fields defer to the configuration file.
type Options struct {
	// ConfigPath locates the agent configuration file.
	ConfigPath string

	// Debug forces debug-level logging over the configured level.
	Debug bool

	// ManifestDir, when set, overrides manifests.directory.
	ManifestDir string

	// RuntimeEndpoint, when set, overrides runtime.endpoint.
	RuntimeEndpoint string
}

// Agent assembles the manifest watcher, the event ingestor and the control
// loop around one runtime connection and runs them as a unit.
type Agent struct {
	cfg    config.Config
	client runtime.Client

	watcher  *manifest.Watcher
	ingestor *events.Ingestor
}

// New performs the bootstrap sequence: load configuration, apply flag
// overrides, initialize logging, connect to the runtime. Any failure aborts
// the bootstrap; a partially constructed agent is never returned.
func New(opts Options) (*Agent, error) {
	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.ManifestDir != "" {
		cfg.Manifests.Directory = opts.ManifestDir
	}
	if opts.RuntimeEndpoint != "" {
		cfg.Runtime.Endpoint = opts.RuntimeEndpoint
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if opts.Debug {
		level = logging.LevelDebug
	}
	if err := logging.Init(level, cfg.Log.Format, os.Stdout); err != nil {
		return nil, err
	}

	client, err := newRuntime(cfg.Runtime.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to runtime at %s: %w", cfg.Runtime.Endpoint, err)
	}

	return &Agent{
		cfg:      cfg,
		client:   client,
		watcher:  manifest.NewWatcher(cfg.Manifests.Directory, 0),
		ingestor: events.NewIngestor(client, cfg.Reconcile.DebounceWindow.Std(), cfg.Reconcile.RefreshInterval.Std()),
	}, nil
}

// Run starts every component, reports readiness, and blocks until the
// context is cancelled or a termination signal arrives.
//
// Startup order matters: events are subscribed before the seed listing so
// nothing falls between the two (a snapshot delivered twice is harmless),
// and the manifest watcher starts last so reconciliation cannot begin
// before everything it drives is in place. Shutdown runs the same order in
// reverse, ending with the loop, which joins all in-flight tasks.
func (a *Agent) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.ingestor.Start(runCtx); err != nil {
		return err
	}

	seed, err := a.client.ListPods(runCtx)
	if err != nil {
		a.ingestor.Stop()
		return fmt.Errorf("failed to list pods for the initial observed state: %w", err)
	}
	store := state.NewStore(seed)
	logging.Info("Agent", "Seeded observed state with %d pod(s)", store.Len())

	executor := worktree.NewExecutor(a.client, a.cfg.Reconcile.ImagePullConcurrency)
	loop := reconciler.NewLoop(store, executor, a.watcher.Targets(), a.ingestor.Batches())

	if err := loop.Start(runCtx); err != nil {
		a.ingestor.Stop()
		return err
	}
	if err := a.watcher.Start(runCtx); err != nil {
		loop.Stop()
		a.ingestor.Stop()
		return fmt.Errorf("failed to start manifest watcher: %w", err)
	}

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logging.Warn("Agent", "Failed to notify systemd of readiness: %v", err)
	} else if sent {
		logging.Debug("Agent", "Notified systemd of readiness")
	}
	logging.Info("Agent", "Agent running: manifests=%s runtime=%s",
		a.cfg.Manifests.Directory, a.cfg.Runtime.Endpoint)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		logging.Info("Agent", "Context cancelled, shutting down")
	case sig := <-sigChan:
		logging.Info("Agent", "Received %s, shutting down", sig)
	}

	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		logging.Warn("Agent", "Failed to notify systemd of shutdown: %v", err)
	}

	a.watcher.Stop()
	a.ingestor.Stop()
	loop.Stop()

	if summary, err := json.Marshal(loop.Metrics().Summary()); err == nil {
		logging.Info("Agent", "Final reconciler metrics: %s", summary)
	}

	if err := a.client.Close(); err != nil {
		logging.Warn("Agent", "Failed to close runtime connection: %v", err)
	}
	return nil
}
