package manifest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"podlet/internal/state"
	"podlet/pkg/logging"
)

// Watcher turns a manifest directory into a stream of desired targets.
//
// It rescans the directory after filesystem changes, debounced so an editor
// writing several files produces one scan. Accepted targets are delivered
// into a single-slot channel with latest-wins semantics: a slow consumer
// only ever sees the newest target, never a backlog of stale ones. Rejected
// scans are logged and deliver nothing, so the consumer keeps acting on the
// previous target.
type Watcher struct {
	mu sync.Mutex

	// directory is the manifest directory being watched
	directory string

	// debounceInterval is how long to wait for additional changes
	debounceInterval time.Duration

	// watcher is the fsnotify watcher instance
	watcher *fsnotify.Watcher

	// targets is the single-slot delivery channel
	targets chan state.Target

	// rescanTimer is the pending debounced rescan, if any
	rescanTimer *time.Timer

	// stopCh signals shutdown
	stopCh chan struct{}

	// running indicates if the watcher is active
	running bool
}

const defaultRescanDebounce = 500 * time.Millisecond

// NewWatcher creates a watcher for a manifest directory.
func NewWatcher(directory string, debounceInterval time.Duration) *Watcher {
	if debounceInterval <= 0 {
		debounceInterval = defaultRescanDebounce
	}
	return &Watcher{
		directory:        directory,
		debounceInterval: debounceInterval,
		targets:          make(chan state.Target, 1),
		stopCh:           make(chan struct{}),
	}
}

// Targets is the delivery channel. Each received value is a complete
// replacement target.
func (w *Watcher) Targets() <-chan state.Target {
	return w.targets
}

// Start performs the initial scan and begins watching for changes. The
// initial scan must succeed: an agent that cannot read its desired state at
// startup has nothing sound to converge toward.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	if err := watcher.Add(w.directory); err != nil {
		watcher.Close()
		w.mu.Unlock()
		return fmt.Errorf("failed to watch manifest directory %s: %w", w.directory, err)
	}

	w.watcher = watcher
	w.running = true
	w.stopCh = make(chan struct{})
	w.mu.Unlock()

	initial, err := Load(w.directory)
	if err != nil {
		w.Stop()
		return fmt.Errorf("initial manifest scan failed: %w", err)
	}
	w.publish(initial)
	logging.Info("Manifest", "Loaded %d pod manifest(s) from %s", len(initial), w.directory)

	go w.processEvents(ctx, watcher)
	return nil
}

// processEvents handles filesystem events until shutdown. The watcher is
// passed in rather than read from the struct so Stop can nil the field
// without racing this loop.
func (w *Watcher) processEvents(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.cancelPendingRescan()
			return

		case <-w.stopCh:
			w.cancelPendingRescan()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleFsEvent(event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Error("Manifest", err, "Filesystem watcher error")
		}
	}
}

// handleFsEvent schedules a debounced rescan for relevant changes.
func (w *Watcher) handleFsEvent(event fsnotify.Event) {
	if !isYAMLFile(event.Name) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// One timer covers the whole directory: every change replaces the
	// target wholesale anyway, so per-file bookkeeping buys nothing.
	if w.rescanTimer != nil {
		w.rescanTimer.Stop()
	}
	w.rescanTimer = time.AfterFunc(w.debounceInterval, w.rescan)
	logging.Debug("Manifest", "Change to %s, rescan in %s", event.Name, w.debounceInterval)
}

// rescan reloads the directory and publishes the result if it is valid.
func (w *Watcher) rescan() {
	target, err := Load(w.directory)
	if err != nil {
		logging.Error("Manifest", err, "Manifest scan rejected, keeping previous target")
		return
	}

	w.publish(target)
	logging.Info("Manifest", "New target: %d pod(s)", len(target))
}

// publish delivers a target with latest-wins semantics.
func (w *Watcher) publish(target state.Target) {
	for {
		select {
		case w.targets <- target:
			return
		default:
			// Slot occupied by a stale target nobody consumed yet; drop it.
			select {
			case <-w.targets:
			default:
			}
		}
	}
}

func (w *Watcher) cancelPendingRescan() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.rescanTimer != nil {
		w.rescanTimer.Stop()
		w.rescanTimer = nil
	}
}

// Stop gracefully stops the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	w.running = false
	close(w.stopCh)

	if w.watcher != nil {
		if err := w.watcher.Close(); err != nil {
			logging.Error("Manifest", err, "Error closing filesystem watcher")
		}
		w.watcher = nil
	}

	logging.Info("Manifest", "Stopped manifest watcher")
}
