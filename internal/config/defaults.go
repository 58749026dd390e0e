package config

import "time"

const (
	// DefaultRuntimeEndpoint is the containerd socket most nodes expose.
	DefaultRuntimeEndpoint = "unix:///run/containerd/containerd.sock"

	// DefaultManifestDirectory is where the node's pod manifests live.
	DefaultManifestDirectory = "/etc/podlet/manifests"

	// DefaultDebounceWindow is the quiet period after the last runtime event
	// before a reconciliation pass is triggered.
	DefaultDebounceWindow = 2 * time.Second

	// DefaultRefreshInterval is the full-listing fallback period that
	// corrects for dropped events.
	DefaultRefreshInterval = 15 * time.Second

	// DefaultImagePullConcurrency bounds how many image pulls run at once
	// across all tasks.
	DefaultImagePullConcurrency = 2
)

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() Config {
	return Config{
		Runtime: RuntimeConfig{
			Endpoint: DefaultRuntimeEndpoint,
		},
		Manifests: ManifestsConfig{
			Directory: DefaultManifestDirectory,
		},
		Reconcile: ReconcileConfig{
			DebounceWindow:       Duration(DefaultDebounceWindow),
			RefreshInterval:      Duration(DefaultRefreshInterval),
			ImagePullConcurrency: DefaultImagePullConcurrency,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
