package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure for podlet.
type Config struct {
	Runtime   RuntimeConfig   `yaml:"runtime"`
	Manifests ManifestsConfig `yaml:"manifests"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Log       LogConfig       `yaml:"log"`
}

// RuntimeConfig locates the container runtime.
type RuntimeConfig struct {
	Endpoint string `yaml:"endpoint,omitempty"` // CRI socket (default: unix:///run/containerd/containerd.sock)
}

// ManifestsConfig locates the desired-state source.
type ManifestsConfig struct {
	Directory string `yaml:"directory,omitempty"` // Pod manifest directory (default: /etc/podlet/manifests)
}

// ReconcileConfig tunes the reconciliation loop.
type ReconcileConfig struct {
	DebounceWindow       Duration `yaml:"debounceWindow,omitempty"`       // Quiet period after the last runtime event (default: 2s)
	RefreshInterval      Duration `yaml:"refreshInterval,omitempty"`      // Full-listing fallback period (default: 15s)
	ImagePullConcurrency int      `yaml:"imagePullConcurrency,omitempty"` // Max concurrent image pulls (default: 2)
}

// LogConfig controls agent logging.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug|info|warn|error (default: info)
	Format string `yaml:"format,omitempty"` // text|json (default: text)
}

// Duration is a time.Duration that unmarshals from YAML strings like "2s".
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String returns the standard duration formatting.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}
