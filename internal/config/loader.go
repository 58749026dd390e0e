package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"podlet/pkg/logging"
)

// DefaultConfigPath is where the agent looks when no --config flag is given.
const DefaultConfigPath = "/etc/podlet/config.yaml"

// LoadConfig loads the agent configuration from configPath. A missing file
// is not an error: the defaults stand. A present but malformed or invalid
// file is an error; the agent must not start on a config it cannot trust.
func LoadConfig(configPath string) (Config, error) {
	cfg := GetDefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("Config", "No config file at %s, using defaults", configPath)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("failed to read config from %s: %w", configPath, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config from %s: %w", configPath, err)
	}

	if verrs := Validate(cfg); verrs.HasErrors() {
		return Config{}, fmt.Errorf("invalid config %s: %w", configPath, verrs)
	}

	logging.Info("Config", "Loaded configuration from %s", configPath)
	return cfg, nil
}
