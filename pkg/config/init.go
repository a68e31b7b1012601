package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configHeader = `# icecold configuration
#
# Every key can be overridden from the environment with the ICECOLD_ prefix,
# for example ICECOLD_ENVIRONMENT=debug or ICECOLD_LIFECYCLE_FAIL_FAST=true.
#
# log_routing.groups binds caller path prefixes to filter tiers. The longest
# matching prefix wins; unmatched paths use log_routing.defaults.

`

// InitConfig writes a sample configuration file to the default location and
// returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample configuration file to path.
func InitConfigToPath(path string, force bool) error {
	return WriteConfig(SampleConfig(), path, force)
}

// WriteConfig writes cfg to path with the explanatory header.
func WriteConfig(cfg *Config, path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, append([]byte(configHeader), data...), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SampleConfig returns the default configuration with metrics enabled and
// one example group.
func SampleConfig() *Config {
	cfg := GetDefaultConfig()
	cfg.Metrics.Enabled = true
	cfg.LogRouting.Groups = []GroupConfig{
		{Name: "Runtime", Prefix: "icecold/service"},
	}
	return cfg
}
