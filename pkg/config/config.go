// Package config implements ccpm's configuration file, the same
// load/default/save shape the teacher uses for its own config, yaml-backed
// rather than reinventing a flag-only setup.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds ccpm's user-level configuration.
type Config struct {
	DataDir string `yaml:"data_dir"`
	Debug   bool   `yaml:"debug"`
}

// DefaultConfig returns a default configuration, honouring CCPM_DATA_DIR
// (§6) if set.
func DefaultConfig() *Config {
	return &Config{
		DataDir: getDefaultDataDir(),
		Debug:   false,
	}
}

// DefaultPath returns $HOME/.config/ccpm/config.yaml, or "" if the home
// directory cannot be determined.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "ccpm", "config.yaml")
}

// LoadConfig loads configuration from path, or DefaultPath() if path is
// empty. A missing file is not an error: DefaultConfig() is returned.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path (or DefaultPath() if empty), creating
// parent directories as needed.
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return fmt.Errorf("config: cannot determine home directory")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: creating directory for %s: %w", path, err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshaling: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}

func getDefaultDataDir() string {
	if dir := os.Getenv("CCPM_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "/var/lib/ccpm"
	}
	return filepath.Join(home, ".local", "share", "ccpm")
}
