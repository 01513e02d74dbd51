// Package config loads itemfs's YAML configuration file, with environment
// variable overrides layered on top for testability and deployment flexibility.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Store StoreConfig `yaml:"store"`
	Mount MountConfig `yaml:"mount"`
	Log   LogConfig   `yaml:"log"`
}

// StoreConfig locates the metadata store and the item content directories
// it owns. Root is the directory containing metadata.db and items/<id>/.
type StoreConfig struct {
	Root string `yaml:"root"`
}

type MountConfig struct {
	DefaultPath string `yaml:"default_path"`
	AllowOther  bool   `yaml:"allow_other"`
	BinDir      string `yaml:"bin_dir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

func DefaultConfig() *Config {
	return &Config{
		Mount: MountConfig{
			DefaultPath: "",
			AllowOther:  false,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration using the real environment.
func Load() (*Config, error) {
	return LoadWithEnv(os.Getenv)
}

// LoadWithEnv loads configuration using the provided environment lookup function.
// This allows tests to provide isolated environment values.
func LoadWithEnv(getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPathWithEnv(getenv)
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if root := getenv("ITEMFS_STORE_ROOT"); root != "" {
		cfg.Store.Root = root
	}
	if mountPath := getenv("ITEMFS_MOUNT_PATH"); mountPath != "" {
		cfg.Mount.DefaultPath = mountPath
	}

	return cfg, nil
}

func getConfigPath() string {
	return getConfigPathWithEnv(os.Getenv)
}

func getConfigPathWithEnv(getenv func(string) string) string {
	if xdgConfig := getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "itemfs", "config.yaml")
	}

	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "itemfs", "config.yaml")
}

// DefaultStoreRoot follows the same XDG-based convention as the rest of
// this package's defaults, but itemfs's store root is a directory
// (metadata.db plus items/<id>/), not a single file.
func DefaultStoreRoot() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = os.Getenv("HOME")
	}
	return filepath.Join(configDir, "itemfs", "store")
}
