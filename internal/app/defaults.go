package app

import (
	"fmt"
	"os"
	"path/filepath"

	"staffsync/internal/config"
	"staffsync/internal/staff"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - STAFFSYNC_CONFIG_PATH: config file location (default: ~/.config/staffsync.toml)
//   - STAFFSYNC_HOME: base directory for staffsync data (default: ~/.local/share/staffsync)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking STAFFSYNC_CONFIG_PATH env var first,
// then falling back to the default ~/.config/staffsync.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("STAFFSYNC_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "staffsync.toml"), nil
}

// getBaseDir returns the base directory for staffsync data, checking STAFFSYNC_HOME env var first,
// then falling back to the XDG default ~/.local/share/staffsync.
func getBaseDir() (string, error) {
	if path := os.Getenv("STAFFSYNC_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "staffsync"), nil
}

// NewDefaultConfig returns the configuration written by `staffsync config init`:
// config.NewConfig defaults under baseDir with a freshly generated client id.
func NewDefaultConfig(baseDir string) *config.Config {
	return config.NewConfig(staff.UUIDGenerator{}.New(), baseDir)
}
