package config

import (
	"os"
	"path/filepath"
)

// HomeEnvVar overrides the TATIS home directory.
const HomeEnvVar = "TATIS_HOME"

// DefaultHomeDir returns the TATIS home directory: $TATIS_HOME, else
// ~/.tatis, else a directory under the system temp dir.
func DefaultHomeDir() string {
	if dir := os.Getenv(HomeEnvVar); dir != "" {
		return dir
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".tatis")
	}
	return filepath.Join(userHome, ".tatis")
}

// DefaultConfigPath returns the default config file path for a given home directory
func DefaultConfigPath(homeDir string) string {
	return filepath.Join(homeDir, "config.yaml")
}
