// Package config loads and validates cadence configuration.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" || path == ":memory:" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}

// DefaultDatabasePath is where the database lives when database.path is unset.
func DefaultDatabasePath() string {
	return filepath.Join("$HOME", ".local", "share", "cadence", "cadence.db")
}

// DefaultConfigDir holds config.yaml when --config is not given.
func DefaultConfigDir() string {
	return ExpandPath(filepath.Join("~", ".config", "cadence"))
}
