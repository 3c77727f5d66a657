package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names an explicit config file and overrides the search
	EnvConfigPath = "PINGPOINT_CONFIG"
	// ConfigFileName is the file looked up in every search directory
	ConfigFileName = "config.yaml"
	// ConfigDirName is the per-application directory under XDG and /etc
	ConfigDirName = "pingpoint"
)

// SearchPaths lists the config locations in priority order: $PINGPOINT_CONFIG,
// ./config.yaml, $XDG_CONFIG_HOME/pingpoint, ~/.config/pingpoint and
// /etc/pingpoint. Unset variables contribute no entry.
func SearchPaths() []string {
	var paths []string
	if p := os.Getenv(EnvConfigPath); p != "" {
		paths = append(paths, p)
	}
	if abs, err := filepath.Abs(ConfigFileName); err == nil {
		paths = append(paths, abs)
	} else {
		paths = append(paths, ConfigFileName)
	}
	paths = append(paths, userConfigPaths()...)
	return append(paths, filepath.Join("/etc", ConfigDirName, ConfigFileName))
}

func userConfigPaths() []string {
	var paths []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, ConfigDirName, ConfigFileName))
	}
	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", ConfigDirName, ConfigFileName))
	}
	return paths
}

// FindConfigPath returns the first existing file from SearchPaths, or "" when none exists
func FindConfigPath() string {
	for _, p := range SearchPaths() {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// DefaultConfigPath is where a config saved from the API goes when none was
// found at startup: $PINGPOINT_CONFIG, then the user config directory, then
// the working directory.
func DefaultConfigPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	if user := userConfigPaths(); len(user) > 0 {
		return user[0]
	}
	return ConfigFileName
}

// EnsureConfigDir creates the parent directory of configPath
func EnsureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0o755)
}
