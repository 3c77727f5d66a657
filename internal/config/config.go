// Package config provides configuration management for PingPoint.
//
// Config file locations (priority order):
//  1. $PINGPOINT_CONFIG
//  2. ./config.yaml
//  3. $XDG_CONFIG_HOME/pingpoint/config.yaml
//  4. ~/.config/pingpoint/config.yaml
//  5. /etc/pingpoint/config.yaml
//
// The file is re-read when it changes on disk and can be replaced through
// the API; Live holds the current values for the running process.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"pingpoint/internal/adapter"
)

// RedactedValue replaces secrets in API responses
const RedactedValue = "********"

// Scan sources selectable for the periodic loop
const (
	SourceAuto    = "auto"
	SourceEdgeMax = "edgemax"
	SourceNmap    = "nmap"
)

// Storage drivers
const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("invalid config")

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	return cfg, path, nil
}

// Save writes config to the specified path. The file is replaced with a
// rename so the watcher never reads a partial write.
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.ScanInterval <= 0 {
		c.ScanInterval = Duration(2 * time.Minute)
	}
	if c.ScanSource == "" {
		c.ScanSource = SourceAuto
	}
	if c.OfflineDebounceScans == 0 {
		c.OfflineDebounceScans = 2
	}
	if c.EdgeMax.Port == 0 {
		c.EdgeMax.Port = 22
	}
	if c.EdgeMax.Timeout <= 0 {
		c.EdgeMax.Timeout = Duration(10 * time.Second)
	}
	if c.Nmap.ScanTimeout <= 0 {
		c.Nmap.ScanTimeout = Duration(5 * time.Minute)
	}
	if c.Nmap.FingerprintTimeout <= 0 {
		c.Nmap.FingerprintTimeout = Duration(10 * time.Minute)
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverJSON
	}
	if c.Storage.Path == "" {
		if c.Storage.Driver == DriverSQLite {
			c.Storage.Path = "./pingpoint.db"
		} else {
			c.Storage.Path = "./devices.json"
		}
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate reports every problem that would stop the service from scanning
func (c *Config) Validate() error {
	var errs []error

	if !c.EdgeMax.Configured() && len(c.Subnets) == 0 {
		errs = append(errs, errors.New("configure edgemax.host and edgemax.username, or at least one subnet"))
	}
	if c.OfflineDebounceScans <= 0 {
		errs = append(errs, fmt.Errorf("offline_debounce_scans must be positive, got %d", c.OfflineDebounceScans))
	}
	switch c.ScanSource {
	case SourceAuto, SourceEdgeMax, SourceNmap:
	default:
		errs = append(errs, fmt.Errorf("unknown scan_source %q", c.ScanSource))
	}
	switch c.Storage.Driver {
	case DriverJSON, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	if c.ScanSchedule != "" {
		if _, err := cron.ParseStandard(c.ScanSchedule); err != nil {
			errs = append(errs, fmt.Errorf("scan_schedule: %w", err))
		}
	}
	if c.Nmap.FingerprintPorts != "" {
		if _, err := adapter.ParsePorts(c.Nmap.FingerprintPorts); err != nil {
			errs = append(errs, fmt.Errorf("nmap.fingerprint_ports: %w", err))
		}
	}
	if c.EdgeMax.Port < 0 || c.EdgeMax.Port > 65535 {
		errs = append(errs, fmt.Errorf("edgemax.port out of range: %d", c.EdgeMax.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Clone returns a deep copy
func (c *Config) Clone() *Config {
	clone := *c
	clone.Subnets = append([]string(nil), c.Subnets...)
	return &clone
}

// Redacted returns a copy safe to show to API clients
func (c *Config) Redacted() *Config {
	clone := c.Clone()
	if clone.EdgeMax.Password != "" {
		clone.EdgeMax.Password = RedactedValue
	}
	if clone.Fingerbank.APIKey != "" {
		clone.Fingerbank.APIKey = RedactedValue
	}
	return clone
}

// ApplyUpdate merges a JSON document onto a copy of c. Fields the document
// omits keep their current value, and a secret sent back empty or as
// RedactedValue is kept rather than cleared. The result is validated.
func (c *Config) ApplyUpdate(body []byte) (*Config, error) {
	next := c.Clone()

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(next); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if next.EdgeMax.Password == "" || next.EdgeMax.Password == RedactedValue {
		next.EdgeMax.Password = c.EdgeMax.Password
	}
	if next.Fingerbank.APIKey == "" || next.Fingerbank.APIKey == RedactedValue {
		next.Fingerbank.APIKey = c.Fingerbank.APIKey
	}

	next.applyDefaults()
	if err := next.Validate(); err != nil {
		return nil, err
	}
	return next, nil
}
