package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure
type Config struct {
	ScanInterval         Duration `yaml:"scan_interval" json:"scan_interval"`
	ScanSchedule         string   `yaml:"scan_schedule,omitempty" json:"scan_schedule"`
	ScanSource           string   `yaml:"scan_source" json:"scan_source"` // auto, edgemax, nmap
	OfflineDebounceScans int      `yaml:"offline_debounce_scans" json:"offline_debounce_scans"`
	Subnets              []string `yaml:"subnets" json:"subnets"`

	EdgeMax       EdgeMaxConfig       `yaml:"edgemax" json:"edgemax"`
	HomeAssistant HomeAssistantConfig `yaml:"home_assistant" json:"home_assistant"`
	Fingerbank    FingerbankConfig    `yaml:"fingerbank" json:"fingerbank"`
	Nmap          NmapConfig          `yaml:"nmap" json:"nmap"`
	DNS           DNSConfig           `yaml:"dns" json:"dns"`
	Storage       StorageConfig       `yaml:"storage" json:"storage"`
	Server        ServerConfig        `yaml:"server" json:"server"`
	Log           LogConfig           `yaml:"log" json:"log"`
}

// EdgeMaxConfig holds router login settings
type EdgeMaxConfig struct {
	Host     string   `yaml:"host" json:"host"`
	Port     int      `yaml:"port" json:"port"`
	Username string   `yaml:"username" json:"username"`
	Password string   `yaml:"password" json:"password"`
	Timeout  Duration `yaml:"timeout" json:"timeout"`
}

// Configured reports whether enough is set to attempt a router scan
func (e EdgeMaxConfig) Configured() bool {
	return e.Host != "" && e.Username != ""
}

// HomeAssistantConfig holds the notification webhook
type HomeAssistantConfig struct {
	WebhookURL string `yaml:"webhook_url" json:"webhook_url"`
}

// FingerbankConfig holds enrichment API settings
type FingerbankConfig struct {
	APIKey  string `yaml:"api_key" json:"api_key"`
	BaseURL string `yaml:"base_url,omitempty" json:"base_url"`
}

// NmapConfig holds active scan limits
type NmapConfig struct {
	ScanTimeout        Duration `yaml:"scan_timeout" json:"scan_timeout"`
	FingerprintTimeout Duration `yaml:"fingerprint_timeout" json:"fingerprint_timeout"`
	FingerprintPorts   string   `yaml:"fingerprint_ports,omitempty" json:"fingerprint_ports"`
	Unprivileged       bool     `yaml:"unprivileged,omitempty" json:"unprivileged"`
}

// DNSConfig enables reverse lookups for records without a hostname
type DNSConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Server  string `yaml:"server,omitempty" json:"server"` // empty = resolv.conf
}

// StorageConfig selects the snapshot store
type StorageConfig struct {
	Driver string `yaml:"driver" json:"driver"` // json, sqlite
	Path   string `yaml:"path" json:"path"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// Duration wraps time.Duration for YAML and JSON. A bare integer is read as
// minutes, which is how older config files wrote scan_interval.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	if node.ShortTag() == "!!int" {
		var minutes int
		if err := node.Decode(&minutes); err != nil {
			return err
		}
		*d = Duration(time.Duration(minutes) * time.Minute)
		return nil
	}
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalJSON accepts "90s" style strings and integer minutes
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*d = Duration(time.Duration(v * float64(time.Minute)))
	case string:
		parsed, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*d = Duration(parsed)
	case nil:
	default:
		return fmt.Errorf("invalid duration %s", data)
	}
	return nil
}

// MarshalJSON writes the duration as a Go duration string
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
