package codec

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"pingpoint/internal/domain"
)

// YAMLCodec writes a readable YAML listing
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// ContentType returns the MIME type of the output
func (c *YAMLCodec) ContentType() string {
	return "application/x-yaml"
}

type yamlInventory struct {
	Devices []yamlDevice `yaml:"devices"`
}

type yamlDevice struct {
	MAC             string   `yaml:"mac"`
	Name            string   `yaml:"name"`
	Status          string   `yaml:"status"`
	IPAddresses     []string `yaml:"ip_addresses,omitempty"`
	Hostname        string   `yaml:"hostname,omitempty"`
	Vendor          string   `yaml:"vendor,omitempty"`
	Category        string   `yaml:"category,omitempty"`
	Subnet          string   `yaml:"subnet,omitempty"`
	OS              string   `yaml:"os,omitempty"`
	OpenPorts       []string `yaml:"open_ports,omitempty"`
	FirstSeen       string   `yaml:"first_seen"`
	LastSeen        string   `yaml:"last_seen"`
	AlertOnOffline  bool     `yaml:"alert_on_offline,omitempty"`
	Vulnerabilities bool     `yaml:"vulnerabilities,omitempty"`
	Notes           string   `yaml:"notes,omitempty"`
}

// Export writes devices under a top-level devices key
func (c *YAMLCodec) Export(devices []domain.Device, w io.Writer) error {
	out := yamlInventory{Devices: make([]yamlDevice, 0, len(devices))}

	for _, d := range devices {
		yd := yamlDevice{
			MAC:             d.MAC,
			Name:            d.FriendlyName,
			Status:          string(d.Status),
			IPAddresses:     d.IPAddresses,
			Hostname:        d.Hostname,
			Vendor:          d.Vendor,
			Category:        d.Category,
			Subnet:          d.Subnet,
			FirstSeen:       d.FirstSeen.Format(time.RFC3339),
			LastSeen:        d.LastSeen.Format(time.RFC3339),
			AlertOnOffline:  d.AlertOnOffline,
			Vulnerabilities: bool(d.Vulnerabilities),
			Notes:           d.Notes,
		}
		if d.Fingerprint != nil {
			yd.OS = d.Fingerprint.OSMatch
			yd.OpenPorts = d.Fingerprint.OpenPortIDs()
		}
		out.Devices = append(out.Devices, yd)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&out); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}
