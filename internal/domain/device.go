package domain

import (
	"strings"
	"time"
)

// DeviceStatus represents the presence state of a device
type DeviceStatus string

const (
	DeviceStatusOnline  DeviceStatus = "online"
	DeviceStatusOffline DeviceStatus = "offline"
)

// UnknownIP is the placeholder some router tables print for a host without an address
const UnknownIP = "----------"

// PortInfo describes one open port found by a fingerprint probe
type PortInfo struct {
	PortID      string `json:"portid"`
	Protocol    string `json:"protocol"`
	ServiceName string `json:"service_name"`
	Product     string `json:"product,omitempty"`
	Version     string `json:"version,omitempty"`
}

// Fingerprint holds the result of the one-time deep probe run when a device joins
type Fingerprint struct {
	OSMatch    string     `json:"os_match,omitempty"`
	OSAccuracy string     `json:"os_accuracy,omitempty"`
	Ports      []PortInfo `json:"ports"`
	Hostname   string     `json:"hostname,omitempty"`
}

// OpenPortIDs returns the port numbers of all fingerprinted ports
func (f *Fingerprint) OpenPortIDs() []string {
	if f == nil {
		return nil
	}
	ids := make([]string, 0, len(f.Ports))
	for _, p := range f.Ports {
		ids = append(ids, p.PortID)
	}
	return ids
}

// Device is the canonical record of one physical device, keyed by MAC address
type Device struct {
	MAC             string            `json:"mac"`
	IPAddresses     []string          `json:"ip_addresses"`
	Vendor          string            `json:"vendor"`
	Category        string            `json:"category"`
	Hostname        string            `json:"hostname"`
	FriendlyName    string            `json:"friendly_name"`
	Subnet          string            `json:"subnet"`
	Status          DeviceStatus      `json:"status"`
	FirstSeen       time.Time         `json:"first_seen"`
	LastSeen        time.Time         `json:"last_seen"`
	AlertOnOffline  bool              `json:"alert_on_offline"`
	Notes           string            `json:"notes"`
	Fingerprint     *Fingerprint      `json:"fingerprint"`
	Vulnerabilities VulnerabilityFlag `json:"vulnerabilities"`
}

// NewDevice creates an online device from its first observation
func NewDevice(rec MergedRecord, now time.Time) *Device {
	d := &Device{
		MAC:         NormalizeMAC(rec.MAC),
		IPAddresses: append([]string{}, rec.IPs...),
		Vendor:      rec.Vendor,
		Hostname:    rec.Hostname,
		Subnet:      rec.Subnet,
		Status:      DeviceStatusOnline,
		FirstSeen:   now,
		LastSeen:    now,
	}
	d.FriendlyName = d.MAC
	if d.Hostname != "" {
		d.FriendlyName = d.Hostname
	}
	return d
}

// HasDefaultName reports whether the friendly name was never set by a person or by enrichment
func (d *Device) HasDefaultName() bool {
	return d.FriendlyName == "" || d.FriendlyName == d.MAC
}

// HasIP reports whether ip was ever observed for this device
func (d *Device) HasIP(ip string) bool {
	for _, known := range d.IPAddresses {
		if known == ip {
			return true
		}
	}
	return false
}

// LatestIP returns the most recently added address, or "" if none is known
func (d *Device) LatestIP() string {
	if len(d.IPAddresses) == 0 {
		return ""
	}
	return d.IPAddresses[len(d.IPAddresses)-1]
}

// Clone returns a deep copy safe to hand outside the inventory lock
func (d *Device) Clone() Device {
	c := *d
	c.IPAddresses = append([]string{}, d.IPAddresses...)
	if d.Fingerprint != nil {
		fp := *d.Fingerprint
		fp.Ports = append([]PortInfo{}, d.Fingerprint.Ports...)
		c.Fingerprint = &fp
	}
	return c
}

// NormalizeMAC canonicalizes a hardware address for lookups and comparison
func NormalizeMAC(mac string) string {
	return strings.ToUpper(strings.TrimSpace(mac))
}

// UsableIP reports whether ip can be targeted by a probe
func UsableIP(ip string) bool {
	return ip != "" && ip != UnknownIP
}
