package domain

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestNewDevice(t *testing.T) {
	now := time.Date(2025, 6, 22, 16, 15, 0, 0, time.UTC)

	t.Run("friendly name defaults to mac", func(t *testing.T) {
		d := NewDevice(MergedRecord{MAC: "aa:bb:cc:dd:ee:ff", IPs: []string{"192.168.1.10"}}, now)

		if d.MAC != "AA:BB:CC:DD:EE:FF" {
			t.Errorf("expected canonical mac, got %s", d.MAC)
		}
		if d.FriendlyName != d.MAC {
			t.Errorf("expected friendly name %s, got %s", d.MAC, d.FriendlyName)
		}
		if d.Status != DeviceStatusOnline {
			t.Errorf("expected status online, got %s", d.Status)
		}
		if !d.FirstSeen.Equal(now) || !d.LastSeen.Equal(now) {
			t.Errorf("expected first/last seen %v, got %v/%v", now, d.FirstSeen, d.LastSeen)
		}
		if !reflect.DeepEqual(d.IPAddresses, []string{"192.168.1.10"}) {
			t.Errorf("unexpected ip addresses %v", d.IPAddresses)
		}
		if !d.HasDefaultName() {
			t.Error("expected HasDefaultName to be true")
		}
	})

	t.Run("friendly name defaults to hostname", func(t *testing.T) {
		d := NewDevice(MergedRecord{MAC: "AA:BB:CC:DD:EE:FF", Hostname: "printer"}, now)
		if d.FriendlyName != "printer" {
			t.Errorf("expected friendly name printer, got %s", d.FriendlyName)
		}
		if d.HasDefaultName() {
			t.Error("expected HasDefaultName to be false")
		}
	})

	t.Run("no ip yields empty list", func(t *testing.T) {
		d := NewDevice(MergedRecord{MAC: "AA:BB:CC:DD:EE:FF"}, now)
		if d.IPAddresses == nil || len(d.IPAddresses) != 0 {
			t.Errorf("expected empty non-nil ip list, got %#v", d.IPAddresses)
		}
		if d.LatestIP() != "" {
			t.Errorf("expected no latest ip, got %s", d.LatestIP())
		}
	})
}

func TestDeviceClone(t *testing.T) {
	d := &Device{
		MAC:         "AA:BB:CC:DD:EE:FF",
		IPAddresses: []string{"10.0.0.1"},
		Fingerprint: &Fingerprint{OSMatch: "Linux 5.x", Ports: []PortInfo{{PortID: "22", Protocol: "tcp"}}},
	}

	c := d.Clone()
	c.IPAddresses[0] = "10.0.0.99"
	c.Fingerprint.Ports[0].PortID = "80"
	c.Fingerprint.OSMatch = "changed"

	if d.IPAddresses[0] != "10.0.0.1" {
		t.Error("clone shares ip slice with original")
	}
	if d.Fingerprint.Ports[0].PortID != "22" || d.Fingerprint.OSMatch != "Linux 5.x" {
		t.Error("clone shares fingerprint with original")
	}
}

func TestDeviceHasIP(t *testing.T) {
	d := &Device{IPAddresses: []string{"10.0.0.1", "10.0.0.2"}}

	if !d.HasIP("10.0.0.2") {
		t.Error("expected 10.0.0.2 to be known")
	}
	if d.HasIP("10.0.0.3") {
		t.Error("expected 10.0.0.3 to be unknown")
	}
	if d.LatestIP() != "10.0.0.2" {
		t.Errorf("expected latest ip 10.0.0.2, got %s", d.LatestIP())
	}
}

func TestUsableIP(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"192.168.1.5", true},
		{"", false},
		{UnknownIP, false},
	}

	for _, tt := range tests {
		if got := UsableIP(tt.ip); got != tt.want {
			t.Errorf("UsableIP(%q) = %v, want %v", tt.ip, got, tt.want)
		}
	}
}

func TestDeviceJSONFieldNames(t *testing.T) {
	d := NewDevice(MergedRecord{MAC: "AA:BB:CC:DD:EE:FF"}, time.Now())

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for _, key := range []string{
		"mac", "ip_addresses", "vendor", "category", "hostname", "friendly_name", "subnet",
		"status", "first_seen", "last_seen", "alert_on_offline", "notes", "fingerprint", "vulnerabilities",
	} {
		if _, ok := raw[key]; !ok {
			t.Errorf("expected key %q in encoded device", key)
		}
	}
	if v, ok := raw["vulnerabilities"].(bool); !ok || v {
		t.Errorf("expected vulnerabilities=false as boolean, got %#v", raw["vulnerabilities"])
	}
}

func TestFingerprintOpenPortIDs(t *testing.T) {
	var nilFP *Fingerprint
	if ids := nilFP.OpenPortIDs(); ids != nil {
		t.Errorf("expected nil ids for nil fingerprint, got %v", ids)
	}

	fp := &Fingerprint{Ports: []PortInfo{{PortID: "22"}, {PortID: "443"}}}
	if got := fp.OpenPortIDs(); !reflect.DeepEqual(got, []string{"22", "443"}) {
		t.Errorf("unexpected port ids %v", got)
	}
}

func TestDeviceUnmarshalLegacySnapshot(t *testing.T) {
	legacy := `{
		"mac": "AA:BB:CC:00:11:22",
		"ip_addresses": null,
		"vendor": null,
		"hostname": "nas",
		"friendly_name": "nas",
		"subnet": "LAN_POOL",
		"status": "online",
		"first_seen": "2025-06-23T04:14:37.123456",
		"last_seen": "2025-06-23T05:00:00+00:00",
		"alert_on_offline": true,
		"notes": null,
		"fingerprint": {"os_match": "Linux 4.15", "os_accuracy": "98", "ports": [{"portid": "22", "protocol": "tcp", "service_name": "ssh", "product": null, "version": null}], "hostname": null},
		"vulnerabilities": []
	}`

	var d Device
	if err := json.Unmarshal([]byte(legacy), &d); err != nil {
		t.Fatalf("unmarshal legacy device: %v", err)
	}

	if d.IPAddresses == nil {
		t.Error("expected null ip_addresses to decode as empty list")
	}
	want := time.Date(2025, 6, 23, 4, 14, 37, 123456000, time.Local)
	if !d.FirstSeen.Equal(want) {
		t.Errorf("first_seen = %v, want %v", d.FirstSeen, want)
	}
	if d.LastSeen.IsZero() {
		t.Error("expected last_seen to be parsed")
	}
	if d.Fingerprint == nil || d.Fingerprint.OSMatch != "Linux 4.15" || len(d.Fingerprint.Ports) != 1 {
		t.Errorf("unexpected fingerprint %+v", d.Fingerprint)
	}
	if d.Vulnerabilities {
		t.Error("expected empty vulnerability list to decode as false")
	}
	if !d.AlertOnOffline {
		t.Error("expected alert_on_offline to be preserved")
	}
}

func TestDeviceUnmarshalRejectsBadTimestamp(t *testing.T) {
	var d Device
	err := json.Unmarshal([]byte(`{"mac":"AA","first_seen":"yesterday"}`), &d)
	if err == nil {
		t.Fatal("expected error for unparseable timestamp")
	}
}
