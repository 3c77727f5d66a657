package domain

import (
	"reflect"
	"testing"
)

func TestMergeRecords(t *testing.T) {
	t.Run("drops records without mac", func(t *testing.T) {
		merged := MergeRecords([]DiscoveryRecord{
			{IP: "10.0.0.1"},
			{MAC: "  ", IP: "10.0.0.2"},
		})
		if len(merged) != 0 {
			t.Errorf("expected no records, got %d", len(merged))
		}
	})

	t.Run("deduplicates on uppercase mac with field union", func(t *testing.T) {
		merged := MergeRecords([]DiscoveryRecord{
			{MAC: "aa:bb:cc:dd:ee:ff", IP: "192.168.1.10"},
			{MAC: "11:22:33:44:55:66", IP: "192.168.1.20"},
			{MAC: "AA:BB:CC:DD:EE:FF", IP: "192.168.1.10", Hostname: "test-device", Subnet: "LAN_POOL"},
			{MAC: "AA:bb:CC:dd:EE:ff", IP: "192.168.1.11", Vendor: "Apple", Hostname: "ignored"},
		})

		if len(merged) != 2 {
			t.Fatalf("expected 2 merged records, got %d", len(merged))
		}

		first := merged[0]
		if first.MAC != "AA:BB:CC:DD:EE:FF" {
			t.Errorf("expected first mac AA:BB:CC:DD:EE:FF, got %s", first.MAC)
		}
		if !reflect.DeepEqual(first.IPs, []string{"192.168.1.10", "192.168.1.11"}) {
			t.Errorf("unexpected ips %v", first.IPs)
		}
		if first.Hostname != "test-device" {
			t.Errorf("expected first non-empty hostname, got %s", first.Hostname)
		}
		if first.Vendor != "Apple" {
			t.Errorf("expected vendor Apple, got %s", first.Vendor)
		}
		if first.Subnet != "LAN_POOL" {
			t.Errorf("expected subnet LAN_POOL, got %s", first.Subnet)
		}

		if merged[1].MAC != "11:22:33:44:55:66" {
			t.Errorf("expected second mac 11:22:33:44:55:66, got %s", merged[1].MAC)
		}
	})
}
