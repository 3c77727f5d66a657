package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"pingpoint/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "devices.json"))
}

func sampleDevices() []domain.Device {
	now := time.Date(2025, 6, 22, 16, 15, 17, 0, time.UTC)
	return []domain.Device{
		{
			MAC:          "AA:BB:CC:DD:EE:FF",
			IPAddresses:  []string{"192.168.1.10", "192.168.1.11"},
			Vendor:       "Apple",
			Hostname:     "phone",
			FriendlyName: "Phone",
			Subnet:       "192.168.1.0/24",
			Status:       domain.DeviceStatusOnline,
			FirstSeen:    now,
			LastSeen:     now.Add(time.Hour),
			Notes:        "kitchen",
			Fingerprint: &domain.Fingerprint{
				OSMatch:    "Apple iOS 16",
				OSAccuracy: "95",
				Ports:      []domain.PortInfo{{PortID: "62078", Protocol: "tcp", ServiceName: "iphone-sync"}},
			},
			Vulnerabilities: true,
		},
		{
			MAC:          "11:22:33:44:55:66",
			IPAddresses:  []string{},
			FriendlyName: "11:22:33:44:55:66",
			Status:       domain.DeviceStatusOffline,
			FirstSeen:    now,
			LastSeen:     now,
		},
	}
}

func TestStoreLoadMissingFile(t *testing.T) {
	store := newTestStore(t)

	devices, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if len(devices) != 0 {
		t.Errorf("expected empty inventory, got %d devices", len(devices))
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	want := sampleDevices()

	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d devices, got %d", len(want), len(got))
	}
	for i := range want {
		if !got[i].FirstSeen.Equal(want[i].FirstSeen) || !got[i].LastSeen.Equal(want[i].LastSeen) {
			t.Errorf("device %d timestamps differ", i)
		}
		got[i].FirstSeen, got[i].LastSeen = want[i].FirstSeen, want[i].LastSeen
		if !reflect.DeepEqual(got[i], want[i]) {
			t.Errorf("device %d mismatch:\n got  %+v\n want %+v", i, got[i], want[i])
		}
	}
}

func TestStoreSaveReplacesAtomically(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, sampleDevices()); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := store.Save(ctx, sampleDevices()[:1]); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected snapshot to be replaced, got %d devices", len(got))
	}

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the snapshot file to remain, found %d entries", len(entries))
	}
}

func TestStoreSaveFailureKeepsPreviousSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "devices.json")
	store := New(path)
	ctx := context.Background()

	if err := store.Save(ctx, sampleDevices()); err != nil {
		t.Fatalf("save: %v", err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	// Point a second store at a path whose parent is a regular file so the temp file cannot be created
	broken := New(filepath.Join(path, "nested.json"))
	if err := broken.Save(ctx, sampleDevices()[:1]); err == nil {
		t.Fatal("expected save into a file path to fail")
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(before) != string(after) {
		t.Error("existing snapshot changed after failed save")
	}
}

func TestStoreLoadMalformed(t *testing.T) {
	store := newTestStore(t)
	if err := os.WriteFile(store.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := store.Load(context.Background()); err == nil {
		t.Fatal("expected error for malformed snapshot")
	}
}

func TestStoreLoadLegacyVulnerabilities(t *testing.T) {
	store := newTestStore(t)
	legacy := `[
		{"mac": "AA:00:00:00:00:01", "ip_addresses": [], "status": "online", "first_seen": "2025-06-23T04:14:37", "last_seen": "2025-06-23T04:14:37", "vulnerabilities": []},
		{"mac": "AA:00:00:00:00:02", "ip_addresses": [], "status": "online", "first_seen": "2025-06-23T04:14:37", "last_seen": "2025-06-23T04:14:37", "vulnerabilities": ["CVE-x"]},
		{"mac": "AA:00:00:00:00:03", "ip_addresses": [], "status": "online", "first_seen": "2025-06-23T04:14:37", "last_seen": "2025-06-23T04:14:37"}
	]`
	if err := os.WriteFile(store.Path(), []byte(legacy), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	devices, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := []bool{false, true, false}
	for i, d := range devices {
		if bool(d.Vulnerabilities) != want[i] {
			t.Errorf("%s: vulnerabilities = %v, want %v", d.MAC, d.Vulnerabilities, want[i])
		}
	}
}
