package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"pingpoint/internal/domain"
)

func testDevice() domain.Device {
	seen := time.Date(2025, 6, 22, 16, 15, 17, 0, time.UTC)
	return domain.Device{
		MAC:          "AA:BB:CC:DD:EE:FF",
		IPAddresses:  []string{"192.168.1.10", "192.168.1.42"},
		FriendlyName: "Living room TV",
		Vendor:       "Samsung",
		LastSeen:     seen,
	}
}

func TestNewPayload(t *testing.T) {
	p := NewPayload(domain.EventJoined, testDevice())

	want := Payload{
		Event:  "device_joined",
		Device: "Living room TV",
		IP:     "192.168.1.10, 192.168.1.42",
		MAC:    "AA:BB:CC:DD:EE:FF",
		Vendor: "Samsung",
		Time:   "2025-06-22T16:15:17Z",
	}
	if p != want {
		t.Errorf("payload mismatch:\n got  %+v\n want %+v", p, want)
	}
}

func TestWebhookNotifier_Notify(t *testing.T) {
	ctx := context.Background()

	t.Run("posts payload", func(t *testing.T) {
		var got Payload
		var contentType string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			contentType = r.Header.Get("Content-Type")
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				t.Errorf("decode: %v", err)
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		n := NewWebhookNotifier(zerolog.Nop())
		if err := n.Notify(ctx, srv.URL, domain.EventOffline, testDevice()); err != nil {
			t.Fatalf("notify: %v", err)
		}
		if contentType != "application/json" {
			t.Errorf("expected json content type, got %s", contentType)
		}
		if got.Event != "device_offline" || got.MAC != "AA:BB:CC:DD:EE:FF" {
			t.Errorf("unexpected payload %+v", got)
		}
	})

	t.Run("empty target is a no-op", func(t *testing.T) {
		n := NewWebhookNotifier(zerolog.Nop())
		if err := n.Notify(ctx, "", domain.EventJoined, testDevice()); err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	})

	t.Run("error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad webhook id", http.StatusNotFound)
		}))
		defer srv.Close()

		n := NewWebhookNotifier(zerolog.Nop())
		if err := n.Notify(ctx, srv.URL, domain.EventJoined, testDevice()); err == nil {
			t.Error("expected error for 404 response")
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		n := NewWebhookNotifier(zerolog.Nop())
		if err := n.Notify(ctx, url, domain.EventJoined, testDevice()); err == nil {
			t.Error("expected error for closed server")
		}
	})
}
