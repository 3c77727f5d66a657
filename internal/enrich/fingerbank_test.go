package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"pingpoint/internal/domain"
)

func fingerprintedDevice() *domain.Device {
	return &domain.Device{
		MAC:          "AA:BB:CC:DD:EE:FF",
		IPAddresses:  []string{"192.168.1.20"},
		FriendlyName: "AA:BB:CC:DD:EE:FF",
		Vendor:       "Unknown",
		Fingerprint: &domain.Fingerprint{
			OSMatch:    "Linux 4.15 - 5.6",
			OSAccuracy: "98",
			Ports:      []domain.PortInfo{{PortID: "22", Protocol: "tcp"}, {PortID: "80", Protocol: "tcp"}},
		},
	}
}

// fingerbankServer answers interrogate requests with status and body, recording the last request
func fingerbankServer(t *testing.T, status int, body string) (*httptest.Server, *interrogateRequest, *string) {
	t.Helper()

	var got interrogateRequest
	var key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/combinations/interrogate" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		key = r.URL.Query().Get("key")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &got, &key
}

func TestFingerbankClient_Enrich(t *testing.T) {
	ctx := context.Background()

	t.Run("known device", func(t *testing.T) {
		srv, req, key := fingerbankServer(t, http.StatusOK, `{
			"device_name": "Synology DiskStation",
			"device": {"name": "Synology DiskStation", "parents": [{"name": "Storage Device"}], "vendor": {"name": "Synology"}},
			"vulnerabilities": ["CVE-2021-1234"]
		}`)
		c := NewFingerbankClient("secret", srv.URL, zerolog.Nop())
		d := fingerprintedDevice()

		changed, err := c.Enrich(ctx, d)
		if err != nil {
			t.Fatalf("enrich: %v", err)
		}
		if !changed {
			t.Fatal("expected device to be enriched")
		}

		if *key != "secret" {
			t.Errorf("expected api key in query, got %q", *key)
		}
		if req.MAC != d.MAC || req.DHCPFingerprint != "Linux 4.15 - 5.6" || !reflect.DeepEqual(req.OpenPorts, []string{"22", "80"}) {
			t.Errorf("unexpected request payload %+v", *req)
		}
		if d.FriendlyName != "Synology DiskStation" {
			t.Errorf("expected friendly name from lookup, got %s", d.FriendlyName)
		}
		if d.Vendor != "Synology" || d.Category != "Storage Device" {
			t.Errorf("unexpected vendor/category %s/%s", d.Vendor, d.Category)
		}
		if !d.Vulnerabilities {
			t.Error("expected vulnerabilities flag")
		}
	})

	t.Run("user name kept", func(t *testing.T) {
		srv, _, _ := fingerbankServer(t, http.StatusOK, `{"device_name": "Apple iPhone", "device_vendor": "Apple"}`)
		c := NewFingerbankClient("secret", srv.URL, zerolog.Nop())
		d := fingerprintedDevice()
		d.FriendlyName = "Sam's phone"

		if _, err := c.Enrich(ctx, d); err != nil {
			t.Fatalf("enrich: %v", err)
		}
		if d.FriendlyName != "Sam's phone" {
			t.Errorf("user name overwritten: %s", d.FriendlyName)
		}
		if d.Vendor != "Apple" {
			t.Errorf("expected device_vendor fallback, got %s", d.Vendor)
		}
	})

	t.Run("no data", func(t *testing.T) {
		srv, _, _ := fingerbankServer(t, http.StatusOK, `{}`)
		c := NewFingerbankClient("secret", srv.URL, zerolog.Nop())
		d := fingerprintedDevice()

		changed, err := c.Enrich(ctx, d)
		if err != nil || changed {
			t.Errorf("expected (false, nil), got (%v, %v)", changed, err)
		}
		if d.Vendor != "Unknown" {
			t.Errorf("device modified without data: %+v", d)
		}
	})

	t.Run("unknown combination", func(t *testing.T) {
		srv, _, _ := fingerbankServer(t, http.StatusNotFound, `{"message": "not found"}`)
		c := NewFingerbankClient("secret", srv.URL, zerolog.Nop())

		changed, err := c.Enrich(ctx, fingerprintedDevice())
		if err != nil || changed {
			t.Errorf("expected (false, nil), got (%v, %v)", changed, err)
		}
	})

	t.Run("api failure", func(t *testing.T) {
		srv, _, _ := fingerbankServer(t, http.StatusUnauthorized, `{"message": "invalid key"}`)
		c := NewFingerbankClient("bad", srv.URL, zerolog.Nop())
		d := fingerprintedDevice()

		changed, err := c.Enrich(ctx, d)
		if err == nil {
			t.Fatal("expected error for 401")
		}
		if changed || d.FriendlyName != d.MAC {
			t.Error("device modified on failure")
		}
	})
}

func TestFingerbankClient_Skips(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	tests := []struct {
		name   string
		apiKey string
		device *domain.Device
	}{
		{"no api key", "", fingerprintedDevice()},
		{"no fingerprint", "secret", &domain.Device{MAC: "AA:BB:CC:DD:EE:FF"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewFingerbankClient(tt.apiKey, srv.URL, zerolog.Nop())
			changed, err := c.Enrich(context.Background(), tt.device)
			if err != nil || changed {
				t.Errorf("expected (false, nil), got (%v, %v)", changed, err)
			}
		})
	}
	if calls != 0 {
		t.Errorf("expected no API calls, got %d", calls)
	}
}

func TestFingerbankClient_SetCredentials(t *testing.T) {
	c := NewFingerbankClient("", "", zerolog.Nop())
	if c.baseURL != DefaultBaseURL {
		t.Errorf("expected default base url, got %s", c.baseURL)
	}

	c.SetCredentials(" key ", "http://localhost:9000/api/v2/")
	if c.apiKey != "key" || c.baseURL != "http://localhost:9000/api/v2" {
		t.Errorf("unexpected credentials %q %q", c.apiKey, c.baseURL)
	}
}
