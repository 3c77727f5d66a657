// Package enrich annotates devices with data from the Fingerbank device
// fingerprinting API.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pingpoint/internal/domain"
)

// DefaultBaseURL is the public Fingerbank v2 API
const DefaultBaseURL = "https://api.fingerbank.org/api/v2"

// FingerbankClient queries the combinations/interrogate endpoint.
// The API key and base URL can be replaced at runtime.
type FingerbankClient struct {
	mu      sync.RWMutex
	apiKey  string
	baseURL string

	httpClient *http.Client
	logger     zerolog.Logger
}

// NewFingerbankClient creates a client. An empty baseURL uses DefaultBaseURL.
func NewFingerbankClient(apiKey, baseURL string, logger zerolog.Logger) *FingerbankClient {
	c := &FingerbankClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.With().Str("component", "fingerbank").Logger(),
	}
	c.SetCredentials(apiKey, baseURL)
	return c
}

// SetCredentials replaces the API key and base URL
func (c *FingerbankClient) SetCredentials(apiKey, baseURL string) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c.mu.Lock()
	c.apiKey = strings.TrimSpace(apiKey)
	c.baseURL = baseURL
	c.mu.Unlock()
}

type interrogateRequest struct {
	MAC             string   `json:"mac"`
	DHCPFingerprint string   `json:"dhcp_fingerprint"`
	OpenPorts       []string `json:"open_ports,omitempty"`
}

type namedRef struct {
	Name string `json:"name"`
}

type interrogateResponse struct {
	DeviceName   string `json:"device_name"`
	DeviceVendor string `json:"device_vendor"`
	Device       struct {
		Name    string     `json:"name"`
		Parents []namedRef `json:"parents"`
		Vendor  *namedRef  `json:"vendor"`
	} `json:"device"`
	Vulnerabilities *domain.VulnerabilityFlag `json:"vulnerabilities"`
}

// Enrich looks the device up by MAC and fingerprint. It returns false with a
// nil error when no key is configured, the device has no fingerprint, or
// Fingerbank does not know the device.
func (c *FingerbankClient) Enrich(ctx context.Context, device *domain.Device) (bool, error) {
	c.mu.RLock()
	apiKey, baseURL := c.apiKey, c.baseURL
	c.mu.RUnlock()

	log := c.logger.With().Str("mac", device.MAC).Logger()

	if apiKey == "" {
		log.Debug().Msg("no api key configured, skipping enrichment")
		return false, nil
	}
	if device.Fingerprint == nil {
		log.Warn().Msg("device has no fingerprint to enrich")
		return false, nil
	}

	body, err := json.Marshal(interrogateRequest{
		MAC:             device.MAC,
		DHCPFingerprint: device.Fingerprint.OSMatch,
		OpenPorts:       device.Fingerprint.OpenPortIDs(),
	})
	if err != nil {
		return false, fmt.Errorf("encode fingerbank request: %w", err)
	}

	endpoint := baseURL + "/combinations/interrogate?key=" + url.QueryEscape(apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("fingerbank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("fingerbank send: %w", err)
	}
	defer resp.Body.Close()

	// 404 is how the API answers an unknown combination
	if resp.StatusCode == http.StatusNotFound {
		log.Info().Msg("fingerbank has no information for device")
		return false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return false, fmt.Errorf("fingerbank returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result interrogateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("decode fingerbank response: %w", err)
	}

	if result.DeviceName == "" {
		log.Info().Msg("fingerbank has no information for device")
		return false, nil
	}

	apply(device, &result)
	log.Info().
		Str("device_name", result.DeviceName).
		Str("vendor", device.Vendor).
		Bool("vulnerabilities", bool(device.Vulnerabilities)).
		Msg("device enriched")
	return true, nil
}

// apply copies the lookup result onto the device. The friendly name only
// changes while it is still the MAC.
func apply(device *domain.Device, result *interrogateResponse) {
	if device.FriendlyName == "" || device.FriendlyName == device.MAC {
		device.FriendlyName = result.DeviceName
	}

	vendor := result.DeviceVendor
	if result.Device.Vendor != nil && result.Device.Vendor.Name != "" {
		vendor = result.Device.Vendor.Name
	}
	if vendor != "" {
		device.Vendor = vendor
	}

	category := result.Device.Name
	if len(result.Device.Parents) > 0 && result.Device.Parents[0].Name != "" {
		category = result.Device.Parents[0].Name
	}
	if category != "" {
		device.Category = category
	}

	if result.Vulnerabilities != nil {
		device.Vulnerabilities = *result.Vulnerabilities
	}
}
