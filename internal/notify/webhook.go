// Package notify posts device lifecycle events to a webhook, typically a
// Home Assistant automation trigger.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"pingpoint/internal/domain"
)

// Payload is the JSON body sent for every event
type Payload struct {
	Event  string `json:"event"`
	Device string `json:"device"`
	IP     string `json:"ip"`
	MAC    string `json:"mac"`
	Vendor string `json:"vendor"`
	Time   string `json:"time"`
}

// NewPayload builds the webhook body for a device event
func NewPayload(eventType domain.EventType, d domain.Device) Payload {
	return Payload{
		Event:  string(eventType),
		Device: d.FriendlyName,
		IP:     strings.Join(d.IPAddresses, ", "),
		MAC:    d.MAC,
		Vendor: d.Vendor,
		Time:   d.LastSeen.Format(time.RFC3339),
	}
}

// WebhookNotifier sends payloads with a POST per event
type WebhookNotifier struct {
	client *http.Client
	logger zerolog.Logger
}

// NewWebhookNotifier creates a notifier with a 10 second request timeout
func NewWebhookNotifier(logger zerolog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger.With().Str("component", "notify").Logger(),
	}
}

// Notify posts the event to target. An empty target is a silent no-op.
// Any non-2xx response is an error.
func (n *WebhookNotifier) Notify(ctx context.Context, target string, eventType domain.EventType, device domain.Device) error {
	if target == "" {
		n.logger.Debug().Str("event", string(eventType)).Msg("webhook not configured, skipping notification")
		return nil
	}

	body, err := json.Marshal(NewPayload(eventType, device))
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	n.logger.Info().Str("event", string(eventType)).Str("mac", device.MAC).Msg("notification sent")
	return nil
}
