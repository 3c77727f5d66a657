package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies a device lifecycle transition
type EventType string

const (
	EventJoined      EventType = "device_joined"
	EventReconnected EventType = "device_reconnected"
	EventIPChange    EventType = "ip_change"
	EventOffline     EventType = "device_offline"
)

// Event is an immutable record of one transition, carrying the device as it was at that moment
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Device    Device    `json:"device"`
	Message   string    `json:"message"`
}

// NewEvent snapshots the device into a new event
func NewEvent(eventType EventType, device *Device, message string, now time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: now,
		Type:      eventType,
		Device:    device.Clone(),
		Message:   message,
	}
}
