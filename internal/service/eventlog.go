package service

import "pingpoint/internal/domain"

// DefaultEventLogSize is the number of events kept in memory
const DefaultEventLogSize = 200

// EventLog is a fixed-size ring of the most recent events.
// It is not safe for concurrent use; Inventory guards it with its own lock.
type EventLog struct {
	buf   []domain.Event
	next  int
	count int
}

// NewEventLog creates a log holding at most capacity events
func NewEventLog(capacity int) *EventLog {
	if capacity <= 0 {
		capacity = DefaultEventLogSize
	}
	return &EventLog{buf: make([]domain.Event, capacity)}
}

// Add appends an event, evicting the oldest when full
func (l *EventLog) Add(ev domain.Event) {
	l.buf[l.next] = ev
	l.next = (l.next + 1) % len(l.buf)
	if l.count < len(l.buf) {
		l.count++
	}
}

// size returns the number of stored events
func (l *EventLog) size() int {
	return l.count
}

// List returns the stored events newest first
func (l *EventLog) List() []domain.Event {
	out := make([]domain.Event, 0, l.count)
	for i := 1; i <= l.count; i++ {
		idx := (l.next - i + len(l.buf)) % len(l.buf)
		ev := l.buf[idx]
		ev.Device = ev.Device.Clone()
		out = append(out, ev)
	}
	return out
}
