// Package hub streams lifecycle events to browsers over Server-Sent Events.
//
// Every event is written as a named SSE frame so clients can subscribe per
// transition type:
//
//	id: <event id>
//	event: device_joined
//	data: {"id":"...","type":"device_joined","device":{...},...}
package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pingpoint/internal/domain"
)

const (
	defaultKeepAlive = 30 * time.Second
	clientBuffer     = 64
	broadcastBuffer  = 256
)

type subscriber struct {
	id     string
	frames chan []byte
}

// Hub fans lifecycle events out to connected SSE subscribers
type Hub struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}

	join    chan *subscriber
	leave   chan *subscriber
	pending chan domain.Event
	done    chan struct{}

	keepAlive time.Duration
	logger    zerolog.Logger
}

// New creates a Hub. Run must be started before clients connect.
func New(logger zerolog.Logger) *Hub {
	return &Hub{
		subs:      make(map[*subscriber]struct{}),
		join:      make(chan *subscriber),
		leave:     make(chan *subscriber),
		pending:   make(chan domain.Event, broadcastBuffer),
		done:      make(chan struct{}),
		keepAlive: defaultKeepAlive,
		logger:    logger.With().Str("component", "hub").Logger(),
	}
}

// Run owns the subscriber set until ctx is cancelled, then disconnects
// every subscriber.
func (h *Hub) Run(ctx context.Context) {
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return

		case s := <-h.join:
			h.mu.Lock()
			h.subs[s] = struct{}{}
			n := len(h.subs)
			h.mu.Unlock()
			h.logger.Debug().Str("client", s.id).Int("clients", n).Msg("SSE client connected")

		case s := <-h.leave:
			h.mu.Lock()
			h.drop(s)
			n := len(h.subs)
			h.mu.Unlock()
			h.logger.Debug().Str("client", s.id).Int("clients", n).Msg("SSE client disconnected")

		case ev := <-h.pending:
			frame, err := encodeFrame(ev)
			if err != nil {
				h.logger.Error().Err(err).Str("event", string(ev.Type)).Msg("failed to encode event")
				continue
			}
			h.fanOut(frame)
		}
	}
}

func (h *Hub) closeAll() {
	close(h.done)
	h.mu.Lock()
	for s := range h.subs {
		h.drop(s)
	}
	h.mu.Unlock()
}

// drop must be called with mu held
func (h *Hub) drop(s *subscriber) {
	if _, ok := h.subs[s]; !ok {
		return
	}
	delete(h.subs, s)
	close(s.frames)
}

// fanOut never blocks; a subscriber with a full buffer misses the frame
func (h *Hub) fanOut(frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		select {
		case s.frames <- frame:
		default:
			h.logger.Warn().Str("client", s.id).Msg("SSE client is slow, frame dropped")
		}
	}
}

func encodeFrame(ev domain.Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if ev.ID != "" {
		fmt.Fprintf(&buf, "id: %s\n", ev.ID)
	}
	fmt.Fprintf(&buf, "event: %s\ndata: %s\n\n", ev.Type, data)
	return buf.Bytes(), nil
}

// Forward broadcasts events from an EventBus subscription until ctx is cancelled
func (h *Hub) Forward(ctx context.Context, events <-chan domain.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			h.Broadcast(ev)
		}
	}
}

// Broadcast queues an event for every subscriber, dropping it when the queue is full
func (h *Hub) Broadcast(ev domain.Event) {
	select {
	case h.pending <- ev:
	default:
		h.logger.Warn().Str("event", string(ev.Type)).Msg("broadcast queue full, event dropped")
	}
}

// ClientCount returns the number of connected subscribers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// ServeHTTP streams events to one client until it disconnects or the hub stops
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	s := &subscriber{id: uuid.NewString(), frames: make(chan []byte, clientBuffer)}
	select {
	case h.join <- s:
	case <-h.done:
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	case <-r.Context().Done():
		return
	}
	defer func() {
		select {
		case h.leave <- s:
		case <-h.done:
		}
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-s.frames:
			if !ok {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
		flusher.Flush()
	}
}
