package hub

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"pingpoint/internal/domain"
)

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, h.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHub_StreamsForwardedEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New(zerolog.Nop())
	go h.Run(ctx)

	events := make(chan domain.Event, 4)
	go h.Forward(ctx, events)

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %s", ct)
	}
	waitForClients(t, h, 1)

	d := domain.Device{MAC: "AA:BB:CC:DD:EE:FF", IPAddresses: []string{"192.168.1.10"}}
	events <- domain.NewEvent(domain.EventJoined, &d, "New device joined: AA:BB:CC:DD:EE:FF", time.Now())

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	timeout := time.After(2 * time.Second)
	var eventName string
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatal("stream closed before event")
			}
			if strings.HasPrefix(line, "event: ") {
				eventName = strings.TrimPrefix(line, "event: ")
				continue
			}
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			if eventName != string(domain.EventJoined) {
				t.Errorf("event name = %q, want %q", eventName, domain.EventJoined)
			}
			var ev domain.Event
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
				t.Fatalf("decode event: %v", err)
			}
			if ev.Type != domain.EventJoined || ev.Device.MAC != d.MAC {
				t.Errorf("unexpected event %+v", ev)
			}
			return
		case <-timeout:
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New(zerolog.Nop())
	go h.Run(ctx)

	srv := httptest.NewServer(h)
	defer srv.Close()

	reqCtx, reqCancel := context.WithCancel(context.Background())
	req, _ := http.NewRequestWithContext(reqCtx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	waitForClients(t, h, 1)

	reqCancel()
	resp.Body.Close()
	waitForClients(t, h, 0)
}

func TestHub_RefusesAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New(zerolog.Nop())

	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/events", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 after shutdown, got %d", rr.Code)
	}
}

func TestEncodeFrame(t *testing.T) {
	d := domain.Device{MAC: "AA:BB:CC:DD:EE:FF"}
	ev := domain.NewEvent(domain.EventOffline, &d, "Device went offline: AA:BB:CC:DD:EE:FF", time.Now())

	frame, err := encodeFrame(ev)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	text := string(frame)
	if !strings.HasPrefix(text, "id: "+ev.ID+"\nevent: device_offline\ndata: {") {
		t.Errorf("unexpected frame header: %q", text)
	}
	if !strings.HasSuffix(text, "}\n\n") {
		t.Errorf("frame must end with a blank line: %q", text)
	}
}
