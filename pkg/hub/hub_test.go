package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func newTestClient(h *Hub) *Client {
	c := &Client{hub: h, send: make(chan []byte, sendBuffer)}
	h.join(c)
	return c
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case frame, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed")
		}
		var ev struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(frame, &ev); err != nil {
			t.Fatalf("bad frame %q: %v", frame, err)
		}
		var data any
		json.Unmarshal(ev.Data, &data)
		return Event{Type: ev.Type, Data: data}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestHub_Broadcast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("status", nil)
	go h.Run(ctx)

	a := newTestClient(h)
	b := newTestClient(h)

	if err := h.Publish("telemetry", map[string]string{"state": "focused"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	for _, c := range []*Client{a, b} {
		ev := receive(t, c)
		if ev.Type != "telemetry" {
			t.Errorf("Expected telemetry event, got %q", ev.Type)
		}
		if ev.Data.(map[string]any)["state"] != "focused" {
			t.Errorf("Unexpected data %v", ev.Data)
		}
	}
	if n := h.ClientCount(); n != 2 {
		t.Errorf("Expected 2 clients, got %d", n)
	}
}

func TestHub_ReplaysLastEvent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("alerts", nil)
	go h.Run(ctx)

	first := newTestClient(h)
	h.Publish("alert", "one")
	h.Publish("alert", "two")
	receive(t, first)
	receive(t, first)

	late := newTestClient(h)
	if ev := receive(t, late); ev.Data != "two" {
		t.Errorf("Expected replay of the latest event, got %v", ev.Data)
	}
}

func TestHub_Unregister(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("status", nil)
	go h.Run(ctx)

	c := newTestClient(h)
	h.leave(c)

	if _, ok := <-c.send; ok {
		t.Error("Expected send channel closed after leave")
	}
	if n := h.ClientCount(); n != 0 {
		t.Errorf("Expected 0 clients, got %d", n)
	}
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New("status", nil)

	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	c := newTestClient(h)
	cancel()
	<-stopped

	if _, ok := <-c.send; ok {
		t.Error("Expected send channel closed on shutdown")
	}

	// Joining and leaving a stopped hub must not block.
	late := newTestClient(h)
	if _, ok := <-late.send; ok {
		t.Error("Expected late client closed immediately")
	}
	h.leave(late)
}
