package monitoring

import (
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestHubBroadcast(t *testing.T) {
	h := NewHub(zap.NewNop())
	go h.Run()
	defer h.Stop()

	c := &client{send: make(chan []byte, 4)}
	h.register <- c

	h.Publish(PredictionEvent{Kind: "pricing", City: "Mumbai", Timestamp: time.Now()})

	select {
	case msg := <-c.send:
		var ev PredictionEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ev.Kind != "pricing" || ev.City != "Mumbai" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no broadcast received")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	h := NewHub(zap.NewNop())
	go h.Run()
	defer h.Stop()

	slow := &client{send: make(chan []byte, 1)}
	slow.send <- []byte("stuffed") // full buffer, cannot absorb the broadcast
	fast := &client{send: make(chan []byte, 4)}
	h.register <- slow
	h.register <- fast

	h.Publish(PredictionEvent{Kind: "availability"})

	// The fast client receiving proves the broadcast was processed,
	// so the slow client's drop has already happened.
	select {
	case <-fast.send:
	case <-time.After(time.Second):
		t.Fatal("fast client received nothing")
	}

	if msg, ok := <-slow.send; !ok || string(msg) != "stuffed" {
		t.Fatalf("expected buffered message first, got %q ok=%v", msg, ok)
	}
	if _, ok := <-slow.send; ok {
		t.Fatal("slow client was not dropped")
	}
}
