package notification

import (
	"testing"
	"time"
)

func TestHubShutdownUnblocksDisconnects(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	hub.Shutdown()

	// A client disconnecting after shutdown has no hub loop left to take the
	// unregister; it must still return instead of leaking its pump goroutine
	done := make(chan struct{})
	go func() {
		hub.dropClient(&Client{hub: hub})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disconnect blocked after hub shutdown")
	}
}

func TestHubDropClientDelivered(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	client := &Client{userID: 7, hub: hub, send: make(chan []byte, 1)}
	hub.register <- client

	done := make(chan struct{})
	go func() {
		hub.dropClient(client)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unregister not consumed by a running hub")
	}
}
