package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, listID int64) *Client {
	return &Client{
		hub:    hub,
		conn:   nil,
		send:   make(chan []byte, sendBufferSize),
		listID: listID,
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, 0)
	c2 := mockClient(hub, 0)

	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)

	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, 0)
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestBroadcast(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, 0)
	c2 := mockClient(hub, 0)
	hub.Register(c1)
	hub.Register(c2)

	msg := NewMessage("item", "created", 42, 1, map[string]any{"name": "Milk"})
	hub.Broadcast(msg)

	// Check both clients received the message
	for _, c := range []*Client{c1, c2} {
		select {
		case data := <-c.send:
			var got Message
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Type != "item_created" {
				t.Errorf("expected type item_created, got %s", got.Type)
			}
			if got.ID != 42 {
				t.Errorf("expected id 42, got %d", got.ID)
			}
			if got.ListID != 1 {
				t.Errorf("expected list_id 1, got %d", got.ListID)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for message")
		}
	}

	hub.Unregister(c1)
	hub.Unregister(c2)
}

func TestBroadcastListScoping(t *testing.T) {
	hub := NewHub(slog.Default())

	watchingOne := mockClient(hub, 1)
	watchingTwo := mockClient(hub, 2)
	watchingAll := mockClient(hub, 0)
	for _, c := range []*Client{watchingOne, watchingTwo, watchingAll} {
		hub.Register(c)
	}

	hub.Broadcast(NewMessage("item", "checked", 7, 1, nil))

	for _, c := range []*Client{watchingOne, watchingAll} {
		select {
		case <-c.send:
		case <-time.After(100 * time.Millisecond):
			t.Fatal("subscriber missed a list-1 event")
		}
	}
	select {
	case <-watchingTwo.send:
		t.Fatal("list-2 subscriber received a list-1 event")
	default:
	}

	// Global events reach everyone regardless of subscription.
	hub.Broadcast(NewMessage("catalog", "price_updated", 9, 0, nil))
	for _, c := range []*Client{watchingOne, watchingTwo, watchingAll} {
		select {
		case <-c.send:
		case <-time.After(100 * time.Millisecond):
			t.Fatal("client missed a global event")
		}
	}
}

func TestBroadcastEmptyHub(t *testing.T) {
	hub := NewHub(slog.Default())
	// Should not panic
	msg := NewMessage("list", "deleted", 1, 1, nil)
	hub.Broadcast(msg)
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub, 0)
	hub.Register(c)

	// Fill the send buffer
	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast(NewMessage("test", "fill", int64(i), 0, nil))
	}

	// This should drop the message, not panic or block
	hub.Broadcast(NewMessage("test", "dropped", 999, 0, nil))

	// Drain to verify buffer was full
	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			goto done
		}
	}
done:
	if count != sendBufferSize {
		t.Errorf("expected %d messages, got %d", sendBufferSize, count)
	}

	hub.Unregister(c)
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage("trip", "completed", 5, 3, nil)
	if msg.Type != "trip_completed" {
		t.Errorf("expected type trip_completed, got %s", msg.Type)
	}
	if msg.Entity != "trip" {
		t.Errorf("expected entity trip, got %s", msg.Entity)
	}
	if msg.Action != "completed" {
		t.Errorf("expected action completed, got %s", msg.Action)
	}
	if msg.ID != 5 || msg.ListID != 3 {
		t.Errorf("expected id 5 list 3, got %d %d", msg.ID, msg.ListID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	// Spawn goroutines that register, broadcast, and unregister concurrently
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub, 0)
			hub.Register(c)
			hub.Broadcast(NewMessage("test", "concurrent", 0, 0, nil))
			// Drain any messages
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}()
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}
