package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func newTestClient(id string, topics ...string) *Client {
	return &Client{
		ID:     id,
		Topics: topics,
		Send:   make(chan []byte, 16),
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()
	client := newTestClient("c1", "doctor/abc")

	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}
	if hub.TopicCount("doctor/abc") != 1 {
		t.Fatalf("expected 1 subscriber, got %d", hub.TopicCount("doctor/abc"))
	}

	hub.Unregister(client)
	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}
	if hub.TopicCount("doctor/abc") != 0 {
		t.Errorf("expected 0 subscribers, got %d", hub.TopicCount("doctor/abc"))
	}
}

func TestHub_BroadcastToTopicOnly(t *testing.T) {
	hub := NewHub()
	subscribed := newTestClient("c1", "doctor/a")
	other := newTestClient("c2", "doctor/b")
	hub.Register(subscribed)
	hub.Register(other)

	hub.Broadcast("doctor/a", Event{Type: "queue.updated", Topic: "doctor/a", Timestamp: time.Now()})

	select {
	case raw := <-subscribed.Send:
		var evt Event
		if err := json.Unmarshal(raw, &evt); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		if evt.Type != "queue.updated" {
			t.Errorf("expected queue.updated, got %s", evt.Type)
		}
	default:
		t.Fatal("subscribed client received nothing")
	}

	select {
	case <-other.Send:
		t.Error("unsubscribed client should not receive topic event")
	default:
	}
}

func TestHub_PublishQueueTopicReachesAll(t *testing.T) {
	hub := NewHub()
	a := newTestClient("c1")
	b := newTestClient("c2", "doctor/x")
	hub.Register(a)
	hub.Register(b)

	if err := hub.Publish(context.Background(), Event{Type: "queue.admitted", Topic: "queue", Timestamp: time.Now()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, client := range []*Client{a, b} {
		select {
		case <-client.Send:
		default:
			t.Errorf("client %s did not receive broadcast", client.ID)
		}
	}
}

func TestHub_SubscribeUnsubscribe(t *testing.T) {
	hub := NewHub()
	client := newTestClient("c1")
	hub.Register(client)

	hub.ProcessMessage(client, ClientMessage{Action: "subscribe", Topics: []string{"doctor/z"}})
	if hub.TopicCount("doctor/z") != 1 {
		t.Fatalf("expected subscription, got %d", hub.TopicCount("doctor/z"))
	}

	hub.ProcessMessage(client, ClientMessage{Action: "unsubscribe", Topics: []string{"doctor/z"}})
	if hub.TopicCount("doctor/z") != 0 {
		t.Errorf("expected unsubscription, got %d", hub.TopicCount("doctor/z"))
	}
	if len(client.Topics) != 0 {
		t.Errorf("expected client topics cleared, got %v", client.Topics)
	}
}

func TestHub_FullBufferDoesNotBlock(t *testing.T) {
	hub := NewHub()
	client := &Client{ID: "c1", Send: make(chan []byte)} // unbuffered, never drained
	hub.Register(client)

	done := make(chan struct{})
	go func() {
		hub.BroadcastAll(Event{Type: "queue.updated", Timestamp: time.Now()})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("BroadcastAll blocked on a full client buffer")
	}
}
