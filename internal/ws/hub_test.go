package ws

import (
	"testing"

	"messaging-service/internal/models"
)

func TestHubSubscribeAndPublish(t *testing.T) {
	hub := NewHub()

	sub, cancel := hub.Subscribe("alice_bob")
	defer cancel()

	hub.Publish("alice_bob", models.ChatEvent{Type: models.EventMessage, Message: &models.Message{ID: 1}})

	event := <-sub
	if event.Type != models.EventMessage || event.Message.ID != 1 {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestHubPublishReachesAllSubscribers(t *testing.T) {
	hub := NewHub()

	sub1, cancel1 := hub.Subscribe("alice_bob")
	sub2, cancel2 := hub.Subscribe("alice_bob")
	defer cancel1()
	defer cancel2()

	hub.Publish("alice_bob", models.ChatEvent{Type: models.EventTyping})

	if (<-sub1).Type != models.EventTyping {
		t.Fatalf("first subscriber missed the event")
	}
	if (<-sub2).Type != models.EventTyping {
		t.Fatalf("second subscriber missed the event")
	}
}

func TestHubPublishIsScopedToConversation(t *testing.T) {
	hub := NewHub()

	other, cancel := hub.Subscribe("carol_dave")
	defer cancel()

	hub.Publish("alice_bob", models.ChatEvent{Type: models.EventMessage})

	select {
	case event := <-other:
		t.Fatalf("event leaked across conversations: %+v", event)
	default:
	}
}

func TestHubCancelClosesChannelAndCleansUp(t *testing.T) {
	hub := NewHub()

	sub, cancel := hub.Subscribe("alice_bob")
	if hub.SubscriberCount("alice_bob") != 1 {
		t.Fatalf("expected one subscriber")
	}

	cancel()
	if hub.SubscriberCount("alice_bob") != 0 {
		t.Fatalf("expected subscriber to be removed")
	}
	if _, open := <-sub; open {
		t.Fatalf("expected channel to be closed")
	}

	// Second cancel is a no-op.
	cancel()
}

func TestHubFullSubscriberDoesNotBlockPublish(t *testing.T) {
	hub := NewHub()

	_, cancelSlow := hub.Subscribe("alice_bob")
	defer cancelSlow()
	fast, cancelFast := hub.Subscribe("alice_bob")
	defer cancelFast()

	// Overfill every buffer; the slow subscriber never drains.
	for i := 0; i < subscriberBuffer+5; i++ {
		hub.Publish("alice_bob", models.ChatEvent{Type: models.EventMessage, MessageID: int64(i)})
	}

	if len(fast) != subscriberBuffer {
		t.Fatalf("expected fast subscriber to hold a full buffer, got %d", len(fast))
	}
}

func TestHubPresenceSubscription(t *testing.T) {
	hub := NewHub()

	sub, cancel := hub.SubscribePresence("alice")
	defer cancel()

	hub.PublishPresence("alice", models.PresenceEvent{
		Type:     models.EventPresence,
		Presence: models.Presence{UserID: "alice", IsOnline: true},
	})

	event := <-sub
	if !event.Presence.IsOnline || event.Presence.UserID != "alice" {
		t.Fatalf("unexpected presence event: %+v", event)
	}
}
