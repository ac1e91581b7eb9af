package ws

import (
	"sync"

	"messaging-service/internal/models"
	"messaging-service/internal/observability"
)

const subscriberBuffer = 32

// Hub is the publish-subscribe fabric behind live updates. Each conversation
// and each watched user's presence is an independent channel set; operations
// on different conversations never contend. The Message Pipeline is the sole
// publisher of conversation events.
type Hub struct {
	mu            sync.RWMutex
	conversations map[string]map[chan models.ChatEvent]bool
	presence      map[string]map[chan models.PresenceEvent]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		conversations: make(map[string]map[chan models.ChatEvent]bool),
		presence:      make(map[string]map[chan models.PresenceEvent]bool),
	}
}

// Subscribe registers a live stream of events for one conversation. The
// returned cancel func must be called when the consumer goes away.
func (h *Hub) Subscribe(conversationID string) (<-chan models.ChatEvent, func()) {
	ch := make(chan models.ChatEvent, subscriberBuffer)

	h.mu.Lock()
	if _, ok := h.conversations[conversationID]; !ok {
		h.conversations[conversationID] = make(map[chan models.ChatEvent]bool)
	}
	h.conversations[conversationID][ch] = true
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if subs, ok := h.conversations[conversationID]; ok {
			if subs[ch] {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(h.conversations, conversationID)
			}
		}
	}
	return ch, cancel
}

// Publish fans an event out to every live subscriber of the conversation.
// Slow consumers are skipped rather than blocking delivery to the rest.
func (h *Hub) Publish(conversationID string, event models.ChatEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.conversations[conversationID] {
		select {
		case ch <- event:
		default:
			observability.IncWSEvent("conversation", "dropped")
		}
	}
}

// SubscribePresence registers a live stream of one user's presence updates.
func (h *Hub) SubscribePresence(userID string) (<-chan models.PresenceEvent, func()) {
	ch := make(chan models.PresenceEvent, subscriberBuffer)

	h.mu.Lock()
	if _, ok := h.presence[userID]; !ok {
		h.presence[userID] = make(map[chan models.PresenceEvent]bool)
	}
	h.presence[userID][ch] = true
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if subs, ok := h.presence[userID]; ok {
			if subs[ch] {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(h.presence, userID)
			}
		}
	}
	return ch, cancel
}

// PublishPresence fans a presence update out to the user's watchers.
func (h *Hub) PublishPresence(userID string, event models.PresenceEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.presence[userID] {
		select {
		case ch <- event:
		default:
			observability.IncWSEvent("presence", "dropped")
		}
	}
}

// SubscriberCount reports live subscribers for one conversation.
func (h *Hub) SubscriberCount(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conversations[conversationID])
}
