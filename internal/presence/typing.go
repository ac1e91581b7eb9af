package presence

import (
	"context"
	"time"

	"messaging-service/internal/models"
	"messaging-service/internal/ws"
)

// TypingSignal tracks per-conversation composing indicators. The record
// carries its own expiry, so the signal degrades to false on its own if the
// client crashes before sending an explicit clear.
type TypingSignal struct {
	store  Store
	hub    *ws.Hub
	expiry time.Duration
}

// NewTypingSignal constructs a TypingSignal with the given expiry window.
func NewTypingSignal(store Store, hub *ws.Hub, expiry time.Duration) *TypingSignal {
	return &TypingSignal{store: store, hub: hub, expiry: expiry}
}

// Set stores or clears the indicator and notifies conversation subscribers.
// Repeated true calls refresh the expiry, debouncing the client's keystroke
// stream.
func (s *TypingSignal) Set(ctx context.Context, conversationID, userID string, isTyping bool) error {
	now := time.Now().UTC()
	status := models.TypingStatus{
		ConversationID: conversationID,
		UserID:         userID,
		IsTyping:       isTyping,
		ExpiresAt:      now.Add(s.expiry),
	}

	if isTyping {
		if err := s.store.SetTyping(ctx, status, s.expiry); err != nil {
			return err
		}
	} else {
		status.ExpiresAt = now
		if err := s.store.ClearTyping(ctx, conversationID, userID); err != nil {
			return err
		}
	}

	s.hub.Publish(conversationID, models.ChatEvent{Type: models.EventTyping, Typing: &status})
	return nil
}

// IsTyping reports whether the user's indicator is live right now. An
// expired record reads as false without any clear call having arrived.
func (s *TypingSignal) IsTyping(ctx context.Context, conversationID, userID string) (bool, error) {
	status, found, err := s.store.GetTyping(ctx, conversationID, userID)
	if err != nil {
		return false, err
	}
	return found && status.Active(time.Now()), nil
}

// Watch streams the user's typing flag within a conversation. Events from
// other users in the conversation are filtered out.
func (s *TypingSignal) Watch(conversationID, userID string) (<-chan bool, func()) {
	events, cancel := s.hub.Subscribe(conversationID)
	out := make(chan bool, 1)

	go func() {
		defer close(out)
		for event := range events {
			if event.Type != models.EventTyping || event.Typing == nil || event.Typing.UserID != userID {
				continue
			}
			select {
			case out <- event.Typing.Active(time.Now()):
			default:
			}
		}
	}()

	return out, cancel
}
