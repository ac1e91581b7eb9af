package presence

import (
	"context"
	"time"

	"messaging-service/internal/models"
	"messaging-service/internal/ws"
)

// Tracker maintains per-user online state. Heartbeats overwrite; a user with
// no heartbeat inside the freshness window reads as offline even if the last
// flag said online.
type Tracker struct {
	store  Store
	hub    *ws.Hub
	window time.Duration
}

// NewTracker constructs a Tracker with the given freshness window.
func NewTracker(store Store, hub *ws.Hub, window time.Duration) *Tracker {
	return &Tracker{store: store, hub: hub, window: window}
}

// Heartbeat overwrites the user's presence and notifies watchers.
func (t *Tracker) Heartbeat(ctx context.Context, userID string, isOnline bool, currentConversationID string) error {
	p := models.Presence{
		UserID:                userID,
		IsOnline:              isOnline,
		LastSeen:              time.Now().UTC(),
		CurrentConversationID: currentConversationID,
	}
	if !isOnline {
		p.CurrentConversationID = ""
	}
	if err := t.store.SetPresence(ctx, p); err != nil {
		return err
	}
	t.hub.PublishPresence(userID, models.PresenceEvent{Type: models.EventPresence, Presence: p})
	return nil
}

// Get returns the user's presence, degraded to offline when stale or
// unknown.
func (t *Tracker) Get(ctx context.Context, userID string) (models.Presence, error) {
	p, found, err := t.store.GetPresence(ctx, userID)
	if err != nil {
		return models.Presence{}, err
	}
	if !found {
		return models.Presence{UserID: userID, IsOnline: false}, nil
	}
	if p.IsOnline && time.Since(p.LastSeen) > t.window {
		p.IsOnline = false
		p.CurrentConversationID = ""
	}
	return p, nil
}

// Watch streams the user's presence updates until cancel is called.
func (t *Tracker) Watch(userID string) (<-chan models.PresenceEvent, func()) {
	return t.hub.SubscribePresence(userID)
}
