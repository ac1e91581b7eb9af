package presence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/models"
	"messaging-service/internal/ws"
)

func TestHeartbeatThenGet(t *testing.T) {
	tracker := NewTracker(NewMemoryStore(), ws.NewHub(), time.Minute)

	require.NoError(t, tracker.Heartbeat(context.Background(), "alice", true, "alice_bob"))

	p, err := tracker.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, p.IsOnline)
	assert.Equal(t, "alice_bob", p.CurrentConversationID)
	assert.WithinDuration(t, time.Now(), p.LastSeen, 2*time.Second)
}

func TestGetUnknownUserReadsOffline(t *testing.T) {
	tracker := NewTracker(NewMemoryStore(), ws.NewHub(), time.Minute)

	p, err := tracker.Get(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, p.IsOnline)
	assert.Equal(t, "ghost", p.UserID)
}

func TestStaleHeartbeatDegradesToOffline(t *testing.T) {
	store := NewMemoryStore()
	tracker := NewTracker(store, ws.NewHub(), 10*time.Millisecond)

	require.NoError(t, tracker.Heartbeat(context.Background(), "alice", true, "alice_bob"))
	time.Sleep(25 * time.Millisecond)

	p, err := tracker.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.False(t, p.IsOnline)
	assert.Empty(t, p.CurrentConversationID)
}

func TestOfflineHeartbeatClearsConversation(t *testing.T) {
	tracker := NewTracker(NewMemoryStore(), ws.NewHub(), time.Minute)

	require.NoError(t, tracker.Heartbeat(context.Background(), "alice", false, "alice_bob"))

	p, err := tracker.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.False(t, p.IsOnline)
	assert.Empty(t, p.CurrentConversationID)
}

func TestHeartbeatNotifiesWatchers(t *testing.T) {
	hub := ws.NewHub()
	tracker := NewTracker(NewMemoryStore(), hub, time.Minute)

	watch, cancel := tracker.Watch("alice")
	defer cancel()

	require.NoError(t, tracker.Heartbeat(context.Background(), "alice", true, ""))

	select {
	case event := <-watch:
		assert.Equal(t, models.EventPresence, event.Type)
		assert.True(t, event.Presence.IsOnline)
	case <-time.After(time.Second):
		t.Fatal("expected a presence event")
	}
}
