package models

import "time"

// Presence is a user's last known ephemeral state, overwritten on every
// heartbeat. No history is retained.
type Presence struct {
	UserID                string    `json:"user_id"`
	IsOnline              bool      `json:"is_online"`
	LastSeen              time.Time `json:"last_seen"`
	CurrentConversationID string    `json:"current_conversation_id,omitempty"`
}

// TypingStatus is a short-lived composing indicator. Readers must treat it
// as false once ExpiresAt has passed, whether or not a clear ever arrived.
type TypingStatus struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	IsTyping       bool      `json:"is_typing"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Active reports whether the signal is still live at the given instant.
func (t TypingStatus) Active(now time.Time) bool {
	return t.IsTyping && now.Before(t.ExpiresAt)
}
