package models

// Event names broadcast through conversation subscriptions.
const (
	EventMessage         = "message"
	EventEdited          = "edited"
	EventDeleted         = "deleted"
	EventStatus          = "status"
	EventReaction        = "reaction"
	EventReactionRemoved = "reaction_removed"
	EventTyping          = "typing"
	EventPresence        = "presence"
)

// ChatEvent is what conversation subscribers receive. Exactly one payload
// field is set depending on Type.
type ChatEvent struct {
	Type      string        `json:"type"`
	Message   *Message      `json:"message,omitempty"`
	MessageID int64         `json:"message_id,omitempty"`
	Status    MessageStatus `json:"status,omitempty"`
	Reaction  *Reaction     `json:"reaction,omitempty"`
	Typing    *TypingStatus `json:"typing,omitempty"`
}

// PresenceEvent is what presence watchers receive.
type PresenceEvent struct {
	Type     string   `json:"type"`
	Presence Presence `json:"presence"`
}
