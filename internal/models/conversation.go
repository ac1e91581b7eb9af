package models

import (
	"database/sql"
	"time"
)

// Conversation is the persistent two-party channel between a student and a
// psychologist. Its id is derived from the participant ids, so both sides
// resolve to the same row without a lookup.
type Conversation struct {
	ID                  string       `db:"id" json:"id"`
	User1ID             string       `db:"user1_id" json:"user1_id"`
	User2ID             string       `db:"user2_id" json:"user2_id"`
	LastMessageContent  string       `db:"last_message_content" json:"last_message_content"`
	LastMessageSenderID string       `db:"last_message_sender_id" json:"last_message_sender_id"`
	LastMessageAt       sql.NullTime `db:"last_message_at" json:"-"`
	CreatedAt           time.Time    `db:"created_at" json:"created_at"`
}

// ConversationSummary is the API view of a conversation in a user's list.
type ConversationSummary struct {
	ConversationID      string     `json:"conversation_id"`
	PartnerID           string     `json:"partner_id"`
	LastMessageContent  string     `json:"last_message_content"`
	LastMessageSenderID string     `json:"last_message_sender_id"`
	LastMessageAt       *time.Time `json:"last_message_at,omitempty"`
	UnreadCount         int        `json:"unread_count"`
	CreatedAt           time.Time  `json:"created_at"`
}

// ConversationKey derives the canonical conversation id for a pair of users.
// Order-independent: ConversationKey(a, b) == ConversationKey(b, a).
func ConversationKey(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return userA + "_" + userB
}

// Participants returns the sorted pair behind a key derivation.
func Participants(userA, userB string) (string, string) {
	if userB < userA {
		return userB, userA
	}
	return userA, userB
}

// HasParticipant reports whether the user belongs to the conversation.
func (c Conversation) HasParticipant(userID string) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// Partner returns the other participant's id.
func (c Conversation) Partner(userID string) string {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}
