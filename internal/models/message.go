package models

import (
	"database/sql"
	"time"
)

// MessageType tells how the content and payload fields are interpreted.
type MessageType string

const (
	TypeText    MessageType = "text"
	TypeSticker MessageType = "sticker"
	TypeAudio   MessageType = "audio"
	TypeImage   MessageType = "image"
	TypeFile    MessageType = "file"
)

// Valid reports whether the type is one of the known message types.
func (t MessageType) Valid() bool {
	switch t {
	case TypeText, TypeSticker, TypeAudio, TypeImage, TypeFile:
		return true
	}
	return false
}

// NeedsAttachment reports whether the type requires an attachment URL.
func (t MessageType) NeedsAttachment() bool {
	return t == TypeSticker || t == TypeAudio || t == TypeImage || t == TypeFile
}

// MessageStatus is the delivery state of a message. It only ever moves
// forward: sent -> delivered -> read.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

var statusRank = map[MessageStatus]int{
	StatusSent:      0,
	StatusDelivered: 1,
	StatusRead:      2,
}

// CanAdvance reports whether moving from the current status to next is a
// forward transition. Backward requests are no-ops, not errors.
func (s MessageStatus) CanAdvance(next MessageStatus) bool {
	return statusRank[next] > statusRank[s]
}

// Earlier returns the statuses strictly before s, used to guard conditional
// status updates.
func (s MessageStatus) Earlier() []MessageStatus {
	var out []MessageStatus
	for status, rank := range statusRank {
		if rank < statusRank[s] {
			out = append(out, status)
		}
	}
	return out
}

// DeletedPlaceholder replaces the content of deleted messages at render time.
const DeletedPlaceholder = "This message was deleted"

// Message is a single direct message. Deleted messages keep their row for
// ordering and reply resolution; content is suppressed when rendering.
type Message struct {
	ID             int64         `db:"id" json:"id"`
	ConversationID string        `db:"conversation_id" json:"conversation_id"`
	SenderID       string        `db:"sender_id" json:"sender_id"`
	ReceiverID     string        `db:"receiver_id" json:"receiver_id"`
	Type           MessageType   `db:"type" json:"type"`
	Content        string        `db:"content" json:"content"`
	AudioURL       string        `db:"audio_url" json:"audio_url,omitempty"`
	Duration       float64       `db:"duration" json:"duration,omitempty"`
	ImageURL       string        `db:"image_url" json:"image_url,omitempty"`
	FileURL        string        `db:"file_url" json:"file_url,omitempty"`
	FileName       string        `db:"file_name" json:"file_name,omitempty"`
	FileSize       int64         `db:"file_size" json:"file_size,omitempty"`
	StickerURL     string        `db:"sticker_url" json:"sticker_url,omitempty"`
	Status         MessageStatus `db:"status" json:"status"`
	Read           bool          `db:"read" json:"read"`
	Edited         bool          `db:"edited" json:"edited"`
	Deleted        bool          `db:"deleted" json:"deleted"`
	IsCrisis       bool          `db:"is_crisis" json:"is_crisis"`
	ReplyToID      sql.NullInt64 `db:"reply_to_id" json:"-"`
	ReplyContent   string        `db:"reply_content" json:"-"`
	ReplySender    string        `db:"reply_sender_name" json:"-"`
	ReplyType      string        `db:"reply_type" json:"-"`
	CreatedAt      time.Time     `db:"created_at" json:"timestamp"`

	Reactions []Reaction     `db:"-" json:"reactions,omitempty"`
	ReplyTo   *ReplySnapshot `db:"-" json:"reply_to,omitempty"`
}

// ReplySnapshot is a point-in-time copy of the referenced message. It is
// intentionally not a live join: the snapshot survives later edits and
// deletions of the original.
type ReplySnapshot struct {
	MessageID  int64  `json:"message_id"`
	Content    string `json:"content"`
	SenderName string `json:"sender_name"`
	Type       string `json:"type"`
}

// Reaction is a per-user, per-message acknowledgment. A user holds at most
// one reaction per message.
type Reaction struct {
	MessageID int64     `db:"message_id" json:"message_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Type      string    `db:"type" json:"type"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Rendered returns a copy safe to hand to clients: the reply snapshot is
// lifted out of its flat columns and deleted content is suppressed.
func (m Message) Rendered() Message {
	if m.ReplyToID.Valid {
		m.ReplyTo = &ReplySnapshot{
			MessageID:  m.ReplyToID.Int64,
			Content:    m.ReplyContent,
			SenderName: m.ReplySender,
			Type:       m.ReplyType,
		}
	}
	if m.Deleted {
		m.Content = DeletedPlaceholder
		m.AudioURL = ""
		m.ImageURL = ""
		m.FileURL = ""
		m.StickerURL = ""
		m.Reactions = nil
	}
	return m
}
