package crisis

import (
	"context"
	"log"
	"time"
	"unicode/utf8"
)

// Publisher is the broker interface the emitter publishes through.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// AlertEnvelope is handed to the external crisis-alert subsystem, which owns
// all severity classification and assignment workflow.
type AlertEnvelope struct {
	SchemaVersion  int    `json:"schema_version"`
	EventType      string `json:"event_type"`
	OccurredAt     string `json:"occurred_at"`
	Service        string `json:"service"`
	Environment    string `json:"environment"`
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
	MessageID      int64  `json:"message_id"`
	Category       string `json:"category"`
	Snippet        string `json:"snippet"`
}

// Emitter publishes crisis alerts on a side channel. Best effort: a publish
// failure is logged and never blocks or fails the message send.
type Emitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
}

// NewEmitter constructs an Emitter.
func NewEmitter(publisher Publisher, routingKey, service, environment string) *Emitter {
	return &Emitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
	}
}

const snippetLimit = 200

// Emit publishes one alert for a flagged message.
func (e *Emitter) Emit(ctx context.Context, userID, conversationID string, messageID int64, category, text string) {
	if e == nil || e.publisher == nil {
		return
	}

	snippet := text
	if len(snippet) > snippetLimit {
		cut := snippetLimit
		// Back up to a rune boundary so the snippet stays valid UTF-8.
		for cut > 0 && !utf8.RuneStart(snippet[cut]) {
			cut--
		}
		snippet = snippet[:cut]
	}

	log.Printf("crisis alert: user_id=%s conversation_id=%s message_id=%d category=%s", userID, conversationID, messageID, category)
	envelope := AlertEnvelope{
		SchemaVersion:  1,
		EventType:      "crisis_alert",
		OccurredAt:     time.Now().UTC().Format(time.RFC3339Nano),
		Service:        e.service,
		Environment:    e.environment,
		UserID:         userID,
		ConversationID: conversationID,
		MessageID:      messageID,
		Category:       category,
		Snippet:        snippet,
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		log.Printf("crisis alert publish failed: %v", err)
	}
}
