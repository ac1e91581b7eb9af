package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

var ErrConversationNotFound = errors.New("conversation not found")

// ConversationRepository abstracts conversation persistence.
type ConversationRepository interface {
	CreateOrGet(ctx context.Context, userA, userB string) (models.Conversation, error)
	Get(ctx context.Context, conversationID string) (models.Conversation, error)
	List(ctx context.Context, userID string) ([]models.ConversationSummary, error)
	UpdateLastMessage(ctx context.Context, conversationID, content, senderID string, at time.Time) error
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// CreateOrGet resolves the canonical conversation for a pair of users,
// creating the row on first contact. Conversations are never deleted.
func (r *ConversationRepo) CreateOrGet(ctx context.Context, userA, userB string) (models.Conversation, error) {
	if userA == userB {
		return models.Conversation{}, errors.New("cannot converse with self")
	}
	user1, user2 := models.Participants(userA, userB)
	id := models.ConversationKey(userA, userB)

	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT * FROM conversations WHERE id=$1`, id)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, err
	}

	// Both sides may race on first contact; the conflict clause makes the
	// insert converge on the same row.
	err = r.db.GetContext(ctx, &conv, `INSERT INTO conversations (id, user1_id, user2_id) VALUES ($1, $2, $3)
        ON CONFLICT (id) DO UPDATE SET user1_id = EXCLUDED.user1_id
        RETURNING *`, id, user1, user2)
	return conv, err
}

// Get fetches a conversation by id.
func (r *ConversationRepo) Get(ctx context.Context, conversationID string) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT * FROM conversations WHERE id=$1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// List returns the user's conversations, most recently active first, each
// with the partner id, last-message snapshot and unread count.
func (r *ConversationRepo) List(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	query := `SELECT c.*, (
            SELECT COUNT(*) FROM messages m
            WHERE m.conversation_id = c.id AND m.receiver_id = $1 AND m.read = FALSE AND m.deleted = FALSE
        ) AS unread_count
        FROM conversations c
        WHERE c.user1_id = $1 OR c.user2_id = $1
        ORDER BY COALESCE(c.last_message_at, c.created_at) DESC`

	rows, err := r.db.QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.ConversationSummary
	for rows.Next() {
		var row struct {
			models.Conversation
			UnreadCount int `db:"unread_count"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, err
		}
		summary := models.ConversationSummary{
			ConversationID:      row.ID,
			PartnerID:           row.Partner(userID),
			LastMessageContent:  row.LastMessageContent,
			LastMessageSenderID: row.LastMessageSenderID,
			UnreadCount:         row.UnreadCount,
			CreatedAt:           row.CreatedAt,
		}
		if row.LastMessageAt.Valid {
			at := row.LastMessageAt.Time
			summary.LastMessageAt = &at
		}
		result = append(result, summary)
	}
	return result, rows.Err()
}

// UpdateLastMessage refreshes the denormalized preview snapshot.
func (r *ConversationRepo) UpdateLastMessage(ctx context.Context, conversationID, content, senderID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE conversations
        SET last_message_content=$2, last_message_sender_id=$3, last_message_at=$4
        WHERE id=$1`, conversationID, content, senderID, at)
	return err
}
