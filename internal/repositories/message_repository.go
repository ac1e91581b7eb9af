package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messaging-service/internal/models"
)

var (
	ErrMessageNotFound  = errors.New("message not found")
	ErrMessageImmutable = errors.New("message cannot be edited")
)

// MessageRepository defines interactions with the persisted message log,
// the single source of truth all derived views are computed from.
type MessageRepository interface {
	Create(ctx context.Context, msg models.Message) (models.Message, error)
	Get(ctx context.Context, messageID int64) (models.Message, error)
	ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error)
	EditContent(ctx context.Context, messageID int64, content string) (models.Message, error)
	MarkDeleted(ctx context.Context, messageID int64) (models.Message, error)
	AdvanceStatus(ctx context.Context, messageID int64, next models.MessageStatus) (models.Message, bool, error)
	MarkConversationRead(ctx context.Context, conversationID, receiverID string) ([]int64, error)
	UpsertReaction(ctx context.Context, reaction models.Reaction) (models.Reaction, error)
	DeleteReaction(ctx context.Context, messageID int64, userID string) error
	Search(ctx context.Context, conversationID, query string) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create persists a new message. The id and timestamp are assigned here, at
// the moment of successful persistence; delivery order follows id order.
func (r *MessageRepo) Create(ctx context.Context, msg models.Message) (models.Message, error) {
	var created models.Message
	err := r.db.GetContext(ctx, &created, `INSERT INTO messages
        (conversation_id, sender_id, receiver_id, type, content,
         audio_url, duration, image_url, file_url, file_name, file_size, sticker_url,
         is_crisis, reply_to_id, reply_content, reply_sender_name, reply_type)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
        RETURNING *`,
		msg.ConversationID, msg.SenderID, msg.ReceiverID, msg.Type, msg.Content,
		msg.AudioURL, msg.Duration, msg.ImageURL, msg.FileURL, msg.FileName, msg.FileSize, msg.StickerURL,
		msg.IsCrisis, msg.ReplyToID, msg.ReplyContent, msg.ReplySender, msg.ReplyType)
	return created, err
}

// Get retrieves a single message with its reactions.
func (r *MessageRepo) Get(ctx context.Context, messageID int64) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT * FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	if err != nil {
		return models.Message{}, err
	}
	reactions, err := r.reactionsFor(ctx, []int64{messageID})
	if err != nil {
		return models.Message{}, err
	}
	msg.Reactions = reactions[messageID]
	return msg, nil
}

// ListByConversation returns the full ordered history, reactions attached.
// Deleted messages are included; rendering suppresses their content.
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT * FROM messages WHERE conversation_id=$1 ORDER BY id ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return msgs, nil
	}

	ids := make([]int64, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	reactions, err := r.reactionsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		msgs[i].Reactions = reactions[msgs[i].ID]
	}
	return msgs, nil
}

// EditContent replaces the content of a text message and flags it edited.
// Timestamp, status and reactions are untouched. The guard runs in the
// update itself so concurrent deletes cannot slip through.
func (r *MessageRepo) EditContent(ctx context.Context, messageID int64, content string) (models.Message, error) {
	var updated models.Message
	err := r.db.GetContext(ctx, &updated, `UPDATE messages SET content=$2, edited=TRUE
        WHERE id=$1 AND type=$3 AND deleted=FALSE
        RETURNING *`, messageID, content, models.TypeText)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, err
	}

	// Distinguish a missing message from an immutable one.
	if _, err := r.Get(ctx, messageID); err != nil {
		return models.Message{}, err
	}
	return models.Message{}, ErrMessageImmutable
}

// MarkDeleted soft-deletes a message. The row stays for ordering and reply
// resolution. Idempotent.
func (r *MessageRepo) MarkDeleted(ctx context.Context, messageID int64) (models.Message, error) {
	var updated models.Message
	err := r.db.GetContext(ctx, &updated, `UPDATE messages SET deleted=TRUE WHERE id=$1 RETURNING *`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return updated, err
}

// AdvanceStatus moves the delivery status forward. A backward or repeated
// request is a no-op, not an error, so out-of-order acks are tolerated. The
// conditional update is the compare-and-swap that serializes racing acks.
// Returns the message and whether the status actually changed.
func (r *MessageRepo) AdvanceStatus(ctx context.Context, messageID int64, next models.MessageStatus) (models.Message, bool, error) {
	earlier := next.Earlier()
	statuses := make([]string, 0, len(earlier))
	for _, s := range earlier {
		statuses = append(statuses, string(s))
	}

	read := next == models.StatusRead
	var updated models.Message
	err := r.db.GetContext(ctx, &updated, `UPDATE messages SET status=$2, read = read OR $3
        WHERE id=$1 AND status = ANY($4)
        RETURNING *`, messageID, next, read, pq.Array(statuses))
	if err == nil {
		return updated, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, false, err
	}

	current, err := r.Get(ctx, messageID)
	if err != nil {
		return models.Message{}, false, err
	}
	return current, false, nil
}

// MarkConversationRead advances every unread message addressed to the
// receiver in one statement, returning the ids that changed.
func (r *MessageRepo) MarkConversationRead(ctx context.Context, conversationID, receiverID string) ([]int64, error) {
	rows, err := r.db.QueryxContext(ctx, `UPDATE messages SET status=$3, read=TRUE
        WHERE conversation_id=$1 AND receiver_id=$2 AND read=FALSE
        RETURNING id`, conversationID, receiverID, models.StatusRead)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpsertReaction sets the user's reaction on a message, replacing any prior
// one atomically. The primary key enforces one reaction per (message, user).
func (r *MessageRepo) UpsertReaction(ctx context.Context, reaction models.Reaction) (models.Reaction, error) {
	var stored models.Reaction
	err := r.db.GetContext(ctx, &stored, `INSERT INTO message_reactions (message_id, user_id, type)
        VALUES ($1, $2, $3)
        ON CONFLICT (message_id, user_id) DO UPDATE SET type = EXCLUDED.type
        RETURNING *`, reaction.MessageID, reaction.UserID, reaction.Type)
	return stored, err
}

// DeleteReaction removes the user's reaction, whatever its type. Idempotent.
func (r *MessageRepo) DeleteReaction(ctx context.Context, messageID int64, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM message_reactions WHERE message_id=$1 AND user_id=$2`, messageID, userID)
	return err
}

// likeEscaper neutralizes ILIKE pattern characters so the query matches
// literally. Without it "50%" matches every message containing "50".
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search finds messages whose content contains the query as a literal
// substring, case-insensitive, most recent first. Deleted messages are
// excluded: their content is suppressed at render time and must not leak
// through search.
func (r *MessageRepo) Search(ctx context.Context, conversationID, query string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT * FROM messages
        WHERE conversation_id=$1 AND deleted=FALSE AND content ILIKE '%' || $2 || '%'
        ORDER BY id DESC`, conversationID, likeEscaper.Replace(query))
	return msgs, err
}

func (r *MessageRepo) reactionsFor(ctx context.Context, messageIDs []int64) (map[int64][]models.Reaction, error) {
	var reactions []models.Reaction
	err := r.db.SelectContext(ctx, &reactions, `SELECT * FROM message_reactions
        WHERE message_id = ANY($1) ORDER BY created_at ASC`, pq.Array(messageIDs))
	if err != nil {
		return nil, err
	}
	grouped := make(map[int64][]models.Reaction, len(messageIDs))
	for _, reaction := range reactions {
		grouped[reaction.MessageID] = append(grouped[reaction.MessageID], reaction)
	}
	return grouped, nil
}
