package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"

	"messaging-service/internal/crisis"
	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/presence"
	"messaging-service/internal/push"
	"messaging-service/internal/repositories"
	"messaging-service/internal/uploads"
	"messaging-service/internal/ws"
)

// Draft is a message as submitted by a sender, before the pipeline assigns
// identity, order and flags.
type Draft struct {
	SenderID   string
	SenderName string
	ReceiverID string
	Type       models.MessageType
	Content    string

	// Attachment is the raw blob for audio/image/file sends that have not
	// been uploaded yet; AttachmentURL short-circuits the upload (stickers
	// always arrive as catalog URLs).
	Attachment    io.Reader
	AttachmentURL string
	Duration      float64
	FileName      string
	FileSize      int64

	// ReplyToID references the message being replied to; the pipeline takes
	// the snapshot, the client only supplies the original sender's name.
	ReplyToID       int64
	ReplySenderName string
}

// Pipeline validates, tags, persists and fans out messages, and applies all
// message mutations. It is the sole publisher of conversation events.
type Pipeline struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	uploader      uploads.Uploader
	scanner       *crisis.Scanner
	alerts        *crisis.Emitter
	hub           *ws.Hub
	presence      *presence.Tracker
	notifier      *push.Notifier
}

// New constructs a Pipeline.
func New(
	conversations repositories.ConversationRepository,
	messages repositories.MessageRepository,
	uploader uploads.Uploader,
	scanner *crisis.Scanner,
	alerts *crisis.Emitter,
	hub *ws.Hub,
	tracker *presence.Tracker,
	notifier *push.Notifier,
) *Pipeline {
	return &Pipeline{
		conversations: conversations,
		messages:      messages,
		uploader:      uploader,
		scanner:       scanner,
		alerts:        alerts,
		hub:           hub,
		presence:      tracker,
		notifier:      notifier,
	}
}

// Send runs the full creation path: validate, upload the attachment if one
// is pending, scan for crisis language, persist, refresh the conversation
// preview and fan out. An upload failure aborts before anything is written,
// so a failed send leaves no partial state and is safe to retry whole.
func (p *Pipeline) Send(ctx context.Context, draft Draft) (models.Message, error) {
	if err := validate(draft); err != nil {
		return models.Message{}, err
	}

	conv, err := p.conversations.CreateOrGet(ctx, draft.SenderID, draft.ReceiverID)
	if err != nil {
		return models.Message{}, err
	}

	msg := models.Message{
		ConversationID: conv.ID,
		SenderID:       draft.SenderID,
		ReceiverID:     draft.ReceiverID,
		Type:           draft.Type,
		Content:        contentFor(draft),
		Duration:       draft.Duration,
		FileName:       draft.FileName,
		FileSize:       draft.FileSize,
	}

	url := draft.AttachmentURL
	if draft.Type.NeedsAttachment() && url == "" {
		url, err = p.uploader.Upload(ctx, draft.SenderID, draft.Attachment, kindFor(draft.Type))
		if err != nil {
			return models.Message{}, fmt.Errorf("%w: %v", ErrUpload, err)
		}
	}
	switch draft.Type {
	case models.TypeAudio:
		msg.AudioURL = url
	case models.TypeImage:
		msg.ImageURL = url
	case models.TypeFile:
		msg.FileURL = url
	case models.TypeSticker:
		msg.StickerURL = url
	}

	var category string
	if draft.Type == models.TypeText {
		category, msg.IsCrisis = p.scanner.Scan(msg.Content)
	}

	if draft.ReplyToID != 0 {
		original, err := p.messages.Get(ctx, draft.ReplyToID)
		if err != nil {
			return models.Message{}, fmt.Errorf("%w: reply target", ErrValidation)
		}
		if original.ConversationID != conv.ID {
			return models.Message{}, fmt.Errorf("%w: reply target belongs to another conversation", ErrValidation)
		}
		rendered := original.Rendered()
		msg.ReplyToID = sql.NullInt64{Int64: original.ID, Valid: true}
		msg.ReplyContent = rendered.Content
		msg.ReplySender = draft.ReplySenderName
		msg.ReplyType = string(original.Type)
	}

	created, err := p.messages.Create(ctx, msg)
	if err != nil {
		return models.Message{}, err
	}

	if err := p.conversations.UpdateLastMessage(ctx, conv.ID, created.Content, created.SenderID, created.CreatedAt); err != nil {
		log.Printf("conversation preview update failed for %s: %v", conv.ID, err)
	}

	observability.IncMessageSent(string(created.Type))
	rendered := created.Rendered()
	p.hub.Publish(conv.ID, models.ChatEvent{Type: models.EventMessage, Message: &rendered})

	if created.IsCrisis {
		observability.IncCrisisAlert(category)
		p.alerts.Emit(ctx, created.SenderID, conv.ID, created.ID, category, created.Content)
	}

	go p.notifyIfOffline(created, draft.SenderName)

	return created, nil
}

// Edit replaces the content of a text message. Timestamp, status and
// reactions stay untouched; non-text and deleted messages refuse the edit.
func (p *Pipeline) Edit(ctx context.Context, messageID int64, newContent string) (models.Message, error) {
	if newContent == "" {
		return models.Message{}, fmt.Errorf("%w: empty content", ErrValidation)
	}

	updated, err := p.messages.EditContent(ctx, messageID, newContent)
	if err != nil {
		return models.Message{}, mapRepoErr(err)
	}

	rendered := updated.Rendered()
	p.hub.Publish(updated.ConversationID, models.ChatEvent{Type: models.EventEdited, Message: &rendered})
	return updated, nil
}

// Delete soft-deletes a message; the record stays so ordering and reply
// snapshots keep resolving. Idempotent.
func (p *Pipeline) Delete(ctx context.Context, messageID int64) error {
	deleted, err := p.messages.MarkDeleted(ctx, messageID)
	if err != nil {
		return mapRepoErr(err)
	}
	p.hub.Publish(deleted.ConversationID, models.ChatEvent{Type: models.EventDeleted, MessageID: messageID})
	return nil
}

// MarkDelivered advances the delivery status. Backward requests no-op.
func (p *Pipeline) MarkDelivered(ctx context.Context, messageID int64) (models.Message, error) {
	return p.advance(ctx, messageID, models.StatusDelivered)
}

// MarkRead advances to read; legal straight from sent when delivery
// tracking was skipped.
func (p *Pipeline) MarkRead(ctx context.Context, messageID int64) (models.Message, error) {
	return p.advance(ctx, messageID, models.StatusRead)
}

func (p *Pipeline) advance(ctx context.Context, messageID int64, next models.MessageStatus) (models.Message, error) {
	msg, changed, err := p.messages.AdvanceStatus(ctx, messageID, next)
	if err != nil {
		return models.Message{}, mapRepoErr(err)
	}
	if changed {
		p.hub.Publish(msg.ConversationID, models.ChatEvent{Type: models.EventStatus, MessageID: msg.ID, Status: msg.Status})
	}
	return msg, nil
}

// MarkConversationRead advances every unread message addressed to the
// receiver; clients call this when opening a conversation.
func (p *Pipeline) MarkConversationRead(ctx context.Context, conversationID, receiverID string) error {
	ids, err := p.messages.MarkConversationRead(ctx, conversationID, receiverID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		p.hub.Publish(conversationID, models.ChatEvent{Type: models.EventStatus, MessageID: id, Status: models.StatusRead})
	}
	return nil
}

// AddReaction sets the user's reaction, replacing any prior one. The
// replacement is atomic, so a user never holds two reactions on a message.
func (p *Pipeline) AddReaction(ctx context.Context, messageID int64, userID, reactionType string) (models.Reaction, error) {
	if reactionType == "" {
		return models.Reaction{}, fmt.Errorf("%w: empty reaction type", ErrValidation)
	}

	msg, err := p.messages.Get(ctx, messageID)
	if err != nil {
		return models.Reaction{}, mapRepoErr(err)
	}

	reaction, err := p.messages.UpsertReaction(ctx, models.Reaction{MessageID: messageID, UserID: userID, Type: reactionType})
	if err != nil {
		return models.Reaction{}, err
	}

	p.hub.Publish(msg.ConversationID, models.ChatEvent{Type: models.EventReaction, Reaction: &reaction})
	return reaction, nil
}

// RemoveReaction removes whatever reaction the user holds. Idempotent; no
// reaction type is taken because a user holds at most one.
func (p *Pipeline) RemoveReaction(ctx context.Context, messageID int64, userID string) error {
	msg, err := p.messages.Get(ctx, messageID)
	if err != nil {
		return mapRepoErr(err)
	}

	if err := p.messages.DeleteReaction(ctx, messageID, userID); err != nil {
		return err
	}

	p.hub.Publish(msg.ConversationID, models.ChatEvent{
		Type:     models.EventReactionRemoved,
		Reaction: &models.Reaction{MessageID: messageID, UserID: userID},
	})
	return nil
}

// Get fetches one message; handlers use it for ownership checks.
func (p *Pipeline) Get(ctx context.Context, messageID int64) (models.Message, error) {
	msg, err := p.messages.Get(ctx, messageID)
	if err != nil {
		return models.Message{}, mapRepoErr(err)
	}
	return msg, nil
}

// History returns the conversation's ordered log, rendered for clients.
func (p *Pipeline) History(ctx context.Context, conversationID string) ([]models.Message, error) {
	msgs, err := p.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return renderAll(msgs), nil
}

// Search finds messages by substring, most recent first.
func (p *Pipeline) Search(ctx context.Context, conversationID, query string) ([]models.Message, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", ErrValidation)
	}
	msgs, err := p.messages.Search(ctx, conversationID, query)
	if err != nil {
		return nil, err
	}
	return renderAll(msgs), nil
}

func (p *Pipeline) notifyIfOffline(msg models.Message, senderName string) {
	if p.notifier == nil || p.presence == nil {
		return
	}
	ctx := context.Background()

	receiver, err := p.presence.Get(ctx, msg.ReceiverID)
	if err != nil {
		log.Printf("presence lookup failed for %s: %v", msg.ReceiverID, err)
		return
	}
	if receiver.IsOnline {
		return
	}

	p.notifier.Notify(ctx, msg.ReceiverID, notificationFor(msg, senderName))
}

func notificationFor(msg models.Message, senderName string) push.Notification {
	title := senderName
	if title == "" {
		title = "New message"
	}
	return push.Notification{
		Title:          title,
		Body:           msg.Rendered().Content,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
	}
}

func validate(draft Draft) error {
	switch {
	case draft.SenderID == "" || draft.ReceiverID == "":
		return fmt.Errorf("%w: sender and receiver required", ErrValidation)
	case draft.SenderID == draft.ReceiverID:
		return fmt.Errorf("%w: cannot message yourself", ErrValidation)
	case !draft.Type.Valid():
		return fmt.Errorf("%w: unknown message type %q", ErrValidation, draft.Type)
	case draft.Type == models.TypeText && draft.Content == "":
		return fmt.Errorf("%w: content required for text messages", ErrValidation)
	case draft.Type == models.TypeSticker && draft.AttachmentURL == "":
		return fmt.Errorf("%w: sticker url required", ErrValidation)
	case draft.Type.NeedsAttachment() && draft.Type != models.TypeSticker &&
		draft.AttachmentURL == "" && draft.Attachment == nil:
		return fmt.Errorf("%w: attachment required for %s messages", ErrValidation, draft.Type)
	}
	return nil
}

func contentFor(draft Draft) string {
	if draft.Content != "" {
		return draft.Content
	}
	switch draft.Type {
	case models.TypeAudio:
		return "Voice Message"
	case models.TypeImage:
		return "Image"
	case models.TypeFile:
		if draft.FileName != "" {
			return draft.FileName
		}
		return "File"
	case models.TypeSticker:
		return "Sticker"
	}
	return draft.Content
}

func kindFor(t models.MessageType) uploads.Kind {
	switch t {
	case models.TypeAudio:
		return uploads.KindAudio
	case models.TypeImage:
		return uploads.KindImage
	default:
		return uploads.KindFile
	}
}

func renderAll(msgs []models.Message) []models.Message {
	rendered := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		rendered = append(rendered, m.Rendered())
	}
	return rendered
}

func mapRepoErr(err error) error {
	switch {
	case errors.Is(err, repositories.ErrMessageNotFound):
		return ErrNotFound
	case errors.Is(err, repositories.ErrConversationNotFound):
		return ErrNotFound
	case errors.Is(err, repositories.ErrMessageImmutable):
		return ErrImmutable
	}
	return err
}
