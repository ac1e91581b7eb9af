package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/models"
	"messaging-service/internal/pipeline"
	"messaging-service/internal/repositories"
)

// MessageHandler exposes the message pipeline over HTTP.
type MessageHandler struct {
	pipeline      *pipeline.Pipeline
	conversations repositories.ConversationRepository
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(p *pipeline.Pipeline, conversations repositories.ConversationRepository) *MessageHandler {
	return &MessageHandler{pipeline: p, conversations: conversations}
}

// Send accepts a message draft. Text, sticker and pre-uploaded attachment
// sends arrive as JSON; fresh attachments arrive as multipart with the blob
// in the "attachment" field.
func (h *MessageHandler) Send(c *gin.Context) {
	draft, ok := h.bindDraft(c)
	if !ok {
		return
	}

	msg, err := h.pipeline.Send(c.Request.Context(), draft)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg.Rendered())
}

func (h *MessageHandler) bindDraft(c *gin.Context) (pipeline.Draft, bool) {
	draft := pipeline.Draft{
		SenderID:   c.GetString("userID"),
		SenderName: c.GetString("displayName"),
	}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		draft.ReceiverID = c.PostForm("receiver_id")
		draft.Type = models.MessageType(c.PostForm("type"))
		draft.Content = c.PostForm("content")
		draft.ReplySenderName = c.PostForm("reply_sender_name")
		if v := c.PostForm("reply_to_id"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reply_to_id"})
				return pipeline.Draft{}, false
			}
			draft.ReplyToID = id
		}
		if v := c.PostForm("duration"); v != "" {
			if d, err := strconv.ParseFloat(v, 64); err == nil {
				draft.Duration = d
			}
		}

		file, header, err := c.Request.FormFile("attachment")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "attachment file is required"})
			return pipeline.Draft{}, false
		}
		draft.Attachment = file
		draft.FileName = header.Filename
		draft.FileSize = header.Size
		return draft, true
	}

	var req struct {
		ReceiverID      string  `json:"receiver_id" binding:"required"`
		Type            string  `json:"type" binding:"required"`
		Content         string  `json:"content"`
		AttachmentURL   string  `json:"attachment_url"`
		Duration        float64 `json:"duration"`
		FileName        string  `json:"file_name"`
		FileSize        int64   `json:"file_size"`
		ReplyToID       int64   `json:"reply_to_id"`
		ReplySenderName string  `json:"reply_sender_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return pipeline.Draft{}, false
	}

	draft.ReceiverID = req.ReceiverID
	draft.Type = models.MessageType(req.Type)
	draft.Content = req.Content
	draft.AttachmentURL = req.AttachmentURL
	draft.Duration = req.Duration
	draft.FileName = req.FileName
	draft.FileSize = req.FileSize
	draft.ReplyToID = req.ReplyToID
	draft.ReplySenderName = req.ReplySenderName
	return draft, true
}

// History returns the conversation's full rendered log.
func (h *MessageHandler) History(c *gin.Context) {
	conversationID, ok := h.requireParticipant(c)
	if !ok {
		return
	}

	msgs, err := h.pipeline.History(c.Request.Context(), conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// Search finds messages by substring within one conversation.
func (h *MessageHandler) Search(c *gin.Context) {
	conversationID, ok := h.requireParticipant(c)
	if !ok {
		return
	}

	msgs, err := h.pipeline.Search(c.Request.Context(), conversationID, c.Query("q"))
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// Edit rewrites a text message's content. Sender only.
func (h *MessageHandler) Edit(c *gin.Context) {
	messageID, ok := parseMessageID(c)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.requireSender(c, messageID) {
		return
	}

	msg, err := h.pipeline.Edit(c.Request.Context(), messageID, req.Content)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, msg.Rendered())
}

// Delete soft-deletes a message. Sender only.
func (h *MessageHandler) Delete(c *gin.Context) {
	messageID, ok := parseMessageID(c)
	if !ok {
		return
	}
	if !h.requireSender(c, messageID) {
		return
	}

	if err := h.pipeline.Delete(c.Request.Context(), messageID); err != nil {
		respondPipelineError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// MarkDelivered acknowledges delivery. Receiver only; backward moves no-op.
func (h *MessageHandler) MarkDelivered(c *gin.Context) {
	h.advance(c, h.pipeline.MarkDelivered)
}

// MarkRead acknowledges reading. Receiver only.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	h.advance(c, h.pipeline.MarkRead)
}

func (h *MessageHandler) advance(c *gin.Context, fn func(ctx context.Context, messageID int64) (models.Message, error)) {
	messageID, ok := parseMessageID(c)
	if !ok {
		return
	}

	msg, err := h.pipeline.Get(c.Request.Context(), messageID)
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	if msg.ReceiverID != c.GetString("userID") {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the receiver can acknowledge"})
		return
	}

	updated, err := fn(c.Request.Context(), messageID)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": updated.ID, "status": updated.Status, "read": updated.Read})
}

// ReadAll marks every unread message addressed to the caller in the
// conversation as read.
func (h *MessageHandler) ReadAll(c *gin.Context) {
	conversationID, ok := h.requireParticipant(c)
	if !ok {
		return
	}

	userID := c.GetString("userID")
	if err := h.pipeline.MarkConversationRead(c.Request.Context(), conversationID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark read"})
		return
	}

	c.Status(http.StatusNoContent)
}

// AddReaction sets the caller's reaction on a message, replacing any prior
// one. Participants only.
func (h *MessageHandler) AddReaction(c *gin.Context) {
	messageID, ok := parseMessageID(c)
	if !ok {
		return
	}

	var req struct {
		Type string `json:"type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	if !h.requireMessageParticipant(c, messageID, userID) {
		return
	}

	reaction, err := h.pipeline.AddReaction(c.Request.Context(), messageID, userID, req.Type)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, reaction)
}

// RemoveReaction removes the caller's reaction, whatever its type.
func (h *MessageHandler) RemoveReaction(c *gin.Context) {
	messageID, ok := parseMessageID(c)
	if !ok {
		return
	}

	userID := c.GetString("userID")
	if !h.requireMessageParticipant(c, messageID, userID) {
		return
	}

	if err := h.pipeline.RemoveReaction(c.Request.Context(), messageID, userID); err != nil {
		respondPipelineError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *MessageHandler) requireParticipant(c *gin.Context) (string, bool) {
	conversationID := c.Param("conversation_id")
	userID := c.GetString("userID")

	conv, err := h.conversations.Get(c.Request.Context(), conversationID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrConversationNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "conversation not found"})
		return "", false
	}
	if !conv.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		return "", false
	}
	return conversationID, true
}

func (h *MessageHandler) requireSender(c *gin.Context, messageID int64) bool {
	msg, err := h.pipeline.Get(c.Request.Context(), messageID)
	if err != nil {
		respondPipelineError(c, err)
		return false
	}
	if msg.SenderID != c.GetString("userID") {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the sender can modify a message"})
		return false
	}
	return true
}

func (h *MessageHandler) requireMessageParticipant(c *gin.Context, messageID int64, userID string) bool {
	msg, err := h.pipeline.Get(c.Request.Context(), messageID)
	if err != nil {
		respondPipelineError(c, err)
		return false
	}
	if msg.SenderID != userID && msg.ReceiverID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		return false
	}
	return true
}

func parseMessageID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("message_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return 0, false
	}
	return id, true
}

func respondPipelineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pipeline.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrUpload):
		c.JSON(http.StatusBadGateway, gin.H{"error": "attachment upload failed"})
	case errors.Is(err, pipeline.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
	case errors.Is(err, pipeline.ErrImmutable):
		c.JSON(http.StatusConflict, gin.H{"error": "message cannot be modified"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
