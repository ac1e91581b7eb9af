package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
)

// ConversationHandler manages the conversation directory endpoints.
type ConversationHandler struct {
	conversations repositories.ConversationRepository
}

// NewConversationHandler builds a ConversationHandler.
func NewConversationHandler(conversations repositories.ConversationRepository) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

// List returns the caller's conversations, most recently active first, with
// partner ids, last-message previews and unread counts.
func (h *ConversationHandler) List(c *gin.Context) {
	userID := c.GetString("userID")

	summaries, err := h.conversations.List(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

// Start creates or returns the conversation with a partner. Conversations
// are otherwise created implicitly on first send; clients call this to open
// the websocket before anything has been said.
func (h *ConversationHandler) Start(c *gin.Context) {
	var req struct {
		PartnerID string `json:"partner_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	if userID == req.PartnerID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot converse with yourself"})
		return
	}

	conv, err := h.conversations.CreateOrGet(c.Request.Context(), userID, req.PartnerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create conversation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversation_id": conv.ID})
}

// Resolve derives the canonical conversation id for a partner without
// touching storage.
func (h *ConversationHandler) Resolve(c *gin.Context) {
	partnerID := c.Query("partner_id")
	if partnerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "partner_id is required"})
		return
	}

	userID := c.GetString("userID")
	c.JSON(http.StatusOK, gin.H{"conversation_id": models.ConversationKey(userID, partnerID)})
}
