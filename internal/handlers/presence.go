package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/presence"
)

// PresenceHandler exposes heartbeat, presence lookup and the typing signal.
type PresenceHandler struct {
	tracker *presence.Tracker
	typing  *presence.TypingSignal
}

// NewPresenceHandler builds a PresenceHandler.
func NewPresenceHandler(tracker *presence.Tracker, typing *presence.TypingSignal) *PresenceHandler {
	return &PresenceHandler{tracker: tracker, typing: typing}
}

// Heartbeat records the caller's presence. Clients post this periodically
// while the app is foregrounded.
func (h *PresenceHandler) Heartbeat(c *gin.Context) {
	var req struct {
		IsOnline       bool   `json:"is_online"`
		ConversationID string `json:"conversation_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	if err := h.tracker.Heartbeat(c.Request.Context(), userID, req.IsOnline, req.ConversationID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record presence"})
		return
	}

	c.Status(http.StatusNoContent)
}

// GetPresence reports another user's presence, degraded to offline when the
// last heartbeat is stale.
func (h *PresenceHandler) GetPresence(c *gin.Context) {
	p, err := h.tracker.Get(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load presence"})
		return
	}

	c.JSON(http.StatusOK, p)
}

// SetTyping flips the caller's typing flag in a conversation. The flag
// expires on its own unless refreshed.
func (h *PresenceHandler) SetTyping(c *gin.Context) {
	var req struct {
		IsTyping bool `json:"is_typing"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conversationID := c.Param("conversation_id")
	userID := c.GetString("userID")
	if err := h.typing.Set(c.Request.Context(), conversationID, userID, req.IsTyping); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to set typing"})
		return
	}

	c.Status(http.StatusNoContent)
}

// GetTyping reports whether the other participant is currently typing.
func (h *PresenceHandler) GetTyping(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	typing, err := h.typing.IsTyping(c.Request.Context(), conversationID, c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load typing state"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"is_typing": typing})
}
