package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"messaging-service/internal/middleware"
	"messaging-service/internal/observability"
	"messaging-service/internal/rabbitmq"
	"messaging-service/internal/repositories"
)

// SocketHandler bridges websocket connections onto hub subscriptions.
type SocketHandler struct {
	hub           *Hub
	conversations repositories.ConversationRepository
	jwtSecret     string
	events        rabbitmq.Publisher
}

// NewSocketHandler constructs a SocketHandler.
func NewSocketHandler(hub *Hub, conversations repositories.ConversationRepository, jwtSecret string, events rabbitmq.Publisher) *SocketHandler {
	return &SocketHandler{hub: hub, conversations: conversations, jwtSecret: jwtSecret, events: events}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleConversation upgrades the connection and streams the conversation's
// live events (messages, edits, deletions, receipts, reactions, typing)
// until either side goes away.
func (h *SocketHandler) HandleConversation(c *gin.Context) {
	conversationID := c.Param("conversation_id")

	ctx, span := otel.Tracer("messaging-service/ws").Start(c.Request.Context(), "ws.handshake",
		trace.WithAttributes(attribute.String("conversation.id", conversationID)))
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	claims, ok := h.authenticate(c)
	if !ok {
		return
	}

	conv, err := h.conversations.Get(c.Request.Context(), conversationID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}
	if !conv.HasParticipant(claims.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	meta := observability.MetaFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      claims.UserID,
		DeviceID:    meta.DeviceID,
		IP:          meta.IP,
		RequestID:   meta.RequestID,
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}

	sub, cancel := h.hub.Subscribe(conversationID)

	observability.IncWSActive("conversation")
	observability.IncWSEvent("conversation", "ws_connect")
	h.publishLifecycle("conversation", conversationID, info, "ws_connect", "")

	go func() {
		for event := range sub {
			if err := conn.WriteJSON(event); err != nil {
				observability.IncWSEvent("conversation", "ws_error")
				h.publishLifecycle("conversation", conversationID, info, "ws_error", err.Error())
				break
			}
		}
		conn.Close()
	}()

	go func() {
		var closeReason string
		defer func() {
			cancel()
			conn.Close()
			observability.DecWSActive("conversation")
			observability.IncWSEvent("conversation", "ws_disconnect")
			h.publishLifecycle("conversation", conversationID, info, "ws_disconnect", closeReason)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				return
			}
		}
	}()
}

// HandlePresence upgrades the connection and streams one user's presence
// updates to any authenticated watcher.
func (h *SocketHandler) HandlePresence(c *gin.Context) {
	userID := c.Param("user_id")

	claims, ok := h.authenticate(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	meta := observability.MetaFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      claims.UserID,
		DeviceID:    meta.DeviceID,
		IP:          meta.IP,
		RequestID:   meta.RequestID,
		ConnectedAt: time.Now(),
	}

	sub, cancel := h.hub.SubscribePresence(userID)

	observability.IncWSActive("presence")
	observability.IncWSEvent("presence", "ws_connect")
	h.publishLifecycle("presence", userID, info, "ws_connect", "")

	go func() {
		for event := range sub {
			if err := conn.WriteJSON(event); err != nil {
				break
			}
		}
		conn.Close()
	}()

	go func() {
		var closeReason string
		defer func() {
			cancel()
			conn.Close()
			observability.DecWSActive("presence")
			observability.IncWSEvent("presence", "ws_disconnect")
			h.publishLifecycle("presence", userID, info, "ws_disconnect", closeReason)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				return
			}
		}
	}()
}

func (h *SocketHandler) authenticate(c *gin.Context) (*middleware.Claims, bool) {
	token := c.Query("token")
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			token = parts[1]
		} else {
			token = header
		}
	}

	claims, err := middleware.ParseToken(h.jwtSecret, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return nil, false
	}
	return claims, true
}

func (h *SocketHandler) publishLifecycle(kind, resourceID string, info ConnInfo, event, reason string) {
	if h.events == nil {
		return
	}
	envelope := observability.NewSocketEvent(
		observability.SocketDetails{
			Kind:       kind,
			ResourceID: resourceID,
			Event:      event,
			ConnID:     info.ConnID,
			Reason:     reason,
		},
		observability.Identity{
			UserID:    info.UserID,
			DeviceID:  info.DeviceID,
			IP:        info.IP,
			RequestID: info.RequestID,
			TraceID:   info.TraceID,
		},
		info.ConnectedAt,
	)
	// Lifecycle events outlive the request context.
	_ = h.events.Publish(context.Background(), "ws_events."+kind, envelope)
}
