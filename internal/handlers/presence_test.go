package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/presence"
	"messaging-service/internal/ws"
)

func setupPresenceRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	store := presence.NewMemoryStore()
	hub := ws.NewHub()
	handler := NewPresenceHandler(
		presence.NewTracker(store, hub, time.Minute),
		presence.NewTypingSignal(store, hub, time.Minute),
	)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "alice")
		c.Next()
	})
	r.POST("/presence/heartbeat", handler.Heartbeat)
	r.GET("/presence/:user_id", handler.GetPresence)
	r.POST("/conversations/:conversation_id/typing", handler.SetTyping)
	r.GET("/conversations/:conversation_id/typing/:user_id", handler.GetTyping)
	return r
}

func TestHeartbeatThenGetPresence(t *testing.T) {
	router := setupPresenceRouter()

	req := httptest.NewRequest(http.MethodPost, "/presence/heartbeat",
		bytes.NewBufferString(`{"is_online":true,"conversation_id":"alice_bob"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/presence/alice", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"is_online":true`)
}

func TestGetPresenceUnknownUserIsOffline(t *testing.T) {
	router := setupPresenceRouter()

	req := httptest.NewRequest(http.MethodGet, "/presence/ghost", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"is_online":false`)
}

func TestHeartbeatRejectsBadBody(t *testing.T) {
	router := setupPresenceRouter()

	req := httptest.NewRequest(http.MethodPost, "/presence/heartbeat", bytes.NewBufferString(`not json`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetAndGetTyping(t *testing.T) {
	router := setupPresenceRouter()

	req := httptest.NewRequest(http.MethodPost, "/conversations/alice_bob/typing",
		bytes.NewBufferString(`{"is_typing":true}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/conversations/alice_bob/typing/alice", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"is_typing":true`)
}

func TestClearTyping(t *testing.T) {
	router := setupPresenceRouter()

	for _, body := range []string{`{"is_typing":true}`, `{"is_typing":false}`} {
		req := httptest.NewRequest(http.MethodPost, "/conversations/alice_bob/typing", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/conversations/alice_bob/typing/alice", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"is_typing":false`)
}
