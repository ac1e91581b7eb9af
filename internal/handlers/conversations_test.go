package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
)

func setupConversationRouter(handler *ConversationHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "alice")
		c.Set("displayName", "Alice")
		c.Next()
	})
	r.GET("/conversations", handler.List)
	r.POST("/conversations/start", handler.Start)
	r.GET("/conversations/resolve", handler.Resolve)
	return r
}

func TestListConversationsSuccess(t *testing.T) {
	repo := new(mocks.ConversationRepositoryMock)
	router := setupConversationRouter(NewConversationHandler(repo))

	repo.On("List", mock.Anything, "alice").
		Return([]models.ConversationSummary{{ConversationID: "alice_bob", PartnerID: "bob", UnreadCount: 2}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Conversations []models.ConversationSummary `json:"conversations"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Conversations, 1)
	assert.Equal(t, "bob", resp.Conversations[0].PartnerID)
	assert.Equal(t, 2, resp.Conversations[0].UnreadCount)
	repo.AssertExpectations(t)
}

func TestListConversationsRepoError(t *testing.T) {
	repo := new(mocks.ConversationRepositoryMock)
	router := setupConversationRouter(NewConversationHandler(repo))

	repo.On("List", mock.Anything, "alice").
		Return(([]models.ConversationSummary)(nil), assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	repo.AssertExpectations(t)
}

func TestStartConversationSuccess(t *testing.T) {
	repo := new(mocks.ConversationRepositoryMock)
	router := setupConversationRouter(NewConversationHandler(repo))

	repo.On("CreateOrGet", mock.Anything, "alice", "bob").
		Return(models.Conversation{ID: "alice_bob"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/conversations/start", bytes.NewBufferString(`{"partner_id":"bob"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice_bob")
	repo.AssertExpectations(t)
}

func TestStartConversationWithSelfRejected(t *testing.T) {
	repo := new(mocks.ConversationRepositoryMock)
	router := setupConversationRouter(NewConversationHandler(repo))

	req := httptest.NewRequest(http.MethodPost, "/conversations/start", bytes.NewBufferString(`{"partner_id":"alice"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	repo.AssertNotCalled(t, "CreateOrGet", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveConversationID(t *testing.T) {
	router := setupConversationRouter(NewConversationHandler(new(mocks.ConversationRepositoryMock)))

	req := httptest.NewRequest(http.MethodGet, "/conversations/resolve?partner_id=bob", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice_bob")
}

func TestResolveRequiresPartnerID(t *testing.T) {
	router := setupConversationRouter(NewConversationHandler(new(mocks.ConversationRepositoryMock)))

	req := httptest.NewRequest(http.MethodGet, "/conversations/resolve", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
