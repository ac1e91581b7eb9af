package handlers

import (
	"bytes"
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

func setupPushRouter(repo *mocks.PushRepositoryMock, vapidPublic string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewPushHandler(repo, vapidPublic)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "alice")
		c.Next()
	})
	r.GET("/push/vapid-key", handler.VAPIDKey)
	r.POST("/push/subscriptions", handler.Subscribe)
	r.DELETE("/push/subscriptions", handler.Unsubscribe)
	return r
}

func TestVAPIDKey(t *testing.T) {
	router := setupPushRouter(new(mocks.PushRepositoryMock), "test-public-key")

	req := httptest.NewRequest(http.MethodGet, "/push/vapid-key", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test-public-key")
}

func TestVAPIDKeyUnconfigured(t *testing.T) {
	router := setupPushRouter(new(mocks.PushRepositoryMock), "")

	req := httptest.NewRequest(http.MethodGet, "/push/vapid-key", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSubscribe(t *testing.T) {
	repo := new(mocks.PushRepositoryMock)
	router := setupPushRouter(repo, "key")

	repo.On("SaveSubscription", mock.Anything, mock.MatchedBy(func(sub models.PushSubscription) bool {
		return sub.UserID == "alice" && sub.Endpoint == "https://push.example/ep"
	})).Return(nil).Once()

	body := bytes.NewBufferString(`{"endpoint":"https://push.example/ep","keys":{"p256dh":"p","auth":"a"}}`)
	req := httptest.NewRequest(http.MethodPost, "/push/subscriptions", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	repo.AssertExpectations(t)
}

func TestSubscribeMissingKeys(t *testing.T) {
	repo := new(mocks.PushRepositoryMock)
	router := setupPushRouter(repo, "key")

	body := bytes.NewBufferString(`{"endpoint":"https://push.example/ep"}`)
	req := httptest.NewRequest(http.MethodPost, "/push/subscriptions", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	repo.AssertNotCalled(t, "SaveSubscription", mock.Anything, mock.Anything)
}

func TestUnsubscribe(t *testing.T) {
	repo := new(mocks.PushRepositoryMock)
	router := setupPushRouter(repo, "key")

	repo.On("DeleteSubscription", mock.Anything, "alice", "https://push.example/ep").Return(nil).Once()

	body := bytes.NewBufferString(`{"endpoint":"https://push.example/ep"}`)
	req := httptest.NewRequest(http.MethodDelete, "/push/subscriptions", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	repo.AssertExpectations(t)
}
