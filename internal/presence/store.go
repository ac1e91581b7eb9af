package presence

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"messaging-service/internal/models"
)

// Store holds presence and typing records. Typing entries carry their expiry
// with them (the store's TTL or an explicit timestamp); there is no live
// timer anywhere, readers just see the record gone or stale.
type Store interface {
	SetPresence(ctx context.Context, p models.Presence) error
	GetPresence(ctx context.Context, userID string) (models.Presence, bool, error)
	SetTyping(ctx context.Context, t models.TypingStatus, ttl time.Duration) error
	GetTyping(ctx context.Context, conversationID, userID string) (models.TypingStatus, bool, error)
	ClearTyping(ctx context.Context, conversationID, userID string) error
}

// RedisStore keeps presence and typing in Redis; typing keys expire on
// their own, which is what clears the signal after a client crash.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a RedisStore.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func presenceKey(userID string) string {
	return "presence:" + userID
}

func typingKey(conversationID, userID string) string {
	return "typing:" + conversationID + ":" + userID
}

func (s *RedisStore) SetPresence(ctx context.Context, p models.Presence) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, presenceKey(p.UserID), payload, 0).Err()
}

func (s *RedisStore) GetPresence(ctx context.Context, userID string) (models.Presence, bool, error) {
	payload, err := s.client.Get(ctx, presenceKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Presence{}, false, nil
	}
	if err != nil {
		return models.Presence{}, false, err
	}
	var p models.Presence
	if err := json.Unmarshal(payload, &p); err != nil {
		return models.Presence{}, false, err
	}
	return p, true, nil
}

func (s *RedisStore) SetTyping(ctx context.Context, t models.TypingStatus, ttl time.Duration) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, typingKey(t.ConversationID, t.UserID), payload, ttl).Err()
}

func (s *RedisStore) GetTyping(ctx context.Context, conversationID, userID string) (models.TypingStatus, bool, error) {
	payload, err := s.client.Get(ctx, typingKey(conversationID, userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.TypingStatus{}, false, nil
	}
	if err != nil {
		return models.TypingStatus{}, false, err
	}
	var t models.TypingStatus
	if err := json.Unmarshal(payload, &t); err != nil {
		return models.TypingStatus{}, false, err
	}
	return t, true, nil
}

func (s *RedisStore) ClearTyping(ctx context.Context, conversationID, userID string) error {
	return s.client.Del(ctx, typingKey(conversationID, userID)).Err()
}

// MemoryStore is the single-process fallback used when Redis is not
// configured, and in tests. Expiry is the stored timestamp; reads compute.
type MemoryStore struct {
	mu       sync.RWMutex
	presence map[string]models.Presence
	typing   map[string]models.TypingStatus
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		presence: make(map[string]models.Presence),
		typing:   make(map[string]models.TypingStatus),
	}
}

func (s *MemoryStore) SetPresence(ctx context.Context, p models.Presence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presence[p.UserID] = p
	return nil
}

func (s *MemoryStore) GetPresence(ctx context.Context, userID string) (models.Presence, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.presence[userID]
	return p, ok, nil
}

func (s *MemoryStore) SetTyping(ctx context.Context, t models.TypingStatus, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typing[typingKey(t.ConversationID, t.UserID)] = t
	return nil
}

func (s *MemoryStore) GetTyping(ctx context.Context, conversationID, userID string) (models.TypingStatus, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.typing[typingKey(conversationID, userID)]
	if !ok || !t.Active(time.Now()) {
		return models.TypingStatus{}, false, nil
	}
	return t, true, nil
}

func (s *MemoryStore) ClearTyping(ctx context.Context, conversationID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.typing, typingKey(conversationID, userID))
	return nil
}
