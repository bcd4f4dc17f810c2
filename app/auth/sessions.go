package auth

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps server-side login sessions keyed by an opaque id.
type SessionStore interface {
	Create(ctx context.Context, userID uint, ttl time.Duration) (string, error)
	Get(ctx context.Context, id string) (uint, error)
	Delete(ctx context.Context, id string) error
}

const sessionPrefix = "session:"

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Create(ctx context.Context, userID uint, ttl time.Duration) (string, error) {
	id := uuid.NewString()
	if err := s.client.Set(ctx, sessionPrefix+id, strconv.FormatUint(uint64(userID), 10), ttl).Err(); err != nil {
		return "", err
	}
	return id, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (uint, error) {
	v, err := s.client.Get(ctx, sessionPrefix+id).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, ErrSessionNotFound
	}
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, sessionPrefix+id).Err()
}

type memorySession struct {
	userID  uint
	expires time.Time
}

// MemoryStore is the single-process fallback used when Redis is not
// configured or unreachable. Sessions do not survive a restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memorySession),
		now:      time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, userID uint, ttl time.Duration) (string, error) {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = memorySession{userID: userID, expires: s.now().Add(ttl)}
	return id, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return 0, ErrSessionNotFound
	}
	if !s.now().Before(sess.expires) {
		delete(s.sessions, id)
		return 0, ErrSessionNotFound
	}
	return sess.userID, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
