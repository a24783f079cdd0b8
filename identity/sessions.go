package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/patrickmn/go-cache"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is a signed-in identity. It lives until ExpiresAt or until sign out.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Remember  bool      `json:"remember"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStore keeps sessions until they expire.
type SessionStore interface {
	Save(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

// RedisSessions stores sessions under session:<id> with a TTL matching the session expiry.
type RedisSessions struct {
	rdb *redis.Client
}

func NewRedisSessions(rdb *redis.Client) *RedisSessions {
	return &RedisSessions{rdb: rdb}
}

func sessionKey(id string) string { return fmt.Sprintf("session:%s", id) }

func (r *RedisSessions) Save(ctx context.Context, s Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return errors.New("session already expired")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, sessionKey(s.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (r *RedisSessions) Get(ctx context.Context, id string) (Session, error) {
	data, err := r.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err == redis.Nil {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("failed to decode session: %w", err)
	}
	return s, nil
}

func (r *RedisSessions) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, sessionKey(id)).Err()
}

// MemorySessions is an in-process SessionStore.
type MemorySessions struct {
	c *cache.Cache
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{c: cache.New(cache.NoExpiration, 10*time.Minute)}
}

func (m *MemorySessions) Save(_ context.Context, s Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return errors.New("session already expired")
	}
	m.c.Set(s.ID, s, ttl)
	return nil
}

func (m *MemorySessions) Get(_ context.Context, id string) (Session, error) {
	v, ok := m.c.Get(id)
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return v.(Session), nil
}

func (m *MemorySessions) Delete(_ context.Context, id string) error {
	m.c.Delete(id)
	return nil
}
