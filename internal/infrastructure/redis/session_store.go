package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"shiftmarket/internal/domain"
)

// ErrSessionNotFound is returned for unknown or expired tokens.
var ErrSessionNotFound = errors.New("session not found")

type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

func (r *RedisSessionStore) CreateSession(ctx context.Context, session *domain.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}

	ttl := r.ttl
	if !session.ExpiresAt.IsZero() {
		ttl = time.Until(session.ExpiresAt)
	}
	return r.client.Set(ctx, sessionKey(session.Token), payload, ttl).Err()
}

func (r *RedisSessionStore) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	result, err := r.client.Get(ctx, sessionKey(token)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(result), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *RedisSessionStore) DeleteSession(ctx context.Context, token string) error {
	return r.client.Del(ctx, sessionKey(token)).Err()
}
