package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const toastKeyPrefix = "console:toasts:"

// RedisStore keeps pending toasts in a Redis list per session so that several
// console-server replicas can share sessions.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed store. Lists expire after ttl of
// inactivity.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("notification: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Push appends the toast and trims the list to the newest maxPending entries.
func (s *RedisStore) Push(ctx context.Context, sessionID string, t Toast) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("notification: encode toast: %w", err)
	}
	key := toastKey(sessionID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, -maxPending, -1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("notification: push toast: %w", err)
	}
	return nil
}

// Drain atomically reads and deletes the session's list.
func (s *RedisStore) Drain(ctx context.Context, sessionID string) ([]Toast, error) {
	key := toastKey(sessionID)
	pipe := s.client.TxPipeline()
	rng := pipe.LRange(ctx, key, 0, -1)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("notification: drain toasts: %w", err)
	}
	raw, err := rng.Result()
	if err != nil {
		return nil, fmt.Errorf("notification: read toasts: %w", err)
	}
	toasts := make([]Toast, 0, len(raw))
	for _, item := range raw {
		var t Toast
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			continue
		}
		toasts = append(toasts, t)
	}
	return toasts, nil
}

// Clear deletes the session's list.
func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, toastKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("notification: clear toasts: %w", err)
	}
	return nil
}

func toastKey(sessionID string) string {
	return toastKeyPrefix + sessionID
}
