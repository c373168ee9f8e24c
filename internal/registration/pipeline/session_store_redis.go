package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"signup/pkg/platform/sentinel"
)

const sessionKeyPrefix = "signup:session:"

// RedisSessionStore shares sessions across instances. CompareAndSwap uses
// WATCH/MULTI so concurrent writers on one key cannot both succeed.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func sessionKey(id SessionID) string {
	return sessionKeyPrefix + string(id)
}

func (s *RedisSessionStore) Create(ctx context.Context, sess *Session) error {
	next := *sess
	next.Version = 1
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, sessionKey(sess.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: create session: %w", sentinel.ErrUnavailable, err)
	}
	if !ok {
		return sentinel.ErrAlreadyUsed
	}
	sess.Version = 1
	return nil
}

func (s *RedisSessionStore) Get(ctx context.Context, id SessionID) (*Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get session: %w", sentinel.ErrUnavailable, err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (s *RedisSessionStore) CompareAndSwap(ctx context.Context, sess *Session, expected int64) error {
	key := sessionKey(sess.ID)
	next := *sess
	next.Version = expected + 1
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return err
		}
		var current struct {
			Version int64 `json:"version"`
		}
		if err := json.Unmarshal(raw, &current); err != nil {
			return fmt.Errorf("decode session: %w", err)
		}
		if current.Version != expected {
			return sentinel.ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		sess.Version = expected + 1
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return sentinel.ErrConflict
	case errors.Is(err, sentinel.ErrNotFound), errors.Is(err, sentinel.ErrConflict):
		return err
	default:
		return fmt.Errorf("%w: swap session: %w", sentinel.ErrUnavailable, err)
	}
}
