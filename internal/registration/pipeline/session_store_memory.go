package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"signup/pkg/platform/sentinel"
)

// InMemorySessionStore keeps encoded sessions in a TTL cache. Sessions are
// copied in and out so callers never share state.
type InMemorySessionStore struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// NewInMemorySessionStore expires sessions ttl after their last write.
func NewInMemorySessionStore(ttl time.Duration) *InMemorySessionStore {
	return &InMemorySessionStore{cache: cache.New(ttl, max(ttl, time.Minute))}
}

func (s *InMemorySessionStore) Create(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.cache.Get(string(sess.ID)); found {
		return sentinel.ErrAlreadyUsed
	}
	return s.put(sess, 1)
}

func (s *InMemorySessionStore) Get(_ context.Context, id SessionID) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id)
}

func (s *InMemorySessionStore) CompareAndSwap(_ context.Context, sess *Session, expected int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.get(sess.ID)
	if err != nil {
		return err
	}
	if current.Version != expected {
		return sentinel.ErrConflict
	}
	return s.put(sess, expected+1)
}

func (s *InMemorySessionStore) get(id SessionID) (*Session, error) {
	raw, found := s.cache.Get(string(id))
	if !found {
		return nil, sentinel.ErrNotFound
	}
	var sess Session
	if err := json.Unmarshal(raw.([]byte), &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (s *InMemorySessionStore) put(sess *Session, version int64) error {
	next := *sess
	next.Version = version
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	s.cache.Set(string(sess.ID), data, cache.DefaultExpiration)
	sess.Version = version
	return nil
}
