package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signup/pkg/platform/sentinel"
)

func newTestSession() *Session {
	now := time.Date(2025, 5, 12, 9, 0, 0, 0, time.UTC)
	s := &Session{ID: NewSessionID(), CreatedAt: now}
	s.apply(NewMachine(), now)
	return s
}

func TestInMemorySessionStore_CreateAndGet(t *testing.T) {
	store := NewInMemorySessionStore(time.Hour)
	ctx := context.Background()
	sess := newTestSession()

	require.NoError(t, store.Create(ctx, sess))
	assert.Equal(t, int64(1), sess.Version)
	assert.ErrorIs(t, store.Create(ctx, sess), sentinel.ErrAlreadyUsed)

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, StateIdle, got.State)
	assert.Equal(t, int64(1), got.Version)

	_, err = store.Get(ctx, NewSessionID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemorySessionStore_ReturnsCopies(t *testing.T) {
	store := NewInMemorySessionStore(time.Hour)
	ctx := context.Background()
	sess := newTestSession()
	require.NoError(t, store.Create(ctx, sess))

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	got.Primary.Email = "mutated@example.com"
	got.Feedback.FieldErrors = map[string][]string{"email": {"x"}}

	again, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Primary.Email)
	assert.Empty(t, again.Feedback.FieldErrors)
}

func TestInMemorySessionStore_CompareAndSwap(t *testing.T) {
	store := NewInMemorySessionStore(time.Hour)
	ctx := context.Background()
	sess := newTestSession()
	require.NoError(t, store.Create(ctx, sess))

	stale, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)

	sess.Machine = Machine{State: StateSubmitting}
	require.NoError(t, store.CompareAndSwap(ctx, sess, 1))
	assert.Equal(t, int64(2), sess.Version)

	stale.Machine = Machine{State: StateSubmitting}
	assert.ErrorIs(t, store.CompareAndSwap(ctx, stale, stale.Version), sentinel.ErrConflict)
	assert.Equal(t, int64(1), stale.Version, "version untouched on conflict")

	missing := newTestSession()
	assert.ErrorIs(t, store.CompareAndSwap(ctx, missing, 1), sentinel.ErrNotFound)
}

func TestInMemorySessionStore_SingleWinnerUnderContention(t *testing.T) {
	store := NewInMemorySessionStore(time.Hour)
	ctx := context.Background()
	sess := newTestSession()
	require.NoError(t, store.Create(ctx, sess))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mine, err := store.Get(ctx, sess.ID)
			if err != nil {
				return
			}
			mine.Machine = Machine{State: StateSubmitting}
			if store.CompareAndSwap(ctx, mine, 1) == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestInMemorySessionStore_Expiry(t *testing.T) {
	store := NewInMemorySessionStore(20 * time.Millisecond)
	ctx := context.Background()
	sess := newTestSession()
	require.NoError(t, store.Create(ctx, sess))

	time.Sleep(60 * time.Millisecond)
	_, err := store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
