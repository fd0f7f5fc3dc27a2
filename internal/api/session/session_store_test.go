package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/FACorreiaa/alpine-guide/internal/types"
)

func sampleState(id string) *types.ConversationState {
	s := types.NewConversationState(id, types.TurnContext{Territory: "annecy"})
	s.Phase = types.PhaseAwaitingSlots
	s.IntentName = "restaurant"
	s.FilledSlots["terrasse"] = "avec terrasse"
	s.AppendHistory(types.NewHistoryEntry(types.RoleUser, "Restaurant avec terrasse", time.Now().UTC()), types.DefaultHistoryCap)
	return s
}

func runStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.True(t, errors.Is(err, types.ErrSessionNotFound))

	state := sampleState("s1")
	require.NoError(t, store.Put(ctx, state))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "restaurant", got.IntentName)
	assert.Equal(t, types.PhaseAwaitingSlots, got.Phase)
	assert.Equal(t, "avec terrasse", got.FilledSlots["terrasse"])
	require.Len(t, got.History, 1)
	assert.Equal(t, state.History[0].ID, got.History[0].ID)

	got.FilledSlots["type_cuisine"] = "italienne"
	again, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.NotContains(t, again.FilledSlots, "type_cuisine", "stored state must not be mutated through a loaded copy")

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Get(ctx, "s1")
	assert.True(t, errors.Is(err, types.ErrSessionNotFound))

	assert.True(t, errors.Is(store.Put(ctx, &types.ConversationState{}), types.ErrInvalidContext))
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemoryStore(time.Minute))
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(20 * time.Millisecond)
	require.NoError(t, store.Put(ctx, sampleState("s1")))
	assert.Equal(t, 1, store.Len())

	time.Sleep(50 * time.Millisecond)
	_, err := store.Get(ctx, "s1")
	assert.True(t, errors.Is(err, types.ErrSessionNotFound))
}

func TestMemoryStore_NoBackgroundCleanup(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store := NewMemoryStore(time.Minute)
	require.NoError(t, store.Put(context.Background(), sampleState("s1")))
	assert.Equal(t, 1, store.Len())
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	runStoreContract(t, NewRedisStore(client, "", time.Minute))

	t.Run("ttl refreshed on write", func(t *testing.T) {
		ctx := context.Background()
		store := NewRedisStore(client, "test:", time.Minute)
		require.NoError(t, store.Put(ctx, sampleState("s2")))
		assert.Equal(t, time.Minute, mr.TTL("test:s2"))

		mr.FastForward(2 * time.Minute)
		_, err := store.Get(ctx, "s2")
		assert.True(t, errors.Is(err, types.ErrSessionNotFound))
	})
}

func TestRedisStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client, "", time.Minute)

	mock.ExpectGet(DefaultKeyPrefix + "s1").SetErr(errors.New("connection refused"))
	_, err := store.Get(ctx, "s1")
	assert.True(t, errors.Is(err, types.ErrCacheUnavailable))
	assert.False(t, errors.Is(err, types.ErrSessionNotFound))

	mock.ExpectDel(DefaultKeyPrefix + "s1").SetErr(errors.New("connection refused"))
	assert.True(t, errors.Is(store.Delete(ctx, "s1"), types.ErrCacheUnavailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}
