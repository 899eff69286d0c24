package state

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "test:", ttl), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, 0)
	require.NoError(t, store.Ping(ctx))

	s, err := store.Get(ctx, 5)
	require.NoError(t, err)
	require.True(t, s.Idle())

	require.NoError(t, store.Save(ctx, 5, Session{State: "await_author"}.WithTemp("title", "Тіні забутих предків")))
	require.True(t, mr.Exists("test:5"))
	require.Zero(t, mr.TTL("test:5"))

	s, err = store.Get(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, State("await_author"), s.State)
	title, _ := s.Temp("title")
	require.Equal(t, "Тіні забутих предків", title)

	require.NoError(t, store.Clear(ctx, 5))
	require.False(t, mr.Exists("test:5"))
}

func TestRedisStoreTTLExpiresSession(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Minute)

	require.NoError(t, store.Save(ctx, 9, Session{State: "await_title"}))
	require.Equal(t, time.Minute, mr.TTL("test:9"))

	mr.FastForward(2 * time.Minute)
	s, err := store.Get(ctx, 9)
	require.NoError(t, err)
	require.True(t, s.Idle())
}

func TestRedisStoreIdleSaveDeletesKey(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, 0)
	require.NoError(t, store.Save(ctx, 3, Session{State: "await_title"}))
	require.NoError(t, store.Save(ctx, 3, IdleSession()))
	require.False(t, mr.Exists("test:3"))
}

func TestRedisStoreReportsCorruptValue(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, 0)
	require.NoError(t, mr.Set("test:4", "{not json"))
	_, err := store.Get(ctx, 4)
	require.Error(t, err)
}
