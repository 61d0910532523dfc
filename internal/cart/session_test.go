package cart

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisSessions(t *testing.T) (*RedisSessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return &RedisSessionStore{R: rdb, TTL: time.Hour}, mr
}

func TestRedisSessionRoundTrip(t *testing.T) {
	store, mr := newRedisSessions(t)
	ctx := context.Background()

	sess, err := store.Load(ctx, "staff-1")
	require.NoError(t, err)
	require.True(t, sess.Cart.Empty())

	require.NoError(t, sess.Cart.AddItem("Paracetamol", dec("10.00"), 2, "A-1"))
	require.NoError(t, store.Save(ctx, sess))
	require.True(t, mr.Exists("cart:staff-1"))
	require.Equal(t, time.Hour, mr.TTL("cart:staff-1"))

	loaded, err := store.Load(ctx, "staff-1")
	require.NoError(t, err)
	require.Len(t, loaded.Cart.Items, 1)
	require.True(t, loaded.Cart.Items[0].UnitPrice.Equal(dec("10")))
	require.Equal(t, 2, loaded.Cart.Items[0].Qty)

	loaded.Cart.Clear()
	require.NoError(t, store.Save(ctx, loaded))
	require.False(t, mr.Exists("cart:staff-1"))
}

func TestRedisSessionExpires(t *testing.T) {
	store, mr := newRedisSessions(t)
	ctx := context.Background()
	sess := &Session{ID: "staff-2"}
	require.NoError(t, sess.Cart.AddItem("A", dec("1"), 1, ""))
	require.NoError(t, store.Save(ctx, sess))

	mr.FastForward(2 * time.Hour)
	loaded, err := store.Load(ctx, "staff-2")
	require.NoError(t, err)
	require.True(t, loaded.Cart.Empty())
}

func TestMemorySessionStore(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()
	sess, err := store.Load(ctx, "s")
	require.NoError(t, err)
	require.NoError(t, sess.Cart.AddItem("A", dec("1"), 1, ""))
	require.NoError(t, store.Save(ctx, sess))

	again, err := store.Load(ctx, "s")
	require.NoError(t, err)
	require.Len(t, again.Cart.Items, 1)

	// Loaded sessions are copies.
	again.Cart.Clear()
	third, _ := store.Load(ctx, "s")
	require.Len(t, third.Cart.Items, 1)
}
