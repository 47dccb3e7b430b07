package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Method string `json:"method"`
	Total  int64  `json:"total"`
}

func TestInMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, err := c.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, SetJSON(ctx, c, "k", payload{Method: "SKT 멤버십", Total: 1000}, time.Minute))

	var got payload
	require.NoError(t, GetJSON(ctx, c, "k", &got))
	require.Equal(t, payload{Method: "SKT 멤버십", Total: 1000}, got)

	now = now.Add(2 * time.Minute)
	_, err = c.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Set(ctx, "b", []byte("1"), 0))
	require.NoError(t, c.Clear(ctx))
	_, err = c.Get(ctx, "b")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryCache_SweepsExpiredOnSet(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	for i := 0; i < 10000; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("eval:v1:5:12:%d", i), []byte("{}"), time.Minute))
	}
	require.NoError(t, c.Set(ctx, "pinned", []byte("{}"), 0))

	now = now.Add(24 * time.Hour)
	require.NoError(t, c.Set(ctx, "eval:v2:6:12:0", []byte("{}"), time.Minute))

	c.mu.Lock()
	held := len(c.data)
	c.mu.Unlock()
	require.Equal(t, 2, held, "only the fresh and the non-expiring entries remain")

	_, err := c.Get(ctx, "pinned")
	require.NoError(t, err)
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisCacheFromClient(client, "eval:")
	defer c.Close()

	_, err = c.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, SetJSON(ctx, c, "k1", payload{Method: "할인 없음"}, time.Minute))
	require.True(t, mr.Exists("eval:k1"))

	var got payload
	require.NoError(t, GetJSON(ctx, c, "k1", &got))
	require.Equal(t, "할인 없음", got.Method)

	mr.FastForward(2 * time.Minute)
	_, err = c.Get(ctx, "k1")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mr.Set("other:key", "keep"))
	require.NoError(t, c.Set(ctx, "k2", []byte("x"), time.Minute))
	require.NoError(t, c.Clear(ctx))
	require.False(t, mr.Exists("eval:k2"))
	require.True(t, mr.Exists("other:key"), "Clear only removes prefixed keys")
}

func TestNewRedisCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	c, err := NewRedisCache(context.Background(), "redis://"+mr.Addr()+"/0", "eval:")
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = NewRedisCache(context.Background(), "not a url", "eval:")
	require.Error(t, err)
}
