package redis

import (
	"context"
	"testing"
	"time"

	"support_chat_server/pkg/errorx"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestFixedWindowLimiter_OnePerWindow(t *testing.T) {
	mr, client := newTestClient(t)
	limiter := NewFixedWindowLimiter(client, "test:")
	ctx := context.Background()

	ok, err := limiter.Allow(ctx, "C1", 1, 2*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = limiter.Allow(ctx, "C1", 1, 2*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	// 不同会话互不影响
	ok, err = limiter.Allow(ctx, "C2", 1, 2*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.True(t, mr.Exists("test:C1"))
	mr.FastForward(2 * time.Second)

	ok, err = limiter.Allow(ctx, "C1", 1, 2*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFixedWindowLimiter_RedisDown(t *testing.T) {
	mr, client := newTestClient(t)
	limiter := NewFixedWindowLimiter(client, "test:")
	mr.Close()

	_, err := limiter.Allow(context.Background(), "C1", 1, time.Second)
	assert.Equal(t, errorx.CodeCacheError, errorx.GetCode(err))
	assert.Error(t, Ping(context.Background(), client))
}

func TestPing(t *testing.T) {
	_, client := newTestClient(t)
	assert.NoError(t, Ping(context.Background(), client))
}
