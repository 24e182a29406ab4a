package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real server: TEST_REDIS_URL=redis://localhost:6379/15 go test ./pkg/adapters/cache
func newTestCache(t *testing.T) *RedisImageCache {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	c, err := NewRedisImageCache(context.Background(), url, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRedisImageCache(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	_, ok := c.Get(ctx, "qr:img:redistest:256")
	assert.False(t, ok)

	c.Set(ctx, "qr:img:redistest:256", []byte("png-256"))
	c.Set(ctx, "qr:img:redistest:512", []byte("png-512"))
	c.Set(ctx, "qr:img:other:256", []byte("other"))

	got, ok := c.Get(ctx, "qr:img:redistest:256")
	require.True(t, ok)
	assert.Equal(t, []byte("png-256"), got)

	c.Delete(ctx, "qr:img:redistest:")
	_, ok = c.Get(ctx, "qr:img:redistest:256")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "qr:img:redistest:512")
	assert.False(t, ok)

	_, ok = c.Get(ctx, "qr:img:other:256")
	assert.True(t, ok)
	c.Delete(ctx, "qr:img:other:")
}

func TestNewRedisImageCacheBadURL(t *testing.T) {
	_, err := NewRedisImageCache(context.Background(), "not-a-url", time.Minute)
	assert.Error(t, err)
}
