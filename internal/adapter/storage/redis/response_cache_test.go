package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettledResponseCache_SetAndGet(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewSettledResponseCache(client)
	ctx := context.Background()

	key := "settle:bank1:7:80|abc123:"
	value := []byte(`{"external_transaction_id":"abc123","balance_cents":920}`)

	// Get before set => nil
	result, err := cache.Get(ctx, key)
	assert.NoError(t, err)
	assert.Nil(t, result)

	// Set
	err = cache.Set(ctx, key, value, 24*time.Hour)
	require.NoError(t, err)

	// Get after set
	result, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, value, result)
}

func TestSettledResponseCache_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewSettledResponseCache(client)
	ctx := context.Background()

	err := cache.Set(ctx, "settle:bank1:7:x:y", []byte("payload"), 1*time.Second)
	require.NoError(t, err)

	// Fast-forward time in miniredis
	s.FastForward(2 * time.Second)

	result, err := cache.Get(ctx, "settle:bank1:7:x:y")
	assert.NoError(t, err)
	assert.Nil(t, result, "expired key should return nil")
}

func TestSettledResponseCache_KeyPrefix(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewSettledResponseCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k1", []byte("v1"), time.Hour))

	// Stored under the settled: namespace, invisible under the bare key.
	assert.True(t, s.Exists("settled:k1"))
	assert.False(t, s.Exists("k1"))
}

func TestHealthCheck_Ping(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})

	hc := NewHealthCheck(client)
	assert.Equal(t, "redis", hc.Name())
	assert.NoError(t, hc.Ping(context.Background()))

	s.Close()
	assert.Error(t, hc.Ping(context.Background()))
}
