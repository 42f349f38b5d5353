package rediscache_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/polymigrate/rediscache"
)

func newTestCache(t *testing.T, ttl time.Duration) (*rediscache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cache, err := rediscache.New(rdb, ttl)
	require.NoError(t, err)
	return cache, mr
}

func TestCacheSetGet(t *testing.T) {
	t.Parallel()
	cache, _ := newTestCache(t, time.Hour)
	ctx := context.Background()

	_, found, err := cache.Get(ctx, "102_test_cases_count")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Set(ctx, "102_test_cases_count", []byte("20"), 0))

	val, found, err := cache.Get(ctx, "102_test_cases_count")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("20"), val)
}

func TestCacheTTLExpiry(t *testing.T) {
	t.Parallel()
	cache, mr := newTestCache(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "102_info", []byte(`{"title":"Two Sum"}`), time.Minute))

	_, found, err := cache.Get(ctx, "102_info")
	require.NoError(t, err)
	assert.True(t, found)

	mr.FastForward(2 * time.Minute)

	_, found, err = cache.Get(ctx, "102_info")
	require.NoError(t, err)
	assert.False(t, found, "entry should be gone after TTL expiry")
}

func TestCacheLargeValueRoundTrip(t *testing.T) {
	t.Parallel()
	cache, _ := newTestCache(t, time.Hour)
	ctx := context.Background()

	// Large repetitive payload crosses the compression threshold.
	big := bytes.Repeat([]byte("1 2 3 4 5\n"), 10000)
	require.NoError(t, cache.Set(ctx, "102_test_cases_test_7", big, 0))

	val, found, err := cache.Get(ctx, "102_test_cases_test_7")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, big, val)
}

func TestCacheInvalidate(t *testing.T) {
	t.Parallel()
	cache, _ := newTestCache(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "102_statements", []byte("x"), 0))
	require.NoError(t, cache.Invalidate(ctx, "102_statements"))

	_, found, err := cache.Get(ctx, "102_statements")
	require.NoError(t, err)
	assert.False(t, found)
}
