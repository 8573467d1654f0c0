package analytics

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestCacheBuildKeyFollowsVersion(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache(t)

	key, err := cache.BuildKey(ctx, "analytics", "chart")
	require.NoError(t, err)
	assert.Equal(t, "analytics:chart:v1", key)

	ver, err := cache.Bump(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ver)

	key, err = cache.BuildKey(ctx, "analytics", "chart")
	require.NoError(t, err)
	assert.Equal(t, "analytics:chart:v2", key)
}

func TestCacheFetchJSONRecordsLookups(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache(t)
	var hits, misses, loads int
	cache.OnLookup(func(hit bool) {
		if hit {
			hits++
		} else {
			misses++
		}
	})
	loader := func(context.Context) (any, error) {
		loads++
		return map[string]int{"n": 3}, nil
	}

	for i := 0; i < 3; i++ {
		var got map[string]int
		require.NoError(t, cache.FetchJSON(ctx, "k", &got, loader))
		assert.Equal(t, 3, got["n"])
	}
	assert.Equal(t, 1, loads)
	assert.Equal(t, 1, misses)
	assert.Equal(t, 2, hits)
}

func TestCacheNilClientLoadsDirectly(t *testing.T) {
	var cache *Cache
	var got []int
	err := cache.FetchJSON(context.Background(), "k", &got, func(context.Context) (any, error) {
		return []int{1, 2}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got)

	ver, err := cache.Bump(context.Background())
	require.NoError(t, err)
	assert.Zero(t, ver)
}

func TestCacheListenForInvalidation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cache := newTestCache(t)

	versions := make(chan int64, 1)
	require.NoError(t, cache.ListenForInvalidation(ctx, func(v int64) { versions <- v }))

	_, err := cache.Version(ctx)
	require.NoError(t, err)
	_, err = cache.Bump(ctx)
	require.NoError(t, err)

	select {
	case v := <-versions:
		assert.Equal(t, int64(2), v)
	case <-time.After(2 * time.Second):
		t.Fatalf("bump not observed")
	}
}
