package redis

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cachedPlan = `[{"number":1,"due_date":"2024-02-15","total":"400000"}]`

func TestCacheStoresSchedule(t *testing.T) {
	client, mr := newTestRedisClient(t)
	cache := NewCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "schedule:90001", []byte(cachedPlan), time.Hour))

	val, err := cache.Get(ctx, "schedule:90001")
	require.NoError(t, err)
	assert.JSONEq(t, cachedPlan, string(val))
	assert.True(t, mr.Exists(DefaultCachePrefix+"schedule:90001"))
	assert.Equal(t, time.Hour, mr.TTL(DefaultCachePrefix+"schedule:90001"))
}

func TestCacheMissAndExpiry(t *testing.T) {
	client, mr := newTestRedisClient(t)
	cache := NewCache(client)
	ctx := context.Background()

	val, err := cache.Get(ctx, "schedule:404")
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, cache.Set(ctx, "schedule:90002", []byte(cachedPlan), time.Minute))
	mr.FastForward(2 * time.Minute)

	val, err = cache.Get(ctx, "schedule:90002")
	require.NoError(t, err)
	assert.Nil(t, val, "expired plans miss")
}

func TestCacheDeleteInvalidatesPlan(t *testing.T) {
	client, mr := newTestRedisClient(t)
	cache := NewCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "schedule:90003", []byte(cachedPlan), time.Hour))
	require.NoError(t, cache.Delete(ctx, "schedule:90003"))
	require.NoError(t, cache.Delete(ctx, "schedule:90003"))

	assert.False(t, mr.Exists(DefaultCachePrefix+"schedule:90003"))
}

func TestCacheCountsLookups(t *testing.T) {
	client, mr := newTestRedisClient(t)
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_lookups_total"}, []string{"result"})
	cache := NewCache(client).WithLookupCounter(lookups)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "schedule:90004", []byte(cachedPlan), time.Hour))
	_, _ = cache.Get(ctx, "schedule:90004")
	_, _ = cache.Get(ctx, "schedule:90004")
	_, _ = cache.Get(ctx, "schedule:1")

	mr.SetError("ERR cache unavailable")
	_, err := cache.Get(ctx, "schedule:90004")
	require.Error(t, err)
	mr.SetError("")

	assert.Equal(t, float64(2), testutil.ToFloat64(lookups.WithLabelValues("hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(lookups.WithLabelValues("miss")))
	assert.Equal(t, float64(1), testutil.ToFloat64(lookups.WithLabelValues("error")))
}
