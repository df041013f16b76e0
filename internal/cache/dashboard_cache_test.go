package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Total int    `json:"total"`
	Label string `json:"label"`
}

func newTestCache(t *testing.T, ttl time.Duration) (*DashboardCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewDashboardCache(client, "test:", ttl), mr
}

func TestDashboardCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, time.Minute)

	var got payload
	version, hit, err := c.Get(ctx, "manager", &got)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, Version(0), version)

	require.NoError(t, c.Set(ctx, "manager", version, payload{Total: 7, Label: "all"}))
	assert.True(t, mr.Exists("test:dashboard:v0:manager"))

	_, hit, err = c.Get(ctx, "manager", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, payload{Total: 7, Label: "all"}, got)
}

func TestDashboardCacheExpires(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, 30*time.Second)

	require.NoError(t, c.Set(ctx, "agent", 0, payload{Total: 1}))
	mr.FastForward(31 * time.Second)

	var got payload
	_, hit, err := c.Get(ctx, "agent", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestDashboardCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, time.Minute)

	require.NoError(t, c.Set(ctx, "agent", 0, payload{Total: 1}))
	require.NoError(t, c.Set(ctx, "engineer:e1", 0, payload{Total: 2}))
	require.NoError(t, c.Invalidate(ctx))

	var got payload
	var version Version
	for _, scope := range []string{"agent", "engineer:e1"} {
		v, hit, err := c.Get(ctx, scope, &got)
		require.NoError(t, err)
		assert.False(t, hit, scope)
		version = v
	}
	assert.Equal(t, Version(1), version)

	require.NoError(t, c.Set(ctx, "agent", version, payload{Total: 3}))
	_, hit, err := c.Get(ctx, "agent", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 3, got.Total)
}

func TestDashboardCacheIgnoresWriteFromSupersededGeneration(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, time.Minute)

	var got payload
	before, hit, err := c.Get(ctx, "agent", &got)
	require.NoError(t, err)
	require.False(t, hit)

	// a command commits while the dashboard is being computed
	require.NoError(t, c.Invalidate(ctx))
	require.NoError(t, c.Set(ctx, "agent", before, payload{Total: 1, Label: "before command"}))

	_, hit, err = c.Get(ctx, "agent", &got)
	require.NoError(t, err)
	assert.False(t, hit, "payload computed before the invalidation must not be served")
}

func TestDashboardCacheDisabled(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, 0)
	assert.False(t, c.Enabled())

	require.NoError(t, c.Set(ctx, "agent", 0, payload{Total: 1}))
	assert.Empty(t, mr.Keys())

	var nilCache *DashboardCache
	_, hit, err := nilCache.Get(ctx, "agent", &payload{})
	require.NoError(t, err)
	assert.False(t, hit)
	require.NoError(t, nilCache.Invalidate(ctx))
}
