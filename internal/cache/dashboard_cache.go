package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of go-redis used by the cache.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// DashboardCache stores aggregated dashboard payloads as JSON.
//
// Keys embed a generation counter. Invalidate bumps the counter so every
// previously cached scope becomes unreachable at once and expires on its TTL.
type DashboardCache struct {
	client RedisClient
	prefix string
	ttl    time.Duration
}

// NewDashboardCache builds a cache. A nil client or zero ttl disables it.
func NewDashboardCache(client RedisClient, prefix string, ttl time.Duration) *DashboardCache {
	return &DashboardCache{client: client, prefix: prefix, ttl: ttl}
}

// Enabled reports whether lookups can ever hit.
func (c *DashboardCache) Enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// Version identifies the cache generation a lookup observed.
type Version int64

// Get decodes the cached payload for scope into dest. It reports false on a
// miss, together with the generation it read; pass that generation to Set so
// a payload computed before an Invalidate never lands in the newer generation.
func (c *DashboardCache) Get(ctx context.Context, scope string, dest any) (Version, bool, error) {
	if !c.Enabled() {
		return 0, false, nil
	}
	version, err := c.currentVersion(ctx)
	if err != nil {
		return 0, false, err
	}
	raw, err := c.client.Get(ctx, c.key(version, scope)).Bytes()
	if errors.Is(err, redis.Nil) {
		return version, false, nil
	}
	if err != nil {
		return version, false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return version, false, fmt.Errorf("decode cached %s: %w", scope, err)
	}
	return version, true, nil
}

// Set stores value under scope in generation version for the configured ttl.
// A write for a superseded generation is unreachable and simply expires.
func (c *DashboardCache) Set(ctx context.Context, scope string, version Version, value any) error {
	if !c.Enabled() {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", scope, err)
	}
	return c.client.Set(ctx, c.key(version, scope), payload, c.ttl).Err()
}

// Invalidate drops every cached scope.
func (c *DashboardCache) Invalidate(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Incr(ctx, c.versionKey()).Err()
}

func (c *DashboardCache) currentVersion(ctx context.Context) (Version, error) {
	version, err := c.client.Get(ctx, c.versionKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}
	return Version(version), nil
}

func (c *DashboardCache) key(version Version, scope string) string {
	return fmt.Sprintf("%sdashboard:v%d:%s", c.prefix, version, scope)
}

func (c *DashboardCache) versionKey() string {
	return c.prefix + "dashboard:version"
}
