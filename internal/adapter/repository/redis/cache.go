package redis

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// DefaultCachePrefix namespaces cached ledger reads such as amortization plans.
const DefaultCachePrefix = "loanledger:cache:"

// Cache implements usecase.Cache using Redis. Values are opaque bytes; the
// loan use case stores JSON-encoded schedules under "schedule:<number>".
type Cache struct {
	client  *redis.Client
	prefix  string
	lookups *prometheus.CounterVec
}

// NewCache creates a new Cache.
func NewCache(client *redis.Client) *Cache {
	return &Cache{
		client: client,
		prefix: DefaultCachePrefix,
	}
}

// WithLookupCounter counts Get calls by result: hit, miss or error.
func (c *Cache) WithLookupCounter(lookups *prometheus.CounterVec) *Cache {
	c.lookups = lookups
	return c
}

// Get retrieves a value by key. A miss returns nil without error.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		c.observe("miss")
		return nil, nil
	case err != nil:
		c.observe("error")
		return nil, err
	}

	c.observe("hit")
	return val, nil
}

// Set stores a value with TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}

// Delete removes a key. Deleting an absent key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}

func (c *Cache) observe(result string) {
	if c.lookups != nil {
		c.lookups.WithLabelValues(result).Inc()
	}
}
