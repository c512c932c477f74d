package h

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/soffa-projects/jobrpc/log"
)

const DefaultCacheTTL = 1 * time.Hour

var defaultCache Cache

func DefaultCache() Cache {
	if defaultCache != nil {
		return defaultCache
	}
	defaultCache = MustNewCache()
	return defaultCache
}

type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	SetWithTTL(key string, value any, ttl time.Duration)
	Del(key string)
	GetOrSet(key string, function func() (any, error)) any
}

type cacheImpl struct {
	internal *ristretto.Cache[string, any]
}

func NewCache() (Cache, error) {
	internal, err := ristretto.NewCache(&ristretto.Config[string, any]{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	return &cacheImpl{internal: internal}, nil
}

func MustNewCache() Cache {
	c, err := NewCache()
	if err != nil {
		panic(err)
	}
	return c
}

func (c *cacheImpl) Get(key string) (any, bool) {
	return c.internal.Get(key)
}

func (c *cacheImpl) GetOrSet(key string, function func() (any, error)) any {
	if val, ok := c.internal.Get(key); ok {
		return val
	}
	value, err := function()
	if err != nil {
		log.Error("failed to get or set cache: %v", err)
		return nil
	}
	c.Set(key, value)
	return value
}

func (c *cacheImpl) Set(key string, value any) {
	c.SetWithTTL(key, value, DefaultCacheTTL)
}

// SetWithTTL blocks until the write is visible to Get. A ttl <= 0 keeps
// the entry until it is evicted.
func (c *cacheImpl) SetWithTTL(key string, value any, ttl time.Duration) {
	if ttl < 0 {
		ttl = 0
	}
	c.internal.SetWithTTL(key, value, 1, ttl)
	c.internal.Wait()
}

func (c *cacheImpl) Del(key string) {
	c.internal.Del(key)
}
