package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	f "github.com/soffa-projects/jobrpc/core"
	"github.com/soffa-projects/jobrpc/h"
	"github.com/soffa-projects/jobrpc/log"
)

// NewCacheProvider accepts "memory" or a redis:// URL.
func NewCacheProvider(provider string) (f.CacheProvider, error) {
	if provider == "" || provider == "memory" {
		return NewInMemoryCacheProvider(), nil
	}
	res, err := h.ParseUrl(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cache provider: %w", err)
	}
	switch res.Scheme {
	case "redis":
		log.Info("using redis cache provider at %s", res.Host)
		p, err := NewRedisCacheProvider(res)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", provider)
	}
}

func MustNewCacheProvider(provider string) f.CacheProvider {
	p, err := NewCacheProvider(provider)
	if err != nil {
		panic(err)
	}
	return p
}

// ------------------------------------------------------------------------------------------------------------------
// REDIS CACHE PROVIDER IMPL
// ------------------------------------------------------------------------------------------------------------------

type RedisCacheProvider struct {
	client *redis.Client
}

func NewRedisCacheProvider(cfg h.Url) (*RedisCacheProvider, error) {
	client, err := NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return &RedisCacheProvider{client: client}, nil
}

func (p *RedisCacheProvider) Init() error {
	if err := p.Ping(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	log.Info("redis connection successful")
	return nil
}

func (p *RedisCacheProvider) Close() error {
	return p.client.Close()
}

func (p *RedisCacheProvider) Set(ctx context.Context, key string, value any, duration time.Duration) error {
	if duration < 0 {
		duration = 0
	}
	return p.client.Set(ctx, key, value, duration).Err()
}

func (p *RedisCacheProvider) Get(ctx context.Context, key string) (any, error) {
	value, err := p.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (p *RedisCacheProvider) Del(ctx context.Context, key string) error {
	return p.client.Del(ctx, key).Err()
}

func (p *RedisCacheProvider) Ping() error {
	return p.client.Ping(context.Background()).Err()
}

// ------------------------------------------------------------------------------------------------------------------
// IN-MEMORY CACHE PROVIDER IMPL
// ------------------------------------------------------------------------------------------------------------------

type InMemoryCacheProvider struct {
	cache h.Cache
}

func NewInMemoryCacheProvider() *InMemoryCacheProvider {
	return &InMemoryCacheProvider{
		cache: h.MustNewCache(),
	}
}

func (p *InMemoryCacheProvider) Ping() error {
	return nil
}

func (p *InMemoryCacheProvider) Init() error {
	return nil
}

func (p *InMemoryCacheProvider) Close() error {
	return nil
}

func (p *InMemoryCacheProvider) Set(ctx context.Context, key string, value any, duration time.Duration) error {
	p.cache.SetWithTTL(key, value, duration)
	return nil
}

func (p *InMemoryCacheProvider) Get(ctx context.Context, key string) (any, error) {
	value, ok := p.cache.Get(key)
	if !ok {
		return nil, nil
	}
	return value, nil
}

func (p *InMemoryCacheProvider) Del(ctx context.Context, key string) error {
	p.cache.Del(key)
	return nil
}
