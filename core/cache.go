package f

import (
	"context"
	"time"
)

// CacheProvider is a key/value store with per-entry expiry. Get returns
// (nil, nil) on a miss.
type CacheProvider interface {
	Init() error
	Close() error
	Ping() error
	Get(ctx context.Context, key string) (any, error)
	Set(ctx context.Context, key string, value any, duration time.Duration) error
	Del(ctx context.Context, key string) error
}
