package adapters

import (
	"context"
	"fmt"
	"time"

	f "github.com/soffa-projects/jobrpc/core"
)

// IdempotencyStore implements f.IdempotencyStore on top of any cache provider.
type IdempotencyStore struct {
	cache f.CacheProvider
	ttl   time.Duration
}

// NewIdempotencyStore creates a store whose entries expire after ttl.
// A ttl <= 0 keeps entries until they are deleted or evicted.
func NewIdempotencyStore(cache f.CacheProvider, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		cache: cache,
		ttl:   ttl,
	}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	result, err := s.cache.Get(ctx, s.formatKey(key))
	if err != nil {
		return "", fmt.Errorf("failed to get idempotency key: %w", err)
	}
	if result == nil {
		return "", nil
	}
	jobID, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("idempotency key %s holds %T, expected a job id", key, result)
	}
	return jobID, nil
}

func (s *IdempotencyStore) Set(ctx context.Context, key string, jobID string) error {
	if err := s.cache.Set(ctx, s.formatKey(key), jobID, s.ttl); err != nil {
		return fmt.Errorf("failed to set idempotency key: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) Delete(ctx context.Context, key string) error {
	if err := s.cache.Del(ctx, s.formatKey(key)); err != nil {
		return fmt.Errorf("failed to delete idempotency key: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) formatKey(key string) string {
	return fmt.Sprintf("idempotency:%s", key)
}
