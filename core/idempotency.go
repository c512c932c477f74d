package f

import (
	"context"
)

// IdempotencyStore remembers which remote job a logical call was handed,
// so a retry can resume polling instead of enqueueing the command twice.
// The TTL is configured at the store level, not per operation.
type IdempotencyStore interface {
	// Get returns the job ID recorded for key, or "" when there is none.
	Get(ctx context.Context, key string) (string, error)

	Set(ctx context.Context, key string, jobID string) error

	Delete(ctx context.Context, key string) error
}
