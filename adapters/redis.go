package adapters

import (
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/soffa-projects/jobrpc/h"
)

// NewRedisClient builds a client for redis://[user:pass@]host:port[/db]
// (or ?db=N). It does not connect.
func NewRedisClient(cfg h.Url) (*redis.Client, error) {
	db, err := cfg.Database()
	if err != nil {
		return nil, fmt.Errorf("invalid redis database in %q: %w", cfg.Url, err)
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Host,
		Username: cfg.User,
		Password: cfg.Password,
		DB:       db,
	}), nil
}
