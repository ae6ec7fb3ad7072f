package config

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient instantiates a Redis client for the catalog cache. Returns
// nil when the cache is disabled or the server cannot be reached; callers
// degrade gracefully by reading the catalog directly from the database.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	if !cfg.Enabled {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		// Release the connection pool; the discarded client would
		// otherwise keep it alive.
		_ = client.Close()
		return nil
	}
	return client
}
