// Package redis wraps connection setup for the shared go-redis client used
// by the candle notifier.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ClientConfig holds Redis connection parameters.
type ClientConfig struct {
	Addr       string
	DB         int
	Password   string
	PoolSize   int
	MaxRetries int
}

// Connect builds a go-redis client from config and verifies connectivity
// with a bounded ping before returning, so a misconfigured Redis address
// fails fast at startup instead of surfacing on the first publish.
func Connect(config ClientConfig, logger *zap.Logger) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:       config.Addr,
		DB:         config.DB,
		Password:   config.Password,
		PoolSize:   config.PoolSize,
		MaxRetries: config.MaxRetries,
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", config.Addr, err)
	}

	logger.Info("Redis client connected",
		zap.String("addr", opts.Addr),
		zap.Int("db", opts.DB),
		zap.Int("pool_size", opts.PoolSize))

	return client, nil
}

// BuildChannelName builds a standardized channel name.
func BuildChannelName(parts ...string) string {
	name := parts[0]
	for _, p := range parts[1:] {
		name += ":" + p
	}
	return name
}
