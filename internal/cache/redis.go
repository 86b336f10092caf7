package cache

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// RedisOptions configures NewRedisClient.
type RedisOptions struct {
	Address  string
	Password string
	DB       int
}

// NewRedisClient connects to Redis and verifies the connection with a PING.
func NewRedisClient(ctx context.Context, opts RedisOptions, logger zerolog.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Address, err)
	}

	logger.Info().Str("address", opts.Address).Int("db", opts.DB).Msg("connected to redis")
	return rdb, nil
}
