package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hackgods/hospital-appointment-booking/internal/config"
)

// NewRedisClient connects with the credentials and pool size from cfg.
func NewRedisClient(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	poolSize := cfg.RedisPoolSize
	if poolSize <= 0 {
		poolSize = 20
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Username:     cfg.RedisUsername,
		Password:     cfg.RedisPassword,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     poolSize,
		MinIdleConns: poolSize / 10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
	}

	return rdb, nil
}
