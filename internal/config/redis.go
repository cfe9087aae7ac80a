package config

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

// RedisEnabled is false when REDIS_ADDR is empty; the cache and queue are then skipped.
func (e Env) RedisEnabled() bool {
	return e.RedisAddr != ""
}

// ConnectCache opens the availability cache client and pings it.
func ConnectCache(env Env) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     env.RedisAddr,
		Password: env.RedisPassword,
		DB:       env.RedisCacheDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis cache: %w", err)
	}
	return client, nil
}

// QueueRedisOpt is the asynq connection for background tasks.
func QueueRedisOpt(env Env) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     env.RedisAddr,
		Password: env.RedisPassword,
		DB:       env.RedisQueueDB,
	}
}
