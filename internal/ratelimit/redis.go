package ratelimit

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window counter over Redis, shared across instances.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedisLimiter constructs a RedisLimiter on an established client.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window}
}

// Allow increments the window counter for key and compares it to the limit.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := fmt.Sprintf("ratelimit:%s:%d", key, time.Now().UnixMilli()/l.window.Milliseconds())

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, bucket)
	pipe.Expire(ctx, bucket, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return count.Val() <= int64(l.limit), nil
}

// New builds a Redis-backed limiter when an address is configured and Redis
// answers a ping, otherwise an in-process limiter.
func New(redisAddr string, limit int, window time.Duration) Limiter {
	if redisAddr == "" {
		log.Printf("ratelimit using in-memory limiter: no redis address")
		return NewMemoryLimiter(limit, window)
	}

	client := redis.NewClient(&redis.Options{Addr: redisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("ratelimit using in-memory limiter: %v", err)
		_ = client.Close()
		return NewMemoryLimiter(limit, window)
	}

	log.Printf("ratelimit connected redis addr=%s", redisAddr)
	return NewRedisLimiter(client, limit, window)
}
