package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one sorted set per key, scored by hit time in microseconds.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (s *RedisStore) Allow(ctx context.Context, key string, rule Rule) (Result, error) {
	k := s.prefix + key
	now := time.Now()
	member := strconv.FormatInt(now.UnixMicro(), 10) + "-" + uuid.NewString()
	floor := strconv.FormatInt(now.Add(-rule.Window).UnixMicro(), 10)

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, k, "-inf", "("+floor)
	pipe.ZAdd(ctx, k, redis.Z{Score: float64(now.UnixMicro()), Member: member})
	card := pipe.ZCard(ctx, k)
	pipe.PExpire(ctx, k, rule.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("redis rate limit %q: %w", key, err)
	}

	count := int(card.Val())
	if count > rule.Limit {
		if err := s.client.ZRem(ctx, k, member).Err(); err != nil {
			return Result{}, fmt.Errorf("redis rate limit rollback %q: %w", key, err)
		}
		return Result{Allowed: false, RetryAfter: s.retryAfter(ctx, k, now, rule.Window)}, nil
	}

	return Result{Allowed: true, Remaining: rule.Limit - count}, nil
}

func (s *RedisStore) retryAfter(ctx context.Context, key string, now time.Time, window time.Duration) time.Duration {
	oldest, err := s.client.ZRangeWithScores(ctx, key, 0, 0).Result()
	if err != nil || len(oldest) == 0 {
		return window
	}
	first := time.UnixMicro(int64(oldest[0].Score))
	if d := first.Add(window).Sub(now); d > 0 {
		return d
	}
	return 0
}
