package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares counters between instances through Redis. The window
// starts with the first INCR and its TTL is set only once (EXPIRE NX).
type RedisLimiter struct {
	client   *redis.Client
	policies Policies
	prefix   string
}

func NewRedisLimiter(client *redis.Client, policies Policies) *RedisLimiter {
	return &RedisLimiter{
		client:   client,
		policies: policies,
		prefix:   "ratelimit:",
	}
}

func (r *RedisLimiter) Allow(ctx context.Context, operation, identity string) (Decision, error) {
	policy, ok := r.policies.lookup(operation)
	if !ok {
		return unlimited(), nil
	}

	redisKey := r.prefix + key(operation, identity)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, policy.Window)
	ttl := pipe.PTTL(ctx, redisKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("redis pipeline: %w", err)
	}

	count := int(incr.Val())
	if count > policy.Limit {
		retryAfter := ttl.Val()
		if retryAfter < 0 {
			retryAfter = policy.Window
		}
		return Decision{Allowed: false, Limit: policy.Limit, RetryAfter: retryAfter}, nil
	}

	return Decision{Allowed: true, Limit: policy.Limit, Remaining: policy.Limit - count}, nil
}

var _ Limiter = (*RedisLimiter)(nil)
