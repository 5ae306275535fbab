package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tenantkit/identity-api/internal/core/ports"
)

// RateLimiter implements fixed-window rate limiting on shared Redis counters,
// usable across multiple API instances.
// Key format: ratelimit:<key>:<window_start_unix>
type RateLimiter struct {
	client *redis.Client
}

// NewRateLimiter creates a RateLimiter wrapping the given Redis client.
func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// Check increments the counter for the current window and reports whether the
// request is still within budget.
func (l *RateLimiter) Check(ctx context.Context, key string, maxRequests int64, window time.Duration) (ports.Decision, error) {
	now := time.Now().UTC()
	windowStart := now.Truncate(window)
	bucket := fmt.Sprintf("ratelimit:%s:%d", key, windowStart.Unix())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, bucket)
	pipe.ExpireNX(ctx, bucket, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return ports.Decision{}, fmt.Errorf("rate limit check: %w", err)
	}

	count := incr.Val()
	remaining := maxRequests - count
	if remaining < 0 {
		remaining = 0
	}
	return ports.Decision{
		Allowed:   count <= maxRequests,
		Remaining: remaining,
		ResetAt:   windowStart.Add(window),
	}, nil
}
