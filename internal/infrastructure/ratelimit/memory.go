// Package ratelimit provides an in-process fixed-window rate limiter for
// single-instance deployments and tests. Multi-instance deployments should
// use the Redis-backed limiter instead so counters are shared.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/tenantkit/identity-api/internal/core/ports"
)

type bucket struct {
	count       int64
	windowStart time.Time
}

// MemoryLimiter counts requests per key in fixed windows. Counters live in a
// mutex-guarded map; a background sweep drops stale buckets to bound memory.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Check(_ context.Context, key string, maxRequests int64, window time.Duration) (ports.Decision, error) {
	now := l.now().UTC()
	windowStart := now.Truncate(window)

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || b.windowStart.Before(windowStart) {
		b = &bucket{windowStart: windowStart}
		l.buckets[key] = b
	}
	b.count++

	remaining := maxRequests - b.count
	if remaining < 0 {
		remaining = 0
	}
	return ports.Decision{
		Allowed:   b.count <= maxRequests,
		Remaining: remaining,
		ResetAt:   windowStart.Add(window),
	}, nil
}

// StartCleanup sweeps buckets older than maxAge on the given interval until
// ctx is cancelled. Skipping it entirely only costs slow memory growth.
func (l *MemoryLimiter) StartCleanup(ctx context.Context, interval, maxAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.sweep(maxAge)
			}
		}
	}()
}

func (l *MemoryLimiter) sweep(maxAge time.Duration) {
	cutoff := l.now().UTC().Add(-maxAge)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if b.windowStart.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}
