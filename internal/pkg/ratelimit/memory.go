package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryLimiter keeps counters in process memory. Counters expire together
// with their window, so idle identities are evicted by the cache janitor.
// State is not shared between processes.
type MemoryLimiter struct {
	policies Policies
	counters *cache.Cache
}

// NewMemoryLimiter creates a limiter whose janitor sweeps expired windows
// every cleanupInterval.
func NewMemoryLimiter(policies Policies, cleanupInterval time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		policies: policies,
		counters: cache.New(cache.NoExpiration, cleanupInterval),
	}
}

// Allow counts the request and reports whether it fits in the current window.
func (m *MemoryLimiter) Allow(_ context.Context, operation, identity string) (Decision, error) {
	policy, ok := m.policies.lookup(operation)
	if !ok {
		return unlimited(), nil
	}

	k := key(operation, identity)

	// Add and IncrementInt are each atomic. The loop covers a window
	// expiring between the two calls.
	for attempt := 0; attempt < 3; attempt++ {
		if err := m.counters.Add(k, 1, policy.Window); err == nil {
			return Decision{Allowed: true, Limit: policy.Limit, Remaining: policy.Limit - 1}, nil
		}

		count, err := m.counters.IncrementInt(k, 1)
		if err != nil {
			continue
		}

		if count > policy.Limit {
			return Decision{
				Allowed:    false,
				Limit:      policy.Limit,
				RetryAfter: m.retryAfter(k),
			}, nil
		}

		return Decision{Allowed: true, Limit: policy.Limit, Remaining: policy.Limit - count}, nil
	}

	return Decision{}, fmt.Errorf("rate limit counter %q expired repeatedly", k)
}

func (m *MemoryLimiter) retryAfter(k string) time.Duration {
	_, expiresAt, found := m.counters.GetWithExpiration(k)
	if !found || expiresAt.IsZero() {
		return 0
	}
	if d := time.Until(expiresAt); d > 0 {
		return d
	}
	return 0
}

var _ Limiter = (*MemoryLimiter)(nil)
