// Package ratelimit throttles requests per (operation, client identity) pair
// with a fixed window: the first request opens a window of Policy.Window and
// at most Policy.Limit requests are allowed until it elapses.
package ratelimit

import (
	"context"
	"time"
)

// Operation keys used by the HTTP layer.
const (
	OperationContact = "send-message"
	OperationChat    = "chat"
)

// Policy is a quota of Limit requests per Window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether a request may proceed.
type Limiter interface {
	Allow(ctx context.Context, operation, identity string) (Decision, error)
}

// Policies maps an operation key to its quota. Operations without a policy
// are not limited.
type Policies map[string]Policy

func (p Policies) lookup(operation string) (Policy, bool) {
	policy, ok := p[operation]
	if !ok || policy.Limit <= 0 || policy.Window <= 0 {
		return Policy{}, false
	}
	return policy, true
}

func unlimited() Decision {
	return Decision{Allowed: true}
}

func key(operation, identity string) string {
	return operation + "|" + identity
}
