// Package ratelimit implements sliding-window request limits keyed by an
// arbitrary string (client IP, email, or a combination).
//
// Two stores are provided. MemoryStore keeps hits in process memory and is
// only correct for a single instance. RedisStore keeps them in a sorted set
// per key so that every instance behind a load balancer shares one window.
package ratelimit

import (
	"context"
	"time"
)

// Rule is a limit of Limit hits per Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Result describes the outcome of a single Allow call.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Store records a hit for key and reports whether it fits inside rule.
type Store interface {
	Allow(ctx context.Context, key string, rule Rule) (Result, error)
}
