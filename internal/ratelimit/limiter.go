package ratelimit

import "context"

// RateLimiter controls outbound throughput per provider scope.
type RateLimiter interface {
	Allow(ctx context.Context, scope string) (bool, error)
	Wait(ctx context.Context, scope string) error
}
