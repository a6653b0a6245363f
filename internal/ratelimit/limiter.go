package ratelimit

import "context"

// RateLimiter bounds how many country requests the workers push into a regional store per second.
type RateLimiter interface {
	Allow(ctx context.Context, country string) (bool, error)
	Wait(ctx context.Context, country string) error
}
