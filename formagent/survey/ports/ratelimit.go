package surveyports

import "context"

// RateLimiter throttles provider calls shared across runs.
type RateLimiter interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
