package embed

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedEmbedder spaces out calls to a remote provider
type RateLimitedEmbedder struct {
	next    Embedder
	limiter *rate.Limiter
}

// NewRateLimited wraps next with a token bucket of requestsPerSecond and burst.
func NewRateLimited(next Embedder, requestsPerSecond float64, burst int) *RateLimitedEmbedder {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedEmbedder{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Name returns the wrapped provider's name
func (r *RateLimitedEmbedder) Name() string { return r.next.Name() }

// Embed waits for rate limit clearance, then calls the wrapped embedder
func (r *RateLimitedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, unavailable(r.next.Name(), err)
	}
	return r.next.Embed(ctx, text)
}
