package llm

import (
	"context"
	"fmt"

	"github.com/morezero/member-query/pkg/catalog"
	"github.com/morezero/member-query/pkg/conversation"
	"golang.org/x/time/rate"
)

// RateLimitedClient paces model calls with a token bucket shared by all runs.
type RateLimitedClient struct {
	inner   Client
	limiter *rate.Limiter
}

// NewRateLimitedClient wraps inner. A non-positive rps disables pacing.
func NewRateLimitedClient(inner Client, rps float64, burst int) *RateLimitedClient {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedClient{inner: inner, limiter: rate.NewLimiter(limit, burst)}
}

// Complete waits for a token, then calls the inner client. A cancelled or
// expired context while waiting returns the context error.
func (c *RateLimitedClient) Complete(ctx context.Context, turns []conversation.Turn, tools []catalog.Descriptor) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("llm:limiter - wait failed: %w", err)
	}
	return c.inner.Complete(ctx, turns, tools)
}

var _ Client = (*RateLimitedClient)(nil)
