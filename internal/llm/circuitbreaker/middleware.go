package circuitbreaker

import (
	"context"

	"github.com/evalforge/evalforge/internal/llm/transport"
)

// NewMiddleware gates each request on the provider's circuit and records
// the outcome. Sits innermost in the chain so every retry attempt consults
// the circuit individually.
func NewMiddleware(b *Breaker) transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			if err := b.Allow(req.Provider); err != nil {
				return nil, err
			}

			resp, err := next.Handle(ctx, req)
			b.Record(req.Provider, err)
			return resp, err
		})
	}
}
