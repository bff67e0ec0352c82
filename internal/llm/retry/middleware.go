package retry

import (
	"context"

	"github.com/evalforge/evalforge/internal/llm/transport"
)

// NewMiddleware wraps a transport handler with retry under the given policy.
// The request's operation id threads through to classified errors and
// recovery bookkeeping, so a retried call keeps its correlation key.
func NewMiddleware(policy Policy, recovery Recovery) transport.Middleware {
	executor := NewExecutor(policy, recovery)

	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			resp, err := Do(ctx, executor, req.OperationID, func(ctx context.Context) (*transport.Response, error) {
				return next.Handle(ctx, req)
			})
			if err != nil {
				return nil, err
			}
			return resp, nil
		})
	}
}
