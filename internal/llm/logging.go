package llm

import (
	"context"
	"log/slog"
	"time"

	llmerrors "github.com/evalforge/evalforge/internal/llm/errors"
	"github.com/evalforge/evalforge/internal/llm/transport"
)

// NewLoggingMiddleware logs every call crossing the pipeline with its
// operation, model, latency, and classified failure kind. Credentials and
// message content are never logged.
func NewLoggingMiddleware() transport.Middleware {
	logger := slog.Default().With("component", "llm")

	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			start := time.Now()
			resp, err := next.Handle(ctx, req)
			elapsed := time.Since(start)

			if err != nil {
				ce := llmerrors.Classify(err)
				logger.Warn("inference call failed",
					"operation", req.Operation,
					"provider", req.Provider,
					"model", req.Model,
					"kind", ce.Kind,
					"retryable", ce.Retryable,
					"elapsed", elapsed)
				return nil, err
			}

			logger.Debug("inference call completed",
				"operation", req.Operation,
				"provider", req.Provider,
				"model", req.Model,
				"total_tokens", resp.Usage.TotalTokens,
				"elapsed", elapsed)
			return resp, nil
		})
	}
}
