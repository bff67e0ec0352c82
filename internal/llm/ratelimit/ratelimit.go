// Package ratelimit provides a local token-bucket rate limiter for the
// inference pipeline. It smooths outbound call rates ahead of the retry
// layer so a burst of evaluations does not trip provider-side limits.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	llmerrors "github.com/evalforge/evalforge/internal/llm/errors"
	"github.com/evalforge/evalforge/internal/llm/transport"
)

// Config controls the local limiter. RPS is the sustained request rate and
// Burst the bucket size; MaxWait bounds how long a request may queue before
// it is failed as rate-limited rather than left pending.
type Config struct {
	RPS     float64       `json:"rps" yaml:"rps"`
	Burst   int           `json:"burst" yaml:"burst"`
	MaxWait time.Duration `json:"max_wait" yaml:"max_wait"`
}

// DefaultConfig returns limiter settings suited to interactive evaluation:
// 5 requests/second with a small burst and a 10s queue bound.
func DefaultConfig() Config {
	return Config{RPS: 5, Burst: 2, MaxWait: 10 * time.Second}
}

// NewMiddleware wraps a transport handler with local rate limiting. A
// request that cannot acquire a token within MaxWait fails with a
// rate_limit-kind error that participates in the normal backoff rules.
func NewMiddleware(cfg Config) transport.Middleware {
	limiter := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)
	logger := slog.Default().With("component", "ratelimit")

	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			waitCtx := ctx
			if cfg.MaxWait > 0 {
				var cancel context.CancelFunc
				waitCtx, cancel = context.WithTimeout(ctx, cfg.MaxWait)
				defer cancel()
			}

			if err := limiter.Wait(waitCtx); err != nil {
				if ctx.Err() != nil {
					// The caller's own context ended; report that, not a
					// local limit.
					return nil, ctx.Err()
				}
				logger.Warn("local rate limit wait exceeded",
					"operation", req.Operation,
					"model", req.Model,
					"max_wait", cfg.MaxWait)
				return nil, &llmerrors.StatusError{
					StatusCode: 429,
					Message:    "local rate limit wait exceeded",
					Code:       "local_rate_limit",
				}
			}

			return next.Handle(ctx, req)
		})
	}
}
