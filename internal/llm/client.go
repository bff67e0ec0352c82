// Package llm provides the resilient inference client for the evaluation
// subsystem. It assembles the middleware pipeline (local rate limiting,
// bounded retry with exponential backoff, then the HTTP round trip) and is
// the only path through which outbound network calls are made.
package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/evalforge/evalforge/internal/cache"
	"github.com/evalforge/evalforge/internal/llm/circuitbreaker"
	llmerrors "github.com/evalforge/evalforge/internal/llm/errors"
	"github.com/evalforge/evalforge/internal/llm/providers"
	"github.com/evalforge/evalforge/internal/llm/ratelimit"
	"github.com/evalforge/evalforge/internal/llm/retry"
	"github.com/evalforge/evalforge/internal/llm/transport"
)

// Config assembles the client's resilience settings.
type Config struct {
	// HTTPClient overrides the default HTTP client, mainly for tests.
	HTTPClient *http.Client

	// Retry is the backoff policy applied to every call.
	Retry retry.Policy

	// RateLimit bounds the local outbound request rate.
	RateLimit ratelimit.Config

	// Recovery receives retry notifications; may be nil.
	Recovery retry.Recovery

	// Responses caches deterministic calls when non-nil.
	Responses *cache.ResponseCache[*transport.Response]

	// Breaker guards each provider against cascading failures.
	Breaker circuitbreaker.Config
}

// DefaultConfig returns production defaults: three retries with capped
// exponential backoff and a small local token bucket.
func DefaultConfig() Config {
	return Config{
		Retry:     retry.DefaultPolicy(),
		RateLimit: ratelimit.DefaultConfig(),
		Breaker:   circuitbreaker.DefaultConfig(),
	}
}

// Client executes inference calls through the resilience pipeline. Construct
// with NewClient; the zero value is unusable.
type Client struct {
	handler transport.Handler
	router  *providers.Router
}

// NewClient builds a client with the middleware chain
// caching (optional) → ratelimit → retry → circuit breaker → HTTP. The router starts with the
// OpenAI adapter registered; additional OpenAI-compatible providers can be
// added via RegisterProvider.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// The per-request context deadline is the effective timeout; the
		// client-level timeout is a backstop only.
		httpClient = &http.Client{Timeout: 2 * transport.DefaultTimeout}
	}

	router := providers.NewRouter()
	core := transport.NewHTTPHandler(httpClient, router)

	middlewares := []transport.Middleware{NewLoggingMiddleware()}
	if cfg.Responses != nil {
		// Cache hits bypass the rate limiter and retry machinery entirely.
		middlewares = append(middlewares, NewCachingMiddleware(cfg.Responses))
	}
	middlewares = append(middlewares,
		ratelimit.NewMiddleware(cfg.RateLimit),
		retry.NewMiddleware(cfg.Retry, cfg.Recovery),
		circuitbreaker.NewMiddleware(circuitbreaker.New(cfg.Breaker)),
	)
	handler := transport.Chain(core, middlewares...)

	return &Client{handler: handler, router: router}
}

// RegisterProvider adds an OpenAI-compatible endpoint under its own name.
func (c *Client) RegisterProvider(name, endpoint string) {
	c.router.Register(providers.NewCompatibleAdapter(name, endpoint))
}

// Complete executes an inference call and validates the response against the
// wire contract. Transport success with an invalid payload fails with a
// validation-kind error; the two failure modes are deliberately distinct.
func (c *Client) Complete(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	resp, err := c.CompleteRaw(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := transport.ValidateResponse(resp); err != nil {
		return nil, llmerrors.Classify(err).
			WithContext("operation", string(req.Operation)).
			WithContext("model", req.Model)
	}
	return resp, nil
}

// CompleteRaw executes an inference call without wire-contract validation.
// Callers that need the undecoded payload use Response.RawBody.
func (c *Client) CompleteRaw(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	resp, err := c.handler.Handle(ctx, req)
	if err != nil {
		return nil, llmerrors.Classify(err).
			WithContext("operation", string(req.Operation)).
			WithContext("model", req.Model)
	}
	return resp, nil
}

// ValidateCredential performs the lightweight authenticated probe against
// the provider. It distinguishes a well-formed key the provider rejects
// (authentication-kind error) from transport trouble; locally malformed keys
// are rejected by the vault before any network call happens.
func (c *Client) ValidateCredential(ctx context.Context, provider, apiKey string) error {
	req := &transport.Request{
		Operation: transport.OpProbe,
		Provider:  provider,
		APIKey:    apiKey,
	}

	if _, err := c.handler.Handle(ctx, req); err != nil {
		return fmt.Errorf("credential probe failed: %w", llmerrors.Classify(err))
	}
	return nil
}
