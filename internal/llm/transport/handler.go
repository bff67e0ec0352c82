package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	llmerrors "github.com/evalforge/evalforge/internal/llm/errors"
)

// Router selects the provider adapter for a request. Implemented by the
// providers package.
type Router interface {
	Pick(provider string) (ProviderAdapter, error)
}

// ProviderAdapter abstracts provider-specific HTTP communication. Implemented
// by the providers package.
type ProviderAdapter interface {
	// Build constructs the provider HTTP request from a normalized request.
	Build(ctx context.Context, req *Request) (*http.Request, error)

	// Parse extracts a normalized Response, or synthesizes a status-carrying
	// error for non-success responses so the classifier can act on it.
	Parse(httpResp *http.Response) (*Response, error)

	// Name returns the provider identifier.
	Name() string
}

// Handler processes inference requests through the composable middleware
// pipeline. Core abstraction enabling retry, rate limiting, and caching as
// cross-cutting layers.
type Handler interface {
	Handle(ctx context.Context, req *Request) (*Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, *Request) (*Response, error)

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Middleware transforms a Handler into an enhanced Handler.
type Middleware func(Handler) Handler

// Chain builds a middleware pipeline around a core handler. Middleware
// executes in the order provided, first middleware outermost.
func Chain(h Handler, middlewares ...Middleware) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// NewHTTPHandler creates the core handler that performs the actual HTTP
// round trip through the adapter picked by the router.
func NewHTTPHandler(client *http.Client, router Router) Handler {
	return &httpHandler{client: client, router: router}
}

type httpHandler struct {
	client *http.Client
	router Router
}

// Handle performs one HTTP round trip under a hard per-call deadline.
// A timed-out call surfaces as context.DeadlineExceeded and classifies as a
// retryable timeout; a non-success status surfaces as a StatusError from the
// adapter's Parse.
func (h *httpHandler) Handle(ctx context.Context, req *Request) (*Response, error) {
	adapter, err := h.router.Pick(req.Provider)
	if err != nil {
		return nil, fmt.Errorf("failed to select provider: %w", err)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := adapter.Build(reqCtx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	start := time.Now()
	httpResp, err := h.client.Do(httpReq)
	latency := time.Since(start)

	if err != nil {
		// No response received: connectivity or deadline failure, left for
		// the classifier to split apart.
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	resp, err := adapter.Parse(httpResp)
	if err != nil {
		return nil, err
	}

	resp.LatencyMs = latency.Milliseconds()
	return resp, nil
}

// ValidateResponse enforces the wire contract before a response is handed to
// the evaluation engine: at least one choice, non-empty message content, and
// a usage block.
func ValidateResponse(resp *Response) error {
	if resp == nil {
		return &llmerrors.ValidationError{Message: "nil response"}
	}
	if len(resp.Choices) == 0 {
		return &llmerrors.ValidationError{
			Field:   "choices",
			Message: "response contains no completion choices",
			Cause:   llmerrors.ErrEmptyResponse,
		}
	}
	if resp.Choices[0].Message.Content == "" {
		return &llmerrors.ValidationError{
			Field:   "choices[0].message.content",
			Message: "completion choice has empty content",
			Cause:   llmerrors.ErrInvalidResponse,
		}
	}
	if resp.Usage.TotalTokens == 0 && resp.Usage.PromptTokens == 0 && resp.Usage.CompletionTokens == 0 {
		return &llmerrors.ValidationError{
			Field:   "usage",
			Message: "response lacks a usage block",
			Cause:   llmerrors.ErrInvalidResponse,
		}
	}
	return nil
}
