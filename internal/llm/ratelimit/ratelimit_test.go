package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmerrors "github.com/evalforge/evalforge/internal/llm/errors"
	"github.com/evalforge/evalforge/internal/llm/transport"
)

func passthrough() (transport.Handler, *int) {
	calls := 0
	return transport.HandlerFunc(func(context.Context, *transport.Request) (*transport.Response, error) {
		calls++
		return &transport.Response{}, nil
	}), &calls
}

func TestMiddleware_AllowsWithinBurst(t *testing.T) {
	next, calls := passthrough()
	h := NewMiddleware(Config{RPS: 1, Burst: 2, MaxWait: 50 * time.Millisecond})(next)

	for i := 0; i < 2; i++ {
		_, err := h.Handle(context.Background(), &transport.Request{Operation: transport.OpPrimary})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, *calls)
}

func TestMiddleware_FailsAsRateLimitWhenSaturated(t *testing.T) {
	next, _ := passthrough()
	h := NewMiddleware(Config{RPS: 0.001, Burst: 1, MaxWait: 20 * time.Millisecond})(next)

	_, err := h.Handle(context.Background(), &transport.Request{})
	require.NoError(t, err, "first request consumes the burst token")

	_, err = h.Handle(context.Background(), &transport.Request{})
	require.Error(t, err)

	ce := llmerrors.Classify(err)
	assert.Equal(t, llmerrors.KindRateLimit, ce.Kind)
	assert.True(t, ce.Retryable)
}

func TestMiddleware_CallerCancellationWins(t *testing.T) {
	next, _ := passthrough()
	h := NewMiddleware(Config{RPS: 0.001, Burst: 1, MaxWait: time.Minute})(next)

	_, err := h.Handle(context.Background(), &transport.Request{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.Handle(ctx, &transport.Request{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
