package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_StatusMapping(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantKind      ErrorKind
		wantRetryable bool
	}{
		{"401 is authentication", 401, KindAuthentication, false},
		{"429 is rate limit", 429, KindRateLimit, true},
		{"408 is timeout", 408, KindTimeout, true},
		{"504 is timeout", 504, KindTimeout, true},
		{"500 is retryable transport", 500, KindTransport, true},
		{"502 is retryable transport", 502, KindTransport, true},
		{"503 is retryable transport", 503, KindTransport, true},
		{"400 is permanent transport", 400, KindTransport, false},
		{"403 is permanent transport", 403, KindTransport, false},
		{"404 is permanent transport", 404, KindTransport, false},
		{"418 is permanent transport", 418, KindTransport, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := Classify(&StatusError{StatusCode: tt.status, Message: "boom"})
			require.NotNil(t, ce)
			assert.Equal(t, tt.wantKind, ce.Kind)
			assert.Equal(t, tt.wantRetryable, ce.Retryable)
			assert.Equal(t, tt.status, ce.Context["status_code"])
		})
	}
}

func TestClassify_ConnectivityFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"op error", &net.OpError{Op: "dial", Err: errors.New("connection refused")}},
		{"dns error", &net.DNSError{Err: "no such host", Name: "api.example.com"}},
		{"string pattern", errors.New("dial tcp: connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := Classify(tt.err)
			require.NotNil(t, ce)
			assert.Equal(t, KindNetwork, ce.Kind)
			assert.True(t, ce.Retryable)
		})
	}
}

func TestClassify_ContextCancellation(t *testing.T) {
	for _, err := range []error{context.DeadlineExceeded, context.Canceled} {
		ce := Classify(err)
		require.NotNil(t, ce)
		assert.Equal(t, KindTimeout, ce.Kind)
		assert.True(t, ce.Retryable)
	}
}

func TestClassify_MessagePatterns(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantKind      ErrorKind
		wantRetryable bool
	}{
		{"validation marker", errors.New("request validation failed"), KindValidation, false},
		{"invalid marker", errors.New("invalid request body"), KindValidation, false},
		{"timeout marker", errors.New("operation timed out"), KindTimeout, true},
		{"abort marker", errors.New("request aborted by caller"), KindTimeout, true},
		{"default unknown", errors.New("something odd happened"), KindUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := Classify(tt.err)
			require.NotNil(t, ce)
			assert.Equal(t, tt.wantKind, ce.Kind)
			assert.Equal(t, tt.wantRetryable, ce.Retryable)
		})
	}
}

func TestClassify_TypedValidationError(t *testing.T) {
	ce := Classify(&ValidationError{Field: "metrics", Message: "score out of range"})
	require.NotNil(t, ce)
	assert.Equal(t, KindValidation, ce.Kind)
	assert.False(t, ce.Retryable)
	assert.Equal(t, "metrics", ce.Context["field"])
}

func TestClassify_Idempotent(t *testing.T) {
	original := Classify(&StatusError{StatusCode: 503, Message: "unavailable"})
	original.RetryCount = 2

	again := Classify(fmt.Errorf("wrapped: %w", original))
	assert.Same(t, original, again, "classification must pass through an already-classified error")
	assert.Equal(t, 2, again.RetryCount)
}

func TestClassify_Nil(t *testing.T) {
	assert.Nil(t, Classify(nil))
}

// Retryability is a pure function of kind for the non-transport kinds;
// transport splits on status but never contradicts the permanent kinds.
func TestRetryableKind_Deterministic(t *testing.T) {
	want := map[ErrorKind]bool{
		KindNetwork:        true,
		KindTransport:      true,
		KindValidation:     false,
		KindAuthentication: false,
		KindRateLimit:      true,
		KindTimeout:        true,
		KindUnknown:        true,
	}
	for kind, retryable := range want {
		assert.Equal(t, retryable, RetryableKind(kind), "kind %s", kind)
	}
}

func TestGetRetryAfter(t *testing.T) {
	err := &StatusError{StatusCode: 429, Message: "slow down", RetryAfter: 7}
	assert.Equal(t, float64(7), GetRetryAfter(fmt.Errorf("call failed: %w", err)).Seconds())
	assert.Zero(t, GetRetryAfter(errors.New("plain")))
}

func TestClassifiedError_Formatting(t *testing.T) {
	ce := &ClassifiedError{Kind: KindRateLimit, Message: "throttled", Code: "rate_limit_exceeded"}
	assert.Equal(t, "[rate_limit:rate_limit_exceeded] throttled", ce.Error())

	ce.Code = ""
	assert.Equal(t, "[rate_limit] throttled", ce.Error())
}

func TestClassifiedError_Unwrap(t *testing.T) {
	cause := &StatusError{StatusCode: 401, Message: "bad key"}
	ce := Classify(cause)

	var statusErr *StatusError
	require.True(t, errors.As(ce, &statusErr))
	assert.Equal(t, 401, statusErr.StatusCode)
}
