// Package errors defines the closed error taxonomy for the evaluation
// subsystem and the single classification boundary that maps raw failures
// onto it. Every error that crosses a package boundary is classified exactly
// once; downstream code branches on ErrorKind, never on string matching.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind categorizes failures for retry classification. The set is closed:
// retryability is a pure function of the kind, so adding a kind means
// deciding its retry behavior here and nowhere else.
type ErrorKind string

const (
	// KindNetwork indicates a connectivity-level failure where no response
	// was received (retryable).
	KindNetwork ErrorKind = "network"

	// KindTransport indicates the provider responded with a server-side
	// failure status (retryable for 5xx availability errors).
	KindTransport ErrorKind = "transport"

	// KindValidation indicates input or payload validation failed
	// (non-retryable).
	KindValidation ErrorKind = "validation"

	// KindAuthentication indicates the credential was rejected
	// (non-retryable).
	KindAuthentication ErrorKind = "authentication"

	// KindRateLimit indicates the provider throttled the request, retry
	// with backoff (retryable).
	KindRateLimit ErrorKind = "rate_limit"

	// KindTimeout indicates a request deadline elapsed or the call was
	// aborted (retryable).
	KindTimeout ErrorKind = "timeout"

	// KindUnknown indicates an unclassified error (retryable, so transient
	// faults we failed to recognize still get a second chance).
	KindUnknown ErrorKind = "unknown"
)

// Common sentinel errors for consistent handling across the subsystem.
var (
	// ErrEmptyResponse indicates the provider returned zero completion choices.
	ErrEmptyResponse = errors.New("provider returned no completion choices")

	// ErrInvalidResponse indicates the provider response failed contract validation.
	ErrInvalidResponse = errors.New("invalid provider response")

	// ErrDecodeFailed indicates the transport succeeded but the payload
	// could not be decoded into the expected structure.
	ErrDecodeFailed = errors.New("response decoding failed")

	// ErrMaxRetriesExceeded indicates the retry budget was exhausted.
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")

	// ErrCredentialEncrypt indicates credential encryption failed.
	ErrCredentialEncrypt = errors.New("failed to encrypt credential")

	// ErrCredentialDecrypt indicates credential decryption failed.
	ErrCredentialDecrypt = errors.New("failed to decrypt credential")

	// ErrCredentialFormat indicates the credential failed shape validation.
	ErrCredentialFormat = errors.New("invalid credential format")

	// ErrSessionSave indicates the session could not be persisted.
	ErrSessionSave = errors.New("failed to save session")

	// ErrUnknownModel indicates pricing data is missing for a model.
	ErrUnknownModel = errors.New("unknown model")
)

// ClassifiedError is the tagged result of classification. It carries the
// error kind, retry bookkeeping, and structured context for observability.
// RetryCount only increases across attempts; it is never reset except by
// starting a new logical operation.
type ClassifiedError struct {
	Kind       ErrorKind      `json:"kind"`
	Message    string         `json:"message"`
	Code       string         `json:"code,omitempty"`
	Retryable  bool           `json:"retryable"`
	RetryCount int            `json:"retry_count"`
	Context    map[string]any `json:"context,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Cause      error          `json:"-"`
}

// Error returns a formatted error string with kind and code context.
func (e *ClassifiedError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As compatibility.
func (e *ClassifiedError) Unwrap() error {
	return e.Cause
}

// WithContext attaches a context entry, allocating the map on first use.
// Returns the receiver for call chaining at the classification boundary.
func (e *ClassifiedError) WithContext(key string, value any) *ClassifiedError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// RetryableKind reports whether a kind is transient by taxonomy.
// Authentication and validation failures are permanent by definition.
func RetryableKind(kind ErrorKind) bool {
	switch kind {
	case KindNetwork, KindRateLimit, KindTimeout, KindUnknown:
		return true
	case KindTransport:
		// Transport retryability depends on the status; the classifier
		// decides per-status and records it on the error. Kind-level
		// default is retryable.
		return true
	default:
		return false
	}
}

// StatusError carries a numeric HTTP status for a non-success response so
// the classifier can act on it. Synthesized by the transport layer, which is
// the only place raw statuses exist.
type StatusError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Code       string `json:"code,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"` // Retry-After header, seconds
}

// Error returns the formatted status error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

// GetRetryAfter returns the provider-recommended wait before the next
// attempt, or zero when the provider gave no guidance.
func (e *StatusError) GetRetryAfter() time.Duration {
	if e.RetryAfter > 0 {
		return time.Duration(e.RetryAfter) * time.Second
	}
	return 0
}

// ValidationError captures a payload or input validation failure with the
// field that failed, decided once at the classification boundary.
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

// Error returns the formatted validation error.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error { return e.Cause }
