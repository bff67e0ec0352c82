package errors

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Classify transforms a raw failure into a ClassifiedError with retry
// guidance. Classification runs in priority order: already-classified errors
// pass through, typed errors are examined first, then connectivity failures,
// then HTTP statuses, then message patterns, with an unknown-but-retryable
// fallback so unrecognized transient faults still get retried.
func Classify(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	// Idempotent: never re-classify.
	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	if ce := classifyTyped(err); ce != nil {
		return ce
	}

	if isConnectivityError(err) {
		return newClassified(KindNetwork, err, true)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return newClassified(KindTimeout, err, true)
	}

	return classifyByMessage(err)
}

// classifyTyped handles strongly-typed errors: status-carrying responses and
// validation failures. Returns nil when no typed classification applies.
func classifyTyped(err error) *ClassifiedError {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		kind, retryable := classifyStatus(statusErr.StatusCode)
		ce := newClassified(kind, err, retryable)
		ce.Code = statusErr.Code
		ce.WithContext("status_code", statusErr.StatusCode)
		if statusErr.RetryAfter > 0 {
			ce.WithContext("retry_after", statusErr.RetryAfter)
		}
		return ce
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		ce := newClassified(KindValidation, err, false)
		if validationErr.Field != "" {
			ce.WithContext("field", validationErr.Field)
		}
		return ce
	}

	return nil
}

// classifyStatus maps an HTTP status to an error kind and retryability.
// 401 is an authentication failure, 429 a rate limit, 408/504 timeouts,
// 500/502/503 transient transport failures; every other non-success status
// is a permanent transport failure.
func classifyStatus(status int) (ErrorKind, bool) {
	switch status {
	case http.StatusUnauthorized:
		return KindAuthentication, false
	case http.StatusTooManyRequests:
		return KindRateLimit, true
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return KindTimeout, true
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return KindTransport, true
	default:
		return KindTransport, false
	}
}

// classifyByMessage is the last-resort classification for untyped errors,
// matching validation and timeout markers before defaulting to unknown.
func classifyByMessage(err error) *ClassifiedError {
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "validation") || strings.Contains(msg, "invalid"):
		return newClassified(KindValidation, err, false)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out") ||
		strings.Contains(msg, "aborted") || strings.Contains(msg, "deadline"):
		return newClassified(KindTimeout, err, true)
	default:
		return newClassified(KindUnknown, err, true)
	}
}

// isConnectivityError detects failures where no response was received,
// using type assertions rather than fragile string matching where possible.
func isConnectivityError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// A url.Error wrapping a timeout is classified as timeout upstream;
		// everything else that never produced a response is a network fault.
		var netErr net.Error
		if errors.As(urlErr.Err, &netErr) && netErr.Timeout() {
			return false
		}
		return true
	}

	lowered := strings.ToLower(err.Error())
	for _, indicator := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"network is unreachable",
	} {
		if strings.Contains(lowered, indicator) {
			return true
		}
	}
	return false
}

func newClassified(kind ErrorKind, cause error, retryable bool) *ClassifiedError {
	return &ClassifiedError{
		Kind:      kind,
		Message:   cause.Error(),
		Retryable: retryable,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// GetRetryAfter extracts provider-recommended retry timing from an error
// chain, or zero when no guidance is available.
func GetRetryAfter(err error) time.Duration {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.GetRetryAfter()
	}
	return 0
}
