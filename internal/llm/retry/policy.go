// Package retry implements bounded exponential-backoff retry for the
// evaluation subsystem. It offers both a standalone executor for arbitrary
// operations and a transport middleware form for the inference pipeline.
package retry

import (
	"errors"
	"time"

	llmerrors "github.com/evalforge/evalforge/internal/llm/errors"
)

// Policy controls retry behavior for failed operations. The effective delay
// before attempt n+1 is min(BaseDelay * Multiplier^n, MaxDelay). Total
// attempts = MaxRetries + 1.
type Policy struct {
	MaxRetries     int                          `json:"max_retries"`
	BaseDelay      time.Duration                `json:"base_delay"`
	MaxDelay       time.Duration                `json:"max_delay"`
	Multiplier     float64                      `json:"multiplier"`
	RetryableKinds map[llmerrors.ErrorKind]bool `json:"retryable_kinds"`
}

// DefaultPolicy returns the policy used for inference calls: three retries
// with 1s/2s/4s backoff capped at 10s, retrying the transient kinds only.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
		RetryableKinds: map[llmerrors.ErrorKind]bool{
			llmerrors.KindNetwork:   true,
			llmerrors.KindTransport: true,
			llmerrors.KindRateLimit: true,
			llmerrors.KindTimeout:   true,
			llmerrors.KindUnknown:   true,
		},
	}
}

// Backoff computes the delay before the next attempt. attempt is zero-based:
// the delay after the first failure is BaseDelay. Provider Retry-After
// guidance on the error takes precedence over the computed delay.
func (p Policy) Backoff(attempt int, err error) time.Duration {
	if after := llmerrors.GetRetryAfter(err); after > 0 {
		return after
	}

	delay := p.BaseDelay
	if delay <= 0 {
		delay = time.Millisecond // prevent hot looping on a zero policy
	}
	multiplier := p.Multiplier
	if multiplier < 1.0 {
		multiplier = 1.0
	}
	for i := 0; i < attempt; i++ {
		delay = time.Duration(float64(delay) * multiplier)
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// IsRetryable reports whether the error warrants another attempt under the
// policy: the classified error's own retryable flag must be set, its kind
// must be in the policy's retryable set, and its retry count must not have
// reached the policy limit.
func IsRetryable(err error, p Policy) bool {
	if err == nil {
		return false
	}

	var ce *llmerrors.ClassifiedError
	if !errors.As(err, &ce) {
		ce = llmerrors.Classify(err)
	}

	if !ce.Retryable {
		return false
	}
	if !p.RetryableKinds[ce.Kind] {
		return false
	}
	return ce.RetryCount < p.MaxRetries
}
