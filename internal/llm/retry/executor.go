package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	llmerrors "github.com/evalforge/evalforge/internal/llm/errors"
)

// Recovery receives retry-attempt notifications so preserved user input can
// track how many times a logical operation has been attempted. Implemented
// by the recovery manager; nil disables bookkeeping.
type Recovery interface {
	UpdateRetryCount(operationID string)
}

// Executor runs operations with bounded exponential-backoff retry. The
// backoff sleep is a cooperative suspension honoring context cancellation;
// it never blocks other in-flight operations.
type Executor struct {
	policy   Policy
	recovery Recovery
	logger   *slog.Logger
}

// NewExecutor creates an executor with the given policy. recovery may be nil.
func NewExecutor(policy Policy, recovery Recovery) *Executor {
	return &Executor{
		policy:   policy,
		recovery: recovery,
		logger:   slog.Default().With("component", "retry"),
	}
}

// Do runs op with retry under the executor's policy. On failure the error is
// classified, stamped with the current retry count and operation context,
// and retried after backoff while it remains retryable. The returned error
// is always a *llmerrors.ClassifiedError.
func Do[T any](ctx context.Context, e *Executor, operationID string, op func(context.Context) (T, error)) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		select {
		case <-ctx.Done():
			return zero, classifyAttempt(ctx.Err(), operationID, attempt)
		default:
		}

		result, err := op(ctx)
		if err == nil {
			if attempt > 0 {
				e.logger.Info("operation succeeded after retry",
					"operation_id", operationID,
					"attempts", attempt+1)
			}
			return result, nil
		}

		ce := classifyAttempt(err, operationID, attempt)

		if !IsRetryable(ce, e.policy) {
			if ce.RetryCount >= e.policy.MaxRetries && ce.Retryable {
				e.logger.Warn("retries exhausted",
					"operation_id", operationID,
					"attempts", attempt+1,
					"kind", ce.Kind)
				// Mark exhaustion on the chain so callers can distinguish
				// "gave up" from "could never be retried".
				if ce.Cause != nil {
					ce.Cause = fmt.Errorf("%w: %w", llmerrors.ErrMaxRetriesExceeded, ce.Cause)
				} else {
					ce.Cause = llmerrors.ErrMaxRetriesExceeded
				}
			}
			return zero, ce
		}

		if e.recovery != nil && operationID != "" {
			e.recovery.UpdateRetryCount(operationID)
		}

		backoff := e.policy.Backoff(attempt, ce)
		e.logger.Debug("retrying after backoff",
			"operation_id", operationID,
			"attempt", attempt+1,
			"backoff", backoff,
			"kind", ce.Kind)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return zero, classifyAttempt(
				fmt.Errorf("context cancelled during retry backoff: %w", ctx.Err()),
				operationID, attempt+1)
		}
	}
}

// classifyAttempt classifies err and stamps retry bookkeeping onto it.
// RetryCount only ever increases across attempts of one logical operation.
func classifyAttempt(err error, operationID string, attempt int) *llmerrors.ClassifiedError {
	ce := llmerrors.Classify(err)
	if attempt > ce.RetryCount {
		ce.RetryCount = attempt
	}
	if operationID != "" {
		ce.WithContext("operation_id", operationID)
	}
	return ce
}
