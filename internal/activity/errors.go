package activity

import (
	"go.temporal.io/sdk/temporal"
)

// Error tags categorizing activity failures for monitoring and workflow
// retry decisions.
const (
	tagValidation = "Validation"
	tagProvider   = "Provider"
)

// nonRetryable wraps an error as a Temporal non-retryable application
// error: validation failures, rejected credentials, and other conditions a
// retry cannot fix.
func nonRetryable(tag string, cause error, msg string) error {
	return temporal.NewNonRetryableApplicationError(msg, tag, cause)
}

// retryable wraps an error as a Temporal application error eligible for the
// workflow's retry policy.
func retryable(tag string, cause error, msg string) error {
	return temporal.NewApplicationError(msg, tag, cause)
}
