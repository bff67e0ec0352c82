// Package activity wraps the evaluation engine as Temporal activities. The
// wrappers translate the subsystem's classified errors into Temporal's
// retryable/non-retryable application errors so workflow retry policies can
// act on them directly.
package activity

import (
	"context"
	"errors"

	"github.com/evalforge/evalforge/internal/domain"
	llmerrors "github.com/evalforge/evalforge/internal/llm/errors"
)

// Evaluator runs one two-stage evaluation. Satisfied by the engine.
type Evaluator interface {
	ExecuteEvaluation(ctx context.Context, req *domain.EvaluationRequest) (*domain.EvaluationResult, error)
}

// Activities holds the dependencies the activity functions need. Register
// with a worker via the worker package.
type Activities struct{ evaluator Evaluator }

// NewActivities creates an Activities instance over the evaluator.
func NewActivities(evaluator Evaluator) *Activities {
	return &Activities{evaluator: evaluator}
}

// ExecuteEvaluation runs one evaluation through the engine. The engine's
// resilience pipeline already retries transient transport failures locally;
// an error surfacing here means local retries were exhausted, so the
// retryable flag tells the workflow whether trying again later could help.
func (a *Activities) ExecuteEvaluation(
	ctx context.Context,
	req domain.EvaluationRequest,
) (*domain.EvaluationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, nonRetryable(tagValidation, err, "invalid evaluation request")
	}

	result, err := a.evaluator.ExecuteEvaluation(ctx, &req)
	if err != nil {
		var ce *llmerrors.ClassifiedError
		if errors.As(err, &ce) && ce.Retryable {
			return nil, retryable(tagProvider, err, ce.Message)
		}
		return nil, nonRetryable(tagProvider, err, err.Error())
	}
	return result, nil
}
