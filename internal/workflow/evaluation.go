// Package workflow orchestrates evaluations as Temporal workflows. Workflow
// code is deterministic control flow only; all model I/O happens inside
// activities.
package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/evalforge/evalforge/internal/activity"
	"github.com/evalforge/evalforge/internal/domain"
)

// EvaluationWorkflow runs one two-stage evaluation through the engine
// activity. Transport-level retries happen inside the activity's resilience
// pipeline, so the Temporal retry policy only re-runs the activity for
// failures that outlived local retries.
func EvaluationWorkflow(
	ctx workflow.Context,
	req domain.EvaluationRequest,
) (*domain.EvaluationResult, error) {
	// Version gate enables safe evolution of replayed histories.
	const currentVersion = 1
	_ = workflow.GetVersion(ctx, "evaluation.v", workflow.DefaultVersion, currentVersion)

	if err := req.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError(
			"invalid evaluation request",
			"Validation",
			err,
		)
	}

	ao := workflow.ActivityOptions{
		// Two model calls plus local backoff fit comfortably in this bound.
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var activities *activity.Activities
	var result domain.EvaluationResult
	if err := workflow.ExecuteActivity(ctx, activities.ExecuteEvaluation, req).Get(ctx, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
