// Package worker wires the evaluation workflow and activities onto a
// Temporal worker, plus the startup helpers that assemble their
// dependencies from configuration.
package worker

import (
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/evalforge/evalforge/internal/activity"
	"github.com/evalforge/evalforge/internal/engine"
	"github.com/evalforge/evalforge/internal/workflow"
)

// RegisterAll registers the evaluation workflow and its activities with the
// Temporal worker. Call once during worker startup before Run; registration
// is not safe for concurrent use.
func RegisterAll(w sdkworker.Worker, eng *engine.Engine) {
	activities := activity.NewActivities(eng)

	w.RegisterWorkflow(workflow.EvaluationWorkflow)
	w.RegisterActivity(activities.ExecuteEvaluation)
}
