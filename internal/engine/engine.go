// Package engine orchestrates the two-stage evaluation workflow: run the
// user's instructions against the primary model, then have a second model
// score the response. The engine preserves user input for recovery before
// any network call, prices each call with its own model's rate, and never
// fails an evaluation because the judge's output was malformed.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/evalforge/evalforge/internal/domain"
	llmerrors "github.com/evalforge/evalforge/internal/llm/errors"
	"github.com/evalforge/evalforge/internal/llm/transport"
	"github.com/evalforge/evalforge/internal/pricing"
	"github.com/evalforge/evalforge/internal/recovery"
)

// DefaultMaxTokens bounds the primary completion when the request does not
// set its own limit.
const DefaultMaxTokens int64 = 1024

// Completer executes one inference call through the resilience pipeline.
// Satisfied by the llm client.
type Completer interface {
	Complete(ctx context.Context, req *transport.Request) (*transport.Response, error)
}

// Engine runs evaluations. Construct with New; the zero value is unusable.
type Engine struct {
	client       Completer
	recovery     *recovery.Manager
	pricing      *pricing.Registry
	maxTokens    int64
	logger       *slog.Logger
	now          func() time.Time
	newOperation func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxTokens overrides the default primary-completion bound.
func WithMaxTokens(n int64) Option {
	return func(e *Engine) { e.maxTokens = n }
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine over the inference client. The recovery manager
// preserves user input across failures; the pricing registry converts token
// usage to cost.
func New(client Completer, rec *recovery.Manager, prices *pricing.Registry, opts ...Option) *Engine {
	e := &Engine{
		client:       client,
		recovery:     rec,
		pricing:      prices,
		maxTokens:    DefaultMaxTokens,
		logger:       slog.Default().With("component", "engine"),
		now:          time.Now,
		newOperation: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecuteEvaluation runs one full evaluation: pending → primary execution →
// scoring → complete, or → failed from either active phase. The scoring call
// is issued only after the primary call returned a non-empty response.
// Recovery state is cleared only on overall success, so a failed run's input
// remains restorable.
func (e *Engine) ExecuteEvaluation(ctx context.Context, req *domain.EvaluationRequest) (*domain.EvaluationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, llmerrors.Classify(err)
	}
	if req.OperationID == "" {
		req.OperationID = e.newOperation()
	}

	started := e.now()
	e.preserveInput(req)

	primary, err := e.client.Complete(ctx, e.primaryRequest(req))
	if err != nil {
		return nil, e.phaseError(err, domain.PhasePrimary, req.Model, req.OperationID)
	}
	response := primary.Content()

	scoring, err := e.client.Complete(ctx, e.scoringRequest(req, response))
	if err != nil {
		return nil, e.phaseError(err, domain.PhaseScoring, req.EvaluationModel, req.OperationID)
	}

	metrics, outcome := parseScores(scoring.Content())
	if outcome == ScoreFallbackDefault {
		e.logger.Warn("scoring output unusable, neutral defaults substituted",
			"operation_id", req.OperationID,
			"evaluation_model", req.EvaluationModel)
	}

	primaryUsage := usageOf(primary)
	scoringUsage := usageOf(scoring)
	total := primaryUsage
	total.Add(scoringUsage)

	result := &domain.EvaluationResult{
		Response:      response,
		Metrics:       metrics,
		ScoreFallback: outcome == ScoreFallbackDefault,
		TokenUsage:    total,
		PrimaryUsage:  primaryUsage,
		ScoringUsage:  scoringUsage,
		ExecutionTime: e.now().Sub(started),
		Cost: e.cost(req.Model, primaryUsage) +
			e.cost(req.EvaluationModel, scoringUsage),
	}

	e.recovery.Clear(req.OperationID)

	e.logger.Info("evaluation complete",
		"operation_id", req.OperationID,
		"model", req.Model,
		"evaluation_model", req.EvaluationModel,
		"overall_score", metrics.OverallScore,
		"score_fallback", result.ScoreFallback,
		"total_tokens", total.TotalTokens,
		"elapsed", result.ExecutionTime)

	return result, nil
}

// RestoreInput returns the preserved request data for a failed operation,
// for manual-retry flows.
func (e *Engine) RestoreInput(operationID string) (map[string]any, bool) {
	return e.recovery.Restore(operationID)
}

func (e *Engine) primaryRequest(req *domain.EvaluationRequest) *transport.Request {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = e.maxTokens
	}
	return &transport.Request{
		Operation:   transport.OpPrimary,
		Provider:    req.Provider,
		Model:       req.Model,
		Messages:    primaryMessages(req.Instructions, req.Prompt),
		Temperature: req.Temperature,
		MaxTokens:   maxTokens,
		APIKey:      req.APIKey,
		OperationID: req.OperationID,
	}
}

func (e *Engine) scoringRequest(req *domain.EvaluationRequest, response string) *transport.Request {
	temp := scoringTemperature
	return &transport.Request{
		Operation:   transport.OpScoring,
		Provider:    req.EvaluationProvider,
		Model:       req.EvaluationModel,
		Messages:    scoringMessages(req.Instructions, req.Prompt, response),
		Temperature: &temp,
		APIKey:      req.APIKey,
		OperationID: req.OperationID,
	}
}

// preserveInput snapshots the user's typed input so a failed call can be
// retried without retyping. The credential is deliberately excluded.
func (e *Engine) preserveInput(req *domain.EvaluationRequest) {
	e.recovery.Preserve(req.OperationID, map[string]any{
		"provider":            req.Provider,
		"model":               req.Model,
		"instructions":        req.Instructions,
		"prompt":              req.Prompt,
		"evaluation_provider": req.EvaluationProvider,
		"evaluation_model":    req.EvaluationModel,
	})
}

func (e *Engine) phaseError(err error, phase domain.Phase, model, operationID string) error {
	ce := llmerrors.Classify(err).
		WithContext("phase", string(phase)).
		WithContext("model", model).
		WithContext("operation_id", operationID)
	return fmt.Errorf("Evaluation failed: %w", ce)
}

// cost prices one call with its own model's rate. Pricing trouble never
// fails the evaluation; the cost degrades to zero for that call.
func (e *Engine) cost(model string, usage domain.TokenUsage) float64 {
	c, err := e.pricing.Cost(model, usage)
	if err != nil {
		e.logger.Warn("cost unavailable", "model", model, "error", err)
		return 0
	}
	return c
}

func usageOf(resp *transport.Response) domain.TokenUsage {
	return domain.TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
}
