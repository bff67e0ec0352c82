package domain

import (
	"time"
)

// Phase tracks an evaluation request through its state machine:
// pending → primary-execution → scoring → complete, or → failed from either
// active phase.
type Phase string

const (
	PhasePending  Phase = "pending"
	PhasePrimary  Phase = "primary_test"
	PhaseScoring  Phase = "evaluation"
	PhaseComplete Phase = "complete"
	PhaseFailed   Phase = "failed"
)

// TokenUsage aggregates token consumption across calls. Primary and scoring
// usage are summed separately and never blended.
type TokenUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Add accumulates another usage block into the receiver.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// EvaluationRequest carries everything needed for one two-stage evaluation:
// the primary model and its inputs, and the evaluation model doing the
// scoring.
type EvaluationRequest struct {
	// OperationID correlates this request with preserved recovery state.
	// Assigned by the engine when empty.
	OperationID string `json:"operation_id,omitempty"`

	// Provider and Model run the user's instructions against the prompt.
	Provider string `json:"provider"`
	Model    string `json:"model" validate:"required"`

	// Instructions is the user's natural-language instruction set, sent as
	// the system message of the primary call.
	Instructions string `json:"instructions" validate:"required"`

	// Prompt is the test prompt, sent as the user message.
	Prompt string `json:"prompt" validate:"required"`

	// EvaluationProvider and EvaluationModel score the primary response.
	EvaluationProvider string `json:"evaluation_provider"`
	EvaluationModel    string `json:"evaluation_model" validate:"required"`

	// APIKey authenticates both calls. Never logged, never persisted here.
	APIKey string `json:"-" validate:"required"`

	// MaxTokens bounds the primary completion; zero uses the engine default.
	MaxTokens int64 `json:"max_tokens,omitempty"`

	// Temperature for the primary call; nil uses the provider default. The
	// scoring call always runs at low temperature regardless.
	Temperature *float64 `json:"temperature,omitempty"`
}

// Validate checks the request's required fields.
func (r *EvaluationRequest) Validate() error {
	return validate.Struct(r)
}

// EvaluationResult is what the engine hands back to the caller: the primary
// model's response, the judge's metrics, and aggregated usage and cost.
type EvaluationResult struct {
	// Response is the primary model's raw output.
	Response string `json:"response"`

	// Metrics is the five-dimension score with explanation.
	Metrics SuccessMetrics `json:"metrics"`

	// ScoreFallback reports that the judge's output failed to parse and
	// neutral defaults were substituted.
	ScoreFallback bool `json:"score_fallback,omitempty"`

	// TokenUsage sums both calls; PrimaryUsage and ScoringUsage keep the
	// per-call split.
	TokenUsage   TokenUsage `json:"token_usage"`
	PrimaryUsage TokenUsage `json:"primary_usage"`
	ScoringUsage TokenUsage `json:"scoring_usage"`

	// ExecutionTime covers the whole two-stage run.
	ExecutionTime time.Duration `json:"execution_time"`

	// Cost is the total in USD, each call priced with its own model's rate.
	Cost float64 `json:"cost"`
}
