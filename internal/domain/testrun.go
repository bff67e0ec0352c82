package domain

import (
	"time"
)

// TestRun is one completed evaluation as recorded in session history.
// Immutable once appended: history is append-only, and clearing history
// truncates the list without mutating individual entries.
type TestRun struct {
	ID            string         `json:"id"`
	Timestamp     time.Time      `json:"timestamp"`
	Model         string         `json:"model"`
	ModelProvider string         `json:"modelProvider"`
	Instructions  string         `json:"instructions"`
	Prompt        string         `json:"prompt"`
	Response      string         `json:"response"`
	Metrics       SuccessMetrics `json:"metrics"`
	TokenUsage    TokenUsage     `json:"tokenUsage"`
	ExecutionTime time.Duration  `json:"executionTime"`
	Cost          float64        `json:"cost"`
}

// TestState is the user's in-progress input: what they have typed but not
// yet (successfully) run. Persisted with the session so a reload does not
// lose it.
type TestState struct {
	Instructions  string `json:"instructions,omitempty"`
	Prompt        string `json:"prompt,omitempty"`
	Model         string `json:"model,omitempty"`
	ModelProvider string `json:"modelProvider,omitempty"`
}

// UserSettings are the session-scoped preferences applied to new runs.
type UserSettings struct {
	DefaultModel       string   `json:"defaultModel,omitempty"`
	DefaultProvider    string   `json:"defaultProvider,omitempty"`
	EvaluationModel    string   `json:"evaluationModel,omitempty"`
	EvaluationProvider string   `json:"evaluationProvider,omitempty"`
	MaxTokens          int64    `json:"maxTokens,omitempty"`
	Temperature        *float64 `json:"temperature,omitempty"`
}
