// Package pricing provides per-model cost estimation for evaluation runs.
// Prices are expressed in USD per million tokens with separate prompt and
// completion rates; every call is priced with its own model's rate, never a
// blended one.
package pricing

import (
	"fmt"
	"sync"

	"github.com/evalforge/evalforge/internal/domain"
	llmerrors "github.com/evalforge/evalforge/internal/llm/errors"
)

// TokensPerUnit is the token denomination prices are quoted in.
const TokensPerUnit = 1_000_000

// Entry holds the published rates for one model.
type Entry struct {
	Model                string  `json:"model"`
	PromptPerMillion     float64 `json:"prompt_per_million"`     // USD per 1M prompt tokens
	CompletionPerMillion float64 `json:"completion_per_million"` // USD per 1M completion tokens
}

// Cost computes the USD cost of a usage block at this entry's rates.
func (e Entry) Cost(usage domain.TokenUsage) float64 {
	prompt := float64(usage.PromptTokens) / TokensPerUnit * e.PromptPerMillion
	completion := float64(usage.CompletionTokens) / TokensPerUnit * e.CompletionPerMillion
	return prompt + completion
}

// Registry maps model identifiers to pricing entries. Thread-safe. When
// failClosed is set, unknown models produce an error; otherwise they fall
// back to the default entry so cost figures degrade rather than disappear.
type Registry struct {
	mu         sync.RWMutex
	entries    map[string]Entry
	fallback   Entry
	failClosed bool
}

// NewRegistry creates a registry seeded with published rates for common
// models.
func NewRegistry(failClosed bool) *Registry {
	r := &Registry{
		entries:    make(map[string]Entry),
		fallback:   Entry{Model: "default", PromptPerMillion: 5.0, CompletionPerMillion: 15.0},
		failClosed: failClosed,
	}

	for _, e := range []Entry{
		{Model: "gpt-4o", PromptPerMillion: 2.50, CompletionPerMillion: 10.00},
		{Model: "gpt-4o-mini", PromptPerMillion: 0.15, CompletionPerMillion: 0.60},
		{Model: "gpt-4.1", PromptPerMillion: 2.00, CompletionPerMillion: 8.00},
		{Model: "gpt-4.1-mini", PromptPerMillion: 0.40, CompletionPerMillion: 1.60},
		{Model: "o3-mini", PromptPerMillion: 1.10, CompletionPerMillion: 4.40},
	} {
		r.entries[e.Model] = e
	}
	return r
}

// Register adds or replaces the entry for a model.
func (r *Registry) Register(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.Model] = e
}

// Lookup returns the entry for a model, or the fallback when the model is
// unknown and the registry is not fail-closed.
func (r *Registry) Lookup(model string) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.entries[model]; ok {
		return e, nil
	}
	if r.failClosed {
		return Entry{}, fmt.Errorf("%w: %s", llmerrors.ErrUnknownModel, model)
	}
	return r.fallback, nil
}

// Cost prices a usage block at the model's own published rate.
func (r *Registry) Cost(model string, usage domain.TokenUsage) (float64, error) {
	e, err := r.Lookup(model)
	if err != nil {
		return 0, err
	}
	return e.Cost(usage), nil
}
