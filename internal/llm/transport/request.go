// Package transport provides the composable request pipeline for model
// inference calls. It defines the normalized request/response shapes for the
// chat-completions wire contract, the Handler/Middleware abstractions, and
// the core HTTP handler that is the subsystem's sole point of outbound
// network I/O.
package transport

import (
	"net/http"
	"time"
)

// OperationType labels the evaluation phase a request belongs to. It feeds
// cache key namespacing, metrics labeling, and the phase context attached to
// classified errors.
type OperationType string

const (
	// OpPrimary is the primary-execution call running the user's
	// instructions against the test prompt.
	OpPrimary OperationType = "primary_test"

	// OpScoring is the scoring call asking the evaluation model to grade
	// the primary response.
	OpScoring OperationType = "evaluation"

	// OpProbe is the lightweight authenticated credential check.
	OpProbe OperationType = "credential_probe"
)

// DefaultTimeout is the hard per-call deadline enforced by the HTTP handler
// when the request does not carry its own.
const DefaultTimeout = 30 * time.Second

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one turn of the chat-completions request body.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is the normalized inference request flowing through the middleware
// chain. Provider adapters turn it into provider-specific HTTP requests.
type Request struct {
	// Operation labels the evaluation phase for caching and error context.
	Operation OperationType `json:"operation"`

	// Provider identifies which inference service to use.
	Provider string `json:"provider"`

	// Model is the exact model identifier to invoke.
	Model string `json:"model"`

	// Messages is the ordered conversation to send.
	Messages []ChatMessage `json:"messages"`

	// Temperature controls sampling; nil leaves the provider default.
	Temperature *float64 `json:"temperature,omitempty"`

	// MaxTokens bounds the completion length; zero leaves the provider default.
	MaxTokens int64 `json:"max_tokens,omitempty"`

	// APIKey authenticates the call. Never logged.
	APIKey string `json:"-"`

	// OperationID correlates the request with preserved recovery state.
	OperationID string `json:"operation_id,omitempty"`

	// Timeout overrides DefaultTimeout when positive.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// Usage reports token consumption for one call.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Choice is one completion candidate from the provider.
type Choice struct {
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// Response is the normalized inference response. RawBody preserves the
// undecoded payload for callers that need it; Headers are kept for
// debugging and Retry-After extraction.
type Response struct {
	Choices   []Choice    `json:"choices"`
	Usage     Usage       `json:"usage"`
	Model     string      `json:"model,omitempty"`
	LatencyMs int64       `json:"latency_ms"`
	Headers   http.Header `json:"-"`
	RawBody   []byte      `json:"-"`
}

// Content returns the first choice's message content, or the empty string
// when the response has no choices.
func (r *Response) Content() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}
