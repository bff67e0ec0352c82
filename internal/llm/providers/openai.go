// Package providers implements provider adapters for the inference wire
// contract. Each adapter translates normalized transport requests into
// provider-specific HTTP calls and parses responses back, synthesizing
// status-carrying errors for non-success responses.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	llmerrors "github.com/evalforge/evalforge/internal/llm/errors"
	"github.com/evalforge/evalforge/internal/llm/transport"
)

const (
	// ProviderOpenAI is the canonical OpenAI provider name. Any
	// OpenAI-compatible endpoint can be registered under a different name
	// with its own base URL.
	ProviderOpenAI = "openai"

	defaultOpenAIEndpoint = "https://api.openai.com/v1"
)

// ErrUnsupportedOperation indicates an operation the adapter cannot build.
var ErrUnsupportedOperation = errors.New("unsupported operation")

// OpenAIAdapter implements transport.ProviderAdapter for the OpenAI
// chat/completions API and any API-compatible endpoint.
type OpenAIAdapter struct {
	name     string
	endpoint string
}

// NewOpenAIAdapter creates an adapter for the production OpenAI API.
func NewOpenAIAdapter() *OpenAIAdapter {
	return NewCompatibleAdapter(ProviderOpenAI, defaultOpenAIEndpoint)
}

// NewCompatibleAdapter creates an adapter for an OpenAI-compatible endpoint
// registered under its own provider name.
func NewCompatibleAdapter(name, endpoint string) *OpenAIAdapter {
	if endpoint == "" {
		endpoint = defaultOpenAIEndpoint
	}
	return &OpenAIAdapter{name: name, endpoint: endpoint}
}

// Name returns the provider name.
func (a *OpenAIAdapter) Name() string { return a.name }

// chatRequest is the chat/completions request body.
type chatRequest struct {
	Model       string                  `json:"model"`
	Messages    []transport.ChatMessage `json:"messages"`
	Temperature *float64                `json:"temperature,omitempty"`
	MaxTokens   int64                   `json:"max_tokens,omitempty"`
}

// Build constructs the provider HTTP request. The credential probe maps to
// the models listing endpoint, a cheap authenticated call that returns
// success or failure only.
func (a *OpenAIAdapter) Build(ctx context.Context, req *transport.Request) (*http.Request, error) {
	switch req.Operation {
	case transport.OpPrimary, transport.OpScoring:
		return a.buildChat(ctx, req)
	case transport.OpProbe:
		return a.buildProbe(ctx, req)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperation, req.Operation)
	}
}

func (a *OpenAIAdapter) buildChat(ctx context.Context, req *transport.Request) (*http.Request, error) {
	body := chatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.endpoint+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	return httpReq, nil
}

func (a *OpenAIAdapter) buildProbe(ctx context.Context, req *transport.Request) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.endpoint+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create probe request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	return httpReq, nil
}

// chatResponse mirrors the chat/completions response body.
type chatResponse struct {
	Model   string             `json:"model"`
	Choices []transport.Choice `json:"choices"`
	Usage   transport.Usage    `json:"usage"`
}

// Parse extracts a normalized response, or a status-carrying error for
// non-success responses so the classifier can act on the numeric status.
func (a *OpenAIAdapter) Parse(httpResp *http.Response) (*transport.Response, error) {
	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, parseAPIError(httpResp, body)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		// The transport succeeded, so an undecodable body is a contract
		// violation, not a transient fault. Retrying cannot help.
		return nil, &llmerrors.ValidationError{
			Message: fmt.Sprintf("failed to decode response: %v", err),
			Cause:   fmt.Errorf("%w: %w", llmerrors.ErrDecodeFailed, err),
		}
	}

	return &transport.Response{
		Choices: parsed.Choices,
		Usage:   parsed.Usage,
		Model:   parsed.Model,
		Headers: httpResp.Header,
		RawBody: body,
	}, nil
}

// apiError is the error envelope OpenAI-style APIs return.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// parseAPIError synthesizes a StatusError from a non-success response,
// carrying the numeric status, the provider's error code, and any
// Retry-After guidance.
func parseAPIError(httpResp *http.Response, body []byte) error {
	statusErr := &llmerrors.StatusError{
		StatusCode: httpResp.StatusCode,
		Message:    http.StatusText(httpResp.StatusCode),
	}

	var envelope apiError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		statusErr.Message = envelope.Error.Message
		switch code := envelope.Error.Code.(type) {
		case string:
			statusErr.Code = code
		case float64:
			statusErr.Code = strconv.Itoa(int(code))
		}
	}

	if after := httpResp.Header.Get("Retry-After"); after != "" {
		if seconds, err := strconv.Atoi(after); err == nil && seconds > 0 {
			statusErr.RetryAfter = seconds
		}
	}

	return statusErr
}
