package activity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"

	"github.com/evalforge/evalforge/internal/domain"
	llmerrors "github.com/evalforge/evalforge/internal/llm/errors"
)

type stubEvaluator struct {
	result *domain.EvaluationResult
	err    error
	calls  int
}

func (s *stubEvaluator) ExecuteEvaluation(_ context.Context, _ *domain.EvaluationRequest) (*domain.EvaluationResult, error) {
	s.calls++
	return s.result, s.err
}

func validRequest() domain.EvaluationRequest {
	return domain.EvaluationRequest{
		Provider:        "openai",
		Model:           "gpt-4o-mini",
		Instructions:    "Answer briefly.",
		Prompt:          "2+2?",
		EvaluationModel: "gpt-4o",
		APIKey:          "sk-test-abcdefghijklmnop1234",
	}
}

func TestExecuteEvaluationSuccess(t *testing.T) {
	eval := &stubEvaluator{result: &domain.EvaluationResult{Response: "4"}}
	acts := NewActivities(eval)

	result, err := acts.ExecuteEvaluation(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "4", result.Response)
	assert.Equal(t, 1, eval.calls)
}

func TestExecuteEvaluationInvalidInput(t *testing.T) {
	eval := &stubEvaluator{}
	acts := NewActivities(eval)

	_, err := acts.ExecuteEvaluation(context.Background(), domain.EvaluationRequest{})
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, tagValidation, appErr.Type())
	assert.True(t, appErr.NonRetryable())
	assert.Zero(t, eval.calls, "the engine must not run for invalid input")
}

func TestExecuteEvaluationRetryableClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{
			name: "exhausted transient failure stays retryable",
			err: &llmerrors.ClassifiedError{
				Kind: llmerrors.KindTransport, Message: "service unavailable", Retryable: true,
			},
			retryable: true,
		},
		{
			name: "authentication failure is final",
			err: &llmerrors.ClassifiedError{
				Kind: llmerrors.KindAuthentication, Message: "invalid API key", Retryable: false,
			},
			retryable: false,
		},
		{
			name:      "unclassified failure is final",
			err:       assert.AnError,
			retryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acts := NewActivities(&stubEvaluator{err: tt.err})

			_, err := acts.ExecuteEvaluation(context.Background(), validRequest())
			require.Error(t, err)

			var appErr *temporal.ApplicationError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tagProvider, appErr.Type())
			assert.Equal(t, !tt.retryable, appErr.NonRetryable())
		})
	}
}
