package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmerrors "github.com/evalforge/evalforge/internal/llm/errors"
)

func TestChain_Order(t *testing.T) {
	var order []string

	mw := func(name string) Middleware {
		return func(next Handler) Handler {
			return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
				order = append(order, name+":before")
				resp, err := next.Handle(ctx, req)
				order = append(order, name+":after")
				return resp, err
			})
		}
	}

	core := HandlerFunc(func(context.Context, *Request) (*Response, error) {
		order = append(order, "core")
		return &Response{}, nil
	})

	_, err := Chain(core, mw("outer"), mw("inner")).Handle(context.Background(), &Request{})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer:before", "inner:before", "core", "inner:after", "outer:after"}, order)
}

func TestValidateResponse(t *testing.T) {
	valid := &Response{
		Choices: []Choice{{Message: ChatMessage{Role: RoleAssistant, Content: "ok"}}},
		Usage:   Usage{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2},
	}
	require.NoError(t, ValidateResponse(valid))

	tests := []struct {
		name string
		resp *Response
	}{
		{"nil response", nil},
		{"no choices", &Response{Usage: Usage{TotalTokens: 2}}},
		{"empty content", &Response{
			Choices: []Choice{{Message: ChatMessage{Role: RoleAssistant}}},
			Usage:   Usage{TotalTokens: 2},
		}},
		{"missing usage", &Response{
			Choices: []Choice{{Message: ChatMessage{Role: RoleAssistant, Content: "ok"}}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateResponse(tt.resp)
			require.Error(t, err)

			var ve *llmerrors.ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestResponse_Content(t *testing.T) {
	assert.Empty(t, (&Response{}).Content())
	assert.Equal(t, "x", (&Response{Choices: []Choice{{Message: ChatMessage{Content: "x"}}}}).Content())
}
