package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalforge/evalforge/internal/config"
	"github.com/evalforge/evalforge/internal/domain"
)

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	require.NotNil(t, cmd)
	assert.Equal(t, "evalforge", cmd.Use)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))

	names := make([]string, 0, len(cmd.Commands()))
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "eval")
	assert.Contains(t, names, "worker")
	assert.Contains(t, names, "session")
	assert.Contains(t, names, "version")
}

func TestNewEvalCmdFlags(t *testing.T) {
	cfg := config.Default()
	cmd := NewEvalCmd(&cfg)

	for _, name := range []string{"provider", "model", "eval-provider", "eval-model", "instructions", "prompt", "max-tokens", "temperature", "json"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "flag %q not registered", name)
	}
}

func TestEvalRequiresFlags(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"eval"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestResolveAPIKeyFromEnv(t *testing.T) {
	t.Setenv("EVALFORGE_API_KEY", "sk-env-abcdefghijklmnop1234")
	cfg := config.Default()

	key, err := resolveAPIKey(&cfg)
	require.NoError(t, err)
	assert.Equal(t, "sk-env-abcdefghijklmnop1234", key)
}

func TestResolveAPIKeyMissing(t *testing.T) {
	t.Setenv("EVALFORGE_API_KEY", "")
	cfg := config.Default()
	// In-memory session storage starts empty, so there is no stored key.
	cfg.Session.Path = ""

	_, err := resolveAPIKey(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no API key")
}

func TestNewTestRun(t *testing.T) {
	req := &domain.EvaluationRequest{
		Provider:     "openai",
		Model:        "gpt-4o-mini",
		Instructions: "Be brief.",
		Prompt:       "2+2?",
	}
	result := &domain.EvaluationResult{
		Response:      "4",
		Metrics:       domain.SuccessMetrics{OverallScore: 92},
		TokenUsage:    domain.TokenUsage{TotalTokens: 30},
		ExecutionTime: 800 * time.Millisecond,
		Cost:          0.00001,
	}

	run := newTestRun(req, result)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "gpt-4o-mini", run.Model)
	assert.Equal(t, "openai", run.ModelProvider)
	assert.Equal(t, "4", run.Response)
	assert.Equal(t, 92, run.Metrics.OverallScore)
	assert.Equal(t, int64(30), run.TokenUsage.TotalTokens)
	assert.Equal(t, 0.00001, run.Cost)
}
