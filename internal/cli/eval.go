package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evalforge/evalforge/internal/config"
	"github.com/evalforge/evalforge/internal/domain"
	"github.com/evalforge/evalforge/internal/worker"
)

// NewEvalCmd creates the 'eval' command running one evaluation in-process.
func NewEvalCmd(cfg *config.Config) *cobra.Command {
	var (
		provider     string
		model        string
		evalProvider string
		evalModel    string
		instructions string
		prompt       string
		maxTokens    int64
		temperature  float64
		jsonOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Run one evaluation and print the scored result",
		Example: `  evalforge eval --model gpt-4o-mini --eval-model gpt-4o \
    --instructions "Answer in one short sentence." \
    --prompt "What is the capital of France?"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			apiKey, err := resolveAPIKey(cfg)
			if err != nil {
				return err
			}

			req := &domain.EvaluationRequest{
				Provider:           provider,
				Model:              model,
				Instructions:       instructions,
				Prompt:             prompt,
				EvaluationProvider: evalProvider,
				EvaluationModel:    evalModel,
				APIKey:             apiKey,
				MaxTokens:          maxTokens,
			}
			if cmd.Flags().Changed("temperature") {
				req.Temperature = &temperature
			}

			eng, cleanup := worker.InitializeEngine(*cfg)
			defer cleanup()

			result, err := eng.ExecuteEvaluation(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := recordRun(cfg, req, result); err != nil {
				return err
			}

			return printResult(result, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "openai", "Primary model provider")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Primary model identifier")
	cmd.Flags().StringVar(&evalProvider, "eval-provider", "openai", "Evaluation model provider")
	cmd.Flags().StringVar(&evalModel, "eval-model", "", "Evaluation (judge) model identifier")
	cmd.Flags().StringVarP(&instructions, "instructions", "i", "", "Instructions for the primary model")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Test prompt")
	cmd.Flags().Int64Var(&maxTokens, "max-tokens", 0, "Primary completion token limit (0 = default)")
	cmd.Flags().Float64VarP(&temperature, "temperature", "t", 0, "Primary sampling temperature")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the full result as JSON")

	for _, required := range []string{"model", "eval-model", "instructions", "prompt"} {
		_ = cmd.MarkFlagRequired(required)
	}
	return cmd
}

// resolveAPIKey prefers the environment variable and falls back to the
// credential stored in the session.
func resolveAPIKey(cfg *config.Config) (string, error) {
	if key := os.Getenv("EVALFORGE_API_KEY"); key != "" {
		return key, nil
	}

	store, cleanup, err := openSession(cfg)
	if err != nil {
		return "", err
	}
	defer cleanup()

	record, ok := store.Load()
	if !ok {
		return "", fmt.Errorf("no API key: set EVALFORGE_API_KEY or run 'evalforge session set-key'")
	}
	return store.Credential(record)
}

// recordRun appends the evaluation to the session history when a session
// exists; running without one is fine.
func recordRun(cfg *config.Config, req *domain.EvaluationRequest, result *domain.EvaluationResult) error {
	store, cleanup, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	record, ok := store.Load()
	if !ok {
		return nil
	}
	return store.AddTestToHistory(record, newTestRun(req, result))
}

func printResult(result *domain.EvaluationResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Printf("Response:\n%s\n\n", result.Response)
	fmt.Printf("Scores (0-100):\n")
	fmt.Printf("  Overall:               %d\n", result.Metrics.OverallScore)
	fmt.Printf("  Coherence:             %d\n", result.Metrics.CoherenceScore)
	fmt.Printf("  Task completion:       %d\n", result.Metrics.TaskCompletionScore)
	fmt.Printf("  Instruction adherence: %d\n", result.Metrics.InstructionAdherenceScore)
	fmt.Printf("  Efficiency:            %d\n", result.Metrics.EfficiencyScore)
	if result.ScoreFallback {
		fmt.Printf("  (neutral defaults: the judge's output could not be parsed)\n")
	}
	fmt.Printf("\nExplanation: %s\n", result.Metrics.Explanation)
	fmt.Printf("\nTokens: %d prompt / %d completion / %d total\n",
		result.TokenUsage.PromptTokens, result.TokenUsage.CompletionTokens, result.TokenUsage.TotalTokens)
	fmt.Printf("Cost: $%.6f   Time: %s\n", result.Cost, result.ExecutionTime)
	return nil
}
