// Package cli implements the evalforge command tree: running evaluations,
// serving the Temporal worker, and managing the local session.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/evalforge/evalforge/internal/config"
)

// NewRootCmd creates the root command with all subcommands attached. The
// loaded configuration is shared with subcommands through the cfg pointer
// after PersistentPreRunE runs.
func NewRootCmd() *cobra.Command {
	var configPath string
	cfg := &config.Config{}

	cmd := &cobra.Command{
		Use:   "evalforge",
		Short: "Run and score evaluations of LLM instruction-following",
		Long: `evalforge runs a two-stage evaluation: a primary model executes your
instructions against a test prompt, then a second model scores the response
across five dimensions (overall, coherence, task completion, instruction
adherence, efficiency) with token usage and cost accounting.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			*cfg = loaded
			setupLogging(cfg.Logging)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the YAML config file")

	cmd.AddCommand(
		NewEvalCmd(cfg),
		NewWorkerCmd(cfg),
		NewSessionCmd(cfg),
		NewVersionCmd(),
	)
	return cmd
}

// setupLogging installs the process-wide slog handler per configuration.
func setupLogging(cfg config.LoggingConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// Execute runs the root command, printing the failure to stderr.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
