package cli

import (
	"github.com/spf13/cobra"

	"github.com/evalforge/evalforge/internal/config"
	"github.com/evalforge/evalforge/internal/worker"
)

// NewWorkerCmd creates the 'worker' command serving the Temporal task queue.
func NewWorkerCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the Temporal worker serving evaluation workflows",
		Long: `Connects to the configured Temporal server and serves the evaluation
task queue until interrupted. Evaluations submitted as workflows run through
the same engine as 'evalforge eval'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return worker.Run(*cfg)
		},
	}
}
