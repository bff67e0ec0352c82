package cli

import (
	"fmt"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/evalforge/evalforge/internal/config"
	"github.com/evalforge/evalforge/internal/domain"
	"github.com/evalforge/evalforge/internal/session"
	"github.com/evalforge/evalforge/internal/vault"
)

// NewSessionCmd creates the 'session' command group managing the local
// session record and its encrypted credential.
func NewSessionCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage the local session and stored API key",
	}
	cmd.AddCommand(
		newSessionSetKeyCmd(cfg),
		newSessionShowCmd(cfg),
		newSessionClearCmd(cfg),
	)
	return cmd
}

func newSessionSetKeyCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "set-key",
		Short: "Store an API key, encrypted, in the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Print("API key: ")
			raw, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Println()
			if err != nil {
				return fmt.Errorf("read API key: %w", err)
			}

			store, cleanup, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			record, ok := store.Load()
			if !ok {
				record = store.Create()
			}
			if err := store.StoreCredential(string(raw), record); err != nil {
				return err
			}
			fmt.Println("API key stored.")
			return nil
		},
	}
}

func newSessionShowCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current session's status and history",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			record, ok := store.Load()
			if !ok {
				fmt.Println("No active session.")
				return nil
			}

			fmt.Printf("Session:    %s\n", record.SessionID)
			fmt.Printf("Created:    %s\n", record.CreatedAt.Format(time.RFC3339))
			fmt.Printf("Expires in: %s\n", store.TimeUntilExpiration(record).Round(time.Second))
			fmt.Printf("API key:    %s\n", keyStatus(record))
			fmt.Printf("History:    %d runs\n", len(record.History))
			for _, run := range record.History {
				fmt.Printf("  %s  %-20s overall=%-3d  $%.6f\n",
					run.Timestamp.Format("2006-01-02 15:04"), run.Model, run.Metrics.OverallScore, run.Cost)
			}
			return nil
		},
	}
}

func newSessionClearCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the session and wipe all sensitive data",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			store.Clear()
			fmt.Println("Session cleared.")
			return nil
		},
	}
}

func keyStatus(record *session.Record) string {
	if record.EncryptedCredential == "" {
		return "not set"
	}
	return "stored (encrypted)"
}

// openSession builds the session store over file-backed storage, or
// in-memory storage when no path is configured. The cleanup stops the
// expiry check.
func openSession(cfg *config.Config) (*session.Store, func(), error) {
	var storage session.Storage
	if cfg.Session.Path != "" {
		fs, err := session.NewFileStorage(cfg.Session.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open session storage: %w", err)
		}
		storage = fs
	} else {
		storage = session.NewMemoryStorage()
	}

	store := session.NewStore(storage, vault.New(storage), 0, session.WithTTL(cfg.Session.TTL))
	return store, store.Close, nil
}

// newTestRun converts a finished evaluation into an immutable history entry.
func newTestRun(req *domain.EvaluationRequest, result *domain.EvaluationResult) domain.TestRun {
	return domain.TestRun{
		ID:            uuid.NewString(),
		Timestamp:     time.Now(),
		Model:         req.Model,
		ModelProvider: req.Provider,
		Instructions:  req.Instructions,
		Prompt:        req.Prompt,
		Response:      result.Response,
		Metrics:       result.Metrics,
		TokenUsage:    result.TokenUsage,
		ExecutionTime: result.ExecutionTime,
		Cost:          result.Cost,
	}
}
