package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"teater-impact-report/internal/config"
	"teater-impact-report/internal/history"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage the Postgres run history",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the history schema and tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, err := history.Open(cmd.Context(), cfg.HistoryStore())
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}
			defer store.Close()
			if err := store.EnsureSchema(cmd.Context()); err != nil {
				return fmt.Errorf("history: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "History schema %s is ready\n", cfg.History.Schema)
			return nil
		},
	})
	return cmd
}
