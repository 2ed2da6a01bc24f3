// Package cli wires the configuration and the report stages into commands.
package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree. Each call returns fresh flag state.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "teater-report",
		Short: "Daily TEATER usage report",
		Long: `teater-report counts the last day of Teach, Engage, Assess, Analyse, Track
and Remediate activity per unit and mails the result as an XLSX workbook.

Configuration comes from the environment (DB_*, UNIT_IDS, EMAIL_*, SMTP_*,
SLACK_WEBHOOK_URL, ARCHIVE_*, TEATER_HISTORY_DB_URL, PUSHGATEWAY_URL, LOG_*).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newWindowCmd())
	root.AddCommand(newHistoryCmd())
	return root
}

// Execute runs the command named by args. Cancelling ctx aborts in-flight
// queries and delivery.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}
