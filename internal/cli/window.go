package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"teater-impact-report/internal/config"
	"teater-impact-report/internal/window"
)

func newWindowCmd() *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "window",
		Short: "Print the reporting window a run would use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			win, err := resolveWindow(asOf, cfg, time.Now())
			if err != nil {
				return err
			}
			start, end := win.Args()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Window: %s\n", win)
			fmt.Fprintf(out, "SQL bounds: %s .. %s\n", start, end)
			fmt.Fprintf(out, "Subject date: %s\n", win.ReportDate())
			return nil
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "Report date (YYYY-MM-DD); default today")
	return cmd
}

// resolveWindow returns the daily window ending at the cutoff hour of asOf,
// or of now when asOf is empty.
func resolveWindow(asOf string, cfg *config.Config, now time.Time) (window.Window, error) {
	loc := cfg.Location()
	day := now
	if strings.TrimSpace(asOf) != "" {
		parsed, err := window.ParseDate(asOf, loc)
		if err != nil {
			return window.Window{}, fmt.Errorf("invalid --as-of date: %w", err)
		}
		day = parsed
	}
	return window.Daily(day, cfg.Report.CutoffHour, loc)
}
