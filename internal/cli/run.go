package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"teater-impact-report/internal/archive"
	"teater-impact-report/internal/config"
	"teater-impact-report/internal/dispatch"
	"teater-impact-report/internal/extract"
	"teater-impact-report/internal/history"
	"teater-impact-report/internal/job"
	"teater-impact-report/internal/metrics"
	"teater-impact-report/internal/notify"
	"teater-impact-report/internal/source"
)

type runFlags struct {
	asOf     string
	dryRun   bool
	xlsxPath string
	jsonPath string
	store    bool
	tag      string
	parallel int
	quiet    bool
}

func newRunCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Extract, build and mail the daily usage report",
		Long: `Run the daily report for the window ending at REPORT_CUTOFF_HOUR.

Examples:
  teater-report run                                # mail today's report
  teater-report run --as-of 2026-03-10 --dry-run   # render a past day without sending
  teater-report run --dry-run --xlsx report.xlsx   # keep a local copy of the workbook
  teater-report run --store --tag backfill         # also record the run in Postgres`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, flags)
		},
	}
	cmd.Flags().StringVar(&flags.asOf, "as-of", "", "Report date (YYYY-MM-DD); default today")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Render the report without mail, Slack, history or metrics push")
	cmd.Flags().StringVar(&flags.xlsxPath, "xlsx", "", "Optional path for a local copy of the workbook")
	cmd.Flags().StringVar(&flags.jsonPath, "json", "", "Optional JSON output path")
	cmd.Flags().BoolVar(&flags.store, "store", false, "Store the run in Postgres (requires TEATER_HISTORY_DB_URL or DATABASE_URL)")
	cmd.Flags().StringVar(&flags.tag, "tag", "", "Optional label for this run in the history")
	cmd.Flags().IntVar(&flags.parallel, "parallel", 0, "Concurrent category extractions; default EXTRACT_PARALLEL")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "Do not print the summary table")
	return cmd
}

func runReport(cmd *cobra.Command, flags runFlags) error {
	ctx := cmd.Context()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !flags.dryRun {
		if err := cfg.ValidateDelivery(); err != nil {
			return err
		}
	}
	if flags.parallel < 0 {
		return errors.New("--parallel must not be negative")
	}
	logger := newLogger(cfg.Log, cmd.ErrOrStderr())

	win, err := resolveWindow(flags.asOf, cfg, time.Now())
	if err != nil {
		return err
	}

	db, err := source.Open(ctx, cfg.Source())
	if err != nil {
		return fmt.Errorf("%w: %w", extract.ErrExtraction, err)
	}
	defer db.Close()

	extractor, err := extract.New(db, extract.Options{
		Dialect: db.Dialect,
		Model:   cfg.Model(),
		Catalog: extract.DefaultCatalog(),
		Units:   cfg.Report.Units,
		Window:  win,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	runner := &job.Runner{
		Extractor: extractor,
		Metrics:   metrics.NewRecorder(),
		Push:      cfg.MetricsPush(),
		Model:     cfg.Model().Name,
		Greeting:  cfg.Email.Greeting,
		Signature: cfg.Email.Signature,
		Logger:    logger,
	}

	if !flags.dryRun {
		sender, err := dispatch.New(cfg.Dispatch(), logger)
		if err != nil {
			return err
		}
		runner.Sender = sender
	}

	notifier, err := notify.NewSlack(cfg.Notify(), logger)
	switch {
	case err == nil:
		runner.Notifier = notifier
	case errors.Is(err, notify.ErrNotConfigured):
	default:
		return err
	}

	store, err := archive.Open(ctx, cfg.ArchiveStore())
	switch {
	case err == nil:
		runner.Archive = store
	case errors.Is(err, archive.ErrDisabled):
	default:
		return fmt.Errorf("archive: %w", err)
	}

	if flags.store && !flags.dryRun {
		ledger, err := history.Open(ctx, cfg.HistoryStore())
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}
		defer ledger.Close()
		runner.History = ledger
	}

	parallel := flags.parallel
	if parallel == 0 {
		parallel = cfg.Report.Parallel
	}
	var console io.Writer
	if !flags.quiet {
		console = cmd.OutOrStdout()
	}

	result, err := runner.Run(ctx, job.Options{
		Window:   win,
		Parallel: parallel,
		DryRun:   flags.dryRun,
		XLSXPath: flags.xlsxPath,
		JSONPath: flags.jsonPath,
		Console:  console,
		Tag:      flags.tag,
	})
	if err != nil {
		return err
	}
	printOutcome(cmd.OutOrStdout(), cfg, flags, result)
	return nil
}

func printOutcome(w io.Writer, cfg *config.Config, flags runFlags, result job.Result) {
	if flags.xlsxPath != "" {
		fmt.Fprintf(w, "\nWorkbook saved to %s\n", flags.xlsxPath)
	}
	if flags.jsonPath != "" {
		fmt.Fprintf(w, "JSON report saved to %s\n", flags.jsonPath)
	}
	if result.ArchiveKey != "" {
		fmt.Fprintf(w, "Archived as %s\n", result.ArchiveKey)
	}
	switch {
	case result.Dispatched:
		fmt.Fprintf(w, "Report mailed to %d recipient(s) (run_id=%s)\n", len(cfg.Email.To)+len(cfg.Email.Cc), result.RunID)
	case flags.dryRun:
		fmt.Fprintf(w, "Dry run complete, nothing sent (run_id=%s)\n", result.RunID)
	}
}
