// Package job runs one report end to end: extract, aggregate, render, deliver.
package job

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"teater-impact-report/internal/archive"
	"teater-impact-report/internal/dispatch"
	"teater-impact-report/internal/history"
	"teater-impact-report/internal/metrics"
	"teater-impact-report/internal/pipeline"
	"teater-impact-report/internal/render"
	"teater-impact-report/internal/window"
)

var (
	ErrRender   = errors.New("render failed")
	ErrDispatch = errors.New("dispatch failed")
)

type Extractor interface {
	ExtractAll(ctx context.Context, parallel int) ([]pipeline.CategoryTable, error)
}

type Sender interface {
	Send(ctx context.Context, msg dispatch.Message) error
}

type Notifier interface {
	Notify(ctx context.Context, summary pipeline.SummaryTable, win window.Window) error
}

type HistoryStore interface {
	Save(ctx context.Context, run history.Run) (string, error)
}

// Runner holds the stages of a run. Archive, Notifier, History and Metrics
// are optional; their failures are logged and do not fail the run.
type Runner struct {
	Extractor Extractor
	Sender    Sender
	Notifier  Notifier
	Archive   archive.Store
	History   HistoryStore
	Metrics   *metrics.Recorder
	Push      metrics.Config

	Model     string
	Greeting  string
	Signature []string

	Logger *slog.Logger
	Now    func() time.Time
}

type Options struct {
	Window   window.Window
	Parallel int
	// DryRun renders everything but skips mail, chat, history and metrics push.
	DryRun   bool
	XLSXPath string
	JSONPath string
	Console  io.Writer
	Tag      string
}

type Result struct {
	RunID      string
	Report     pipeline.Report
	Workbook   []byte
	ArchiveKey string
	Dispatched bool
	Duration   time.Duration
}

func (r *Runner) Run(ctx context.Context, opts Options) (Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runID := uuid.New()
	logger = logger.With("component", "job", "run_id", runID.String())
	start := r.now()

	result, err := r.run(ctx, opts, runID, logger)
	result.RunID = runID.String()
	result.Duration = r.now().Sub(start)

	if r.Metrics != nil {
		if err != nil {
			r.Metrics.Failed(result.Duration)
		} else {
			r.Metrics.Succeeded(result.Report.Summary, result.Duration, r.now())
		}
		if !opts.DryRun && r.Push.PushURL != "" {
			if perr := r.Metrics.Push(ctx, r.Push); perr != nil {
				logger.Warn("metrics push failed", "error", perr)
			}
		}
	}
	if err != nil {
		logger.Error("run failed", "error", err, "duration", result.Duration)
		return result, err
	}
	logger.Info("run finished",
		"units", len(result.Report.Summary.Units()),
		"grand_total", result.Report.GrandTotal(),
		"dispatched", result.Dispatched,
		"duration", result.Duration,
	)
	return result, nil
}

func (r *Runner) run(ctx context.Context, opts Options, runID uuid.UUID, logger *slog.Logger) (Result, error) {
	var result Result
	if r.Extractor == nil {
		return result, errors.New("job: no extractor")
	}
	logger.Info("run started", "window", opts.Window.String(), "dry_run", opts.DryRun, "parallel", opts.Parallel)

	tables, err := r.Extractor.ExtractAll(ctx, opts.Parallel)
	if err != nil {
		return result, fmt.Errorf("extract: %w", err)
	}
	report, err := pipeline.Build(tables)
	if err != nil {
		return result, fmt.Errorf("aggregate: %w", err)
	}
	result.Report = report

	workbook, err := render.Workbook(report.Summary, report.Detail)
	if err != nil {
		return result, fmt.Errorf("%w: workbook: %w", ErrRender, err)
	}
	result.Workbook = workbook
	body, err := render.EmailHTML(render.EmailData{
		Window:      opts.Window,
		GeneratedAt: r.now(),
		Summary:     report.Summary,
		Greeting:    r.Greeting,
		Signature:   r.Signature,
	})
	if err != nil {
		return result, fmt.Errorf("%w: email body: %w", ErrRender, err)
	}
	if err := r.writeLocal(opts, report, workbook); err != nil {
		return result, fmt.Errorf("%w: %w", ErrRender, err)
	}

	if r.Archive != nil {
		key := archive.Key(opts.Window.End, runID.String(), render.AttachmentName)
		_, err := r.Archive.Put(ctx, key, bytes.NewReader(workbook), archive.PutOptions{
			ContentType: render.ContentTypeXLSX,
			Metadata:    map[string]string{"run_id": runID.String(), "window_end": opts.Window.End.Format(time.RFC3339)},
		})
		if err != nil {
			logger.Warn("archive failed", "key", key, "error", err)
		} else {
			result.ArchiveKey = key
			logger.Info("workbook archived", "driver", r.Archive.Driver(), "key", key)
		}
	}

	if opts.DryRun {
		logger.Info("dry run, skipping delivery")
		return result, nil
	}

	if r.Sender == nil {
		return result, fmt.Errorf("%w: no sender configured", ErrDispatch)
	}
	err = r.Sender.Send(ctx, dispatch.Message{
		Subject:        dispatch.Subject(opts.Window),
		HTML:           body,
		Attachment:     workbook,
		AttachmentName: render.AttachmentName,
		ContentType:    render.ContentTypeXLSX,
	})
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrDispatch, err)
	}
	result.Dispatched = true

	if r.Notifier != nil {
		if err := r.Notifier.Notify(ctx, report.Summary, opts.Window); err != nil {
			logger.Warn("chat notification failed", "error", err)
		}
	}

	if r.History != nil {
		run := history.NewRun(runID, report.Summary, opts.Window)
		run.Model = r.Model
		run.Tag = opts.Tag
		run.Dispatched = result.Dispatched
		run.ArchiveKey = result.ArchiveKey
		if id, err := r.History.Save(ctx, run); err != nil {
			logger.Warn("history save failed", "error", err)
		} else {
			logger.Info("run stored", "history_id", id)
		}
	}
	return result, nil
}

func (r *Runner) writeLocal(opts Options, report pipeline.Report, workbook []byte) error {
	if opts.Console != nil {
		if err := render.Console(opts.Console, report.Summary, opts.Window); err != nil {
			return fmt.Errorf("console: %w", err)
		}
	}
	if opts.XLSXPath != "" {
		if err := os.WriteFile(opts.XLSXPath, workbook, 0o644); err != nil {
			return fmt.Errorf("write workbook: %w", err)
		}
	}
	if opts.JSONPath != "" {
		var buf bytes.Buffer
		if err := render.JSON(&buf, report, opts.Window, r.now()); err != nil {
			return fmt.Errorf("json: %w", err)
		}
		if err := os.WriteFile(opts.JSONPath, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
	}
	return nil
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
