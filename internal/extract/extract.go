// Package extract runs the per-category usage queries against the source
// database and returns one table per category.
package extract

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"teater-impact-report/internal/category"
	"teater-impact-report/internal/pipeline"
	"teater-impact-report/internal/source"
	"teater-impact-report/internal/table"
	"teater-impact-report/internal/window"
)

var ErrExtraction = errors.New("extraction failed")

// Querier is the read side of *sql.DB.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type Options struct {
	Dialect source.Dialect
	Model   Model
	Catalog Catalog
	Units   []int64
	Window  window.Window
	Logger  *slog.Logger
}

type Extractor struct {
	db      Querier
	dialect source.Dialect
	model   Model
	catalog Catalog
	units   []int64
	window  window.Window
	logger  *slog.Logger
}

func New(db Querier, opts Options) (*Extractor, error) {
	if db == nil {
		return nil, errors.New("extract: nil database")
	}
	if len(opts.Units) == 0 {
		return nil, errors.New("extract: empty unit allow-list")
	}
	if err := opts.Model.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Catalog.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		db:      db,
		dialect: opts.Dialect,
		model:   opts.Model,
		catalog: opts.Catalog,
		units:   append([]int64(nil), opts.Units...),
		window:  opts.Window,
		logger:  logger.With("component", "extract"),
	}, nil
}

// Extract runs every metric query of c and outer-joins the results on unit_id.
func (e *Extractor) Extract(ctx context.Context, c category.Category) (pipeline.CategoryTable, error) {
	if !c.Valid() {
		return pipeline.CategoryTable{}, fmt.Errorf("%w: unknown category %d", ErrExtraction, int(c))
	}
	var merged table.Table
	for i, q := range e.catalog[c] {
		t, err := e.metric(ctx, q)
		if err != nil {
			return pipeline.CategoryTable{}, fmt.Errorf("%w: %s.%s: %w", ErrExtraction, c, q.Metric, err)
		}
		if i == 0 {
			merged = t
			continue
		}
		if merged, err = table.OuterJoin(merged, t, table.ColUnitID, table.ColUnitName); err != nil {
			return pipeline.CategoryTable{}, fmt.Errorf("%w: merge %s.%s: %w", ErrExtraction, c, q.Metric, err)
		}
	}

	var activity int64
	metrics := merged.IntColumns(table.ColUnitID)
	for _, row := range merged.Rows {
		sum, err := merged.Sum(row, metrics)
		if err != nil {
			return pipeline.CategoryTable{}, fmt.Errorf("%w: %s: %w", ErrExtraction, c, err)
		}
		activity += sum
	}
	e.logger.Info("category extracted", "category", c.Key(), "units", len(merged.Rows), "activity", activity)
	return pipeline.CategoryTable{Category: c, Table: merged}, nil
}

// ExtractAll extracts the six categories in order. With parallel > 1 up to
// that many categories run at once; the result is still in category order.
func (e *Extractor) ExtractAll(ctx context.Context, parallel int) ([]pipeline.CategoryTable, error) {
	out := make([]pipeline.CategoryTable, category.Count)
	if parallel <= 1 {
		for i, c := range category.All {
			ct, err := e.Extract(ctx, c)
			if err != nil {
				return nil, err
			}
			out[i] = ct
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, c := range category.All {
		g.Go(func() error {
			ct, err := e.Extract(gctx, c)
			if err != nil {
				return err
			}
			out[i] = ct
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Extractor) metric(ctx context.Context, q MetricQuery) (table.Table, error) {
	query := buildQuery(e.dialect, e.model, q, len(e.units))
	rows, err := e.db.QueryContext(ctx, query, queryArgs(e.dialect, q, e.window, e.units)...)
	if err != nil {
		return table.Table{}, err
	}
	defer rows.Close()

	t := table.New(table.Int(table.ColUnitID), table.Text(table.ColUnitName), table.Int(q.Metric))
	for rows.Next() {
		var (
			id    int64
			name  sql.NullString
			count sql.NullInt64
		)
		if err := rows.Scan(&id, &name, &count); err != nil {
			return table.Table{}, err
		}
		if err := t.Append(table.Row{table.IntValue(id), table.TextValue(name.String), table.IntValue(count.Int64)}); err != nil {
			return table.Table{}, err
		}
	}
	if err := rows.Err(); err != nil {
		return table.Table{}, err
	}
	return t, nil
}
