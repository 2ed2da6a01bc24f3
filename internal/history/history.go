// Package history records each report run in Postgres.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"teater-impact-report/internal/category"
	"teater-impact-report/internal/pipeline"
	"teater-impact-report/internal/window"
)

const (
	DefaultSchema = "teater_report"
	pingTimeout   = 12 * time.Second
)

var ErrNotConfigured = errors.New("history database URL not configured")

type Config struct {
	URL    string
	Schema string
}

// UnitTotal is one summary row as stored.
type UnitTotal struct {
	Sequence int
	UnitID   int64
	UnitName string
	Totals   [category.Count]int64
	Total    int64
}

// Run is one report run.
type Run struct {
	ID          uuid.UUID
	ReportDate  time.Time
	WindowStart time.Time
	WindowEnd   time.Time
	Model       string
	Tag         string
	DryRun      bool
	Dispatched  bool
	ArchiveKey  string
	GrandTotal  int64
	Totals      [category.Count]int64
	Units       []UnitTotal
}

// NewRun captures the summary table of a built report.
func NewRun(id uuid.UUID, summary pipeline.SummaryTable, win window.Window) Run {
	total := summary.TotalRow()
	run := Run{
		ID:          id,
		ReportDate:  dateOnly(win.End),
		WindowStart: win.Start,
		WindowEnd:   win.End,
		GrandTotal:  total.Total,
		Totals:      total.Totals,
	}
	for _, row := range summary.Units() {
		run.Units = append(run.Units, UnitTotal{
			Sequence: row.Sequence,
			UnitID:   row.UnitID,
			UnitName: row.UnitName,
			Totals:   row.Totals,
			Total:    row.Total,
		})
	}
	return run
}

type Store struct {
	db     *sql.DB
	schema string
}

// Open connects to the history database and pings it.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Schema == "" {
		cfg.Schema = DefaultSchema
	}
	schema, err := sanitizeSchema(cfg.Schema)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, schema: schema}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	return ensureSchema(ctx, s.db, s.schema)
}

// Save creates the schema if needed and stores run in one transaction.
func (s *Store) Save(ctx context.Context, run Run) (string, error) {
	if err := ensureSchema(ctx, s.db, s.schema); err != nil {
		return "", err
	}
	return storeRunTx(ctx, s.db, run, s.schema)
}

func sanitizeSchema(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.New("history schema is required")
	}
	valid := regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	if !valid.MatchString(value) {
		return "", fmt.Errorf("invalid schema name: %s", value)
	}
	return value, nil
}

func storeRunTx(ctx context.Context, db *sql.DB, run Run, schema string) (string, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s.report_runs (
			id, report_date, window_start, window_end, unit_model,
			unit_count, teach, engage, assess, track,
			analyse, remediate, grand_total, dry_run, dispatched,
			archive_key, run_tag
		) VALUES (
			$1,$2,$3,$4,$5,
			$6,$7,$8,$9,$10,
			$11,$12,$13,$14,$15,
			$16,$17
		)`, schema),
		run.ID,
		dateOnly(run.ReportDate),
		run.WindowStart,
		run.WindowEnd,
		nullString(run.Model),
		len(run.Units),
		run.Totals[category.Teach],
		run.Totals[category.Engage],
		run.Totals[category.Assess],
		run.Totals[category.Track],
		run.Totals[category.Analyse],
		run.Totals[category.Remediate],
		run.GrandTotal,
		run.DryRun,
		run.Dispatched,
		nullString(run.ArchiveKey),
		nullString(run.Tag),
	)
	if err != nil {
		return "", err
	}

	insertUnitSQL := fmt.Sprintf(`
		INSERT INTO %s.report_unit_totals (
			id, run_id, sequence, unit_id, unit_name,
			teach, engage, assess, track, analyse,
			remediate, total
		) VALUES (
			$1,$2,$3,$4,$5,
			$6,$7,$8,$9,$10,
			$11,$12
		)`, schema)

	for _, unit := range run.Units {
		_, err = tx.ExecContext(ctx, insertUnitSQL,
			uuid.New(),
			run.ID,
			unit.Sequence,
			unit.UnitID,
			nullString(unit.UnitName),
			unit.Totals[category.Teach],
			unit.Totals[category.Engage],
			unit.Totals[category.Assess],
			unit.Totals[category.Track],
			unit.Totals[category.Analyse],
			unit.Totals[category.Remediate],
			unit.Total,
		)
		if err != nil {
			return "", err
		}
	}

	if err = tx.Commit(); err != nil {
		return "", err
	}
	return run.ID.String(), nil
}

func ensureSchema(ctx context.Context, db *sql.DB, schema string) error {
	if _, err := db.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, schema)); err != nil {
		return err
	}

	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.report_runs (
			id uuid PRIMARY KEY,
			report_date date NOT NULL,
			window_start timestamptz NOT NULL,
			window_end timestamptz NOT NULL,
			unit_model text,
			unit_count integer NOT NULL,
			teach bigint NOT NULL,
			engage bigint NOT NULL,
			assess bigint NOT NULL,
			track bigint NOT NULL,
			analyse bigint NOT NULL,
			remediate bigint NOT NULL,
			grand_total bigint NOT NULL,
			dry_run boolean NOT NULL DEFAULT false,
			dispatched boolean NOT NULL DEFAULT false,
			archive_key text,
			run_tag text,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, schema))
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.report_unit_totals (
			id uuid PRIMARY KEY,
			run_id uuid NOT NULL REFERENCES %s.report_runs(id) ON DELETE CASCADE,
			sequence integer NOT NULL,
			unit_id bigint NOT NULL,
			unit_name text,
			teach bigint NOT NULL,
			engage bigint NOT NULL,
			assess bigint NOT NULL,
			track bigint NOT NULL,
			analyse bigint NOT NULL,
			remediate bigint NOT NULL,
			total bigint NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, schema, schema))
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_report_runs_date_idx ON %s.report_runs (report_date)`, schema, schema))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_report_unit_totals_run_idx ON %s.report_unit_totals (run_id)`, schema, schema))
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_report_unit_totals_unit_idx ON %s.report_unit_totals (unit_id)`, schema, schema))
	return err
}

func nullString(value string) sql.NullString {
	if strings.TrimSpace(value) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func dateOnly(value time.Time) time.Time {
	if value.IsZero() {
		return value
	}
	return time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, value.Location())
}
