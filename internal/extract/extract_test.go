package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teater-impact-report/internal/category"
	"teater-impact-report/internal/pipeline"
	"teater-impact-report/internal/source"
	"teater-impact-report/internal/table"
	"teater-impact-report/internal/window"
)

// createSchema derives the tables the catalog touches and creates them.
func createSchema(t *testing.T, db *source.DB, m Model, c Catalog) {
	t.Helper()
	tables := map[string]map[string]struct{}{}
	add := func(name string, columns ...string) {
		if tables[name] == nil {
			tables[name] = map[string]struct{}{}
		}
		for _, column := range columns {
			tables[name][column] = struct{}{}
		}
	}
	add(m.UnitTable, m.UnitID, m.UnitName)
	add(m.MemberTable, m.MemberUnit, m.MemberColumn)
	for _, queries := range c {
		for _, q := range queries {
			if q.Placeholder {
				continue
			}
			if q.WindowOnBridge() {
				add(q.Bridge, m.BridgeMember, q.BridgeKey, q.TimeColumn)
				continue
			}
			add(q.Bridge, m.BridgeMember, q.BridgeKey)
			add(q.Activity, "id", q.TimeColumn)
		}
	}

	for name, columns := range tables {
		defs := make([]string, 0, len(columns))
		for column := range columns {
			kind := "INTEGER"
			if column == m.UnitName || strings.HasSuffix(column, "_time") || strings.HasSuffix(column, "_at") || strings.HasSuffix(column, "_date") {
				kind = "TEXT"
			}
			defs = append(defs, column+" "+kind)
		}
		sort.Strings(defs)
		_, err := db.Exec(fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(defs, ", ")))
		require.NoError(t, err, name)
	}
}

func openTestDB(t *testing.T) *source.DB {
	t.Helper()
	db, err := source.Open(context.Background(), source.Config{
		Driver: source.DriverSQLite,
		Name:   filepath.Join(t.TempDir(), "teater.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seed(t *testing.T, db *source.DB, statements ...string) {
	t.Helper()
	for _, stmt := range statements {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
}

func testWindow(t *testing.T) window.Window {
	t.Helper()
	w, err := window.Daily(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), 8, time.UTC)
	require.NoError(t, err)
	return w
}

func seededExtractor(t *testing.T) *Extractor {
	t.Helper()
	db := openTestDB(t)
	createSchema(t, db, StudentCollege, DefaultCatalog())
	seed(t, db,
		`INSERT INTO college (id, college_name) VALUES (1, 'Alpha'), (2, 'Beta'), (3, 'Gamma')`,
		`INSERT INTO student_college_details (college_id, student_id) VALUES (1, 10), (1, 11), (2, 20), (3, 30)`,
		`INSERT INTO faculty_class_hours (id, entry_date) VALUES
			(100, '2026-03-09 10:00:00'),
			(101, '2026-03-08 10:00:00'),
			(102, '2026-03-10 08:00:00')`,
		`INSERT INTO student_attendance (student_id, faculty_class_hour_id) VALUES
			(10, 100), (11, 100), (10, 101), (20, 100), (20, 102), (30, 100)`,
		`INSERT INTO notifications (id, created_at) VALUES (5, '2026-03-09 09:00:00')`,
		`INSERT INTO notifications_has_students (student_id, notifications_id) VALUES (10, 5), (10, 5)`,
		`INSERT INTO questionnaire_remedial_path (student_id, questionnaire_id, created_at) VALUES
			(20, 7, '2026-03-10 07:59:59'),
			(20, 8, '2026-03-10 08:00:01')`,
	)

	e, err := New(db.DB, Options{
		Dialect: db.Dialect,
		Model:   StudentCollege,
		Catalog: DefaultCatalog(),
		Units:   []int64{1, 2},
		Window:  testWindow(t),
	})
	require.NoError(t, err)
	return e
}

func column(t *testing.T, tbl table.Table, name string) []int64 {
	t.Helper()
	idx := tbl.Index(name)
	require.GreaterOrEqual(t, idx, 0, name)
	values := make([]int64, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		values = append(values, row[idx].Int)
	}
	return values
}

func TestExtractTeachCountsDistinctPairsInWindow(t *testing.T) {
	e := seededExtractor(t)

	ct, err := e.Extract(context.Background(), category.Teach)
	require.NoError(t, err)

	assert.Equal(t, category.Teach, ct.Category)
	assert.Equal(t, []int64{1, 2}, column(t, ct.Table, table.ColUnitID))
	assert.Equal(t, []int64{2, 2}, column(t, ct.Table, "total_attendance"))
	assert.Equal(t, "Alpha", ct.Table.Rows[0][ct.Table.Index(table.ColUnitName)].Text)
}

func TestExtractEngageMergesEveryMetric(t *testing.T) {
	e := seededExtractor(t)

	ct, err := e.Extract(context.Background(), category.Engage)
	require.NoError(t, err)

	require.Len(t, ct.Table.Columns, 2+len(DefaultCatalog()[category.Engage]))
	assert.Equal(t, []int64{1, 0}, column(t, ct.Table, "total_notify_count"))
	assert.Equal(t, []int64{0, 0}, column(t, ct.Table, "total_live_survey"))
}

func TestExtractRemediateWindowsBridgeRows(t *testing.T) {
	e := seededExtractor(t)

	ct, err := e.Extract(context.Background(), category.Remediate)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1}, column(t, ct.Table, "total_remediate_count"))
}

func TestExtractAnalysePlaceholder(t *testing.T) {
	e := seededExtractor(t)

	ct, err := e.Extract(context.Background(), category.Analyse)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, column(t, ct.Table, table.ColUnitID))
	assert.Equal(t, []int64{0, 0}, column(t, ct.Table, "swoc_count"))
}

func TestExtractAllFeedsPipeline(t *testing.T) {
	e := seededExtractor(t)

	sequential, err := e.ExtractAll(context.Background(), 1)
	require.NoError(t, err)
	parallel, err := e.ExtractAll(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, sequential, parallel)

	for i, ct := range sequential {
		assert.Equal(t, category.All[i], ct.Category)
	}

	report, err := pipeline.Build(sequential)
	require.NoError(t, err)
	assert.Equal(t, int64(6), report.GrandTotal())
	assert.Contains(t, report.Detail.Header(), "total_attendance_engage")

	units := report.Summary.Units()
	require.Len(t, units, 2)
	assert.Equal(t, int64(1), units[0].UnitID)
	assert.Equal(t, int64(3), units[0].Total)
	assert.Equal(t, int64(3), units[1].Total)
}

func TestExtractWrapsQueryFailures(t *testing.T) {
	db := openTestDB(t)
	e, err := New(db.DB, Options{
		Dialect: db.Dialect,
		Model:   StudentCollege,
		Catalog: DefaultCatalog(),
		Units:   []int64{1},
		Window:  testWindow(t),
	})
	require.NoError(t, err)

	_, err = e.Extract(context.Background(), category.Teach)
	assert.ErrorIs(t, err, ErrExtraction)

	_, err = e.ExtractAll(context.Background(), 2)
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestNewValidatesOptions(t *testing.T) {
	db := openTestDB(t)
	opts := Options{Dialect: db.Dialect, Model: StudentCollege, Catalog: DefaultCatalog(), Units: []int64{1}}

	_, err := New(nil, opts)
	assert.Error(t, err)

	empty := opts
	empty.Units = nil
	_, err = New(db.DB, empty)
	assert.Error(t, err)

	badModel := opts
	badModel.Model.UnitTable = "college; DROP TABLE college"
	_, err = New(db.DB, badModel)
	assert.Error(t, err)

	badCatalog := opts
	badCatalog.Catalog[category.Track] = nil
	_, err = New(db.DB, badCatalog)
	assert.Error(t, err)
}

func TestBuildQueryDialects(t *testing.T) {
	q := DefaultCatalog()[category.Teach][0]

	mysql := buildQuery(source.MySQL, StudentCollege, q, 2)
	assert.Contains(t, mysql, "CONCAT(a.id, '-', m.student_id)")
	assert.Contains(t, mysql, "AND a.entry_date BETWEEN ? AND ?")
	assert.Contains(t, mysql, "WHERE u.id IN (?, ?)")

	pg := buildQuery(source.Postgres, StudentCollege, q, 2)
	assert.Contains(t, pg, "BETWEEN $1 AND $2")
	assert.Contains(t, pg, "WHERE u.id IN ($3, $4)")

	placeholder := buildQuery(source.Postgres, StudentCollege, DefaultCatalog()[category.Analyse][0], 2)
	assert.Contains(t, placeholder, "0 AS swoc_count")
	assert.Contains(t, placeholder, "WHERE u.id IN ($1, $2)")
	assert.NotContains(t, placeholder, "GROUP BY")

}

func TestQueryArgsPerDialect(t *testing.T) {
	q := DefaultCatalog()[category.Teach][0]
	ist := time.FixedZone("IST", 5*3600+1800)
	win, err := window.Daily(time.Date(2026, 3, 10, 12, 0, 0, 0, ist), 8, ist)
	require.NoError(t, err)

	assert.Equal(t, []any{int64(1), int64(2)}, queryArgs(source.Postgres, DefaultCatalog()[category.Analyse][0], win, []int64{1, 2}))
	assert.Equal(t, []any{"2026-03-09 08:00:00", "2026-03-10 08:00:00", int64(1)}, queryArgs(source.MySQL, q, win, []int64{1}))
	assert.Equal(t, []any{"2026-03-09 08:00:00", "2026-03-10 08:00:00", int64(1)}, queryArgs(source.SQLite, q, win, []int64{1}))

	pg := queryArgs(source.Postgres, q, win, []int64{1})
	require.Len(t, pg, 3)
	start, ok := pg[0].(time.Time)
	require.True(t, ok)
	assert.True(t, start.Equal(time.Date(2026, 3, 9, 2, 30, 0, 0, time.UTC)))
	assert.Equal(t, win.End, pg[1])
}

func TestModelByName(t *testing.T) {
	m, err := ModelByName("")
	require.NoError(t, err)
	assert.Equal(t, StudentCollege, m)

	m, err = ModelByName("account-department")
	require.NoError(t, err)
	assert.Equal(t, AccountDepartment, m)
	assert.NoError(t, m.Validate())

	_, err = ModelByName("campus")
	assert.ErrorIs(t, err, ErrUnknownModel)
}
