package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teater-impact-report/internal/category"
	"teater-impact-report/internal/table"
)

type unitCounts struct {
	id     int64
	name   string
	counts []int64
}

func categoryTable(c category.Category, metrics []string, units ...unitCounts) CategoryTable {
	columns := []table.Column{table.Int(table.ColUnitID), table.Text(table.ColUnitName)}
	for _, metric := range metrics {
		columns = append(columns, table.Int(metric))
	}
	t := table.New(columns...)
	for _, u := range units {
		row := table.Row{table.IntValue(u.id), table.TextValue(u.name)}
		for _, count := range u.counts {
			row = append(row, table.IntValue(count))
		}
		t.Rows = append(t.Rows, row)
	}
	return CategoryTable{Category: c, Table: t}
}

// scenarioTables is the two-unit example: only Teach and Engage carry activity.
func scenarioTables() []CategoryTable {
	return []CategoryTable{
		categoryTable(category.Teach, []string{"attendance"},
			unitCounts{1, "Unit One", []int64{5}},
			unitCounts{2, "Unit Two", []int64{0}},
		),
		categoryTable(category.Engage, []string{"notify"},
			unitCounts{1, "Unit One", []int64{2}},
		),
		categoryTable(category.Assess, []string{"objective"}),
		categoryTable(category.Track, []string{"feedback"}),
		categoryTable(category.Analyse, []string{"swoc_count"},
			unitCounts{1, "Unit One", []int64{0}},
			unitCounts{2, "Unit Two", []int64{0}},
		),
		categoryTable(category.Remediate, []string{"remedial"}),
	}
}

func TestBuildSummaryScenario(t *testing.T) {
	summary, err := BuildSummary(scenarioTables())
	require.NoError(t, err)

	require.Len(t, summary.Rows, 3)
	first, second, total := summary.Rows[0], summary.Rows[1], summary.Rows[2]

	assert.Equal(t, int64(1), first.UnitID)
	assert.Equal(t, int64(7), first.Total)
	assert.Equal(t, int64(5), first.Totals[category.Teach])
	assert.Equal(t, int64(2), first.Totals[category.Engage])
	assert.Equal(t, 1, first.Sequence)

	assert.Equal(t, int64(2), second.UnitID)
	assert.Equal(t, int64(0), second.Total)
	assert.Equal(t, 2, second.Sequence)

	assert.True(t, total.IsTotal)
	assert.Equal(t, int64(7), total.Total)
	assert.Equal(t, int64(5), total.Totals[category.Teach])
	assert.Equal(t, int64(2), total.Totals[category.Engage])

	records := summary.Records()
	assert.Equal(t, []any{TotalSequenceLabel, TotalUnitIDLabel, TotalUnitNameLabel,
		int64(5), int64(2), int64(0), int64(0), int64(0), int64(0), int64(7)}, records[2])
	assert.Equal(t, []string{"sequence", "unit_id", "unit_name", "teach", "engage", "assess", "track", "analyse", "remediate", "total"}, summary.Header())
}

func TestBuildDetailScenario(t *testing.T) {
	detail, err := BuildDetail(scenarioTables())
	require.NoError(t, err)

	assert.Equal(t, []string{"sequence", "unit_id", "unit_name", "attendance", "notify", "objective", "feedback", "swoc_count", "remedial", "unit_usage"}, detail.Header())
	require.Len(t, detail.Rows, 2)

	assert.Equal(t, DetailRow{Sequence: 1, UnitID: 1, UnitName: "Unit One", Metrics: []int64{5, 2, 0, 0, 0, 0}, Usage: 7}, detail.Rows[0])
	assert.Equal(t, DetailRow{Sequence: 2, UnitID: 2, UnitName: "Unit Two", Metrics: []int64{0, 0, 0, 0, 0, 0}, Usage: 0}, detail.Rows[1])

	records := detail.Records()
	assert.Equal(t, []any{1, int64(1), "Unit One", int64(5), int64(2), int64(0), int64(0), int64(0), int64(0), int64(7)}, records[0])
}

func TestBuildConservation(t *testing.T) {
	tables := []CategoryTable{
		categoryTable(category.Teach, []string{"attendance"},
			unitCounts{10, "A", []int64{3}}, unitCounts{20, "B", []int64{1}}, unitCounts{30, "C", []int64{0}}),
		categoryTable(category.Engage, []string{"questionnaire", "live_survey"},
			unitCounts{20, "B", []int64{4, 6}}, unitCounts{30, "C", []int64{1, 1}}),
		categoryTable(category.Assess, []string{"objective", "coding"},
			unitCounts{10, "A", []int64{2, 2}}),
		categoryTable(category.Track, []string{"faculty_feedback"},
			unitCounts{30, "C", []int64{9}}),
		categoryTable(category.Analyse, []string{"swoc_count"},
			unitCounts{10, "A", []int64{0}}, unitCounts{20, "B", []int64{0}}, unitCounts{30, "C", []int64{0}}),
		categoryTable(category.Remediate, []string{"remedial"},
			unitCounts{10, "A", []int64{5}}),
	}

	var cells int64
	for _, ct := range tables {
		for _, row := range ct.Table.Rows {
			for _, v := range row[2:] {
				cells += v.Int
			}
		}
	}

	report, err := Build(tables)
	require.NoError(t, err)

	assert.Equal(t, cells, report.GrandTotal())
	assert.Equal(t, cells, report.Detail.Usage())
	assert.Len(t, report.Detail.Rows, 3)
	assert.Len(t, report.Summary.Units(), 3)

	totalRow := report.Summary.TotalRow()
	var categorySums int64
	for _, value := range totalRow.Totals {
		categorySums += value
	}
	assert.Equal(t, totalRow.Total, categorySums)
}

func TestBuildSummarySortIsStableAndSequenceDense(t *testing.T) {
	tables := scenarioTables()
	tables[category.Teach] = categoryTable(category.Teach, []string{"attendance"},
		unitCounts{1, "A", []int64{2}},
		unitCounts{2, "B", []int64{9}},
		unitCounts{3, "C", []int64{2}},
		unitCounts{4, "D", []int64{0}},
		unitCounts{5, "E", []int64{2}},
	)
	tables[category.Engage] = categoryTable(category.Engage, []string{"notify"})

	summary, err := BuildSummary(tables)
	require.NoError(t, err)

	var order []int64
	for i, row := range summary.Units() {
		order = append(order, row.UnitID)
		assert.Equal(t, i+1, row.Sequence)
		if i > 0 {
			assert.LessOrEqual(t, row.Total, summary.Units()[i-1].Total)
		}
	}
	assert.Equal(t, []int64{2, 1, 3, 5, 4}, order)
	assert.True(t, summary.TotalRow().IsTotal)
	assert.Equal(t, int64(15), summary.TotalRow().Total)
}

func TestBuildAppendsUnitsMissingFromRoster(t *testing.T) {
	tables := scenarioTables()
	tables[category.Remediate] = categoryTable(category.Remediate, []string{"remedial"},
		unitCounts{3, "Unit Three", []int64{4}})

	report, err := Build(tables)
	require.NoError(t, err)

	require.Len(t, report.Detail.Rows, 3)
	assert.Equal(t, int64(3), report.Detail.Rows[2].UnitID)
	assert.Equal(t, "Unit Three", report.Detail.Rows[2].UnitName)
	assert.Equal(t, int64(4), report.Detail.Rows[2].Usage)

	units := report.Summary.Units()
	require.Len(t, units, 3)
	assert.Equal(t, []int64{1, 3, 2}, []int64{units[0].UnitID, units[1].UnitID, units[2].UnitID})
	assert.Equal(t, int64(11), report.GrandTotal())
}

func TestBuildDetailDisambiguatesMetricNames(t *testing.T) {
	tables := scenarioTables()
	tables[category.Engage] = categoryTable(category.Engage, []string{"attendance", "notify"},
		unitCounts{1, "Unit One", []int64{3, 2}})

	detail, err := BuildDetail(tables)
	require.NoError(t, err)
	assert.Equal(t, "attendance", detail.Metrics[0].Name)
	assert.Equal(t, "attendance_engage", detail.Metrics[1].Name)
	assert.Equal(t, category.Engage, detail.Metrics[1].Category)
	assert.Equal(t, int64(10), detail.Rows[0].Usage)
}

func TestBuildDropsStrayNameColumn(t *testing.T) {
	tables := scenarioTables()
	teach := table.New(table.Int(table.ColUnitID), table.Text(table.ColUnitName), table.Text("name"), table.Int("attendance"))
	teach.Rows = []table.Row{
		{table.IntValue(1), table.TextValue("Unit One"), table.TextValue("dup"), table.IntValue(5)},
		{table.IntValue(2), table.TextValue("Unit Two"), table.TextValue("dup"), table.IntValue(0)},
	}
	tables[category.Teach] = CategoryTable{Category: category.Teach, Table: teach}

	report, err := Build(tables)
	require.NoError(t, err)
	assert.NotContains(t, report.Detail.Header(), "name")
	assert.Equal(t, int64(7), report.GrandTotal())
}

func TestBuildIsIdempotent(t *testing.T) {
	first, err := Build(scenarioTables())
	require.NoError(t, err)
	second, err := Build(scenarioTables())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuildErrors(t *testing.T) {
	t.Run("fewer than six tables", func(t *testing.T) {
		_, err := BuildDetail(scenarioTables()[:5])
		assert.ErrorIs(t, err, ErrEmptyInput)
		_, err = BuildSummary(scenarioTables()[:5])
		assert.ErrorIs(t, err, ErrCategoryCountMismatch)
	})

	t.Run("more than six tables", func(t *testing.T) {
		tables := append(scenarioTables(), categoryTable(category.Teach, nil))
		_, err := BuildDetail(tables)
		assert.ErrorIs(t, err, ErrCategoryCountMismatch)
		_, err = BuildSummary(tables)
		assert.ErrorIs(t, err, ErrCategoryCountMismatch)
	})

	t.Run("categories out of order", func(t *testing.T) {
		tables := scenarioTables()
		tables[0], tables[1] = tables[1], tables[0]
		_, err := BuildSummary(tables)
		assert.ErrorIs(t, err, ErrCategoryCountMismatch)
	})

	t.Run("missing unit_id", func(t *testing.T) {
		tables := scenarioTables()
		tables[category.Track] = CategoryTable{Category: category.Track, Table: table.New(table.Text(table.ColUnitName), table.Int("feedback"))}
		_, err := BuildDetail(tables)
		assert.ErrorIs(t, err, ErrSchemaMismatch)
		_, err = Build(tables)
		assert.ErrorIs(t, err, ErrSchemaMismatch)
	})

	t.Run("text metric", func(t *testing.T) {
		tables := scenarioTables()
		tables[category.Assess] = CategoryTable{Category: category.Assess, Table: table.New(table.Int(table.ColUnitID), table.Text("objective"))}
		_, err := BuildSummary(tables)
		assert.ErrorIs(t, err, ErrSchemaMismatch)
	})

	t.Run("duplicate unit", func(t *testing.T) {
		tables := scenarioTables()
		tables[category.Engage] = categoryTable(category.Engage, []string{"notify"},
			unitCounts{1, "Unit One", []int64{1}}, unitCounts{1, "Unit One", []int64{1}})
		_, err := BuildDetail(tables)
		assert.ErrorIs(t, err, ErrSchemaMismatch)
	})

	t.Run("negative count", func(t *testing.T) {
		tables := scenarioTables()
		tables[category.Engage] = categoryTable(category.Engage, []string{"notify"},
			unitCounts{1, "Unit One", []int64{-1}})
		_, err := BuildSummary(tables)
		assert.ErrorIs(t, err, ErrSchemaMismatch)
	})

	t.Run("empty roster", func(t *testing.T) {
		tables := scenarioTables()
		tables[category.Teach] = categoryTable(category.Teach, []string{"attendance"})
		_, err := BuildSummary(tables)
		assert.ErrorIs(t, err, ErrEmptyRoster)
	})
}

func TestCheckDetectsDrift(t *testing.T) {
	report, err := Build(scenarioTables())
	require.NoError(t, err)

	report.Detail.Rows[0].Usage++
	assert.ErrorIs(t, report.Check(), ErrConservation)

	report.Detail.Rows = report.Detail.Rows[:1]
	assert.ErrorIs(t, report.Check(), ErrConservation)
}
