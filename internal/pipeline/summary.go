package pipeline

import (
	"fmt"
	"sort"

	"teater-impact-report/internal/category"
	"teater-impact-report/internal/table"
)

// Sentinels printed in the label cells of the Total row.
const (
	TotalSequenceLabel = "Total"
	TotalUnitIDLabel   = "-"
	TotalUnitNameLabel = "Overall Total"
)

// SummaryRow holds one unit's per-category totals.
type SummaryRow struct {
	Sequence int
	UnitID   int64
	UnitName string
	Totals   [category.Count]int64
	Total    int64
	IsTotal  bool
}

// SummaryTable has the units sorted by total, followed by exactly one Total row.
type SummaryTable struct {
	Rows []SummaryRow
}

// Units returns the real unit rows, without the Total row.
func (s SummaryTable) Units() []SummaryRow {
	if len(s.Rows) == 0 {
		return nil
	}
	return s.Rows[:len(s.Rows)-1]
}

// TotalRow returns the synthetic Total row.
func (s SummaryTable) TotalRow() SummaryRow {
	if len(s.Rows) == 0 {
		return SummaryRow{IsTotal: true}
	}
	return s.Rows[len(s.Rows)-1]
}

// Header returns the column names in output order.
func (s SummaryTable) Header() []string {
	header := make([]string, 0, category.Count+4)
	header = append(header, ColSequence, table.ColUnitID, table.ColUnitName)
	for _, c := range category.All {
		header = append(header, c.Key())
	}
	return append(header, ColTotal)
}

// Records returns the rows as cells aligned with Header. The Total row carries
// its sentinel labels in place of sequence, unit_id and unit_name.
func (s SummaryTable) Records() [][]any {
	records := make([][]any, 0, len(s.Rows))
	for _, row := range s.Rows {
		record := make([]any, 0, category.Count+4)
		if row.IsTotal {
			record = append(record, TotalSequenceLabel, TotalUnitIDLabel, TotalUnitNameLabel)
		} else {
			record = append(record, row.Sequence, row.UnitID, row.UnitName)
		}
		for _, value := range row.Totals {
			record = append(record, value)
		}
		records = append(records, append(record, row.Total))
	}
	return records
}

// BuildSummary totals each category per unit. The roster is seeded from the
// Teach table; units that only show up in later categories are appended so the
// summary covers the same units as the detail table.
func BuildSummary(tables []CategoryTable) (SummaryTable, error) {
	if len(tables) != category.Count {
		return SummaryTable{}, fmt.Errorf("%w: got %d category tables, want %d", ErrCategoryCountMismatch, len(tables), category.Count)
	}
	prepared := make([]table.Table, len(tables))
	for i, ct := range tables {
		if ct.Category != category.All[i] {
			return SummaryTable{}, fmt.Errorf("%w: position %d holds %s, want %s", ErrCategoryCountMismatch, i, ct.Category, category.All[i])
		}
		t, err := prepare(ct)
		if err != nil {
			return SummaryTable{}, err
		}
		prepared[i] = t
	}

	roster := prepared[category.Teach]
	if len(roster.Rows) == 0 {
		return SummaryTable{}, fmt.Errorf("%w: %s table has no units", ErrEmptyRoster, category.Teach)
	}

	var units []*SummaryRow
	byID := make(map[int64]*SummaryRow, len(roster.Rows))
	lookup := func(t table.Table, row table.Row) *SummaryRow {
		id := row[t.Index(table.ColUnitID)].Int
		unit, ok := byID[id]
		if !ok {
			unit = &SummaryRow{UnitID: id}
			byID[id] = unit
			units = append(units, unit)
		}
		if unit.UnitName == "" {
			unit.UnitName = unitName(t, row)
		}
		return unit
	}
	for _, row := range roster.Rows {
		lookup(roster, row)
	}

	for c, t := range prepared {
		metrics := metricColumns(t)
		for _, row := range t.Rows {
			sum, err := t.Sum(row, metrics)
			if err != nil {
				return SummaryTable{}, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
			}
			lookup(t, row).Totals[c] += sum
		}
	}

	rows := make([]SummaryRow, 0, len(units)+1)
	for _, unit := range units {
		for _, value := range unit.Totals {
			unit.Total += value
		}
		rows = append(rows, *unit)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Total > rows[j].Total
	})

	totalRow := SummaryRow{IsTotal: true}
	for i := range rows {
		rows[i].Sequence = i + 1
		for c, value := range rows[i].Totals {
			totalRow.Totals[c] += value
		}
		totalRow.Total += rows[i].Total
	}
	return SummaryTable{Rows: append(rows, totalRow)}, nil
}
