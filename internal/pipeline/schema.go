// Package pipeline merges the six category tables into the detail and summary
// tables of the daily report.
package pipeline

import (
	"errors"
	"fmt"

	"teater-impact-report/internal/category"
	"teater-impact-report/internal/table"
)

var (
	ErrSchemaMismatch        = errors.New("schema mismatch")
	ErrCategoryCountMismatch = errors.New("category count mismatch")
	ErrEmptyInput            = errors.New("empty input")
	ErrEmptyRoster           = errors.New("empty roster")
	ErrConservation          = errors.New("totals do not reconcile")
)

// Output column names.
const (
	ColSequence  = "sequence"
	ColUnitUsage = "unit_usage"
	ColTotal     = "total"

	// colStrayName is the denormalized copy some extractors carry alongside unit_name.
	colStrayName = "name"
)

// CategoryTable is the output of one category extractor.
type CategoryTable struct {
	Category category.Category
	Table    table.Table
}

// prepare drops the stray name column and validates the merge schema:
// an int unit_id, an optional text unit_name, unique units, and only
// non-negative int metrics beyond that.
func prepare(ct CategoryTable) (table.Table, error) {
	t := ct.Table.Drop(colStrayName)

	idx := t.Index(table.ColUnitID)
	if idx < 0 {
		return table.Table{}, fmt.Errorf("%w: %s table has no %s column", ErrSchemaMismatch, ct.Category, table.ColUnitID)
	}
	if t.Columns[idx].Kind != table.KindInt {
		return table.Table{}, fmt.Errorf("%w: %s.%s is %s", ErrSchemaMismatch, ct.Category, table.ColUnitID, t.Columns[idx].Kind)
	}

	names := make(map[string]struct{}, len(t.Columns))
	for _, column := range t.Columns {
		if _, dup := names[column.Name]; dup {
			return table.Table{}, fmt.Errorf("%w: %s table repeats column %s", ErrSchemaMismatch, ct.Category, column.Name)
		}
		names[column.Name] = struct{}{}

		switch column.Name {
		case table.ColUnitID:
		case table.ColUnitName:
			if column.Kind != table.KindText {
				return table.Table{}, fmt.Errorf("%w: %s.%s is %s", ErrSchemaMismatch, ct.Category, column.Name, column.Kind)
			}
		case ColSequence, ColUnitUsage, ColTotal:
			return table.Table{}, fmt.Errorf("%w: %s table uses reserved column %s", ErrSchemaMismatch, ct.Category, column.Name)
		default:
			if column.Kind != table.KindInt {
				return table.Table{}, fmt.Errorf("%w: %s metric %s is %s", ErrSchemaMismatch, ct.Category, column.Name, column.Kind)
			}
		}
	}

	seen := make(map[int64]struct{}, len(t.Rows))
	for _, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return table.Table{}, fmt.Errorf("%w: %s row has %d cells for %d columns", ErrSchemaMismatch, ct.Category, len(row), len(t.Columns))
		}
		id := row[idx].Int
		if _, dup := seen[id]; dup {
			return table.Table{}, fmt.Errorf("%w: %s table repeats unit %d", ErrSchemaMismatch, ct.Category, id)
		}
		seen[id] = struct{}{}
		for i, column := range t.Columns {
			if column.Kind == table.KindInt && i != idx && row[i].Int < 0 {
				return table.Table{}, fmt.Errorf("%w: %s.%s is negative for unit %d", ErrSchemaMismatch, ct.Category, column.Name, id)
			}
		}
	}
	return t, nil
}

func metricColumns(t table.Table) []string {
	return t.IntColumns(table.ColUnitID)
}

func unitName(t table.Table, row table.Row) string {
	if idx := t.Index(table.ColUnitName); idx >= 0 {
		return row[idx].Text
	}
	return ""
}
