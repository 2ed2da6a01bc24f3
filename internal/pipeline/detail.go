package pipeline

import (
	"fmt"

	"teater-impact-report/internal/category"
	"teater-impact-report/internal/table"
)

// MetricColumn is one metric column of the detail table.
type MetricColumn struct {
	Name     string
	Category category.Category
}

// DetailRow is one unit with every metric of every category.
type DetailRow struct {
	Sequence int
	UnitID   int64
	UnitName string
	Metrics  []int64
	Usage    int64
}

// DetailTable has one row per unit and one column per metric, bracketed by
// sequence on the left and unit_usage on the right.
type DetailTable struct {
	Metrics []MetricColumn
	Rows    []DetailRow
}

// Header returns the column names in output order.
func (d DetailTable) Header() []string {
	header := make([]string, 0, len(d.Metrics)+4)
	header = append(header, ColSequence, table.ColUnitID, table.ColUnitName)
	for _, metric := range d.Metrics {
		header = append(header, metric.Name)
	}
	return append(header, ColUnitUsage)
}

// Records returns the rows as cells aligned with Header.
func (d DetailTable) Records() [][]any {
	records := make([][]any, 0, len(d.Rows))
	for _, row := range d.Rows {
		record := make([]any, 0, len(row.Metrics)+4)
		record = append(record, row.Sequence, row.UnitID, row.UnitName)
		for _, value := range row.Metrics {
			record = append(record, value)
		}
		records = append(records, append(record, row.Usage))
	}
	return records
}

// Usage returns the sum of unit_usage over all rows.
func (d DetailTable) Usage() int64 {
	var total int64
	for _, row := range d.Rows {
		total += row.Usage
	}
	return total
}

// BuildDetail outer-joins the category tables left to right on unit_id.
// Metric names already taken by an earlier category get a _<category> suffix.
func BuildDetail(tables []CategoryTable) (DetailTable, error) {
	if len(tables) < category.Count {
		return DetailTable{}, fmt.Errorf("%w: got %d category tables, need %d", ErrEmptyInput, len(tables), category.Count)
	}
	if len(tables) > category.Count {
		return DetailTable{}, fmt.Errorf("%w: got %d category tables, want %d", ErrCategoryCountMismatch, len(tables), category.Count)
	}

	var (
		acc     table.Table
		metrics []MetricColumn
	)
	for i, ct := range tables {
		prepared, err := prepare(ct)
		if err != nil {
			return DetailTable{}, err
		}
		for _, name := range metricColumns(prepared) {
			if i > 0 && acc.Has(name) {
				renamed := name + "_" + ct.Category.Key()
				if prepared, err = prepared.Rename(name, renamed); err != nil {
					return DetailTable{}, err
				}
				name = renamed
			}
			metrics = append(metrics, MetricColumn{Name: name, Category: ct.Category})
		}
		if i == 0 {
			acc = prepared
			continue
		}
		if acc, err = table.OuterJoin(acc, prepared, table.ColUnitID, table.ColUnitName); err != nil {
			return DetailTable{}, fmt.Errorf("%w: merge %s: %v", ErrSchemaMismatch, ct.Category, err)
		}
	}

	positions := make([]int, len(metrics))
	for i, metric := range metrics {
		positions[i] = acc.Index(metric.Name)
	}
	idIdx := acc.Index(table.ColUnitID)

	detail := DetailTable{Metrics: metrics, Rows: make([]DetailRow, 0, len(acc.Rows))}
	for i, row := range acc.Rows {
		out := DetailRow{
			Sequence: i + 1,
			UnitID:   row[idIdx].Int,
			UnitName: unitName(acc, row),
			Metrics:  make([]int64, len(positions)),
		}
		for j, pos := range positions {
			out.Metrics[j] = row[pos].Int
			out.Usage += row[pos].Int
		}
		detail.Rows = append(detail.Rows, out)
	}
	return detail, nil
}
