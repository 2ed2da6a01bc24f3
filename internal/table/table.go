// Package table holds the small typed tabular structure the report is built from.
// Every table carries an explicit ordered schema; cells are interpreted through
// the kind of their column.
package table

import (
	"errors"
	"fmt"
)

// Kind is the type of a column.
type Kind int

const (
	KindInt Kind = iota
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindText:
		return "text"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Well-known column names shared by every stage.
const (
	ColUnitID   = "unit_id"
	ColUnitName = "unit_name"
)

// Column is one named, typed column.
type Column struct {
	Name string
	Kind Kind
}

// Int returns an int column.
func Int(name string) Column { return Column{Name: name, Kind: KindInt} }

// Text returns a text column.
func Text(name string) Column { return Column{Name: name, Kind: KindText} }

// Value is a single cell. Int columns read Int, text columns read Text.
type Value struct {
	Int  int64
	Text string
}

// IntValue wraps a count.
func IntValue(v int64) Value { return Value{Int: v} }

// TextValue wraps a label.
func TextValue(s string) Value { return Value{Text: s} }

// Row is one record, positionally aligned with the table schema.
type Row []Value

// Table is an ordered list of rows sharing one schema.
type Table struct {
	Columns []Column
	Rows    []Row
}

var ErrColumnNotFound = errors.New("column not found")

// New returns an empty table with the given schema.
func New(columns ...Column) Table {
	return Table{Columns: append([]Column(nil), columns...)}
}

// Index returns the position of the named column or -1.
func (t Table) Index(name string) int {
	for i, column := range t.Columns {
		if column.Name == name {
			return i
		}
	}
	return -1
}

// Has reports whether the named column exists.
func (t Table) Has(name string) bool {
	return t.Index(name) >= 0
}

// Append adds a row after checking its width.
func (t *Table) Append(row Row) error {
	if len(row) != len(t.Columns) {
		return fmt.Errorf("row has %d cells, schema has %d columns", len(row), len(t.Columns))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// IntColumns returns the names of numeric columns, skipping the listed ones.
func (t Table) IntColumns(skip ...string) []string {
	names := make([]string, 0, len(t.Columns))
	for _, column := range t.Columns {
		if column.Kind != KindInt || contains(skip, column.Name) {
			continue
		}
		names = append(names, column.Name)
	}
	return names
}

// Drop returns a copy of the table without the named columns. Missing names are ignored.
func (t Table) Drop(names ...string) Table {
	keep := make([]int, 0, len(t.Columns))
	out := Table{}
	for i, column := range t.Columns {
		if contains(names, column.Name) {
			continue
		}
		keep = append(keep, i)
		out.Columns = append(out.Columns, column)
	}
	out.Rows = make([]Row, 0, len(t.Rows))
	for _, row := range t.Rows {
		next := make(Row, len(keep))
		for j, idx := range keep {
			next[j] = row[idx]
		}
		out.Rows = append(out.Rows, next)
	}
	return out
}

// Rename returns a copy of the table with column old renamed to name.
func (t Table) Rename(old, name string) (Table, error) {
	idx := t.Index(old)
	if idx < 0 {
		return Table{}, fmt.Errorf("%w: %s", ErrColumnNotFound, old)
	}
	out := t.Clone()
	out.Columns[idx].Name = name
	return out, nil
}

// Clone returns a deep copy.
func (t Table) Clone() Table {
	out := Table{Columns: append([]Column(nil), t.Columns...)}
	out.Rows = make([]Row, len(t.Rows))
	for i, row := range t.Rows {
		out.Rows[i] = append(Row(nil), row...)
	}
	return out
}

// Sum returns the row-wise sum of the named int columns.
func (t Table) Sum(row Row, names []string) (int64, error) {
	var total int64
	for _, name := range names {
		idx := t.Index(name)
		if idx < 0 {
			return 0, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
		}
		if t.Columns[idx].Kind != KindInt {
			return 0, fmt.Errorf("column %s is %s, not int", name, t.Columns[idx].Kind)
		}
		total += row[idx].Int
	}
	return total, nil
}

func contains(list []string, name string) bool {
	for _, item := range list {
		if item == name {
			return true
		}
	}
	return false
}
