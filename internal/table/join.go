package table

import (
	"errors"
	"fmt"
)

var (
	ErrKeyMissing      = errors.New("key column missing")
	ErrDuplicateKey    = errors.New("duplicate key")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrKindMismatch    = errors.New("column kind mismatch")
)

// OuterJoin merges right into left on the int column key.
//
// Left rows keep their order and right-only keys are appended in right order.
// A cell without a match is the zero Value, so unmatched counts read as 0 and
// never as missing. Columns listed in carry are denormalized copies: when both
// sides have one it is merged into the left column, filling it only where the
// left text is empty. Any other column present on both sides is an error.
func OuterJoin(left, right Table, key string, carry ...string) (Table, error) {
	lk, err := keyIndex(left, key)
	if err != nil {
		return Table{}, fmt.Errorf("left: %w", err)
	}
	rk, err := keyIndex(right, key)
	if err != nil {
		return Table{}, fmt.Errorf("right: %w", err)
	}

	columns := append([]Column(nil), left.Columns...)
	target := make([]int, len(right.Columns))
	merged := make([]bool, len(right.Columns))
	for i, column := range right.Columns {
		if i == rk {
			target[i] = lk
			continue
		}
		if idx := left.Index(column.Name); idx >= 0 {
			if !contains(carry, column.Name) {
				return Table{}, fmt.Errorf("%w: %s", ErrDuplicateColumn, column.Name)
			}
			if left.Columns[idx].Kind != column.Kind {
				return Table{}, fmt.Errorf("%w: %s is %s on the left and %s on the right", ErrKindMismatch, column.Name, left.Columns[idx].Kind, column.Kind)
			}
			target[i] = idx
			merged[i] = true
			continue
		}
		target[i] = len(columns)
		columns = append(columns, column)
	}

	rightByKey := make(map[int64]int, len(right.Rows))
	for i, row := range right.Rows {
		k := row[rk].Int
		if _, dup := rightByKey[k]; dup {
			return Table{}, fmt.Errorf("right: %w: %s=%d", ErrDuplicateKey, key, k)
		}
		rightByKey[k] = i
	}

	out := Table{Columns: columns, Rows: make([]Row, 0, len(left.Rows)+len(right.Rows))}
	seen := make(map[int64]struct{}, len(left.Rows))
	for _, lrow := range left.Rows {
		k := lrow[lk].Int
		if _, dup := seen[k]; dup {
			return Table{}, fmt.Errorf("left: %w: %s=%d", ErrDuplicateKey, key, k)
		}
		seen[k] = struct{}{}

		row := make(Row, len(columns))
		copy(row, lrow)
		if ri, ok := rightByKey[k]; ok {
			fill(row, right.Rows[ri], rk, target, merged)
		}
		out.Rows = append(out.Rows, row)
	}
	for _, rrow := range right.Rows {
		if _, ok := seen[rrow[rk].Int]; ok {
			continue
		}
		row := make(Row, len(columns))
		row[lk] = rrow[rk]
		fill(row, rrow, rk, target, merged)
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

func fill(dst, src Row, key int, target []int, merged []bool) {
	for i, value := range src {
		if i == key {
			continue
		}
		if merged[i] {
			if dst[target[i]].Text == "" {
				dst[target[i]] = value
			}
			continue
		}
		dst[target[i]] = value
	}
}

func keyIndex(t Table, key string) (int, error) {
	idx := t.Index(key)
	if idx < 0 {
		return -1, fmt.Errorf("%w: %s", ErrKeyMissing, key)
	}
	if t.Columns[idx].Kind != KindInt {
		return -1, fmt.Errorf("%w: key %s is %s", ErrKindMismatch, key, t.Columns[idx].Kind)
	}
	return idx, nil
}
