package extract

import (
	"fmt"
	"strings"

	"teater-impact-report/internal/source"
	"teater-impact-report/internal/table"
	"teater-impact-report/internal/window"
)

// buildQuery renders q for the dialect. Window bounds bind first, then the
// allow-list.
func buildQuery(d source.Dialect, m Model, q MetricQuery, units int) string {
	var b strings.Builder
	next := 1

	fmt.Fprintf(&b, "SELECT u.%s AS %s, u.%s AS %s, ", m.UnitID, table.ColUnitID, m.UnitName, table.ColUnitName)
	if q.Placeholder {
		fmt.Fprintf(&b, "0 AS %s\nFROM %s u\n", q.Metric, m.UnitTable)
	} else {
		present, key := "a.id", "a.id"
		if q.WindowOnBridge() {
			present, key = "b."+q.BridgeKey, "b."+q.BridgeKey
		}
		pair := d.Concat(key, "'-'", "m."+m.MemberColumn)
		fmt.Fprintf(&b, "COUNT(DISTINCT CASE WHEN %s IS NOT NULL THEN %s END) AS %s\n", present, pair, q.Metric)
		fmt.Fprintf(&b, "FROM %s u\n", m.UnitTable)
		fmt.Fprintf(&b, "LEFT JOIN %s m ON m.%s = u.%s\n", m.MemberTable, m.MemberUnit, m.UnitID)
		fmt.Fprintf(&b, "LEFT JOIN %s b ON b.%s = m.%s", q.Bridge, m.BridgeMember, m.MemberColumn)
		if q.WindowOnBridge() {
			fmt.Fprintf(&b, "\n\tAND b.%s BETWEEN %s AND %s\n", q.TimeColumn, d.Placeholder(next), d.Placeholder(next+1))
		} else {
			fmt.Fprintf(&b, "\nLEFT JOIN %s a ON a.id = b.%s\n\tAND a.%s BETWEEN %s AND %s\n", q.Activity, q.BridgeKey, q.TimeColumn, d.Placeholder(next), d.Placeholder(next+1))
		}
		next += 2
	}

	fmt.Fprintf(&b, "WHERE u.%s IN (%s)\n", m.UnitID, d.Placeholders(next, units))
	if !q.Placeholder {
		fmt.Fprintf(&b, "GROUP BY u.%s, u.%s\n", m.UnitID, m.UnitName)
	}
	fmt.Fprintf(&b, "ORDER BY u.%s", m.UnitID)
	return b.String()
}

// queryArgs binds in the same order buildQuery numbers the placeholders.
func queryArgs(d source.Dialect, q MetricQuery, win window.Window, units []int64) []any {
	args := make([]any, 0, len(units)+2)
	switch {
	case q.Placeholder:
	case d.TimeArgs:
		args = append(args, win.Start, win.End)
	default:
		start, end := win.Args()
		args = append(args, start, end)
	}
	for _, id := range units {
		args = append(args, id)
	}
	return args
}
