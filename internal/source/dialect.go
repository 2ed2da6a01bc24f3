package source

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect covers the few spots where the supported engines disagree.
type Dialect struct {
	Name string
	// Numbered placeholders ($1, $2, ...) instead of ?.
	Numbered bool
	// PipeConcat uses the || operator instead of CONCAT().
	PipeConcat bool
	// TimeArgs binds time bounds as time.Time instead of wall-clock strings.
	TimeArgs bool
}

var (
	MySQL    = Dialect{Name: DriverMySQL}
	Postgres = Dialect{Name: DriverPostgres, Numbered: true, PipeConcat: true, TimeArgs: true}
	SQLite   = Dialect{Name: DriverSQLite, PipeConcat: true}
)

func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case DriverMySQL:
		return MySQL, nil
	case DriverPostgres:
		return Postgres, nil
	case DriverSQLite:
		return SQLite, nil
	}
	return Dialect{}, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
}

// Placeholder returns the bind marker for the n-th argument, counting from 1.
func (d Dialect) Placeholder(n int) string {
	if d.Numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Placeholders returns count markers starting at the n-th argument, comma separated.
func (d Dialect) Placeholders(n, count int) string {
	marks := make([]string, count)
	for i := range marks {
		marks[i] = d.Placeholder(n + i)
	}
	return strings.Join(marks, ", ")
}

// Concat joins SQL expressions into one string expression.
func (d Dialect) Concat(parts ...string) string {
	if d.PipeConcat {
		cast := make([]string, len(parts))
		for i, part := range parts {
			if strings.HasPrefix(part, "'") {
				cast[i] = part
				continue
			}
			cast[i] = "CAST(" + part + " AS TEXT)"
		}
		return "(" + strings.Join(cast, " || ") + ")"
	}
	return "CONCAT(" + strings.Join(parts, ", ") + ")"
}
