// Package category names the six TEATER metric groups in report order.
package category

import (
	"fmt"
	"strings"
)

// Category is one of the six fixed metric groups.
type Category int

const (
	Teach Category = iota
	Engage
	Assess
	Track
	Analyse
	Remediate
)

// Count is the number of categories every report is built from.
const Count = 6

// All lists the categories in report order.
var All = [Count]Category{Teach, Engage, Assess, Track, Analyse, Remediate}

var keys = [Count]string{"teach", "engage", "assess", "track", "analyse", "remediate"}

// Key is the lowercase column name used in the summary table.
func (c Category) Key() string {
	if !c.Valid() {
		return fmt.Sprintf("category%d", int(c))
	}
	return keys[c]
}

// Label is the display name.
func (c Category) Label() string {
	key := c.Key()
	return strings.ToUpper(key[:1]) + key[1:]
}

func (c Category) String() string { return c.Label() }

// Valid reports whether c is one of the six categories.
func (c Category) Valid() bool {
	return c >= Teach && c <= Remediate
}
