// Package window computes the reporting interval of a daily run.
package window

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultCutoffHour = 8

	LabelLayout = "02-Jan-2006 (03:04 PM)"
	DateLayout  = "02-Jan-2006"
	SQLLayout   = "2006-01-02 15:04:05"
)

// Window is the closed interval [Start, End] the extractors filter on.
type Window struct {
	Start time.Time
	End   time.Time
}

// Daily returns the 24 hours ending at cutoffHour on the calendar day of asOf,
// both read in loc.
func Daily(asOf time.Time, cutoffHour int, loc *time.Location) (Window, error) {
	if cutoffHour < 0 || cutoffHour > 23 {
		return Window{}, fmt.Errorf("cutoff hour %d out of range 0-23", cutoffHour)
	}
	if loc == nil {
		loc = time.Local
	}
	day := asOf.In(loc)
	end := time.Date(day.Year(), day.Month(), day.Day(), cutoffHour, 0, 0, 0, loc)
	return Window{Start: end.AddDate(0, 0, -1), End: end}, nil
}

func (w Window) StartLabel() string {
	return w.Start.Format(LabelLayout)
}

func (w Window) EndLabel() string {
	return w.End.Format(LabelLayout)
}

// ReportDate is the day the report is issued for, used in the mail subject.
func (w Window) ReportDate() string {
	return w.End.Format(DateLayout)
}

// Args returns the bounds as wall-clock strings for BETWEEN ? AND ?.
func (w Window) Args() (string, string) {
	return w.Start.Format(SQLLayout), w.End.Format(SQLLayout)
}

func (w Window) String() string {
	return w.StartLabel() + " to " + w.EndLabel()
}

// ParseDate accepts the date layouts operators tend to type on the command line.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty date")
	}
	if loc == nil {
		loc = time.Local
	}
	layouts := []string{
		"2006-01-02",
		"2006/01/02",
		"02-Jan-2006",
		"01/02/2006",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.ParseInLocation(layout, value, loc); err == nil {
			return parsed, nil
		}
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed.In(loc), nil
	}
	return time.Time{}, fmt.Errorf("unsupported date format: %s", value)
}
