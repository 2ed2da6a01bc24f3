package pipeline

import "fmt"

// Report bundles the two output tables of one run.
type Report struct {
	Detail  DetailTable
	Summary SummaryTable
}

// Build runs both merges over the same six tables and cross-checks their totals.
func Build(tables []CategoryTable) (Report, error) {
	detail, err := BuildDetail(tables)
	if err != nil {
		return Report{}, fmt.Errorf("build detail: %w", err)
	}
	summary, err := BuildSummary(tables)
	if err != nil {
		return Report{}, fmt.Errorf("build summary: %w", err)
	}
	report := Report{Detail: detail, Summary: summary}
	if err := report.Check(); err != nil {
		return Report{}, err
	}
	return report, nil
}

// GrandTotal is the total column of the Total row.
func (r Report) GrandTotal() int64 {
	return r.Summary.TotalRow().Total
}

// Check verifies that both tables cover the same units and the same activity.
func (r Report) Check() error {
	units := r.Summary.Units()
	if len(units) != len(r.Detail.Rows) {
		return fmt.Errorf("%w: summary has %d units, detail has %d", ErrConservation, len(units), len(r.Detail.Rows))
	}
	if usage, total := r.Detail.Usage(), r.GrandTotal(); usage != total {
		return fmt.Errorf("%w: detail usage %d, summary total %d", ErrConservation, usage, total)
	}
	return nil
}
