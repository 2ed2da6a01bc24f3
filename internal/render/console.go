package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"teater-impact-report/internal/pipeline"
	"teater-impact-report/internal/window"
)

// Console prints the summary table for an operator watching the run.
func Console(w io.Writer, summary pipeline.SummaryTable, win window.Window) error {
	fmt.Fprintln(w, "TEATER Daily Usage Report")
	fmt.Fprintln(w, strings.Repeat("=", 38))
	fmt.Fprintf(w, "Window: %s\n", win)
	fmt.Fprintf(w, "Units: %d\n", len(summary.Units()))
	fmt.Fprintf(w, "Total activities: %d\n\n", summary.TotalRow().Total)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, strings.Join(summary.Header(), "\t")+"\t")
	for _, record := range summary.Records() {
		cells := make([]string, len(record))
		for i, cell := range record {
			cells[i] = fmt.Sprint(cell)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t")
	}
	return tw.Flush()
}
