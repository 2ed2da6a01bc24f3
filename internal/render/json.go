package render

import (
	"encoding/json"
	"io"
	"time"

	"teater-impact-report/internal/pipeline"
	"teater-impact-report/internal/window"
)

type document struct {
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	GeneratedAt time.Time `json:"generated_at"`
	GrandTotal  int64     `json:"grand_total"`
	Summary     jsonTable `json:"summary"`
	Detail      jsonTable `json:"detail"`
}

type jsonTable struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// JSON writes both tables with their window as one indented document.
func JSON(w io.Writer, report pipeline.Report, win window.Window, generatedAt time.Time) error {
	data, err := json.MarshalIndent(document{
		WindowStart: win.Start,
		WindowEnd:   win.End,
		GeneratedAt: generatedAt,
		GrandTotal:  report.GrandTotal(),
		Summary:     jsonTable{Columns: report.Summary.Header(), Rows: report.Summary.Records()},
		Detail:      jsonTable{Columns: report.Detail.Header(), Rows: report.Detail.Records()},
	}, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
