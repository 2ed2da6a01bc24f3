package render

import (
	"bytes"
	"html/template"
	"time"

	"teater-impact-report/internal/pipeline"
	"teater-impact-report/internal/window"
)

const generatedLayout = "02-Jan-2006 15:04:05"

// EmailData feeds the email page.
type EmailData struct {
	Window      window.Window
	GeneratedAt time.Time
	Summary     pipeline.SummaryTable
	Greeting    string
	// Signature lines, printed under "Warm regards,".
	Signature []string
}

var tableTemplate = template.Must(template.New("table").Parse(`<table class="styled-table">
<thead><tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{- range .Records}}
<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
</tbody>
</table>`))

var pageTemplate = template.Must(template.New("page").Parse(`<html>
<head>
<style>
	body { font-family: 'Segoe UI', Arial, sans-serif; background-color: #f7f9fc; color: #333; margin: 20px; }
	.container { background-color: #ffffff; border-radius: 12px; box-shadow: 0 2px 10px rgba(0,0,0,0.08); padding: 25px; max-width: 900px; margin: auto; }
	h2 { color: #004aad; text-align: center; margin-bottom: 20px; }
	p { font-size: 15px; line-height: 1.6; }
	.styled-table { border-collapse: collapse; width: 100%; margin-top: 20px; border-radius: 8px; overflow: hidden; box-shadow: 0 0 10px rgba(0,0,0,0.05); }
	.styled-table th { background-color: #007BFF; color: white; text-align: center; padding: 10px; }
	.styled-table td { padding: 8px; text-align: center; border-bottom: 1px solid #ddd; }
	.styled-table tr:nth-child(even) { background-color: #f3f6fa; }
	.footer { text-align: left; font-size: 14px; color: #333; margin-top: 30px; border-top: 1px solid #ddd; padding-top: 10px; }
	.signature { margin-top: 20px; line-height: 1.5; font-size: 14px; }
	.signature b { color: #004aad; }
</style>
</head>
<body>
<div class="container">
	<h2>Daily Feature Impact Summary Report</h2>
	<p>{{.Greeting}}</p>
	<p>
		Please find below the latest <b>Feature impact Table</b>, automatically generated.<br><br>
		This data reflects the usage activity from <b>{{.Start}}</b> to <b>{{.End}}</b>.<br><br>
		The full per-metric breakdown is attached as a workbook.
	</p>
	{{.Table}}
	<div class="footer">
		<p><b>Generated on:</b> {{.Generated}}</p>
		<p>This report was automatically generated by the <b>TEATER Analytics System</b>.</p>
	</div>
	{{- if .Signature}}
	<div class="signature">
		<p><b>Warm regards,</b>{{range .Signature}}<br>{{.}}{{end}}</p>
	</div>
	{{- end}}
</div>
</body>
</html>
`))

// SummaryHTML renders the summary table as an HTML fragment.
func SummaryHTML(summary pipeline.SummaryTable) (template.HTML, error) {
	var buf bytes.Buffer
	err := tableTemplate.Execute(&buf, struct {
		Header  []string
		Records [][]any
	}{summary.Header(), summary.Records()})
	if err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// EmailHTML renders the full email page around the summary table.
func EmailHTML(data EmailData) (string, error) {
	table, err := SummaryHTML(data.Summary)
	if err != nil {
		return "", err
	}
	greeting := data.Greeting
	if greeting == "" {
		greeting = "Hi,"
	}

	var buf bytes.Buffer
	err = pageTemplate.Execute(&buf, struct {
		Greeting  string
		Start     string
		End       string
		Table     template.HTML
		Generated string
		Signature []string
	}{
		Greeting:  greeting,
		Start:     data.Window.StartLabel(),
		End:       data.Window.EndLabel(),
		Table:     table,
		Generated: data.GeneratedAt.Format(generatedLayout),
		Signature: data.Signature,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
