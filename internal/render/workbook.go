// Package render turns a built report into the workbook, the email body and
// the operator-facing console and JSON outputs.
package render

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"teater-impact-report/internal/pipeline"
)

const (
	SummarySheet = "Usage_Data"
	DetailSheet  = "Individual_Data"

	AttachmentName  = "IMPACT_TEATER_DAILY_USAGE.xlsx"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Workbook writes the summary and detail tables to a two-sheet XLSX file.
func Workbook(summary pipeline.SummaryTable, detail pipeline.DetailTable) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(DetailSheet); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DCE6F1"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	summaryHeader := summary.Header()
	if err := writeSheet(f, SummarySheet, summaryHeader, summary.Records(), headerStyle); err != nil {
		return nil, err
	}
	if err := writeSheet(f, DetailSheet, detail.Header(), detail.Records(), headerStyle); err != nil {
		return nil, err
	}

	lastCell, err := excelize.CoordinatesToCellName(len(summaryHeader), len(summary.Rows)+1)
	if err != nil {
		return nil, err
	}
	if err := f.AutoFilter(SummarySheet, "A1:"+lastCell, []excelize.AutoFilterOptions{}); err != nil {
		return nil, fmt.Errorf("autofilter: %w", err)
	}
	if err := f.SetPanes(SummarySheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      1,
		TopLeftCell: "B2",
		ActivePane:  "bottomRight",
	}); err != nil {
		return nil, fmt.Errorf("freeze panes: %w", err)
	}
	if err := f.SetColWidth(SummarySheet, "A", "A", 40); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(SummarySheet, "B", "H", 12); err != nil {
		return nil, err
	}

	f.SetActiveSheet(0)
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, header []string, records [][]any, style int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("%s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}
	for i, record := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &record); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
