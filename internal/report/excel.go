// internal/report/excel.go
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/promoscout/promoscout/internal/store"
)

// maxCellLength caps descriptions at Excel's per-cell character limit.
const maxCellLength = 32767

var campaignHeaders = []string{
	"ID", "Name", "Description", "Category", "Competitor",
	"Source URL", "First Seen", "Last Seen", "Active",
}

var campaignColumnWidths = map[string]float64{
	"Name":        32,
	"Description": 60,
	"Category":    14,
	"Competitor":  16,
	"Source URL":  45,
	"First Seen":  20,
	"Last Seen":   20,
}

// ExcelExporter writes campaign snapshots to .xlsx workbooks for handoff to
// marketing analysts.
type ExcelExporter struct {
	sheetName string
}

// NewExcelExporter creates an exporter. sheetName may be empty.
func NewExcelExporter(sheetName string) *ExcelExporter {
	if sheetName == "" {
		sheetName = "Campaigns"
	}
	return &ExcelExporter{sheetName: sheetName}
}

// Export writes the campaigns to an Excel workbook at path. The sheet gets a
// styled, frozen header row and an auto filter over the data range.
func (e *ExcelExporter) Export(campaigns []store.Campaign, path string) error {
	if path == "" {
		return fmt.Errorf("export file path is required")
	}
	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return fmt.Errorf("export file path must end with .xlsx")
	}

	file := excelize.NewFile()
	defer file.Close()

	defaultSheet := file.GetSheetName(0)
	if defaultSheet != e.sheetName {
		file.SetSheetName(defaultSheet, e.sheetName)
	}

	if err := e.writeHeaders(file); err != nil {
		return err
	}

	for i, c := range campaigns {
		if err := e.writeCampaign(file, i+2, c); err != nil {
			return err
		}
	}

	if err := e.applyLayout(file, len(campaigns)); err != nil {
		return err
	}

	if err := file.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func (e *ExcelExporter) writeHeaders(file *excelize.File) error {
	style, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E0E0E0"},
			Pattern: 1,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range campaignHeaders {
		cell := columnName(col+1) + "1"
		if err := file.SetCellValue(e.sheetName, cell, header); err != nil {
			return fmt.Errorf("failed to write header %s: %w", header, err)
		}
		if err := file.SetCellStyle(e.sheetName, cell, cell, style); err != nil {
			return err
		}
	}
	return nil
}

func (e *ExcelExporter) writeCampaign(file *excelize.File, row int, c store.Campaign) error {
	description := truncateRunes(c.Description, maxCellLength)

	values := []interface{}{
		c.ID,
		c.Name,
		description,
		c.Category,
		c.Competitor,
		c.SourceURL,
		formatTime(c.FirstSeenAt),
		formatTime(c.LastSeenAt),
		c.Active,
	}

	for col, value := range values {
		cell := columnName(col+1) + strconv.Itoa(row)
		if err := file.SetCellValue(e.sheetName, cell, value); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}
	return nil
}

func (e *ExcelExporter) applyLayout(file *excelize.File, rows int) error {
	for col, header := range campaignHeaders {
		name := columnName(col + 1)
		width := 12.0
		if w, ok := campaignColumnWidths[header]; ok {
			width = w
		}
		if err := file.SetColWidth(e.sheetName, name, name, width); err != nil {
			return err
		}
	}

	if rows > 0 {
		lastCell := columnName(len(campaignHeaders)) + strconv.Itoa(rows+1)
		if err := file.AutoFilter(e.sheetName, "A1:"+lastCell, nil); err != nil {
			return err
		}
	}

	return file.SetPanes(e.sheetName, &excelize.Panes{
		Freeze: true,
		XSplit: 0,
		YSplit: 1,
	})
}

// truncateRunes shortens s to at most limit runes. The cell limit counts
// characters, and cutting by byte could split a multi-byte sequence.
func truncateRunes(s string, limit int) string {
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

// columnName converts a 1-based column number to its Excel letter name.
func columnName(col int) string {
	name := ""
	for col > 0 {
		col--
		name = string(rune('A'+col%26)) + name
		col /= 26
	}
	return name
}
