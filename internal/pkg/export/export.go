// Package export renders tabular reports as CSV or Excel workbooks.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Format is an export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv", "xlsx" or "excel"; empty means csv
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type for the format
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// FileName builds an attachment name such as students-20250101.csv
func (f Format) FileName(base string, now time.Time) string {
	return fmt.Sprintf("%s-%s.%s", base, now.Format("20060102-150405"), f)
}

// Table is a titled grid of cells with a header row
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Write renders t in the given format
func Write(w io.Writer, format Format, t Table) error {
	switch format {
	case FormatXLSX:
		return WriteXLSX(w, t)
	case FormatCSV:
		return WriteCSV(w, t)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// WriteCSV renders t as RFC 4180 CSV with a UTF-8 BOM so spreadsheet apps detect the encoding
func WriteCSV(w io.Writer, t Table) error {
	if _, err := w.Write([]byte("\xEF\xBB\xBF")); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range t.Rows {
		if err := cw.Write(sanitizeRow(row)); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX renders t as a single-sheet workbook
func WriteXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(t.Title)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if len(t.Headers) > 0 {
		lastCol, err := excelize.ColumnNumberToName(len(t.Headers))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, "A", lastCol, 20); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// sheet names are limited to 31 characters and may not contain []:*?/\
func sheetName(title string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, strings.TrimSpace(title))
	if name == "" {
		name = "Report"
	}
	if len([]rune(name)) > 31 {
		name = string([]rune(name)[:31])
	}
	return name
}

// sanitizeRow prefixes cells that spreadsheets would evaluate as formulas
func sanitizeRow(row []string) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = v
		if v == "" || !strings.ContainsRune("=+-@", rune(v[0])) {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err == nil {
			continue
		}
		out[i] = "'" + v
	}
	return out
}
