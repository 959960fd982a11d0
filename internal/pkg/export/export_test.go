package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTable() Table {
	return Table{
		Title:   "Students 2025-2026",
		Headers: []string{"Student Number", "Name", "Final"},
		Rows: [][]string{
			{"2025-00001", "Dela Cruz, Juan", "88.50"},
			{"2025-00002", "=HYPERLINK(\"x\")", "-5"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat("Excel")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "students-20250102-030405.xlsx", FormatXLSX.FileName("students", now))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sampleTable()))

	body := strings.TrimPrefix(buf.String(), "\xEF\xBB\xBF")
	records, err := csv.NewReader(strings.NewReader(body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Student Number", "Name", "Final"}, records[0])
	assert.Equal(t, "Dela Cruz, Juan", records[1][1])
	assert.Equal(t, "'=HYPERLINK(\"x\")", records[2][1])
	assert.Equal(t, "-5", records[2][2])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, sampleTable()))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Students 2025-2026")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Student Number", rows[0][0])
	assert.Equal(t, "2025-00001", rows[1][0])
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "Report", sheetName("  "))
	assert.Equal(t, "a-b", sheetName("a/b"))
	assert.Len(t, []rune(sheetName(strings.Repeat("x", 40))), 31)
}
