// Package tabular reads uploaded spreadsheet and delimited files into a
// uniform in-memory table. It supports xlsx and legacy xls workbooks (first
// sheet only), comma-separated and tab-separated text. The first non-empty
// line is the header row; fully blank data rows are dropped, matching how
// spreadsheet tools export trailing padding.
package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// Table is a parsed tabular file: one header row plus data rows.
// Rows may be ragged; callers index through Cell which bounds-checks.
type Table struct {
	Headers []string
	Rows    [][]string
}

// RowCount returns the number of data rows (header excluded).
func (t *Table) RowCount() int {
	return len(t.Rows)
}

// HeaderIndex maps cleaned, lowercased header names to their column position.
func (t *Table) HeaderIndex() map[string]int {
	idx := make(map[string]int, len(t.Headers))
	for i, h := range t.Headers {
		idx[strings.ToLower(h)] = i
	}
	return idx
}

// Cell returns the trimmed value at (row, col), or "" when the row is
// shorter than the header (ragged CSV output is common).
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[row][col])
}

// Read parses file bytes according to the declared extension.
// Supported extensions: xlsx, xls, csv, tsv.
func Read(data []byte, ext string) (*Table, error) {
	switch strings.ToLower(ext) {
	case "csv":
		return readDelimited(data, ',')
	case "tsv":
		return readDelimited(data, '\t')
	case "xlsx":
		return readWorkbook(data)
	case "xls":
		return readLegacyWorkbook(data)
	default:
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
}

func readDelimited(data []byte, comma rune) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(sanitizeUTF8(data)))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse delimited file: %w", err)
	}
	return fromRecords(records)
}

func readWorkbook(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return fromRecords(records)
}

// maxLegacyRows caps legacy workbook reads at the BIFF sheet row limit.
const maxLegacyRows = 65536

// readLegacyWorkbook decodes the binary BIFF format produced by pre-2007
// Excel. First sheet only, same as readWorkbook.
func readLegacyWorkbook(data []byte) (*Table, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return fromRecords(wb.ReadAllCells(maxLegacyRows))
}

// fromRecords splits raw records into header + data rows, cleaning header
// names and dropping blank rows.
func fromRecords(records [][]string) (*Table, error) {
	start := 0
	for start < len(records) && isEmptyRow(records[start]) {
		start++
	}
	if start >= len(records) {
		return nil, fmt.Errorf("file has no header row")
	}

	headers := make([]string, len(records[start]))
	for i, h := range records[start] {
		headers[i] = cleanHeader(h)
	}

	var rows [][]string
	for _, rec := range records[start+1:] {
		if isEmptyRow(rec) {
			continue
		}
		rows = append(rows, rec)
	}

	return &Table{Headers: headers, Rows: rows}, nil
}

// cleanHeader strips whitespace, a UTF-8 BOM, and surrounding quotes from a
// header cell.
func cleanHeader(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// sanitizeUTF8 replaces invalid byte sequences with the replacement rune so
// the csv reader never chokes on mixed-encoding exports.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
