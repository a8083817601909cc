package ingest

import (
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"
)

// decodeXLSX reads the first sheet only. Row 1 holds the field names.
func decodeXLSX(r io.Reader) ([]Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &FormatError{Format: "xlsx", Reason: "open workbook", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &FormatError{Format: "xlsx", Reason: "read rows of " + sheets[0], Err: err}
	}
	if len(rows) == 0 {
		return nil, nil
	}

	// a repeated header keeps its first column
	headers := make([]string, len(rows[0]))
	seen := make(map[string]bool, len(rows[0]))
	for i, h := range rows[0] {
		h = normalizeHeader(h)
		if seen[h] {
			continue
		}
		seen[h] = true
		headers[i] = h
	}

	records := make([]Record, 0, len(rows)-1)
	for r, row := range rows[1:] {
		rec := make(Record, len(headers))
		for i, cell := range row {
			if i >= len(headers) || headers[i] == "" || cell == "" {
				continue
			}
			v, err := cellValue(f, sheets[0], i+1, r+2, cell)
			if err != nil {
				return nil, &FormatError{Format: "xlsx", Reason: "read cell", Err: err}
			}
			rec[headers[i]] = v
		}
		// blank rows are not records
		if len(rec) == 0 {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// cellValue types a raw cell the way JSON would: numbers as float64 and
// booleans as bool, so a numeric 0 is empty like in a JSON upload.
func cellValue(f *excelize.File, sheet string, col, row int, raw string) (any, error) {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return nil, err
	}
	typ, err := f.GetCellType(sheet, axis)
	if err != nil {
		return nil, err
	}

	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return n, nil
		}
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true"), nil
	}
	return raw, nil
}

func normalizeHeader(h string) string {
	return norm.NFC.String(strings.TrimSpace(h))
}
