package sheet

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// DefaultSheetName names the sheet written by Encode when none is given.
const DefaultSheetName = "Sheet1"

// numericCell matches plain decimal numbers that survive a float round trip.
// Leading zeros ("00123") and signs ("+55...") stay text.
var numericCell = regexp.MustCompile(`^-?(0|[1-9][0-9]{0,10})(\.[0-9]{1,6})?$`)

// Decode parses the first sheet of an xlsx workbook. The first row is the
// header row.
func Decode(data []byte) (*Table, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open workbook")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: workbook has no sheets")
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		rows = append(rows, rowToStrings(row))
	}
	return tableFromRows(rows)
}

func tableFromRows(rows [][]string) (*Table, error) {
	rows = trimTrailingBlank(rows)
	if len(rows) == 0 || isBlank(rows[0]) {
		return nil, ErrNoHeader
	}

	headers := rows[0]
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	t := &Table{Headers: headers}
	for _, row := range rows[1:] {
		if row == nil {
			row = []string{}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Encode writes t as a single-sheet xlsx workbook. Numeric-looking values
// become number cells; everything else is written as text.
func Encode(t *Table, sheetName string) ([]byte, error) {
	if sheetName == "" {
		sheetName = DefaultSheetName
	}

	f := xlsx.NewFile()
	sh, err := f.AddSheet(sheetName)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: add sheet")
	}

	writeRow(sh.AddRow(), t.Headers, false)
	for _, row := range t.Rows {
		writeRow(sh.AddRow(), row, true)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, eris.Wrap(err, "xlsx: write workbook")
	}
	return buf.Bytes(), nil
}

func writeRow(r *xlsx.Row, values []string, numbers bool) {
	for _, v := range values {
		cell := r.AddCell()
		if numbers && numericCell.MatchString(v) {
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				cell.SetFloat(n)
				continue
			}
		}
		cell.SetString(v)
	}
}

func rowToStrings(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		if cell == nil {
			continue
		}
		cells[j] = cell.String()
	}
	return cells
}
