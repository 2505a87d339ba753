// Package sheet decodes and encodes the single-sheet spreadsheets exchanged
// with founders and investors.
package sheet

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrNoHeader is returned when a spreadsheet has no header row.
var ErrNoHeader = eris.New("sheet: no header row")

// Table is a decoded spreadsheet. The first row of the source is Headers;
// every following non-blank row is in Rows, in file order.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Width returns the number of header columns.
func (t *Table) Width() int {
	return len(t.Headers)
}

// Row returns row i padded or truncated to the header width.
func (t *Table) Row(i int) []string {
	out := make([]string, len(t.Headers))
	copy(out, t.Rows[i])
	return out
}

// AppendColumn adds a header and one value per row at the right edge.
// Existing columns keep their order; rows shorter than the header are padded
// first so the value lands under the new header.
func (t *Table) AppendColumn(header string, values []string) error {
	if len(values) != len(t.Rows) {
		return eris.Errorf("sheet: append column %q: %d values for %d rows", header, len(values), len(t.Rows))
	}
	width := len(t.Headers)
	t.Headers = append(t.Headers, header)
	for i, row := range t.Rows {
		padded := make([]string, width, width+1)
		copy(padded, row)
		t.Rows[i] = append(padded, values[i])
	}
	return nil
}

// DecodeFile reads an .xlsx or .csv file.
func DecodeFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "sheet: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return DecodeCSV(f)
	case ".xlsx":
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, eris.Wrapf(err, "sheet: read %s", path)
		}
		return Decode(data)
	default:
		return nil, eris.Errorf("sheet: unsupported file type %q", filepath.Ext(path))
	}
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// trimTrailingBlank drops fully blank rows at the end of rows.
func trimTrailingBlank(rows [][]string) [][]string {
	for len(rows) > 0 && isBlank(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	return rows
}
