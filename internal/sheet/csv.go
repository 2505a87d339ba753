package sheet

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeCSV parses a CSV export. The delimiter is sniffed from the header
// line: spreadsheet tools in pt-BR locales export with ';'.
func DecodeCSV(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)

	head, err := br.Peek(3)
	if err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(3)
	}

	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(br)
	reader.FieldsPerRecord = -1 // allow variable fields
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		rows = append(rows, record)
	}

	// encoding/csv already skips empty lines; rows of empty fields remain.
	return tableFromRows(rows)
}

func sniffDelimiter(br *bufio.Reader) rune {
	line, _ := br.Peek(4096)
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}
