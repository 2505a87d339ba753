package sheet

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func buildXLSX(t *testing.T, sheets map[string][][]string, order ...string) []byte {
	t.Helper()
	f := xlsx.NewFile()
	for _, name := range order {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range sheets[name] {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				row.AddCell().SetString(cellData)
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestDecode_Basic(t *testing.T) {
	data := buildXLSX(t, map[string][][]string{
		"Startups": {
			{" Nome ", "E-mail", "Setor"},
			{"Acme", "a@acme.co", "Fintech"},
			{"Beta", "b@beta.co", "Edtech"},
		},
	}, "Startups")

	tbl, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"Nome", "E-mail", "Setor"}, tbl.Headers)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []string{"Acme", "a@acme.co", "Fintech"}, tbl.Rows[0])
	assert.Equal(t, []string{"Beta", "b@beta.co", "Edtech"}, tbl.Rows[1])
}

func TestDecode_FirstSheetOnly(t *testing.T) {
	data := buildXLSX(t, map[string][][]string{
		"First":  {{"a"}, {"1"}},
		"Second": {{"x"}, {"2"}, {"3"}},
	}, "First", "Second")

	tbl, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, tbl.Headers)
	assert.Len(t, tbl.Rows, 1)
}

func TestDecode_TrailingBlankRows(t *testing.T) {
	data := buildXLSX(t, map[string][][]string{
		"S": {
			{"email"},
			{"a@b.co"},
			{""},
			{"c@d.co"},
			{" "},
			{""},
		},
	}, "S")

	tbl, err := Decode(data)
	require.NoError(t, err)
	// Interior blank rows are kept so row numbers match the file.
	require.Len(t, tbl.Rows, 3)
	assert.Equal(t, "c@d.co", tbl.Rows[2][0])
}

func TestDecode_NoHeader(t *testing.T) {
	data := buildXLSX(t, map[string][][]string{"S": {}}, "S")
	_, err := Decode(data)
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestDecode_Corrupt(t *testing.T) {
	_, err := Decode([]byte("not a workbook"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xlsx: open workbook")
}

func TestEncode_RoundTrip(t *testing.T) {
	in := &Table{
		Headers: []string{"Name", "Valuation", "Zip", "MatchScore"},
		Rows: [][]string{
			{"Acme", "1000000", "00123", "43.89%"},
			{"Beta", "2.5", "", "100.00%"},
		},
	}

	data, err := Encode(in, "Classified")
	require.NoError(t, err)

	f, err := xlsx.OpenBinary(data)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	assert.Equal(t, "Classified", f.Sheets[0].Name)

	out, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, in.Headers, out.Headers)
	require.Len(t, out.Rows, 2)
	assert.Equal(t, []string{"Acme", "1000000", "00123", "43.89%"}, out.Rows[0])
	assert.Equal(t, "2.5", out.Rows[1][1])
	assert.Equal(t, "100.00%", out.Rows[1][3])
}

func TestEncode_DefaultSheetName(t *testing.T) {
	data, err := Encode(&Table{Headers: []string{"a"}}, "")
	require.NoError(t, err)

	f, err := xlsx.OpenBinary(data)
	require.NoError(t, err)
	assert.Equal(t, DefaultSheetName, f.Sheets[0].Name)
}

func TestAppendColumn(t *testing.T) {
	tbl := &Table{
		Headers: []string{"a", "b", "c"},
		Rows:    [][]string{{"1", "2", "3"}, {"4"}},
	}
	require.NoError(t, tbl.AppendColumn("Match Score", []string{"10.00%", "20.00%"}))

	assert.Equal(t, []string{"a", "b", "c", "Match Score"}, tbl.Headers)
	assert.Equal(t, []string{"1", "2", "3", "10.00%"}, tbl.Rows[0])
	assert.Equal(t, []string{"4", "", "", "20.00%"}, tbl.Rows[1])

	err := tbl.AppendColumn("x", []string{"only one"})
	require.Error(t, err)
}

func TestRow_Padding(t *testing.T) {
	tbl := &Table{Headers: []string{"a", "b"}, Rows: [][]string{{"1"}, {"1", "2", "3"}}}
	assert.Equal(t, []string{"1", ""}, tbl.Row(0))
	assert.Equal(t, []string{"1", "2"}, tbl.Row(1))
	assert.Equal(t, 2, tbl.Width())
}

func TestDecodeCSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"comma", "name,email\nAcme,a@acme.co\n"},
		{"semicolon", "name;email\nAcme;a@acme.co\n"},
		{"bom", "\xEF\xBB\xBFname,email\nAcme,a@acme.co\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := DecodeCSV(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, []string{"name", "email"}, tbl.Headers)
			assert.Equal(t, [][]string{{"Acme", "a@acme.co"}}, tbl.Rows)
		})
	}
}

func TestDecodeCSV_Empty(t *testing.T) {
	_, err := DecodeCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestDecodeFile(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "founders.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("email\na@b.co\n"), 0o644))
	tbl, err := DecodeFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"email"}, tbl.Headers)

	xlsxPath := filepath.Join(dir, "founders.XLSX")
	require.NoError(t, os.WriteFile(xlsxPath, buildXLSX(t, map[string][][]string{"S": {{"email"}, {"a@b.co"}}}, "S"), 0o644))
	tbl, err = DecodeFile(xlsxPath)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a@b.co"}}, tbl.Rows)

	_, err = DecodeFile(filepath.Join(dir, "founders.pdf"))
	require.Error(t, err)

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o644))
	_, err = DecodeFile(txt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}
