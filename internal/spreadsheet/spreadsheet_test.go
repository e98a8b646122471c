package spreadsheet

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

func buildWorkbook(t *testing.T, sheets map[string][][]any, order ...string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseXLSX(t *testing.T) {
	data := buildWorkbook(t, map[string][][]any{
		"Leads": {
			{"Nombre", "Email", "Ref"},
			{"Ana", "ana@x.com", "X1"},
			{nil, nil, nil},
			{"Luis", nil, 42},
		},
		"Otros": {
			{"Empresa"},
			{"ACME"},
		},
	}, "Leads", "Otros")

	s, err := Parse("leads.xlsx", bytes.NewReader(data), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"Leads", "Otros"}, s.Sheets)
	assert.Equal(t, "Leads", s.Name)
	assert.Equal(t, []string{"Nombre", "Email", "Ref"}, s.Headers)
	require.Len(t, s.Rows, 3, "blank row kept in place")
	assert.Equal(t, "ana@x.com", s.Rows[0]["Email"])
	assert.Empty(t, s.Rows[1]["Nombre"])
	assert.Equal(t, "42", s.Rows[2]["Ref"])
	assert.Empty(t, s.Rows[2]["Email"])

	s, err = Parse("leads.xlsx", bytes.NewReader(data), "Otros")
	require.NoError(t, err)
	assert.Equal(t, "Otros", s.Name)
	assert.Equal(t, "ACME", s.Rows[0]["Empresa"])

	_, err = Parse("leads.xlsx", bytes.NewReader(data), "Missing")
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestParseXLSX_SniffedWithoutExtension(t *testing.T) {
	data := buildWorkbook(t, map[string][][]any{"S": {{"Email"}, {"a@x.com"}}}, "S")

	s, err := Parse("upload", bytes.NewReader(data), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Email"}, s.Headers)
}

func TestParseXLSX_Corrupt(t *testing.T) {
	_, err := Parse("leads.xlsx", strings.NewReader("PK\x03\x04 definitely not a zip"), "")
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		headers []string
		first   map[string]any
	}{
		{
			name:    "comma",
			input:   []byte("Nombre,Email\nAna,ana@x.com\n"),
			headers: []string{"Nombre", "Email"},
			first:   map[string]any{"Nombre": "Ana", "Email": "ana@x.com"},
		},
		{
			name:    "utf8 bom stripped",
			input:   []byte("\xef\xbb\xbfNombre,Email\nAna,ana@x.com\n"),
			headers: []string{"Nombre", "Email"},
			first:   map[string]any{"Nombre": "Ana", "Email": "ana@x.com"},
		},
		{
			name:    "semicolon",
			input:   []byte("Nombre;Teléfono;Notas\nAna;555;a, b\n"),
			headers: []string{"Nombre", "Teléfono", "Notas"},
			first:   map[string]any{"Nombre": "Ana", "Teléfono": "555", "Notas": "a, b"},
		},
		{
			name:    "ragged rows",
			input:   []byte("A,B,C\n1\n"),
			headers: []string{"A", "B", "C"},
			first:   map[string]any{"A": "1"},
		},
		{
			name:    "leading blank lines and duplicate headers",
			input:   []byte(",,\nEmail, Email ,\nx,y,z\n"),
			headers: []string{"Email", "Email_1"},
			first:   map[string]any{"Email": "x", "Email_1": "y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse("leads.csv", bytes.NewReader(tt.input), "")
			require.NoError(t, err)
			assert.Equal(t, []string{"csv"}, s.Sheets)
			assert.Equal(t, tt.headers, s.Headers)
			require.NotEmpty(t, s.Rows)
			assert.Equal(t, tt.first, s.Rows[0])
		})
	}
}

func TestParseCSV_KeepsBlankRows(t *testing.T) {
	s, err := ParseCSV(strings.NewReader("Nombre,Email\nAna,a@x.com\n,\nLuis,bad\n"))
	require.NoError(t, err)
	require.Len(t, s.Rows, 3)
	assert.Equal(t, map[string]any{"Nombre": "", "Email": ""}, s.Rows[1])
	assert.Equal(t, "Luis", s.Rows[2]["Nombre"])
}

func TestParseCSV_Windows1252(t *testing.T) {
	encoded, err := charmap.Windows1252.NewEncoder().String("País;Compañía\nEspaña;Piñata SA\n")
	require.NoError(t, err)

	s, err := Parse("leads.csv", strings.NewReader(encoded), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"País", "Compañía"}, s.Headers)
	assert.Equal(t, "España", s.Rows[0]["País"])
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		input    string
		want     error
	}{
		{"empty file", "leads.csv", "", ErrEmpty},
		{"whitespace file", "leads.csv", " \n\n ", ErrEmpty},
		{"header only blanks", "leads.csv", ",,\n,\n", ErrEmpty},
		{"legacy xls", "leads.xls", "\xd0\xcf\x11\xe0", ErrUnsupportedFormat},
		{"binary without extension", "upload", "\x00\x01\x02", ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.filename, strings.NewReader(tt.input), "")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSheetPreview(t *testing.T) {
	s := &Sheet{Headers: []string{"A"}, Rows: []map[string]any{{"A": "1"}, {"A": "2"}, {"A": "3"}}}

	p := s.Preview(2)
	assert.Len(t, p.Rows, 2)
	assert.Len(t, s.Rows, 3, "original untouched")
	assert.Len(t, s.Preview(10).Rows, 3)
}

func TestUniqueHeaders(t *testing.T) {
	headers, keep := uniqueHeaders([]string{"A", "A_1", "", "A", " B "})
	assert.Equal(t, []string{"A", "A_1", "A_2", "B"}, headers)
	assert.Equal(t, []int{0, 1, 3, 4}, keep)
}
