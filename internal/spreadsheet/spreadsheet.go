// Package spreadsheet reads uploaded .xlsx and .csv files into header-keyed
// rows, the same shape the JSON import endpoint accepts.
//
// The first non-empty row holds the headers. Blank headers drop their
// column, and repeated headers get a numeric suffix ("Email", "Email_1").
// Blank rows below the header are kept so row numbers match the file.
package spreadsheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
	ErrUnreadable        = errors.New("unreadable spreadsheet")
	ErrEmpty             = errors.New("empty spreadsheet")
)

// Format is a supported file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// zipMagic starts every .xlsx (a zip container).
var zipMagic = []byte("PK\x03\x04")

// Sheet is one parsed worksheet.
type Sheet struct {
	// Sheets lists every worksheet in the workbook (one entry for CSV).
	Sheets  []string         `json:"sheets"`
	Name    string           `json:"sheet"`
	Headers []string         `json:"headers"`
	Rows    []map[string]any `json:"rows"`
}

// DetectFormat picks the format from the file extension, falling back to
// content sniffing when the name is uninformative.
func DetectFormat(filename string, head []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xls", ".ods", ".numbers", ".pdf", ".json":
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
	if bytes.HasPrefix(head, zipMagic) {
		return FormatXLSX, nil
	}
	if len(head) > 0 && !bytes.ContainsRune(head, 0) {
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)
}

// Parse reads r as the format implied by filename. sheet selects an xlsx
// worksheet by name; empty means the first one.
func Parse(filename string, r io.Reader, sheet string) (*Sheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmpty
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	format, err := DetectFormat(filename, head)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatXLSX:
		return ParseXLSX(bytes.NewReader(data), sheet)
	default:
		return ParseCSV(bytes.NewReader(data))
	}
}

// Preview returns a copy of s limited to n rows.
func (s *Sheet) Preview(n int) *Sheet {
	out := *s
	if n >= 0 && len(out.Rows) > n {
		out.Rows = out.Rows[:n]
	}
	return &out
}

// buildSheet turns raw records into header-keyed rows.
func buildSheet(sheets []string, name string, records [][]string) (*Sheet, error) {
	start := -1
	for i, rec := range records {
		if !isEmptyRow(rec) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, ErrEmpty
	}

	headers, keep := uniqueHeaders(records[start])
	if len(headers) == 0 {
		return nil, fmt.Errorf("%w: header row has no names", ErrEmpty)
	}

	s := &Sheet{Sheets: sheets, Name: name, Headers: headers, Rows: []map[string]any{}}
	for _, rec := range records[start+1:] {
		row := make(map[string]any, len(headers))
		for h, col := range keep {
			if col < len(rec) {
				row[headers[h]] = rec[col]
			}
		}
		s.Rows = append(s.Rows, row)
	}
	return s, nil
}

// uniqueHeaders trims header cells, drops blank ones and suffixes repeats.
// keep[i] is the record index feeding headers[i].
func uniqueHeaders(raw []string) (headers []string, keep []int) {
	used := make(map[string]bool, len(raw))
	suffix := make(map[string]int)
	for i, cell := range raw {
		h := strings.TrimSpace(cell)
		if h == "" {
			continue
		}
		name := h
		for used[name] {
			suffix[h]++
			name = h + "_" + strconv.Itoa(suffix[h])
		}
		used[name] = true
		headers = append(headers, name)
		keep = append(keep, i)
	}
	return headers, keep
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
