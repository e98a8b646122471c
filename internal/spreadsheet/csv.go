package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// csvSheetName is the single sheet name reported for CSV input.
const csvSheetName = "csv"

// ParseCSV reads a delimited text file. A UTF-8 (or UTF-16) BOM is honored
// and stripped; input that is not valid UTF-8 is read as Windows-1252,
// which is what spreadsheet tools export on Spanish locales. The delimiter
// is ',' unless the header line has more ';' or tabs.
func ParseCSV(r io.Reader) (*Sheet, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	data, err := decodeText(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return buildSheet([]string{csvSheetName}, csvSheetName, records)
}

// decodeText converts raw bytes to UTF-8 without a BOM.
func decodeText(raw []byte) ([]byte, error) {
	var fallback encoding.Encoding = unicode.UTF8
	withoutBOM := bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(withoutBOM) && !hasUTF16BOM(raw) {
		fallback = charmap.Windows1252
	}

	dec := unicode.BOMOverride(fallback.NewDecoder())
	out, _, err := transform.Bytes(dec, raw)
	return out, err
}

func hasUTF16BOM(b []byte) bool {
	return bytes.HasPrefix(b, []byte{0xFE, 0xFF}) || bytes.HasPrefix(b, []byte{0xFF, 0xFE})
}

// sniffDelimiter inspects the first line.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte{byte(d)}); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}
