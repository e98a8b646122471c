package spreadsheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ParseXLSX reads one worksheet of a workbook. Cells come back with their
// display formatting applied, so dates read as the user sees them.
func ParseXLSX(r io.Reader, sheet string) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrEmpty)
	}

	name := sheets[0]
	if sheet != "" {
		if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
			return nil, fmt.Errorf("%w: sheet %q not found", ErrUnreadable, sheet)
		}
		name = sheet
	}

	iter, err := f.Rows(name)
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %s: %v", ErrUnreadable, name, err)
	}
	defer func() {
		_ = iter.Close()
	}()

	var records [][]string
	for iter.Next() {
		row, err := iter.Columns()
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %s: %v", ErrUnreadable, name, err)
		}
		records = append(records, row)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("%w: sheet %s: %v", ErrUnreadable, name, err)
	}

	return buildSheet(sheets, name, records)
}
