package core

// convert.go turns loosely typed spreadsheet cells into the strings a
// LeadRecord carries.
//
// Cells arrive from JSON (string, json.Number, float64, bool, nil) or from
// the spreadsheet reader (string). Dates are free-form: slash dates read
// month first, while dash and dot dates read day first, so 03-04-2024 is
// 3 April.

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// TimestampLayout is the canonical created_at format.
const TimestampLayout = "2006-01-02 15:04:05"

// twoDigitYearPivot defines how 2-digit years are interpreted: years that
// would land more than this many years in the future go back a century.
const twoDigitYearPivot = 20

// Years outside this range are treated as unparsed. Partial dates such as
// "12/31" come back from the generic parser as year 0, which the store
// rejects.
const (
	minYear = 1
	maxYear = 9999
)

// Day-first layouts checked before the generic parser.
var (
	dayFirstLayouts = []string{
		"2-1-2006", "2.1.2006",
		"2-1-2006 15:04", "2.1.2006 15:04",
		"2-1-2006 15:04:05", "2.1.2006 15:04:05",
	}
	dayFirstTwoDigitLayouts = []string{"2-1-06", "2.1.06"}
)

// CellText renders a raw cell value as text. nil becomes "".
func CellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case time.Time:
		return x.Format(TimestampLayout)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// ParseTimestamp parses a free-form date or date-time in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}

	for _, layout := range dayFirstLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	for _, layout := range dayFirstTwoDigitLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return pivotYear(t), true
		}
	}

	t, err := dateparse.ParseIn(s, loc)
	if err != nil || t.Year() < minYear || t.Year() > maxYear {
		return time.Time{}, false
	}
	return t, true
}

// pivotYear moves two-digit years that land too far in the future back a
// century.
func pivotYear(t time.Time) time.Time {
	if t.Year() > time.Now().Year()+twoDigitYearPivot {
		return t.AddDate(-100, 0, 0)
	}
	return t
}

// FormatTimestamp parses s and renders it as TimestampLayout.
func FormatTimestamp(s string, loc *time.Location) (string, bool) {
	if loc == nil {
		loc = time.Local
	}
	t, ok := ParseTimestamp(s, loc)
	if !ok {
		return "", false
	}
	t = t.In(loc)
	if t.Year() < minYear || t.Year() > maxYear {
		return "", false
	}
	return t.Format(TimestampLayout), true
}
