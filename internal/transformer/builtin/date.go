package builtin

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"crmetl/pkg/records"
)

// DefaultDateLayouts are tried in order when MonthStart.Layouts is empty.
// Month-first forms come before their day-first twins, so "03/04/2024" is
// March 4th while "17/03/2024" falls through to the day-first layout.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"02/01/2006",
	"2/1/2006",
	"01-02-2006",
	"02-01-2006",
	"02-Jan-2006",
}

// ParseError describes a value that could not be read as a date. Row is the
// position in the batch handed to Apply, which is the filtered table, not
// the spreadsheet line.
type ParseError struct {
	Row    int
	Column string
	Value  any
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("filtered row %d: column %q: cannot parse %v as date", e.Row, e.Column, e.Value)
}

// MonthStart truncates a date column to the first day of its month (UTC,
// midnight). Values that cannot be parsed become nil and are reported to
// Warn; empty strings and null placeholders become nil silently.
type MonthStart struct {
	Column  string
	Layouts []string
	Warn    func(*ParseError)
}

func (m MonthStart) Apply(in []records.Record) []records.Record {
	layouts := m.Layouts
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	for i, rec := range in {
		v, ok := rec[m.Column]
		if !ok || v == nil {
			continue
		}
		t, ok, silent := toTime(v, layouts)
		if !ok {
			rec[m.Column] = nil
			if !silent && m.Warn != nil {
				m.Warn(&ParseError{Row: i, Column: m.Column, Value: v})
			}
			continue
		}
		rec[m.Column] = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return in
}

// toTime reports ok=false for unusable values; silent marks blanks and null
// placeholders, which are not worth a warning.
func toTime(v any, layouts []string) (t time.Time, ok, silent bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true, false
	case float64:
		return serialToTime(x)
	case int:
		return serialToTime(float64(x))
	case string:
		s := strings.TrimSpace(x)
		switch s {
		case "", "NaT", "nan", "NaN":
			return time.Time{}, false, true
		}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true, false
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return serialToTime(f)
		}
	}
	return time.Time{}, false, false
}

func serialToTime(f float64) (time.Time, bool, bool) {
	if f <= 0 {
		return time.Time{}, false, false
	}
	t, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return time.Time{}, false, false
	}
	return t, true, false
}
