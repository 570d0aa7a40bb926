// Package spreadsheet reads sales reports into tables and writes the
// normalized result back out as a workbook.
//
// Both readers follow the same conventions: the first row is the header,
// blank header cells are named "Unnamed: <i>", repeated headers get a ".<n>"
// suffix, empty cells become nil and fully blank rows are skipped. Cell
// values are returned as raw text; typing happens downstream.
package spreadsheet

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"crmetl/internal/table"
	"crmetl/pkg/records"
)

// Parser turns one input stream into a table.
type Parser interface {
	Parse(r io.Reader) (*table.Table, error)
}

// Kinds accepted by ForKind.
const (
	KindXLSX = "xlsx"
	KindCSV  = "csv"
)

// Options carries the reader settings; each parser uses the ones it knows.
type Options struct {
	Sheet     string // xlsx
	Comma     rune   // csv
	TrimSpace bool   // csv
}

// ForKind returns the parser for a reader kind. An empty kind means xlsx.
func ForKind(kind string, o Options) (Parser, error) {
	switch strings.ToLower(kind) {
	case "", KindXLSX, "excel":
		return XLSX{Sheet: o.Sheet}, nil
	case KindCSV:
		return CSV{Comma: o.Comma, TrimSpace: o.TrimSpace}, nil
	}
	return nil, fmt.Errorf("spreadsheet: unknown reader kind %q", kind)
}

// headerNames applies the blank and duplicate header rules.
func headerNames(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	taken := make(map[string]bool, len(raw))
	for i, h := range raw {
		if strings.TrimSpace(h) == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		for taken[name] {
			seen[h]++
			name = h + "." + strconv.Itoa(seen[h])
		}
		taken[name] = true
		out[i] = name
	}
	return out
}

// buildTable converts raw string rows into records keyed by header. Cells
// past the header width are ignored.
func buildTable(header []string, body [][]string) *table.Table {
	cols := headerNames(header)
	rows := make([]records.Record, 0, len(body))
	for _, raw := range body {
		rec := make(records.Record, len(cols))
		blank := true
		for j, c := range cols {
			var v any
			if j < len(raw) && raw[j] != "" {
				v = raw[j]
				blank = false
			}
			rec[c] = v
		}
		if blank {
			continue
		}
		rows = append(rows, rec)
	}
	return table.New(cols, rows)
}
