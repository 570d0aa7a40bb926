// Package table holds the in-memory tabular dataset a pipeline run owns:
// an ordered list of column names plus the rows keyed by those names.
//
// Rows may omit keys for columns the table declares; a missing key reads as
// nil. Column operations keep the row maps and the column list in sync.
package table

import (
	"fmt"

	"crmetl/pkg/records"
)

// Table is an ordered set of named columns over a slice of records.
type Table struct {
	columns []string
	index   map[string]int

	// Rows is exported so row-level transformers can replace it wholesale.
	Rows []records.Record
}

// New builds a table with the given columns. Duplicate column names are
// collapsed to their first occurrence.
func New(columns []string, rows []records.Record) *Table {
	t := &Table{index: make(map[string]int, len(columns)), Rows: rows}
	for _, c := range columns {
		t.AddColumn(c)
	}
	return t
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Has reports whether the table declares column name (case-sensitive).
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// AddColumn appends name to the column list if it is not present yet.
// Existing row values are not touched.
func (t *Table) AddColumn(name string) {
	if t.index == nil {
		t.index = map[string]int{}
	}
	if _, ok := t.index[name]; ok {
		return
	}
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, name)
}

// RenameColumn renames old to new in place, keeping its position. Renaming a
// missing column is a no-op. If new already exists the old column replaces it
// and the previous new column is dropped.
func (t *Table) RenameColumn(old, new string) {
	pos, ok := t.index[old]
	if !ok || old == new {
		return
	}
	if prev, exists := t.index[new]; exists {
		t.columns = append(t.columns[:prev], t.columns[prev+1:]...)
		if prev < pos {
			pos--
		}
	}
	t.columns[pos] = new
	t.reindexNames()

	for _, r := range t.Rows {
		v, had := r[old]
		delete(r, old)
		if had {
			r[new] = v
		} else {
			delete(r, new)
		}
	}
}

// Reindex restricts the table to exactly columns, in that order. Columns the
// table lacks are created with nil values; all other keys are removed from
// every row.
func (t *Table) Reindex(columns []string) {
	next := make([]records.Record, len(t.Rows))
	for i, r := range t.Rows {
		nr := make(records.Record, len(columns))
		for _, c := range columns {
			nr[c] = r[c]
		}
		next[i] = nr
	}
	t.columns = nil
	t.index = make(map[string]int, len(columns))
	for _, c := range columns {
		t.AddColumn(c)
	}
	t.Rows = next
}

// Column returns the values of name across all rows, nil where absent.
func (t *Table) Column(name string) []any {
	out := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[name]
	}
	return out
}

// Values returns row i as a slice aligned with Columns.
func (t *Table) Values(i int) []any {
	r := t.Rows[i]
	out := make([]any, len(t.columns))
	for j, c := range t.columns {
		out[j] = r[c]
	}
	return out
}

// String renders a short description for logs.
func (t *Table) String() string {
	return fmt.Sprintf("table(rows=%d cols=%d)", len(t.Rows), len(t.columns))
}

// Concat stacks tables row-wise. The result declares the union of all
// columns in first-seen order; rows keep their input order.
func Concat(ts ...*Table) *Table {
	out := New(nil, nil)
	n := 0
	for _, t := range ts {
		if t == nil {
			continue
		}
		for _, c := range t.columns {
			out.AddColumn(c)
		}
		n += len(t.Rows)
	}
	out.Rows = make([]records.Record, 0, n)
	for _, t := range ts {
		if t == nil {
			continue
		}
		out.Rows = append(out.Rows, t.Rows...)
	}
	return out
}

func (t *Table) reindexNames() {
	t.index = make(map[string]int, len(t.columns))
	for i, c := range t.columns {
		t.index[c] = i
	}
}
