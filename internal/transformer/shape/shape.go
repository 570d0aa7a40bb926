// Package shape holds the table-level steps that change the column set:
// renames, literal columns and the final projection onto a target schema.
package shape

import (
	"fmt"

	"crmetl/internal/rules"
	"crmetl/internal/table"
)

// Rename applies 1:1 column renames in order. Missing sources are skipped.
type Rename struct {
	Pairs []rules.Rename
}

func (Rename) Name() string { return "rename" }

func (r Rename) Apply(t *table.Table) error {
	for _, p := range r.Pairs {
		if p.From == "" || p.To == "" {
			return fmt.Errorf("rename: empty column name in %q -> %q", p.From, p.To)
		}
		t.RenameColumn(p.From, p.To)
	}
	return nil
}

// Constant sets each listed column to its literal on every row, creating the
// column when needed and overwriting it otherwise.
type Constant struct {
	Columns []rules.Literal
}

func (Constant) Name() string { return "constant" }

func (c Constant) Apply(t *table.Table) error {
	for _, lit := range c.Columns {
		t.AddColumn(lit.Name)
		for _, r := range t.Rows {
			r[lit.Name] = lit.Value
		}
	}
	return nil
}

// Reindex projects the table onto Columns exactly: same names, same order,
// nil for any column the table lacks.
type Reindex struct {
	Columns []string
}

func (Reindex) Name() string { return "reindex" }

func (r Reindex) Apply(t *table.Table) error {
	seen := make(map[string]struct{}, len(r.Columns))
	for _, c := range r.Columns {
		if _, dup := seen[c]; dup {
			return fmt.Errorf("reindex: duplicate target column %q", c)
		}
		seen[c] = struct{}{}
	}
	t.Reindex(r.Columns)
	return nil
}
