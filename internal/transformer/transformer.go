// Package transformer defines the two shapes of work a pipeline phase is made
// of: row-level transformers that rewrite records, and table-level steps that
// may also change the column set.
package transformer

import (
	"crmetl/internal/table"
	"crmetl/pkg/records"
)

// Transformer rewrites a batch of records and returns the surviving ones.
type Transformer interface{ Apply([]records.Record) []records.Record }

// Step is a named operation over a whole table.
type Step interface {
	Name() string
	Apply(t *table.Table) error
}

// Rows lifts a row-level Transformer into a Step. Columns listed in Adds are
// declared on the table before the rows are rewritten.
type Rows struct {
	Label string
	T     Transformer
	Adds  []string
}

func (r Rows) Name() string { return r.Label }

func (r Rows) Apply(t *table.Table) error {
	for _, c := range r.Adds {
		t.AddColumn(c)
	}
	t.Rows = r.T.Apply(t.Rows)
	return nil
}

// Run applies steps in order and stops at the first error.
func Run(t *table.Table, steps ...Step) error {
	for _, s := range steps {
		if err := s.Apply(t); err != nil {
			return &StepFailed{Step: s.Name(), Err: err}
		}
	}
	return nil
}

// StepFailed reports which step of a sequence returned an error.
type StepFailed struct {
	Step string
	Err  error
}

func (e *StepFailed) Error() string { return e.Step + ": " + e.Err.Error() }

func (e *StepFailed) Unwrap() error { return e.Err }
