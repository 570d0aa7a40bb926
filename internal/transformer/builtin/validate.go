package builtin

import (
	"fmt"
	"sync"
	"time"

	"crmetl/internal/schema"
	"crmetl/pkg/records"
)

// Validate checks typed contract fields after coercion. A number field must
// hold a float64; a date field must hold a time, a number (Excel serial) or
// text. Date text is left to MonthStart, which reports its own failures.
// Nil cells always pass: column presence is checked elsewhere. Rows are
// never dropped; bad cells are only reported to Reject.
type Validate struct {
	Contract schema.Contract
	Reject   func(RejectedRow) // optional sink

	metaOnce sync.Once
	meta     []fieldMeta
}

// RejectedRow is one row with a cell of the wrong type. Row is the position
// in the batch handed to Apply, counted after blank rows and duplicates are
// gone.
type RejectedRow struct {
	Row    int
	Raw    records.Record
	Reason string
	Stage  string
}

type fieldMeta struct {
	name string
	kind string
}

func (v *Validate) buildMeta() {
	v.metaOnce.Do(func() {
		for _, f := range v.Contract.Fields {
			if f.Type == schema.TypeNumber || f.Type == schema.TypeDate {
				v.meta = append(v.meta, fieldMeta{name: f.Name, kind: f.Type})
			}
		}
	})
}

func (v *Validate) Apply(in []records.Record) []records.Record {
	v.buildMeta()
	if v.Reject == nil {
		return in
	}
	for i, rec := range in {
		if ok, reason := v.validateRecord(rec); !ok {
			v.Reject(RejectedRow{Row: i, Raw: rec, Reason: reason, Stage: "validate"})
		}
	}
	return in
}

func (v *Validate) validateRecord(r records.Record) (bool, string) {
	for _, fm := range v.meta {
		val := r[fm.name]
		if val == nil {
			continue
		}
		switch fm.kind {
		case schema.TypeNumber:
			if _, ok := val.(float64); !ok {
				return false, fmt.Sprintf("field %q: %v is not a number", fm.name, val)
			}
		case schema.TypeDate:
			switch val.(type) {
			case time.Time, float64, int, string:
			default:
				return false, fmt.Sprintf("field %q: type %T is not date-convertible", fm.name, val)
			}
		}
	}
	return true, ""
}
