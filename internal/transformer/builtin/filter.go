// Package builtin contains the reusable row transformers the sales pipelines
// are assembled from.
package builtin

import "crmetl/pkg/records"

// Equals keeps records whose Column holds exactly the string Value.
// Comparison is case-sensitive; nil and non-string values never match.
type Equals struct {
	Column string
	Value  string
}

// Apply filters in place and preserves the relative order of survivors.
func (e Equals) Apply(in []records.Record) []records.Record {
	out := in[:0]
	for _, rec := range in {
		if s, ok := rec[e.Column].(string); ok && s == e.Value {
			out = append(out, rec)
		}
	}
	return out
}
