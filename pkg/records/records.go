// Package records defines the row representation shared by every stage of
// the normalization pipelines.
package records

// Record is a single row keyed by column name. Values are nil, string,
// float64, int, bool or time.Time; nil is the null value.
type Record map[string]any
