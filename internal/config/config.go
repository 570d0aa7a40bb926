// Package config defines the pipeline configuration model for crmetl runs.
// Files may be JSON or YAML; field names are the same in both.
//
// Example (trimmed):
//
//	job: masiv-weekly
//	kind: masiv
//	source:
//	  files: [data/masiv/Reporte_de_Flujo_Por_Desarrollo.xlsx, ...]
//	reader: { kind: xlsx, options: { sheet: Hoja1 } }
//	output: { path: data/masiv/reporte-normalizado-masiv.xlsx }
//	storage: { kind: postgres, dsn: postgres://..., table: staging.ventas_masiv }
package config

import "encoding/json"

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job labels metrics and log lines; defaults to Kind.
	Job string `json:"job" yaml:"job"`

	// Kind selects the business pipeline: "grupo_raices" or "masiv".
	Kind string `json:"kind" yaml:"kind"`

	Source  Source   `json:"source" yaml:"source"`
	Reader  Reader   `json:"reader" yaml:"reader"`
	Output  Output   `json:"output" yaml:"output"`
	Storage *Storage `json:"storage,omitempty" yaml:"storage,omitempty"`
	Metrics Metrics  `json:"metrics" yaml:"metrics"`
}

// Source lists the input workbooks. Files may be local paths or http(s)
// URLs. Manifest names a text file with one location per line, appended
// after Files.
type Source struct {
	Files    []string `json:"files" yaml:"files"`
	Manifest string   `json:"manifest,omitempty" yaml:"manifest,omitempty"`
	HTTP     HTTP     `json:"http" yaml:"http"`
}

// HTTP tunes remote input fetching.
type HTTP struct {
	TimeoutSeconds     int  `json:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries         int  `json:"max_retries" yaml:"max_retries"`
	InsecureSkipVerify bool `json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

// Reader selects how input bytes become a table.
type Reader struct {
	// Kind is "xlsx" (default) or "csv".
	Kind string `json:"kind" yaml:"kind"`

	// Options keys: sheet (string), comma (string), trim_space (bool),
	// date_layouts ([]string).
	Options Options `json:"options" yaml:"options"`
}

// Output is the normalized workbook written by every successful run.
type Output struct {
	Path string `json:"path" yaml:"path"`
}

// Storage optionally publishes the final table into a database table after
// the workbook is saved.
type Storage struct {
	// Kind selects a registered backend: postgres, mssql, mysql, sqlite.
	Kind string `json:"kind" yaml:"kind"`

	DSN   string `json:"dsn" yaml:"dsn"`
	Table string `json:"table" yaml:"table"`

	// BatchSize is the number of rows per bulk insert; 0 means 500.
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// AutoCreateTable issues CREATE TABLE IF NOT EXISTS derived from the
	// output schema before loading.
	AutoCreateTable bool `json:"auto_create_table" yaml:"auto_create_table"`

	// Truncate empties the table before loading so each run replaces the
	// previous snapshot.
	Truncate bool `json:"truncate" yaml:"truncate"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is one of: none, pushgateway, datadog, datadog-api.
	Backend        string   `json:"backend" yaml:"backend"`
	PushgatewayURL string   `json:"pushgateway_url" yaml:"pushgateway_url"`
	Tags           []string `json:"tags" yaml:"tags"`
}

// Options fetches typed values from a free-form map. Lookups never fail:
// a missing key or a value of the wrong type yields the default.
type Options map[string]any

func (o Options) String(key, def string) string {
	if s, ok := o[key].(string); ok {
		return s
	}
	return def
}

func (o Options) Bool(key string, def bool) bool {
	if b, ok := o[key].(bool); ok {
		return b
	}
	return def
}

// Int accepts float64 (JSON numbers) as well as int (YAML numbers).
func (o Options) Int(key string, def int) int {
	switch n := o[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return def
}

// Rune returns the first rune of a string value, e.g. a CSV delimiter.
func (o Options) Rune(key string, def rune) rune {
	if s, ok := o[key].(string); ok && s != "" {
		return []rune(s)[0]
	}
	return def
}

// StringSlice returns the string elements of a list value. Non-string
// elements are skipped; a missing key yields nil.
func (o Options) StringSlice(key string) []string {
	switch vv := o[key].(type) {
	case []any:
		out := make([]string, 0, len(vv))
		for _, x := range vv {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return vv
	}
	return nil
}

// UnmarshalJSON decodes a missing or null options object to an empty map.
func (o *Options) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	var tmp map[string]any
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
