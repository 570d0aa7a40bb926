package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return p
}

func TestLoad_JSON(t *testing.T) {
	t.Parallel()

	p, err := Load(writeConfig(t, "grupo.json", `{
	  "job": "grupo-daily",
	  "kind": "grupo_raices",
	  "source": {"files": ["in/Reporte.xlsx"]},
	  "reader": {"kind": "xlsx", "options": {"sheet": "Hoja1"}},
	  "output": {"path": "out/normalizado.xlsx"},
	  "storage": {"kind": "postgres", "dsn": "postgres://u@localhost/db", "table": "staging.ventas", "auto_create_table": true},
	  "metrics": {"backend": "datadog", "tags": ["env:dev"]}
	}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Job != "grupo-daily" || p.Kind != KindGrupoRaices {
		t.Fatalf("job/kind = %q/%q", p.Job, p.Kind)
	}
	if got := p.Reader.Options.String("sheet", ""); got != "Hoja1" {
		t.Fatalf("reader.options.sheet = %q", got)
	}
	if p.Storage == nil || p.Storage.Table != "staging.ventas" || !p.Storage.AutoCreateTable {
		t.Fatalf("storage = %#v", p.Storage)
	}
	if !reflect.DeepEqual(p.Metrics.Tags, []string{"env:dev"}) {
		t.Fatalf("metrics.tags = %v", p.Metrics.Tags)
	}
}

func TestLoad_YAML(t *testing.T) {
	t.Parallel()

	p, err := Load(writeConfig(t, "masiv.yaml", `
job: masiv-weekly
kind: masiv
source:
  files:
    - a.xlsx
    - b.xlsx
reader:
  kind: csv
  options:
    comma: ";"
    trim_space: true
    date_layouts: ["02/01/2006"]
output:
  path: out/masiv.xlsx
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(p.Source.Files) != 2 || p.Reader.Options.Rune("comma", ',') != ';' {
		t.Fatalf("decoded = %#v", p)
	}
	if !p.Reader.Options.Bool("trim_space", false) {
		t.Fatalf("trim_space not decoded")
	}
	if got := p.Reader.Options.StringSlice("date_layouts"); !reflect.DeepEqual(got, []string{"02/01/2006"}) {
		t.Fatalf("date_layouts = %v", got)
	}
	if p.Storage != nil {
		t.Fatalf("storage should be nil when absent")
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"unknown.json": `{"kind": "masiv", "nope": 1}`,
		"broken.yml":   "kind: [",
		"unknown.yaml": "kind: masiv\nextra: true\n",
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, name, body)); err == nil {
			t.Fatalf("Load(%s) expected error", name)
		}
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil || !strings.Contains(err.Error(), "config:") {
		t.Fatalf("missing file err = %v", err)
	}
}

func TestDefaultAndWithDefaults(t *testing.T) {
	t.Parallel()

	g, ok := Default(KindGrupoRaices)
	if !ok || len(g.Source.Files) != 1 || g.Output.Path == "" {
		t.Fatalf("Default(grupo) = %#v, %v", g, ok)
	}
	m, _ := Default(KindMasiv)
	if len(m.Source.Files) != 2 {
		t.Fatalf("Default(masiv) files = %v", m.Source.Files)
	}
	if _, ok := Default("other"); ok {
		t.Fatal("Default(other) unexpectedly ok")
	}

	p := Pipeline{Kind: KindMasiv, Output: Output{Path: "custom.xlsx"}, Storage: &Storage{Kind: "sqlite"}}
	got := p.WithDefaults()
	if got.Job != KindMasiv || got.Output.Path != "custom.xlsx" || len(got.Source.Files) != 2 {
		t.Fatalf("WithDefaults = %#v", got)
	}
	if got.Storage.BatchSize != DefaultBatchSize || p.Storage.BatchSize != 0 {
		t.Fatalf("batch size not defaulted on a copy: %d/%d", got.Storage.BatchSize, p.Storage.BatchSize)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		EnvMetricsBackend: "pushgateway",
		EnvPushgatewayURL: "http://pg:9091",
		EnvMetricsTags:    "env:prod, team:bi ,",
	}
	p := Pipeline{Metrics: Metrics{Backend: "none"}}
	p.ApplyEnv(func(k string) string { return env[k] })

	if p.Metrics.Backend != "pushgateway" || p.Metrics.PushgatewayURL != "http://pg:9091" {
		t.Fatalf("metrics = %#v", p.Metrics)
	}
	if !reflect.DeepEqual(p.Metrics.Tags, []string{"env:prod", "team:bi"}) {
		t.Fatalf("tags = %v", p.Metrics.Tags)
	}
}

func TestOptions_DefaultsAndCoercion(t *testing.T) {
	t.Parallel()

	o := Options{"s": "hola", "b": true, "f": float64(42), "i": 7, "r": "ž", "l": []any{"a", 1, "b"}}
	if o.String("s", "x") != "hola" || o.String("missing", "x") != "x" {
		t.Fatal("String")
	}
	if !o.Bool("b", false) || !o.Bool("missing", true) {
		t.Fatal("Bool")
	}
	if o.Int("f", 0) != 42 || o.Int("i", 0) != 7 || o.Int("s", 3) != 3 {
		t.Fatal("Int")
	}
	if r := o.Rune("r", 'x'); !utf8.ValidRune(r) || string(r) != "ž" {
		t.Fatalf("Rune = %q", r)
	}
	if got := o.StringSlice("l"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("StringSlice = %v", got)
	}
	var nilOpts Options
	if nilOpts.String("s", "d") != "d" {
		t.Fatal("nil Options must return defaults")
	}
}
