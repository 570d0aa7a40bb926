package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pipeline kinds.
const (
	KindGrupoRaices = "grupo_raices"
	KindMasiv       = "masiv"
)

// Environment variables read by ApplyEnv.
const (
	EnvMetricsBackend = "METRICS_BACKEND"
	EnvPushgatewayURL = "PUSHGATEWAY_URL"
	EnvMetricsTags    = "METRICS_TAGS"
)

// DefaultBatchSize is used when Storage.BatchSize is not set.
const DefaultBatchSize = 500

// Load reads a pipeline file. .yaml and .yml files are decoded with
// yaml.v3; anything else is JSON. Unknown fields are rejected in both.
func Load(path string) (Pipeline, error) {
	var p Pipeline
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			return p, fmt.Errorf("config: decode yaml %s: %w", path, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return p, fmt.Errorf("config: decode json %s: %w", path, err)
		}
	}
	return p, nil
}

// Default returns the built-in configuration for a pipeline kind, matching
// the locations the business exports land in. ok is false for unknown kinds.
func Default(kind string) (Pipeline, bool) {
	p := Pipeline{
		Job:     kind,
		Kind:    kind,
		Reader:  Reader{Kind: "xlsx", Options: Options{}},
		Metrics: Metrics{Backend: "none"},
	}
	switch kind {
	case KindGrupoRaices:
		p.Source.Files = []string{"data/grupo-raices/Reporte_de_Flujo_Por_Desarrollo.xlsx"}
		p.Output.Path = "data/grupo-raices/reporte_normalizado.xlsx"
	case KindMasiv:
		p.Source.Files = []string{
			"data/masiv/Reporte_de_Flujo_Por_Desarrollo.xlsx",
			"data/masiv/Reporte_de_Flujo_Por_Desarrollo2.xlsx",
		}
		p.Output.Path = "data/masiv/reporte-normalizado-masiv.xlsx"
	default:
		return Pipeline{}, false
	}
	return p, true
}

// WithDefaults fills empty fields from Default(p.Kind). Fields already set
// are kept.
func (p Pipeline) WithDefaults() Pipeline {
	d, ok := Default(p.Kind)
	if !ok {
		return p
	}
	if p.Job == "" {
		p.Job = d.Job
	}
	if len(p.Source.Files) == 0 && p.Source.Manifest == "" {
		p.Source.Files = d.Source.Files
	}
	if p.Reader.Kind == "" {
		p.Reader.Kind = d.Reader.Kind
	}
	if p.Reader.Options == nil {
		p.Reader.Options = Options{}
	}
	if p.Output.Path == "" {
		p.Output.Path = d.Output.Path
	}
	if p.Metrics.Backend == "" {
		p.Metrics.Backend = d.Metrics.Backend
	}
	if p.Storage != nil && p.Storage.BatchSize <= 0 {
		s := *p.Storage
		s.BatchSize = DefaultBatchSize
		p.Storage = &s
	}
	return p
}

// ApplyEnv overrides metrics settings from the environment. getenv is
// usually os.Getenv.
func (p *Pipeline) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvMetricsBackend)); v != "" {
		p.Metrics.Backend = v
	}
	if v := strings.TrimSpace(getenv(EnvPushgatewayURL)); v != "" {
		p.Metrics.PushgatewayURL = v
	}
	if v := strings.TrimSpace(getenv(EnvMetricsTags)); v != "" {
		p.Metrics.Tags = splitTags(v)
	}
}

func splitTags(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
