package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"time"

	"crmetl/internal/config"
	"crmetl/internal/datasource"
	"crmetl/internal/datasource/file"
	"crmetl/internal/datasource/httpds"
	"crmetl/internal/pipeline"
	"crmetl/internal/spreadsheet"
	"crmetl/internal/storage"

	// register all backends with the storage factory.
	_ "crmetl/internal/storage/all"
)

// stringList collects a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// flags holds the command line; empty values mean "not given".
type flags struct {
	pipeline       string
	config         string
	inputs         stringList
	output         string
	metricsBackend string
	pushgatewayURL string
}

// main runs one pipeline: resolve the configuration, pick a metrics backend,
// execute the run and print its summary. Any failure exits with status 1.
func main() {
	var (
		f        flags
		validate bool
	)
	flag.StringVar(&f.pipeline, "pipeline", "", "pipeline to run: grupo_raices or masiv (env CRMETL_PIPELINE)")
	flag.StringVar(&f.config, "config", "", "pipeline config path, JSON or YAML")
	flag.Var(&f.inputs, "input", "input workbook path or URL (repeatable; replaces configured inputs)")
	flag.StringVar(&f.output, "output", "", "normalized workbook path")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	flag.StringVar(&f.metricsBackend, "metrics-backend", "", "metrics backend: pushgateway, datadog, datadog-api, none (overrides env METRICS_BACKEND)")
	flag.StringVar(&f.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	verbose := flag.Bool("v", false, "enable verbose logs")
	flag.Parse()

	log.SetOutput(os.Stderr)

	p, err := resolve(f, os.Getenv)
	if err != nil {
		fatalf("config: %v", err)
	}

	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("Configuration is invalid: job=%s kind=%s", p.Job, p.Kind)
		os.Exit(1)
	}
	if validate {
		log.Printf("Configuration is valid: job=%s kind=%s", p.Job, p.Kind)
		os.Exit(0)
	}

	ctx := context.Background()
	flush := setupMetrics(ctx, p, os.Getenv, *verbose)

	r, err := buildRunner(p)
	if err != nil {
		flush()
		fatalf("%v", err)
	}
	if *verbose {
		log.Printf("pipeline: kind=%s inputs=%d output=%s storage=%v", p.Kind, len(r.Inputs), r.Output, p.Storage != nil)
	}

	start := time.Now()
	res := r.Run(ctx)
	flush()
	if !res.OK() {
		fatalf("pipeline %s failed at %s: %v", p.Kind, res.FailedAt, res.Err)
	}
	if _, err := res.Summary.WriteTo(os.Stdout); err != nil {
		log.Printf("summary: %v", err)
	}
	if res.Inserted > 0 {
		fmt.Fprintf(os.Stdout, "inserted %d rows into %s\n", res.Inserted, p.Storage.Table)
	}
	log.Printf("done in %s", time.Since(start).Round(time.Millisecond))
}

// resolve builds the effective configuration: flag, then env, then config
// file, then the built-in defaults of the pipeline kind.
func resolve(f flags, getenv func(string) string) (config.Pipeline, error) {
	var p config.Pipeline
	if f.config != "" {
		var err error
		if p, err = config.Load(f.config); err != nil {
			return p, err
		}
	}

	kind := f.pipeline
	if kind == "" {
		kind = strings.TrimSpace(getenv("CRMETL_PIPELINE"))
	}
	if kind != "" {
		if p.Kind != "" && p.Kind != kind {
			return p, fmt.Errorf("pipeline %q conflicts with config kind %q", kind, p.Kind)
		}
		p.Kind = kind
	}

	p.ApplyEnv(getenv)
	if f.metricsBackend != "" {
		p.Metrics.Backend = f.metricsBackend
	}
	if f.pushgatewayURL != "" {
		p.Metrics.PushgatewayURL = f.pushgatewayURL
	}
	if len(f.inputs) > 0 {
		p.Source.Files = append([]string(nil), f.inputs...)
		p.Source.Manifest = ""
	}
	if f.output != "" {
		p.Output.Path = f.output
	}
	switch strings.ToLower(p.Metrics.Backend) {
	case "pushgateway", "prom", "prometheus":
		if p.Metrics.PushgatewayURL == "" {
			p.Metrics.PushgatewayURL = defaultPushgatewayURL
		}
	}
	return p.WithDefaults(), nil
}

// buildRunner wires sources, reader, definition and optional storage.
func buildRunner(p config.Pipeline) (*pipeline.Runner, error) {
	def, ok := pipeline.ByName(p.Kind, pipeline.Options{
		DateLayouts: p.Reader.Options.StringSlice("date_layouts"),
	})
	if !ok {
		return nil, fmt.Errorf("unknown pipeline %q", p.Kind)
	}

	reader, err := spreadsheet.ForKind(p.Reader.Kind, spreadsheet.Options{
		Sheet:     p.Reader.Options.String("sheet", ""),
		Comma:     p.Reader.Options.Rune("comma", ','),
		TrimSpace: p.Reader.Options.Bool("trim_space", false),
	})
	if err != nil {
		return nil, err
	}

	locs := append([]string(nil), p.Source.Files...)
	if p.Source.Manifest != "" {
		more, err := file.ReadManifest(p.Source.Manifest)
		if err != nil {
			return nil, err
		}
		locs = append(locs, more...)
	}
	client := httpds.NewClient(httpds.Config{
		Timeout:            time.Duration(p.Source.HTTP.TimeoutSeconds) * time.Second,
		MaxRetries:         p.Source.HTTP.MaxRetries,
		InsecureSkipVerify: p.Source.HTTP.InsecureSkipVerify,
	})

	r := &pipeline.Runner{
		Def:    def,
		Inputs: datasource.ResolveAll(locs, client),
		Output: p.Output.Path,
		Reader: reader,
		Job:    p.Job,
	}
	if s := p.Storage; s != nil {
		if !slices.Contains(storage.ListKinds(), s.Kind) {
			return nil, fmt.Errorf("storage kind %q is not registered (have %s)", s.Kind, strings.Join(storage.ListKinds(), ", "))
		}
		r.Publisher = storage.Publisher{
			Job:             p.Job,
			Kind:            s.Kind,
			DSN:             s.DSN,
			Table:           s.Table,
			BatchSize:       s.BatchSize,
			AutoCreateTable: s.AutoCreateTable,
			Truncate:        s.Truncate,
		}
	}
	return r, nil
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
