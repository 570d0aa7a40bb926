package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is reported but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single finding. Path is a dotted path into the config, e.g.
// "storage.dsn" or "source.files[1]".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

var (
	knownReaders  = map[string]struct{}{"xlsx": {}, "excel": {}, "csv": {}}
	knownMetrics  = map[string]struct{}{"": {}, "none": {}, "pushgateway": {}, "prom": {}, "prometheus": {}, "datadog": {}, "dogstatsd": {}, "datadog-api": {}, "ddapi": {}}
	knownBackends = map[string]struct{}{"postgres": {}, "mssql": {}, "mysql": {}, "sqlite": {}}
)

// ValidatePipeline lints p without mutating it. Callers decide whether
// warnings are fatal.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(p.Job) == "" {
		add(SeverityError, "job", "job must not be empty; it labels metrics and logs")
	}
	switch p.Kind {
	case KindGrupoRaices, KindMasiv:
	case "":
		add(SeverityError, "kind", "kind must not be empty")
	default:
		add(SeverityError, "kind", "unknown pipeline kind %q; want %s or %s", p.Kind, KindGrupoRaices, KindMasiv)
	}

	files := p.Source.Files
	for i, f := range files {
		if strings.TrimSpace(f) == "" {
			add(SeverityError, fmt.Sprintf("source.files[%d]", i), "input location must not be empty")
		}
	}
	if p.Source.Manifest == "" {
		switch {
		case len(files) == 0:
			add(SeverityError, "source.files", "at least one input file is required")
		case p.Kind == KindGrupoRaices && len(files) != 1:
			add(SeverityError, "source.files", "grupo_raices reads exactly one input file, got %d", len(files))
		case p.Kind == KindMasiv && len(files) != 2:
			add(SeverityWarning, "source.files", "masiv usually combines two exports, got %d", len(files))
		}
	}
	if p.Source.HTTP.MaxRetries < 0 {
		add(SeverityError, "source.http.max_retries", "max_retries must not be negative")
	}

	if _, ok := knownReaders[strings.ToLower(p.Reader.Kind)]; !ok && p.Reader.Kind != "" {
		add(SeverityWarning, "reader.kind", "unknown reader kind %q; xlsx will not be assumed", p.Reader.Kind)
	}
	if p.Reader.Kind == "csv" && len([]rune(p.Reader.Options.String("comma", ","))) != 1 {
		add(SeverityError, "reader.options.comma", "comma must be a single character")
	}

	if strings.TrimSpace(p.Output.Path) == "" {
		add(SeverityError, "output.path", "output path must not be empty")
	}

	backend := strings.ToLower(p.Metrics.Backend)
	if _, ok := knownMetrics[backend]; !ok {
		add(SeverityWarning, "metrics.backend", "unknown metrics backend %q; metrics will be disabled", p.Metrics.Backend)
	}
	if (backend == "pushgateway" || backend == "prom" || backend == "prometheus") && p.Metrics.PushgatewayURL == "" {
		add(SeverityError, "metrics.pushgateway_url", "pushgateway backend requires pushgateway_url")
	}

	if s := p.Storage; s != nil {
		if _, ok := knownBackends[s.Kind]; !ok {
			add(SeverityWarning, "storage.kind", "unknown storage kind %q; ensure a matching backend is registered", s.Kind)
		}
		if strings.TrimSpace(s.DSN) == "" {
			add(SeverityError, "storage.dsn", "storage.dsn must not be empty")
		}
		if strings.TrimSpace(s.Table) == "" {
			add(SeverityError, "storage.table", "storage.table must not be empty")
		}
		if s.BatchSize < 0 {
			add(SeverityError, "storage.batch_size", "batch_size must not be negative")
		}
	}
	return issues
}
