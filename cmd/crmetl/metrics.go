package main

import (
	"context"
	"log"
	"net"
	"strings"

	"crmetl/internal/config"
	"crmetl/internal/metrics"
	"crmetl/internal/metrics/datadog"
	"crmetl/internal/metrics/ddapi"
	"crmetl/internal/metrics/prompush"
)

const defaultPushgatewayURL = "http://localhost:9091"

// setupMetrics installs the configured backend and returns its flush func.
// Backend errors never stop a run: the nop backend stays in place.
func setupMetrics(ctx context.Context, p config.Pipeline, getenv func(string) string, verbose bool) func() {
	flush := func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}

	name := strings.ToLower(strings.TrimSpace(p.Metrics.Backend))
	switch name {
	case "pushgateway", "prom", "prometheus":
		gwURL := p.Metrics.PushgatewayURL
		if gwURL == "" {
			gwURL = defaultPushgatewayURL
		}
		b, err := prompush.NewBackend(p.Job, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return func() {}
		}
		metrics.SetBackend(b.Grouping("pipeline", p.Kind))
		log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, name, p.Job)

	case "datadog", "dogstatsd":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       agentAddr(getenv),
			Namespace:  "crm.",
			GlobalTags: append([]string{"job:" + p.Job, "pipeline:" + p.Kind}, p.Metrics.Tags...),
		})
		if err != nil {
			log.Printf("metrics: failed to init dogstatsd backend: %v; using nop", err)
			return func() {}
		}
		metrics.SetBackend(b)
		log.Printf("metrics: backend=%v, job_name=%v", name, p.Job)

	case "datadog-api", "ddapi":
		metrics.SetBackend(ddapi.NewBackend(ctx, ddapi.Options{
			JobName: p.Job,
			Tags:    append([]string{"pipeline:" + p.Kind}, p.Metrics.Tags...),
		}))
		log.Printf("metrics: backend=%v, job_name=%v", name, p.Job)

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", name)
		}
		return func() {}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", name)
		return func() {}
	}
	return flush
}

// agentAddr builds the dogstatsd address from DD_AGENT_HOST and
// DD_DOGSTATSD_PORT; empty means the backend default.
func agentAddr(getenv func(string) string) string {
	host := strings.TrimSpace(getenv("DD_AGENT_HOST"))
	if host == "" {
		return ""
	}
	if strings.HasPrefix(host, "unix://") {
		return host
	}
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	port := strings.TrimSpace(getenv("DD_DOGSTATSD_PORT"))
	if port == "" {
		port = "8125"
	}
	return net.JoinHostPort(host, port)
}
