// Package ddapi submits pipeline metrics straight to the Datadog metrics
// intake API, for hosts that run no agent.
//
// Observations are buffered in memory and sent as a single payload on Flush.
// Credentials come from the environment the Datadog client reads
// (DD_API_KEY, DD_SITE). Step durations are reported as percentile gauges.
package ddapi

import (
	"context"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"crmetl/internal/metrics"
)

// Options controls the backend.
type Options struct {
	// JobName becomes tag "job:<name>". Defaults to "crmetl".
	JobName string

	// Tags are extra tags such as "env:prod".
	Tags []string

	now       func() time.Time
	submitter metricsSubmitter
}

type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend.
type Backend struct {
	api      metricsSubmitter
	ctx      context.Context
	baseTags []string
	now      func() time.Time

	mu        sync.Mutex
	steps     map[stepKey]float64
	records   map[string]float64
	batches   float64
	runs      map[stepKey]float64
	durations map[stepKey][]float64
}

type stepKey struct{ name, status string }

func envTag() string {
	for _, k := range []string{"ENV", "DD_ENV"} {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return "env:" + v
		}
	}
	return "env:unknown"
}

// NewBackend builds a backend whose submissions use ctx.
func NewBackend(ctx context.Context, opts Options) *Backend {
	job := opts.JobName
	if job == "" {
		job = "crmetl"
	}
	tags := append([]string{envTag(), "job:" + job}, opts.Tags...)

	now := opts.now
	if now == nil {
		now = time.Now
	}
	api := opts.submitter
	if api == nil {
		api = datadogV2.NewMetricsApi(dd.NewAPIClient(dd.NewConfiguration()))
	}

	b := &Backend{
		api:      api,
		ctx:      dd.NewDefaultContext(ctx),
		baseTags: tags,
		now:      now,
	}
	b.reset()
	return b
}

func (b *Backend) reset() {
	b.steps = make(map[stepKey]float64)
	b.records = make(map[string]float64)
	b.batches = 0
	b.runs = make(map[stepKey]float64)
	b.durations = make(map[stepKey][]float64)
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case metrics.StepTotal:
		b.steps[stepKey{labels["step"], labels["status"]}] += delta
	case metrics.RecordsTotal:
		if kind := labels["kind"]; kind != "" {
			b.records[kind] += delta
		}
	case metrics.BatchesTotal:
		b.batches += delta
	case metrics.RunsTotal:
		b.runs[stepKey{labels["pipeline"], labels["status"]}] += delta
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDuration || value < 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	k := stepKey{labels["step"], labels["status"]}
	b.durations[k] = append(b.durations[k], value)
}

// Flush submits everything buffered since the last flush. Buffers are reset
// even if the submission fails.
func (b *Backend) Flush() error {
	b.mu.Lock()
	series := b.buildSeries(b.now().Unix())
	b.reset()
	b.mu.Unlock()

	if len(series) == 0 {
		return nil
	}
	_, _, err := b.api.SubmitMetrics(b.ctx, datadogV2.MetricPayload{Series: series}, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

// buildSeries must be called with b.mu held. Series are sorted by metric
// name and tags.
func (b *Backend) buildSeries(ts int64) []datadogV2.MetricSeries {
	var out []datadogV2.MetricSeries
	add := func(kind datadogV2.MetricIntakeType, metric string, v float64, tags []string) {
		out = append(out, datadogV2.MetricSeries{
			Metric: metric,
			Type:   kind.Ptr(),
			Points: []datadogV2.MetricPoint{{Timestamp: dd.PtrInt64(ts), Value: dd.PtrFloat64(v)}},
			Tags:   tags,
		})
	}
	count := func(metric string, v float64, tags []string) {
		add(datadogV2.METRICINTAKETYPE_COUNT, metric, v, tags)
	}
	gauge := func(metric string, v float64, tags []string) {
		add(datadogV2.METRICINTAKETYPE_GAUGE, metric, v, tags)
	}

	for k, v := range b.steps {
		count("crmetl.step.total", v, withTags(b.baseTags, "step:"+k.name, "status:"+k.status))
	}
	for kind, v := range b.records {
		count("crmetl.records.total", v, withTags(b.baseTags, "kind:"+kind))
	}
	if b.batches > 0 {
		count("crmetl.batches.total", b.batches, b.baseTags)
	}
	for k, v := range b.runs {
		count("crmetl.runs.total", v, withTags(b.baseTags, "pipeline:"+k.name, "status:"+k.status))
	}
	for k, samples := range b.durations {
		if len(samples) == 0 {
			continue
		}
		s := append([]float64(nil), samples...)
		sort.Float64s(s)
		tags := withTags(b.baseTags, "step:"+k.name, "status:"+k.status)
		gauge("crmetl.step.duration_seconds.p50", percentile(s, 0.50), tags)
		gauge("crmetl.step.duration_seconds.p95", percentile(s, 0.95), tags)
		gauge("crmetl.step.duration_seconds.max", s[len(s)-1], tags)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Metric != out[j].Metric {
			return out[i].Metric < out[j].Metric
		}
		return strings.Join(out[i].Tags, ",") < strings.Join(out[j].Tags, ",")
	})
	return out
}

func withTags(base []string, extra ...string) []string {
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

// percentile uses the nearest-rank method on sorted samples.
func percentile(s []float64, p float64) float64 {
	n := len(s)
	switch {
	case n == 0:
		return 0
	case p <= 0:
		return s[0]
	case p >= 1:
		return s[n-1]
	}
	idx := int(p*float64(n-1) + 0.5)
	if idx >= n {
		idx = n - 1
	}
	return s[idx]
}

var _ metrics.Backend = (*Backend)(nil)
