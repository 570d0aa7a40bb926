package ddapi

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"crmetl/internal/metrics"
)

type fakeSubmitter struct {
	mu       sync.Mutex
	payloads []datadogV2.MetricPayload
	err      error
}

func (f *fakeSubmitter) SubmitMetrics(_ context.Context, body datadogV2.MetricPayload, _ ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, body)
	return datadogV2.IntakePayloadAccepted{}, nil, f.err
}

func newTestBackend(f *fakeSubmitter) *Backend {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return NewBackend(context.Background(), Options{
		JobName:   "grupo",
		Tags:      []string{"team:crm"},
		now:       func() time.Time { return at },
		submitter: f,
	})
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}

func TestFlush_Empty(t *testing.T) {
	t.Parallel()

	f := &fakeSubmitter{}
	b := newTestBackend(f)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(f.payloads) != 0 {
		t.Fatalf("empty buffers must not submit, got %d payloads", len(f.payloads))
	}
}

/*
TestFlush_BuildsSeries records one of each metric and checks names, types,
tags and the timestamp of the single submitted payload.
*/
func TestFlush_BuildsSeries(t *testing.T) {
	t.Parallel()

	f := &fakeSubmitter{}
	b := newTestBackend(f)

	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "loaded", "status": "success"})
	b.IncCounter(metrics.RecordsTotal, 7, metrics.Labels{"kind": metrics.KindWritten})
	b.IncCounter(metrics.RecordsTotal, 1, metrics.Labels{})
	b.IncCounter(metrics.BatchesTotal, 2, nil)
	b.IncCounter(metrics.RunsTotal, 1, metrics.Labels{"pipeline": "grupo_raices", "status": "success"})
	b.IncCounter("other", 1, nil)
	b.IncCounter(metrics.BatchesTotal, -1, nil)
	b.ObserveHistogram(metrics.StepDuration, 0.5, metrics.Labels{"step": "loaded", "status": "success"})
	b.ObserveHistogram(metrics.StepDuration, 1.5, metrics.Labels{"step": "loaded", "status": "success"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(f.payloads) != 1 {
		t.Fatalf("payloads = %d, want 1", len(f.payloads))
	}

	byName := map[string]datadogV2.MetricSeries{}
	for _, s := range f.payloads[0].Series {
		byName[s.Metric] = s
	}
	wantNames := []string{
		"crmetl.step.total",
		"crmetl.records.total",
		"crmetl.batches.total",
		"crmetl.runs.total",
		"crmetl.step.duration_seconds.p50",
		"crmetl.step.duration_seconds.p95",
		"crmetl.step.duration_seconds.max",
	}
	if len(byName) != len(wantNames) {
		t.Fatalf("series = %v", byName)
	}
	for _, n := range wantNames {
		s, ok := byName[n]
		if !ok {
			t.Fatalf("missing series %s", n)
		}
		if !hasTag(s.Tags, "job:grupo") || !hasTag(s.Tags, "team:crm") {
			t.Fatalf("%s tags = %v", n, s.Tags)
		}
		if got := s.Points[0].GetTimestamp(); got != 1709294400 {
			t.Fatalf("%s timestamp = %d", n, got)
		}
	}

	rec := byName["crmetl.records.total"]
	if rec.GetType() != datadogV2.METRICINTAKETYPE_COUNT || rec.Points[0].GetValue() != 7 || !hasTag(rec.Tags, "kind:written") {
		t.Fatalf("records series = %#v", rec)
	}
	if got := byName["crmetl.batches.total"].Points[0].GetValue(); got != 2 {
		t.Fatalf("batches = %v", got)
	}
	maxS := byName["crmetl.step.duration_seconds.max"]
	if maxS.GetType() != datadogV2.METRICINTAKETYPE_GAUGE || maxS.Points[0].GetValue() != 1.5 {
		t.Fatalf("max series = %#v", maxS)
	}
}

func TestFlush_ResetsEvenOnError(t *testing.T) {
	t.Parallel()

	f := &fakeSubmitter{err: errors.New("403 forbidden")}
	b := newTestBackend(f)
	b.IncCounter(metrics.BatchesTotal, 1, nil)

	if err := b.Flush(); err == nil {
		t.Fatal("expected submit error")
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("second Flush: %v", err)
	}
	if len(f.payloads) != 1 {
		t.Fatalf("payloads = %d, want 1", len(f.payloads))
	}
}

func TestPercentile(t *testing.T) {
	t.Parallel()

	s := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1}, {0.5, 6}, {0.95, 10}, {1, 10},
	}
	for _, tc := range tests {
		if got := percentile(s, tc.p); got != tc.want {
			t.Fatalf("percentile(%v) = %v, want %v", tc.p, got, tc.want)
		}
	}
	if percentile(nil, 0.5) != 0 {
		t.Fatal("empty samples must give 0")
	}
}

func TestEnvTag(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("DD_ENV", "staging")
	if got := envTag(); got != "env:staging" {
		t.Fatalf("envTag = %q", got)
	}
	t.Setenv("ENV", "prod")
	if got := envTag(); got != "env:prod" {
		t.Fatalf("envTag = %q", got)
	}
}
