package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"crmetl/internal/metrics"
)

func TestNewBackend(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend("job", ""); err == nil {
		t.Fatal("expected error for a missing gateway URL")
	}
	b, err := NewBackend("", "http://pushgateway:9091")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if b.jobName != "crmetl" {
		t.Fatalf("jobName = %q, want default crmetl", b.jobName)
	}
}

func TestRouting(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("masiv", "http://pushgateway:9091")
	if err != nil {
		t.Fatal(err)
	}
	b.IncCounter(metrics.StepTotal, 2, metrics.Labels{"step": "loaded", "status": "success"})
	b.IncCounter(metrics.RecordsTotal, 5, metrics.Labels{"kind": metrics.KindLoaded})
	b.IncCounter(metrics.BatchesTotal, 1, nil)
	b.IncCounter(metrics.RunsTotal, 1, metrics.Labels{"pipeline": "masiv", "status": "failure"})
	b.IncCounter("unknown_metric", 9, nil)
	b.ObserveHistogram(metrics.StepDuration, 0.25, metrics.Labels{"step": "saved", "status": "success"})
	b.ObserveHistogram("unknown_hist", 1, nil)

	if got := testutil.ToFloat64(b.stepCounter.WithLabelValues("loaded", "success")); got != 2 {
		t.Fatalf("step counter = %v", got)
	}
	if got := testutil.ToFloat64(b.recordCounter.WithLabelValues(metrics.KindLoaded)); got != 5 {
		t.Fatalf("record counter = %v", got)
	}
	if got := testutil.ToFloat64(b.batchCounter); got != 1 {
		t.Fatalf("batch counter = %v", got)
	}
	if got := testutil.ToFloat64(b.runCounter.WithLabelValues("masiv", "failure")); got != 1 {
		t.Fatalf("run counter = %v", got)
	}
	if n := testutil.CollectAndCount(b.stepDuration); n != 1 {
		t.Fatalf("summary series = %d, want 1", n)
	}
}

func TestFlush_PushesToGateway(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		paths []string
		body  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		body = string(b)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b, err := NewBackend("grupo", srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	b.Grouping("pipeline", "grupo_raices")
	b.IncCounter(metrics.RecordsTotal, 3, metrics.Labels{"kind": metrics.KindWritten})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(paths) != 1 || !strings.HasPrefix(paths[0], "PUT /metrics/job/grupo") || !strings.Contains(paths[0], "/pipeline/grupo_raices") {
		t.Fatalf("requests = %v", paths)
	}
	if body == "" {
		t.Fatal("empty push body")
	}
}

func TestFlush_WrapsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	b, _ := NewBackend("grupo", srv.URL)
	if err := b.Flush(); err == nil || !strings.Contains(err.Error(), "prompush:") {
		t.Fatalf("Flush err = %v", err)
	}
}
