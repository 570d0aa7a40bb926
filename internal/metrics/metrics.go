// Package metrics records operational metrics for pipeline runs through a
// global, pluggable backend. The default backend discards everything, so
// instrumentation is always safe to call.
//
// Concrete backends live in subpackages (prompush, datadog, ddapi) and are
// installed with SetBackend by the command that owns the process.
package metrics

import "time"

// Metric names shared by all backends.
const (
	StepTotal    = "crmetl_step_total"
	StepDuration = "crmetl_step_duration_seconds"
	RecordsTotal = "crmetl_records_total"
	BatchesTotal = "crmetl_batches_total"
	RunsTotal    = "crmetl_runs_total"
)

// Record kinds used with RecordRow.
const (
	KindLoaded            = "loaded"
	KindDuplicatesDropped = "duplicates_dropped"
	KindFilteredOut       = "filtered_out"
	KindDateParseErrors   = "date_parse_errors"
	KindWritten           = "written"
	KindInserted          = "inserted"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface a metrics system has to provide.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes buffered data, if the backend buffers at all.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var backend Backend = nopBackend{}

// SetBackend installs b. Passing nil keeps the current backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error { return backend.Flush() }

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordStep counts one execution of a pipeline phase and observes how long
// it took.
func RecordStep(job, step string, err error, d time.Duration) {
	lbls := Labels{"job": job, "step": step, "status": status(err)}
	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRow adds delta rows of the given kind. Non-positive deltas are
// ignored.
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RecordsTotal, float64(delta), Labels{"job": job, "kind": kind})
}

// RecordBatches counts bulk-insert batches sent to a database.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(BatchesTotal, float64(delta), Labels{"job": job})
}

// RecordRun counts one finished run with its final outcome.
func RecordRun(job, pipeline string, err error) {
	backend.IncCounter(RunsTotal, 1, Labels{"job": job, "pipeline": pipeline, "status": status(err)})
}
