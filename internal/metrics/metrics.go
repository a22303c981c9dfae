// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from the dashboard pipeline.
//
// Callers record through package-level helpers; the installed Backend decides
// where the numbers go. The default backend discards everything, so
// instrumentation is always safe to call. Concrete systems (Prometheus,
// Datadog) live in subpackages.
package metrics

import (
	"sync"
	"time"
)

// Metric names shared by all backends.
const (
	StepTotal       = "mediadash_step_total"
	StepDuration    = "mediadash_step_duration_seconds"
	RowsTotal       = "mediadash_rows_total"
	SummariesTotal  = "mediadash_summaries_total"
	SessionsEvicted = "mediadash_sessions_evicted_total"
)

// Pipeline stages passed to RecordStep.
const (
	StepParse     = "parse"
	StepClean     = "clean"
	StepFilter    = "filter"
	StepAggregate = "aggregate"
	StepSummarize = "summarize"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordStep measures latency and success/failure of one pipeline stage.
func RecordStep(step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"step": step, "status": status}

	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRows increments a row-level counter. Kinds mirror the cleaning
// report, e.g.:
//   - "read"
//   - "kept"
//   - "dropped_date"
//   - "defaulted_engagements"
func RecordRows(kind string, delta int) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(delta), Labels{"kind": kind})
}

// RecordSummary counts one narrator request by provider and outcome.
func RecordSummary(provider string, ok bool) {
	status := "success"
	if !ok {
		status = "failure"
	}
	current().IncCounter(SummariesTotal, 1, Labels{"provider": provider, "status": status})
}

// RecordEvictions counts idle sessions dropped by the session store.
func RecordEvictions(n int) {
	if n <= 0 {
		return
	}
	current().IncCounter(SessionsEvicted, float64(n), nil)
}
