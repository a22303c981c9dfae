// Package prom implements a Prometheus backend for the metrics package.
//
// Collectors live in a private registry that is exposed two ways: Handler
// serves it for scraping, and Flush pushes it to a Pushgateway when one is
// configured.
package prom

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"mediadash/internal/metrics"
)

// Backend is a Prometheus metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091; empty disables push
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	stepCounter   *prometheus.CounterVec
	stepDuration  *prometheus.SummaryVec
	rowCounter    *prometheus.CounterVec
	summaryCount  *prometheus.CounterVec
	evictionCount prometheus.Counter
}

// NewBackend constructs a backend. gatewayURL may be empty when metrics are
// only scraped.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if jobName == "" {
		jobName = "mediadash"
	}

	reg := prometheus.NewRegistry()

	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Pipeline stage executions, partitioned by step and status.",
		},
		[]string{"step", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       metrics.StepDuration,
			Help:       "Duration of pipeline stages in seconds, partitioned by step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.RowsTotal,
			Help: "Uploaded rows per kind (read, kept, dropped_date, defaulted_engagements).",
		},
		[]string{"kind"},
	)
	summaryCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.SummariesTotal,
			Help: "Narrator requests, partitioned by provider and status.",
		},
		[]string{"provider", "status"},
	)
	evictionCount := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: metrics.SessionsEvicted,
			Help: "Idle sessions evicted from the session store.",
		},
	)

	for name, c := range map[string]prometheus.Collector{
		"step counter":     stepCounter,
		"step summary":     stepDuration,
		"row counter":      rowCounter,
		"summary counter":  summaryCount,
		"eviction counter": evictionCount,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prom: register %s: %w", name, err)
		}
	}

	return &Backend{
		gatewayURL:    gatewayURL,
		jobName:       jobName,
		reg:           reg,
		stepCounter:   stepCounter,
		stepDuration:  stepDuration,
		rowCounter:    rowCounter,
		summaryCount:  summaryCount,
		evictionCount: evictionCount,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		if b.stepCounter == nil {
			return
		}
		b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)

	case metrics.RowsTotal:
		if b.rowCounter == nil {
			return
		}
		b.rowCounter.WithLabelValues(labels["kind"]).Add(delta)

	case metrics.SummariesTotal:
		if b.summaryCount == nil {
			return
		}
		b.summaryCount.WithLabelValues(labels["provider"], labels["status"]).Add(delta)

	case metrics.SessionsEvicted:
		if b.evictionCount == nil {
			return
		}
		b.evictionCount.Add(delta)

	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDuration || b.stepDuration == nil {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Handler serves the registry in the Prometheus exposition format.
func (b *Backend) Handler() http.Handler {
	return promhttp.HandlerFor(b.reg, promhttp.HandlerOpts{Registry: b.reg})
}

// Flush pushes the current registry to the Pushgateway, if one is set.
func (b *Backend) Flush() error {
	if b.gatewayURL == "" {
		return nil
	}
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
