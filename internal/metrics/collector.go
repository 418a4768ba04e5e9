// Package metrics exposes Prometheus instrumentation for the HTTP boundary
// and the workflow engine.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Collector owns the process metric registry. All instruments are registered
// at construction; observation methods are safe for concurrent use.
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	workflowRunsTotal *prometheus.CounterVec
	runDuration       *prometheus.HistogramVec
	stageDuration     *prometheus.HistogramVec
}

// NewCollector builds a collector with its own registry, including the
// standard Go runtime and process collectors.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c := &Collector{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbiter",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, path and status code.",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "arbiter",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		workflowRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbiter",
			Subsystem: "workflow",
			Name:      "runs_total",
			Help:      "Completed workflow runs by status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "arbiter",
			Subsystem: "workflow",
			Name:      "run_duration_seconds",
			Help:      "End-to-end run latency by final status.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"status"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "arbiter",
			Subsystem: "workflow",
			Name:      "stage_duration_seconds",
			Help:      "Workflow stage latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
	}
	registry.MustRegister(
		c.httpRequestsTotal,
		c.httpRequestDuration,
		c.workflowRunsTotal,
		c.runDuration,
		c.stageDuration,
	)
	return c
}

// Registry returns the underlying registry for exposition.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveHTTPRequest records one served HTTP request.
func (c *Collector) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveWorkflowRun records one finished run.
func (c *Collector) ObserveWorkflowRun(status string, duration time.Duration) {
	c.workflowRunsTotal.WithLabelValues(status).Inc()
	c.runDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// ObserveStage records the latency of one workflow stage.
func (c *Collector) ObserveStage(stage string, duration time.Duration) {
	c.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}
