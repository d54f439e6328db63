package metrics

import (
	"net/http"
	"time"

	"modelctl/internal/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "modelctl"

var durationBuckets = []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60}

// Collectors are the Prometheus series exported on /metrics.
// Each set owns its registry so several servers can coexist in one process.
type Collectors struct {
	registry *prometheus.Registry

	HTTPRequestDuration prometheus.Histogram
	HTTPErrorsTotal     prometheus.Counter
	GenerationsTotal    *prometheus.CounterVec
	GenerationDuration  *prometheus.HistogramVec
	ToolCallsTotal      *prometheus.CounterVec
	ToolDuration        *prometheus.HistogramVec
	ModelState          *prometheus.GaugeVec
	CacheLookupsTotal   *prometheus.CounterVec
}

// NewCollectors creates and registers all series on a fresh registry.
func NewCollectors() *Collectors {
	c := &Collectors{
		registry: prometheus.NewRegistry(),
		HTTPRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   durationBuckets,
		}),
		HTTPErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "HTTP responses with a 4xx or 5xx status",
		}),
		GenerationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "models",
			Name:      "generations_total",
			Help:      "Generation requests by model and outcome",
		}, []string{"model", "status"}),
		GenerationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "models",
			Name:      "generation_duration_seconds",
			Help:      "Backend generation duration in seconds",
			Buckets:   durationBuckets,
		}, []string{"model"}),
		ToolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tools",
			Name:      "calls_total",
			Help:      "Tool invocations by tool and outcome",
		}, []string{"tool_name", "status"}),
		ToolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tools",
			Name:      "duration_seconds",
			Help:      "Tool execution duration in seconds",
			Buckets:   durationBuckets,
		}, []string{"tool_name"}),
		ModelState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "models",
			Name:      "state",
			Help:      "1 for the current lifecycle state of each model, 0 otherwise",
		}, []string{"model", "state"}),
		CacheLookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Catalog cache lookups by result",
		}, []string{"result"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.HTTPRequestDuration,
		c.HTTPErrorsTotal,
		c.GenerationsTotal,
		c.GenerationDuration,
		c.ToolCallsTotal,
		c.ToolDuration,
		c.ModelState,
		c.CacheLookupsTotal,
	)
	return c
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collectors) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collectors) observeGeneration(model string, duration time.Duration, success bool) {
	c.GenerationsTotal.WithLabelValues(model, statusLabel(success)).Inc()
	if success {
		c.GenerationDuration.WithLabelValues(model).Observe(duration.Seconds())
	}
}

func (c *Collectors) observeTool(tool string, duration time.Duration, success bool) {
	c.ToolCallsTotal.WithLabelValues(tool, statusLabel(success)).Inc()
	c.ToolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

func (c *Collectors) setModelState(model string, state core.ModelState) {
	for _, s := range core.ModelStates {
		value := 0.0
		if s == state {
			value = 1
		}
		c.ModelState.WithLabelValues(model, string(s)).Set(value)
	}
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
