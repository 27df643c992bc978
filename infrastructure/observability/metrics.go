package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Pipeline metrics
	Extractions       prometheus.Counter
	ExtractedKeywords prometheus.Histogram
	ExtractedLinks    prometheus.Histogram
	DroppedSubtrees   prometheus.Counter
	HalfRuns          *prometheus.CounterVec
	HalfDuration      *prometheus.HistogramVec

	// Store metrics
	StoreOperations *prometheus.CounterVec
	StoreDuration   *prometheus.HistogramVec
	BreakerState    *prometheus.GaugeVec

	// Event metrics
	EventsPublished *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Extractions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extractions_total",
				Help:      "Total number of documents run through extraction",
			},
		),
		ExtractedKeywords: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "extracted_keywords",
				Help:      "Keywords extracted per document",
				Buckets:   []float64{0, 1, 2, 3, 4, 5, 6},
			},
		),
		ExtractedLinks: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "extracted_links",
				Help:      "Internal link targets extracted per document, duplicates included",
				Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
			},
		),
		DroppedSubtrees: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dropped_subtrees_total",
				Help:      "Malformed document subtrees discarded while decoding",
			},
		),
		HalfRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_half_runs_total",
				Help:      "Pipeline half runs by outcome",
			},
			[]string{"half", "outcome"},
		),
		HalfDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_half_duration_seconds",
				Help:      "Pipeline half duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"half"},
		),
		StoreOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Total number of entity store operations",
			},
			[]string{"operation", "status"},
		),
		StoreDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Entity store operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open",
			},
			[]string{"name"},
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Domain events sent to the event bus",
			},
			[]string{"type", "status"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Extractions,
		c.ExtractedKeywords,
		c.ExtractedLinks,
		c.DroppedSubtrees,
		c.HalfRuns,
		c.HalfDuration,
		c.StoreOperations,
		c.StoreDuration,
		c.BreakerState,
		c.EventsPublished,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Registry returns the registry holding the collector's metrics
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordExtraction implements ports.PipelineMetrics
func (c *Collector) RecordExtraction(keywords, links, dropped int) {
	c.Extractions.Inc()
	c.ExtractedKeywords.Observe(float64(keywords))
	c.ExtractedLinks.Observe(float64(links))
	if dropped > 0 {
		c.DroppedSubtrees.Add(float64(dropped))
	}
}

// RecordHalf implements ports.PipelineMetrics
func (c *Collector) RecordHalf(half, outcome string, d time.Duration) {
	c.HalfRuns.WithLabelValues(half, outcome).Inc()
	c.HalfDuration.WithLabelValues(half).Observe(d.Seconds())
}

// RecordStoreOperation records one entity store call
func (c *Collector) RecordStoreOperation(operation string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.StoreOperations.WithLabelValues(operation, status).Inc()
	c.StoreDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordBreakerState records a circuit breaker transition
func (c *Collector) RecordBreakerState(name string, state int) {
	c.BreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordEvent records one publish attempt
func (c *Collector) RecordEvent(eventType string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.EventsPublished.WithLabelValues(eventType, status).Inc()
}

// RecordHTTPRequest records one served request
func (c *Collector) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
