// Package metrics holds the Prometheus collectors for the query service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "coursechat"

// Collector holds all Prometheus metrics for the application.
// Each collector owns its registry so tests can build as many as they like.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Routing metrics
	Queries *prometheus.CounterVec

	// Oracle metrics
	OracleDuration prometheus.Histogram
	OracleFailures prometheus.Counter

	// Catalog metrics
	CatalogCourses prometheus.Gauge
	CatalogReloads *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry.
func NewCollector() *Collector {
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
		Queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Answered questions by the handler or extraction stage that answered them",
			},
			[]string{"route"},
		),
		OracleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "oracle_duration_seconds",
				Help:      "Retrieval oracle call duration in seconds",
				Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			},
		),
		OracleFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "oracle_failures_total",
				Help:      "Retrieval oracle calls that returned an error",
			},
		),
		CatalogCourses: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "catalog_courses",
				Help:      "Courses in the catalog currently being served",
			},
		),
		CatalogReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_reloads_total",
				Help:      "Catalog reload attempts by outcome",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Queries,
		c.OracleDuration,
		c.OracleFailures,
		c.CatalogCourses,
		c.CatalogReloads,
	)

	return c
}

// Registry returns the registry the collectors are registered with.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one served request.
func (c *Collector) RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordQuery counts an answered question under its route.
func (c *Collector) RecordQuery(route string) {
	c.Queries.WithLabelValues(route).Inc()
}

// ObserveOracle implements oracle.Observer.
func (c *Collector) ObserveOracle(elapsed time.Duration, err error) {
	c.OracleDuration.Observe(elapsed.Seconds())
	if err != nil {
		c.OracleFailures.Inc()
	}
}

// RecordCatalogLoad records a catalog (re)load. courses is ignored on failure.
func (c *Collector) RecordCatalogLoad(courses int, err error) {
	if err != nil {
		c.CatalogReloads.WithLabelValues("error").Inc()
		return
	}
	c.CatalogReloads.WithLabelValues("ok").Inc()
	c.CatalogCourses.Set(float64(courses))
}
