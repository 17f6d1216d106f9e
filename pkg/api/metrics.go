package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "dimcluster"

// Metrics holds the service's Prometheus collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	runsTotal      *prometheus.CounterVec   // By endpoint and mode (threshold/identity)
	runDuration    *prometheus.HistogramVec // By endpoint
	clustersFound  prometheus.Histogram
	cacheRequests  *prometheus.CounterVec // By result (hit/miss)
	decodeErrors   *prometheus.CounterVec // By stage
	rowsAppended   prometheus.Counter
	wsBroadcasts   prometheus.Counter
	storageBlocked prometheus.Counter
}

// NewMetrics creates and registers all collectors, plus Go runtime metrics
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cluster_runs_total",
			Help:      "Total number of clustering pipeline runs",
		}, []string{"endpoint", "mode"}),

		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "cluster_run_duration_seconds",
			Help:      "Clustering pipeline duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"endpoint"}),

		clustersFound: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "clusters_per_run",
			Help:      "Number of clusters produced per run",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 50, 100},
		}),

		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Result cache lookups",
		}, []string{"result"}),

		decodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "decode_errors_total",
			Help:      "Rejected requests by decode stage",
		}, []string{"stage"}),

		rowsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "datasets",
			Name:      "rows_appended_total",
			Help:      "Rows appended to datasets",
		}),

		wsBroadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "websocket",
			Name:      "broadcasts_total",
			Help:      "clusters_update messages queued for websocket clients",
		}),

		storageBlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "datasets",
			Name:      "writes_refused_total",
			Help:      "Writes refused because the storage limit was reached",
		}),
	}

	m.registry.MustRegister(
		m.runsTotal,
		m.runDuration,
		m.clustersFound,
		m.cacheRequests,
		m.decodeErrors,
		m.rowsAppended,
		m.wsBroadcasts,
		m.storageBlocked,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry exposes the underlying registry (for tests and extra collectors)
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// ObserveRun records one pipeline run. Nil-safe.
func (m *Metrics) ObserveRun(endpoint string, thresholded bool, clusters int, elapsed time.Duration) {
	if m == nil {
		return
	}
	mode := "identity"
	if thresholded {
		mode = "threshold"
	}
	m.runsTotal.WithLabelValues(endpoint, mode).Inc()
	m.runDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
	m.clustersFound.Observe(float64(clusters))
}

// ObserveCache records a cache hit or miss. Nil-safe.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheRequests.WithLabelValues("hit").Inc()
	} else {
		m.cacheRequests.WithLabelValues("miss").Inc()
	}
}

// ObserveDecodeError records a rejected request. Nil-safe.
func (m *Metrics) ObserveDecodeError(stage string) {
	if m == nil {
		return
	}
	m.decodeErrors.WithLabelValues(stage).Inc()
}

// ObserveAppend records appended rows. Nil-safe.
func (m *Metrics) ObserveAppend(rows int) {
	if m == nil {
		return
	}
	m.rowsAppended.Add(float64(rows))
}

// ObserveBroadcast records a queued websocket update. Nil-safe.
func (m *Metrics) ObserveBroadcast() {
	if m == nil {
		return
	}
	m.wsBroadcasts.Inc()
}

// ObserveStorageRefusal records a write refused by the storage limit. Nil-safe.
func (m *Metrics) ObserveStorageRefusal() {
	if m == nil {
		return
	}
	m.storageBlocked.Inc()
}
