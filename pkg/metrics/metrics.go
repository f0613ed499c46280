package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mediaresolver"

// Metrics holds every collector the resolver exports. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	cacheLookups     *prometheus.CounterVec
	providerRequests *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	resolvedRecords  *prometheus.CounterVec
	sweptEntries     prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_lookups_total",
			Help:      "Query cache lookups by result",
		}, []string{"result"}), // result=hit|miss|error
		providerRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Provider searches by provider and outcome",
		}, []string{"provider", "outcome"}), // outcome=ok|empty|error|panic
		providerLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Provider search latency",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"provider"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		resolvedRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolved_records_total",
			Help:      "Provider records stored, by provider and whether a row was created",
		}, []string{"source", "created"}),
		sweptEntries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_swept_entries_total",
			Help:      "Expired query cache entries removed by the sweeper",
		}),
	}
}

func (m *Metrics) ObserveCacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveProvider(provider, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.providerRequests.WithLabelValues(provider, outcome).Inc()
	m.providerLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveResolved(source string, created bool) {
	if m == nil {
		return
	}
	m.resolvedRecords.WithLabelValues(source, strconv.FormatBool(created)).Inc()
}

func (m *Metrics) ObserveSweep(deleted int64) {
	if m == nil || deleted <= 0 {
		return
	}
	m.sweptEntries.Add(float64(deleted))
}

// Handler serves the registry in the prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
