package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusHooks implements [SolverHooks], [CacheHooks] and [HTTPHooks] by
// updating Prometheus collectors. Entity names are not used as labels.
type PrometheusHooks struct {
	flushes          prometheus.Counter
	flushDuration    prometheus.Histogram
	constraintsAdded prometheus.Counter
	constraintsGone  prometheus.Counter
	changes          prometheus.Counter
	conflicts        prometheus.Counter
	discarded        prometheus.Counter

	cacheEvents *prometheus.CounterVec
	cacheBytes  prometheus.Counter

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewPrometheusHooks registers the limn collectors with reg and returns hooks
// that update them. Registering twice on the same registry panics, as with
// promauto.
func NewPrometheusHooks(reg prometheus.Registerer) *PrometheusHooks {
	f := promauto.With(reg)
	return &PrometheusHooks{
		flushes: f.NewCounter(prometheus.CounterOpts{
			Name: "limn_solver_flushes_total",
			Help: "Total number of layout flushes",
		}),
		flushDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "limn_solver_flush_duration_seconds",
			Help:    "Duration of layout flushes",
			Buckets: []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
		constraintsAdded: f.NewCounter(prometheus.CounterOpts{
			Name: "limn_solver_constraints_added_total",
			Help: "Constraints installed by flushes",
		}),
		constraintsGone: f.NewCounter(prometheus.CounterOpts{
			Name: "limn_solver_constraints_removed_total",
			Help: "Constraint removals requested by flushes",
		}),
		changes: f.NewCounter(prometheus.CounterOpts{
			Name: "limn_solver_changes_total",
			Help: "Variable changes reported by the change feed",
		}),
		conflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "limn_solver_conflicts_total",
			Help: "Required constraints refused as unsatisfiable",
		}),
		discarded: f.NewCounter(prometheus.CounterOpts{
			Name: "limn_solver_discarded_suggestions_total",
			Help: "Non-finite suggestions dropped before reaching the solver",
		}),
		cacheEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "limn_cache_events_total",
			Help: "Cache lookups and writes by key type and outcome",
		}, []string{"key_type", "event"}),
		cacheBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "limn_cache_written_bytes_total",
			Help: "Bytes written to the cache",
		}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "limn_http_requests_total",
			Help: "HTTP responses by route, method and status code",
		}, []string{"method", "route", "code"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "limn_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (h *PrometheusHooks) OnFlush(_ string, added, removed, _ int, d time.Duration) {
	h.flushes.Inc()
	h.flushDuration.Observe(d.Seconds())
	h.constraintsAdded.Add(float64(added))
	h.constraintsGone.Add(float64(removed))
}

func (h *PrometheusHooks) OnFetchChanges(n int)         { h.changes.Add(float64(n)) }
func (h *PrometheusHooks) OnConflict(string)            { h.conflicts.Inc() }
func (h *PrometheusHooks) OnDiscardedSuggestion(string) { h.discarded.Inc() }

func (h *PrometheusHooks) OnCacheHit(_ context.Context, keyType string) {
	h.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (h *PrometheusHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (h *PrometheusHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.cacheEvents.WithLabelValues(keyType, "set").Inc()
	h.cacheBytes.Add(float64(size))
}

func (h *PrometheusHooks) OnRequest(context.Context, string, string) {}

func (h *PrometheusHooks) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	h.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	h.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
