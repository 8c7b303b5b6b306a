package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "targeting_requests_total",
			Help: "Total targeting API requests",
		}, []string{"code"},
	)
	Latency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "targeting_request_duration_seconds",
		Help:    "Request latency seconds",
		Buckets: prometheus.DefBuckets,
	})
	InFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "targeting_in_flight",
		Help: "In-flight HTTP requests",
	})
	RequestErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "targeting_request_errors_total",
			Help: "Total errors by type",
		}, []string{"type"},
	)

	SnapshotBuilds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "targeting_snapshot_builds_total",
			Help: "Snapshot rebuilds by result",
		}, []string{"result"},
	)
	SnapshotItems = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "targeting_snapshot_items",
			Help: "Items held by the current snapshot, by kind",
		}, []string{"kind"},
	)
	TermMapSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "targeting_term_map_triggers",
		Help: "Distinct glossary triggers in the current term map",
	})
	UnknownOperators = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "targeting_unknown_operator_total",
			Help: "Conditions skipped because their operator is not registered",
		}, []string{"operator"},
	)
	RecommendationCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "targeting_recommendation_cache_total",
			Help: "Recommendation memo lookups by result",
		}, []string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal, Latency, InFlight, RequestErrors,
		SnapshotBuilds, SnapshotItems, TermMapSize, UnknownOperators, RecommendationCache,
	)
}

func MetricsHandler() http.Handler { return promhttp.Handler() }

type rec struct {
	http.ResponseWriter
	code int
}

func (r *rec) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func Measure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		InFlight.Inc()
		defer InFlight.Dec()

		rr := &rec{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rr, r)

		Latency.Observe(time.Since(start).Seconds())
		RequestsTotal.WithLabelValues(strconv.Itoa(rr.code)).Inc()
		if rr.code >= http.StatusBadRequest {
			RequestErrors.WithLabelValues(strconv.Itoa(rr.code)).Inc()
		}
	})
}
