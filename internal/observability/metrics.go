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
			Name: "campaign_requests_total",
			Help: "Total API requests",
		}, []string{"code"},
	)
	Latency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "campaign_request_duration_seconds",
		Help:    "Request latency seconds",
		Buckets: prometheus.DefBuckets,
	})
	InFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "campaign_in_flight",
		Help: "In-flight HTTP requests",
	})
	RequestErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_request_errors_total",
			Help: "Total errors by type",
		}, []string{"type"},
	)

	RowsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_rows_total",
			Help: "Rows entering generation, by outcome",
		}, []string{"outcome"},
	)
	GroupingWarnings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_grouping_warnings_total",
			Help: "Grouping warnings by type",
		}, []string{"type"},
	)
	FallbackActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_fallback_actions_total",
			Help: "Ads handled by the fallback engine, by strategy and action",
		}, []string{"strategy", "action"},
	)
	AdsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_ads_generated_total",
			Help: "Ads emitted by generation, by platform",
		}, []string{"platform"},
	)
	GenerateDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "campaign_generate_duration_seconds",
		Help:    "Time spent in one generation run",
		Buckets: prometheus.DefBuckets,
	})
	LimitReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_limit_reloads_total",
			Help: "Platform limit table reloads by result",
		}, []string{"result"},
	)
)

func init() {
	prometheus.MustRegister(RequestsTotal, Latency, InFlight, RequestErrors,
		RowsProcessed, GroupingWarnings, FallbackActions, AdsGenerated, GenerateDuration, LimitReloads)
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
	})
}
