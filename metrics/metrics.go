package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	TriggerManual  = "manual"
	TriggerTimeout = "timeout"
)

// Metrics holds the application's collectors on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	TestsStarted         prometheus.Counter
	TestsSubmitted       *prometheus.CounterVec
	ResultPercentage     prometheus.Histogram
	BanksLoaded          prometheus.Counter
	BankRowsSkipped      prometheus.Counter
	HistoryWriteFailures prometheus.Counter

	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		TestsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mcq_tests_started_total",
			Help: "Total number of tests started",
		}),
		TestsSubmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcq_tests_submitted_total",
				Help: "Total number of tests submitted, by trigger",
			},
			[]string{"trigger"},
		),
		ResultPercentage: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mcq_result_percentage",
			Help:    "Distribution of result percentages",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
		BanksLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mcq_banks_loaded_total",
			Help: "Total number of question banks loaded",
		}),
		BankRowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mcq_bank_rows_skipped_total",
			Help: "Total number of invalid bank rows skipped",
		}),
		HistoryWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mcq_history_write_failures_total",
			Help: "Total number of history writes that failed to persist",
		}),

		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2},
			},
			[]string{"method", "endpoint"},
		),
	}

	m.registry.MustRegister(
		m.TestsStarted,
		m.TestsSubmitted,
		m.ResultPercentage,
		m.BanksLoaded,
		m.BankRowsSkipped,
		m.HistoryWriteFailures,
		m.RequestCounter,
		m.RequestDuration,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and durations by route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.RequestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}
