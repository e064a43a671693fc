package server

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

// metrics are registered on a private registry so several servers can run
// in one process (tests).
type metrics struct {
	registry *prometheus.Registry

	reqDuration *prometheus.HistogramVec
	reqInflight prometheus.Gauge
	changes     *prometheus.CounterVec
	batches     prometheus.Counter
	submissions *prometheus.CounterVec
	logins      *prometheus.CounterVec
	sessions    prometheus.Gauge
	wsClients   prometheus.GaugeFunc
}

func newMetrics(hub *Hub) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "editplay",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"method", "route", "status"}),
		reqInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "editplay",
			Name:      "http_requests_inflight",
			Help:      "HTTP requests currently being served.",
		}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "editplay",
			Name:      "changes_received_total",
			Help:      "Edit changes received, by kind.",
		}, []string{"kind"}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "editplay",
			Name:      "batches_received_total",
			Help:      "Change batches received.",
		}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "editplay",
			Name:      "submissions_total",
			Help:      "Submissions accepted for grading, by compile outcome.",
		}, []string{"outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "editplay",
			Name:      "logins_total",
			Help:      "Login attempts, by result (ok, rejected, throttled).",
		}, []string{"result"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "editplay",
			Name:      "recorded_sessions",
			Help:      "Editing sessions captured since start.",
		}),
		wsClients: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "editplay",
			Name:      "websocket_clients",
			Help:      "Connected dashboard clients.",
		}, func() float64 { return float64(hub.ClientCount()) }),
	}

	m.registry.MustRegister(
		m.reqDuration, m.reqInflight, m.changes, m.batches, m.submissions, m.logins, m.sessions, m.wsClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// instrument records request duration by chi route pattern.
func (m *metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.reqInflight.Inc()
		defer m.reqInflight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.reqDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
