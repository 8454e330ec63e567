// Package telemetry exposes widget readings and HTTP traffic as Prometheus metrics.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smokyabdulrahman/prayer-widget/internal/driver"
	"github.com/smokyabdulrahman/prayer-widget/internal/window"
)

const namespace = "prayer_widget"

// Metrics owns a private registry so several instances (tests, embedded
// servers) never collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	fill          prometheus.Gauge
	remaining     prometheus.Gauge
	windowEnd     prometheus.Gauge
	active        *prometheus.GaugeVec
	evaluations   *prometheus.CounterVec
	fetches       *prometheus.CounterVec
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	inflight      prometheus.Gauge
	subscriptions prometheus.Gauge
}

// New creates and registers all collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fill: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "window_fill_percent",
			Help:      "Percentage of the active prayer window that has elapsed.",
		}),
		remaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "remaining_minutes",
			Help:      "Whole minutes until the next prayer.",
		}),
		windowEnd: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "window_end_timestamp_seconds",
			Help:      "Unix time at which the active window ends.",
		}),
		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_prayer",
			Help:      "1 for the prayer whose window is active, 0 for the others.",
		}, []string{"prayer"}),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Evaluation passes by result.",
		}, []string{"result"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boundary_fetches_total",
			Help:      "Boundary fetches from the prayer times API by result.",
		}, []string{"result"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected live-update clients.",
		}),
	}

	m.registry.MustRegister(
		m.fill, m.remaining, m.windowEnd, m.active,
		m.evaluations, m.fetches,
		m.requests, m.duration, m.inflight, m.subscriptions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	for _, name := range window.Names {
		m.active.WithLabelValues(name).Set(0)
	}
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Observe records a driver update. It has the driver.Subscriber signature.
func (m *Metrics) Observe(u driver.Update) {
	if u.Err != nil {
		m.evaluations.WithLabelValues("error").Inc()
		return
	}
	m.evaluations.WithLabelValues("ok").Inc()

	r := u.Reading
	m.fill.Set(r.FillPercentage)
	m.remaining.Set(r.Remaining.Duration().Minutes())
	m.windowEnd.Set(float64(r.End.Unix()))
	for i, name := range window.Names {
		v := 0.0
		if window.Index(i) == r.ActiveIndex {
			v = 1
		}
		m.active.WithLabelValues(name).Set(v)
	}
}

// FetchDone records the outcome of a boundary fetch.
func (m *Metrics) FetchDone(err error) {
	if err != nil {
		m.fetches.WithLabelValues("error").Inc()
		return
	}
	m.fetches.WithLabelValues("ok").Inc()
}

// ClientConnected tracks live-update clients; call the returned func on disconnect.
func (m *Metrics) ClientConnected() func() {
	m.subscriptions.Inc()
	return m.subscriptions.Dec
}

// observeRequest is used by Middleware.
func (m *Metrics) observeRequest(method, route string, code int, elapsed time.Duration) {
	m.requests.WithLabelValues(method, route, statusText(code)).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
