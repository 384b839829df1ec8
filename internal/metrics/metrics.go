package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the watcher's collectors. It satisfies both
// pending.RefreshObserver and client.RequestObserver.
type Metrics struct {
	registry *prometheus.Registry

	pendingCount    prometheus.Gauge
	lastRefresh     prometheus.Gauge
	refreshTotal    *prometheus.CounterVec
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		pendingCount: factory.NewGauge(prometheus.GaugeOpts{
			Name: "payadmin_pending_transfers",
			Help: "Pending transfers as of the last successful refresh",
		}),
		lastRefresh: factory.NewGauge(prometheus.GaugeOpts{
			Name: "payadmin_pending_last_success_timestamp_seconds",
			Help: "Unix time of the last successful pending count refresh",
		}),
		refreshTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payadmin_pending_refresh_total",
			Help: "Pending count refreshes, labeled by result",
		}, []string{"result"}),
		requestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payadmin_api_requests_total",
			Help: "Admin API requests, labeled by status code",
		}, []string{"method", "route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "payadmin_api_request_duration_seconds",
			Help:    "Latency distribution of admin API requests",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveRefresh(count int, err error) {
	if err != nil {
		m.refreshTotal.WithLabelValues("error").Inc()
		return
	}
	m.refreshTotal.WithLabelValues("ok").Inc()
	m.pendingCount.Set(float64(count))
	m.lastRefresh.SetToCurrentTime()
}

// ObserveRequest records one API round trip. Status 0 means the request
// never got a response.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.requestTotal.WithLabelValues(method, route, code).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
