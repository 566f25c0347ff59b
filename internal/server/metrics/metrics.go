// Package metrics exposes Prometheus instrumentation for the account server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/server/sessions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of the account server. It satisfies
// services.Recorder.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	AuthStates      *prometheus.CounterVec
	SignIns         *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accountkeeper_http_requests_total",
				Help: "Total number of HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "accountkeeper_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		AuthStates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accountkeeper_auth_states_total",
				Help: "Total number of session checks by resulting state",
			},
			[]string{"state"},
		),
		SignIns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accountkeeper_sign_ins_total",
				Help: "Total number of sign-in attempts by outcome",
			},
			[]string{"outcome"},
		),
	}

	reg.MustRegister(m.RequestsTotal, m.RequestDuration, m.AuthStates, m.SignIns)
	return m
}

// NewRegistry returns a registry preloaded with the Go runtime and process
// collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the contents of g in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	m.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) AuthState(s sessions.AuthState) {
	m.AuthStates.WithLabelValues(s.String()).Inc()
}

func (m *Metrics) SignIn(outcome string) {
	m.SignIns.WithLabelValues(outcome).Inc()
}
