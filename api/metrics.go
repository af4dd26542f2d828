package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nobel/timebank/timebank"
)

// Metrics holds the collectors exposed on /metrics. Each server gets its
// own registry so tests can build routers side by side.
type Metrics struct {
	Registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
	punches      *prometheus.CounterVec
	balance      *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "timebank_http_requests_total",
			Help: "Total HTTP requests processed, labeled by status code",
		}, []string{"method", "route", "status"}),
		httpLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "timebank_http_request_duration_seconds",
			Help:    "Latency distribution of HTTP requests",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"method", "route"}),
		punches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "timebank_punches_total",
			Help: "Accepted punches by action",
		}, []string{"action"}),
		balance: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "timebank_balance_minutes",
			Help: "Cumulative time-bank balance per employee",
		}, []string{"employee_id"}),
	}
}

func (m *Metrics) observePunch(action timebank.Action) {
	m.punches.WithLabelValues(string(action)).Inc()
}

// PublishBalances replaces the balance gauge with the given values, so
// deleted employees disappear from the export.
func (m *Metrics) PublishBalances(balances []timebank.Balance) {
	m.balance.Reset()
	for _, b := range balances {
		m.balance.WithLabelValues(string(b.EmployeeID)).Set(float64(b.Total()))
	}
}
