package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Result labels.
const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultRejected = "rejected"
	ResultStale    = "stale"
)

type Metrics struct {
	registry        *prometheus.Registry
	orders          *prometheus.CounterVec
	paymentSessions *prometheus.CounterVec
	payments        prometheus.Counter
	backend         *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New registers the storefront collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Direct order submissions by result.",
		}, []string{"result"}),
		paymentSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_sessions_total",
			Help:      "Payment session attempts by result.",
		}, []string{"result"}),
		payments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_completed_total",
			Help:      "Payment widget completions acknowledged.",
		}),
		backend: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Requests to the store backend by method and status. Status 0 is a transport failure.",
		}, []string{"method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Gateway request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.orders, m.paymentSessions, m.payments, m.backend, m.httpDuration,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) OrderSubmitted(result string) {
	m.orders.WithLabelValues(result).Inc()
}

func (m *Metrics) PaymentSession(result string) {
	m.paymentSessions.WithLabelValues(result).Inc()
}

func (m *Metrics) PaymentCompleted() {
	m.payments.Inc()
}

// ObserveBackend has the signature of api.Observer.
func (m *Metrics) ObserveBackend(method, _ string, status int) {
	m.backend.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func (m *Metrics) ObserveHTTP(route string, status int, seconds float64) {
	m.httpDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(seconds)
}
