package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "soapconnect"

// Call outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeFault = "fault"
	OutcomeError = "error"
)

// Metrics holds the soapconnect collectors. A nil *Metrics records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	calls           *prometheus.CounterVec
	callDuration    *prometheus.HistogramVec
	documentFetches *prometheus.CounterVec
	connects        *prometheus.CounterVec
	operations      prometheus.Gauge
	gatewayRequests *prometheus.CounterVec
	rateLimited     prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Total number of remote operation calls.",
		}, []string{"operation", "outcome"}),
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Duration of remote operation calls.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		}, []string{"operation"}),
		documentFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_fetches_total",
			Help:      "Capability document loads by source and result.",
		}, []string{"source", "result"}),
		connects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connects_total",
			Help:      "Connection attempts by result.",
		}, []string{"result"}),
		operations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "operations",
			Help:      "Number of operations in the published table.",
		}),
		gatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "HTTP gateway requests by operation and status.",
		}, []string{"operation", "status"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Calls delayed by the client-side rate limiter.",
		}),
	}
	reg.MustRegister(
		m.calls,
		m.callDuration,
		m.documentFetches,
		m.connects,
		m.operations,
		m.gatewayRequests,
		m.rateLimited,
	)
	return m
}

var (
	defaultMetrics *Metrics
	initOnce       sync.Once
)

// Init creates the process-wide metrics, including Go runtime and process
// collectors. It is idempotent.
func Init() *Metrics {
	initOnce.Do(func() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		defaultMetrics = New(reg)
	})
	return defaultMetrics
}

// Default returns the process-wide metrics, or nil if Init has not been called.
func Default() *Metrics {
	return defaultMetrics
}

// Handler returns an HTTP handler exposing the registered metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveCall records one remote call.
func (m *Metrics) ObserveCall(operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(operation, outcome).Inc()
	m.callDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// DocumentFetched records a capability document load.
func (m *Metrics) DocumentFetched(source string, err error) {
	if m == nil {
		return
	}
	m.documentFetches.WithLabelValues(source, result(err)).Inc()
}

// ConnectFinished records the outcome of a connection attempt and, on
// success, the size of the published table.
func (m *Metrics) ConnectFinished(operations int, err error) {
	if m == nil {
		return
	}
	m.connects.WithLabelValues(result(err)).Inc()
	if err == nil {
		m.operations.Set(float64(operations))
	}
}

// GatewayRequest records one HTTP gateway request.
func (m *Metrics) GatewayRequest(operation string, status int) {
	if m == nil {
		return
	}
	m.gatewayRequests.WithLabelValues(operation, strconv.Itoa(status)).Inc()
}

// RateLimited records a call that had to wait for the limiter.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
