package metrics

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the application-level instruments. Labels stay coarse to keep
// cardinality bounded: routes not ids, outcomes not references.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	paymentsResolved *prometheus.CounterVec
	mintsRequested   prometheus.Counter
	transfersRecord  prometheus.Counter
	messagesPosted   *prometheus.CounterVec
	checkoutDenied   prometheus.Counter

	integritySweeps     prometheus.Counter
	integrityViolations *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "market_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "market_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		paymentsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "market_payments_resolved_total",
			Help: "Gateway callbacks applied, by outcome.",
		}, []string{"outcome"}),
		mintsRequested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "market_mints_requested_total",
			Help: "Mint requests sent to the minting service.",
		}),
		transfersRecord: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "market_transfers_recorded_total",
			Help: "Holder changes recorded from the transfer listener.",
		}),
		messagesPosted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "market_messages_posted_total",
			Help: "Conversation messages posted, by sender role.",
		}, []string{"sender_role"}),
		checkoutDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "market_checkout_throttled_total",
			Help: "Checkout attempts denied by the rate limiter.",
		}),
		integritySweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "market_integrity_sweeps_total",
			Help: "Background integrity sweep runs.",
		}),
		integrityViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "market_integrity_violations_total",
			Help: "Invariant violations detected by the sweep, by rule.",
		}, []string{"rule"}),
	}

	registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.paymentsResolved,
		m.mintsRequested,
		m.transfersRecord,
		m.messagesPosted,
		m.checkoutDenied,
		m.integritySweeps,
		m.integrityViolations,
	)
	return m
}

// Registry returns the registry backing the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveHTTPRequest(route, method string, status int, seconds float64) {
	if m == nil {
		return
	}
	if strings.TrimSpace(route) == "" {
		route = "unknown"
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(seconds)
}

func (m *Metrics) RecordPaymentResolved(outcome string) {
	if m == nil {
		return
	}
	m.paymentsResolved.WithLabelValues(strings.TrimSpace(outcome)).Inc()
}

func (m *Metrics) RecordMintRequested() {
	if m == nil {
		return
	}
	m.mintsRequested.Inc()
}

func (m *Metrics) RecordTransferRecorded() {
	if m == nil {
		return
	}
	m.transfersRecord.Inc()
}

func (m *Metrics) RecordMessagePosted(senderRole string) {
	if m == nil {
		return
	}
	m.messagesPosted.WithLabelValues(strings.TrimSpace(senderRole)).Inc()
}

func (m *Metrics) RecordCheckoutThrottled() {
	if m == nil {
		return
	}
	m.checkoutDenied.Inc()
}

func (m *Metrics) RecordIntegritySweep() {
	if m == nil {
		return
	}
	m.integritySweeps.Inc()
}

func (m *Metrics) RecordIntegrityViolation(rule string) {
	if m == nil {
		return
	}
	m.integrityViolations.WithLabelValues(strings.TrimSpace(rule)).Inc()
}
