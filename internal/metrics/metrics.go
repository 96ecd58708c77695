// Package metrics exposes Prometheus instruments for the staking node.
//
// All methods are safe on a nil *Metrics, which records nothing. This lets
// components take an optional metrics handle without branching.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "winter_staking"

// Deposit outcomes used as the "result" label.
const (
	ResultAccepted      = "accepted"
	ResultInvalidToken  = "invalid_token"
	ResultInvalidAmount = "invalid_amount"
	ResultBadSignature  = "bad_signature"
	ResultLockOverflow  = "lock_overflow"
	ResultReplayed      = "replayed"
	ResultError         = "error"
)

// Metrics holds the node's instruments on a private registry.
type Metrics struct {
	registry     *prometheus.Registry
	deposits     *prometheus.CounterVec
	currentEpoch prometheus.Gauge
	rpcRequests  *prometheus.CounterVec
}

// New creates and registers all instruments.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		deposits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deposits_total",
			Help:      "Deposit calls by outcome.",
		}, []string{"result"}),
		currentEpoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_epoch",
			Help:      "Epoch currently reported by the host clock.",
		}),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "JSON-RPC requests by method.",
		}, []string{"method"}),
	}
	m.registry.MustRegister(m.deposits, m.currentEpoch, m.rpcRequests)
	return m
}

// ObserveDeposit counts one deposit call with the given outcome.
func (m *Metrics) ObserveDeposit(result string) {
	if m == nil {
		return
	}
	m.deposits.WithLabelValues(result).Inc()
}

// SetEpoch records the current epoch.
func (m *Metrics) SetEpoch(epoch uint64) {
	if m == nil {
		return
	}
	m.currentEpoch.Set(float64(epoch))
}

// ObserveRPC counts one RPC request for method.
func (m *Metrics) ObserveRPC(method string) {
	if m == nil {
		return
	}
	m.rpcRequests.WithLabelValues(method).Inc()
}

// Deposits returns the deposit counter for result.
func (m *Metrics) Deposits(result string) prometheus.Counter {
	return m.deposits.WithLabelValues(result)
}

// CurrentEpoch returns the epoch gauge.
func (m *Metrics) CurrentEpoch() prometheus.Gauge {
	return m.currentEpoch
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
