// Package metrics provides application-level metrics collection.
// Collectors live on a private Prometheus registry so tests and embedders
// can gather them without touching the process-wide default registry.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	payerr "github.com/mrz1836/chainpay/pkg/errors"
)

const namespace = "chainpay"

// Transaction kinds recorded by RecordTxSubmitted.
const (
	TxApprove = "approve"
	TxNative  = "native"
	TxToken   = "token"
)

// Metrics holds the chainpay collectors.
type Metrics struct {
	registry *prometheus.Registry

	rpcCalls   *prometheus.CounterVec
	rpcErrors  *prometheus.CounterVec
	rpcLatency *prometheus.HistogramVec

	walletOps    *prometheus.CounterVec
	txSubmitted  *prometheus.CounterVec
	txConfirmed  *prometheus.CounterVec
	failures     *prometheus.CounterVec
	confirmation prometheus.Histogram
}

// Global is the global metrics instance.
// Use this for recording metrics throughout the application.
//
//nolint:gochecknoglobals // Intentional global for metrics access
var Global = New()

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rpcCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_calls_total",
			Help:      "JSON-RPC calls sent to chain endpoints",
		}, []string{"method", "chain"}),
		rpcErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_errors_total",
			Help:      "JSON-RPC calls that returned an error",
		}, []string{"method", "chain"}),
		rpcLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_latency_seconds",
			Help:      "JSON-RPC round trip latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		walletOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wallet_operations_total",
			Help:      "Wallet operations by outcome",
		}, []string{"operation", "result"}),
		txSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_submitted_total",
			Help:      "Transactions handed to the wallet for signing",
		}, []string{"kind", "chain"}),
		txConfirmed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_confirmed_total",
			Help:      "Submitted transactions by final receipt status",
		}, []string{"kind", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_failures_total",
			Help:      "Payment flow failures by error code",
		}, []string{"code"}),
		confirmation: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "confirmation_wait_seconds",
			Help:      "Time from submission to first confirmation",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120, 300, 600},
		}),
	}

	m.registry.MustRegister(
		m.rpcCalls, m.rpcErrors, m.rpcLatency,
		m.walletOps, m.txSubmitted, m.txConfirmed,
		m.failures, m.confirmation,
	)
	return m
}

// Registry returns the registry holding all collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRPCCall records an RPC call with its duration and success status.
func (m *Metrics) RecordRPCCall(method string, chainID uint64, duration time.Duration, err error) {
	chain := strconv.FormatUint(chainID, 10)
	m.rpcCalls.WithLabelValues(method, chain).Inc()
	m.rpcLatency.WithLabelValues(method).Observe(duration.Seconds())
	if err != nil {
		m.rpcErrors.WithLabelValues(method, chain).Inc()
	}
}

// RecordWalletOp records a wallet operation such as connect or switch.
func (m *Metrics) RecordWalletOp(operation string, err error) {
	result := "ok"
	if err != nil {
		result = payerr.Code(err)
	}
	m.walletOps.WithLabelValues(operation, result).Inc()
}

// RecordTxSubmitted records a transaction accepted by the wallet.
func (m *Metrics) RecordTxSubmitted(kind string, chainID uint64) {
	m.txSubmitted.WithLabelValues(kind, strconv.FormatUint(chainID, 10)).Inc()
}

// RecordTxConfirmed records the receipt outcome of a submitted transaction.
func (m *Metrics) RecordTxConfirmed(kind string, success bool, wait time.Duration) {
	status := "success"
	if !success {
		status = "reverted"
	}
	m.txConfirmed.WithLabelValues(kind, status).Inc()
	m.confirmation.Observe(wait.Seconds())
}

// RecordFailure records a payment flow failure under its error code.
func (m *Metrics) RecordFailure(err error) {
	if err == nil {
		return
	}
	m.failures.WithLabelValues(payerr.Code(err)).Inc()
}

// Submitted returns the submitted-transaction count for kind on a chain.
func (m *Metrics) Submitted(kind string, chainID uint64) int {
	return int(testutil.ToFloat64(m.txSubmitted.WithLabelValues(kind, strconv.FormatUint(chainID, 10))))
}

// Failures returns the failure count recorded under an error code.
func (m *Metrics) Failures(code string) int {
	return int(testutil.ToFloat64(m.failures.WithLabelValues(code)))
}

// WalletOps returns the count of a wallet operation with the given result.
func (m *Metrics) WalletOps(operation, result string) int {
	return int(testutil.ToFloat64(m.walletOps.WithLabelValues(operation, result)))
}
