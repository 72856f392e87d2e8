// Package metrics exposes Prometheus collectors for RPC traffic and ledger
// activity.
package metrics

import (
	"context"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "splitwose"

// Metrics holds the server's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	rpcRequests          *prometheus.CounterVec
	rpcDuration          *prometheus.HistogramVec
	expensesRecorded     prometheus.Counter
	settlementsRecorded  prometheus.Counter
	settlementRejections *prometheus.CounterVec
}

// New creates the collectors on a fresh registry, along with the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "RPC requests handled, by procedure and result code.",
		}, []string{"procedure", "code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC handling latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		expensesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expenses_recorded_total",
			Help:      "Expenses persisted.",
		}),
		settlementsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_recorded_total",
			Help:      "Settlements persisted.",
		}),
		settlementRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_rejections_total",
			Help:      "Settlement requests rejected during validation, by reason.",
		}, []string{"reason"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.rpcRequests,
		m.rpcDuration,
		m.expensesRecorded,
		m.settlementsRecorded,
		m.settlementRejections,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Interceptor records the count and latency of every unary RPC.
func (m *Metrics) Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			m.observeRPC(req.Spec().Procedure, err, time.Since(start))
			return resp, err
		}
	}
}

func (m *Metrics) observeRPC(procedure string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	code := "ok"
	if err != nil {
		code = connect.CodeOf(err).String()
	}
	m.rpcRequests.WithLabelValues(procedure, code).Inc()
	m.rpcDuration.WithLabelValues(procedure).Observe(elapsed.Seconds())
}

// ExpenseRecorded counts a persisted expense.
func (m *Metrics) ExpenseRecorded() {
	if m == nil {
		return
	}
	m.expensesRecorded.Inc()
}

// SettlementRecorded counts a persisted settlement.
func (m *Metrics) SettlementRecorded() {
	if m == nil {
		return
	}
	m.settlementsRecorded.Inc()
}

// SettlementRejected counts a settlement request turned down for reason.
func (m *Metrics) SettlementRejected(reason string) {
	if m == nil {
		return
	}
	m.settlementRejections.WithLabelValues(reason).Inc()
}
