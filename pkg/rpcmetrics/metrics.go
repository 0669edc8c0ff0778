// Package rpcmetrics records per-call counters and latencies for the
// executor and the mock adapter, and for the server that answers them.
package rpcmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/qaforge/dashrpc/grpcweb/codec"
)

const (
	ModeReal = "real"
	ModeMock = "mock"
	// ModeServed labels calls answered by grpcweb/server.
	ModeServed = "served"
)

type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New creates the client collectors and registers them on reg when reg is
// not nil.
func New(reg prometheus.Registerer) *Metrics {
	return NewSubsystem(reg, "client")
}

// NewSubsystem is New with another metric subsystem, e.g. "server".
func NewSubsystem(reg prometheus.Registerer, subsystem string) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dashrpc",
			Subsystem: subsystem,
			Name:      "calls_total",
			Help:      "Unary calls by method path, mode and final grpc status.",
		}, []string{"path", "mode", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dashrpc",
			Subsystem: subsystem,
			Name:      "call_duration_seconds",
			Help:      "Unary call latency by method path and mode.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "mode"}),
	}
	if reg != nil {
		reg.MustRegister(m.calls, m.duration)
	}
	return m
}

// Observe records one finished call. A nil receiver is a no-op.
func (m *Metrics) Observe(path, mode string, code codec.StatusCode, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(path, mode, code.String()).Inc()
	m.duration.WithLabelValues(path, mode).Observe(elapsed.Seconds())
}

// Calls returns the counter vector, mainly for tests.
func (m *Metrics) Calls() *prometheus.CounterVec {
	return m.calls
}
