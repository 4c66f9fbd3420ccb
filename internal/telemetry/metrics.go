// Package telemetry records node execution counts and latencies and serves
// them in the Prometheus text format.
package telemetry

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ironsheep/image-nodes/internal/imaging"
	"github.com/ironsheep/image-nodes/internal/logging"
)

// Execution outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

// Metrics holds the collectors on a private registry so that several
// servers (and tests) never collide on the global one.
type Metrics struct {
	Registry   *prometheus.Registry
	Executions *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
}

// New registers the node collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		Executions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "node_executions_total",
			Help: "Node executions by node name and outcome.",
		}, []string{"node", "outcome"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "node_execution_seconds",
			Help:    "Node execution latency.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"node"}),
	}
}

// Outcome classifies a node error.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, imaging.ErrInvalidInput), errors.Is(err, imaging.ErrPrecondition):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}

// Observe records one execution of node that started at start.
// A nil receiver is a no-op.
func (m *Metrics) Observe(node, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Executions.WithLabelValues(node, outcome).Inc()
	m.Duration.WithLabelValues(node).Observe(time.Since(start).Seconds())
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Expose serves /metrics on port in the background. The listener is bound
// before returning so that port conflicts surface to the caller.
func (m *Metrics) Expose(port int) (net.Listener, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	go func() {
		if err := http.Serve(ln, mux); err != nil && !errors.Is(err, net.ErrClosed) {
			logging.L().Error("metrics server stopped", "err", err)
		}
	}()
	return ln, nil
}
