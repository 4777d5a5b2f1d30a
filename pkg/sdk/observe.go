package ragrec

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Call status labels. Recommend is labelled with its outcome status instead
// (success, empty, failed), or statusRejected when the query is invalid.
const (
	statusOK       = "ok"
	statusError    = "error"
	statusRejected = "rejected"
)

const opRecommend = "recommend"

// sdkMetrics are exported as ragrec_sdk_*.
type sdkMetrics struct {
	calls    *prometheus.CounterVec   // operation, status
	latency  *prometheus.HistogramVec // operation
	failures *prometheus.CounterVec   // kind, stage
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ragrec",
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "SDK calls by operation and status; recommend uses the outcome status.",
		}, []string{"operation", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ragrec",
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "SDK call duration in seconds.",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ragrec",
			Subsystem: "sdk",
			Name:      "recommend_failures_total",
			Help:      "Failed recommendations by error kind and pipeline stage.",
		}, []string{"kind", "stage"}),
	}
	if err := registerShared(reg, &m.calls); err != nil {
		return nil, err
	}
	if err := registerShared(reg, &m.latency); err != nil {
		return nil, err
	}
	if err := registerShared(reg, &m.failures); err != nil {
		return nil, err
	}
	return m, nil
}

// registerShared registers c, or swaps in the collector already registered
// under the same name so several clients can share one registry.
func registerShared[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return fmt.Errorf("ragrec: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("ragrec: metric already registered with incompatible type: %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// observer reports SDK calls to slog and, when configured, Prometheus.
// A nil observer records nothing.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

// call records an index or ingestion call.
func (o *observer) call(op string, start time.Time, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	status := statusOK
	if err != nil {
		status = statusError
	}
	o.count(op, status, dur)

	if o.logger == nil {
		return
	}
	if err != nil {
		o.logger.Warn("ragrec call failed", "op", op, "duration", dur, "error", err)
		return
	}
	o.logger.Debug("ragrec call completed", "op", op, "duration", dur)
}

// recommended records a Recommend call under its outcome status, so answers
// that validated to nothing show up next to successes and failures.
func (o *observer) recommended(start time.Time, out Outcome, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	status := out.Status
	if err != nil {
		status = statusRejected
	}
	o.count(opRecommend, status, dur)
	if o.metrics != nil && status == StatusFailed {
		o.metrics.failures.WithLabelValues(out.Kind, out.Stage).Inc()
	}

	if o.logger == nil {
		return
	}
	switch status {
	case statusRejected:
		o.logger.Warn("recommend rejected", "duration", dur, "error", err)
	case StatusFailed:
		o.logger.Warn("recommend failed",
			"duration", dur,
			"kind", out.Kind,
			"stage", out.Stage,
			"error", out.Err,
		)
	case StatusEmpty:
		o.logger.Info("recommend returned nothing",
			"duration", dur,
			"reason", out.Reason,
			"backend", out.Backend,
		)
	default:
		o.logger.Debug("recommend completed",
			"duration", dur,
			"backend", out.Backend,
			"recommendations", len(out.Recommendations),
		)
	}
}

func (o *observer) count(op, status string, dur time.Duration) {
	if o.metrics == nil {
		return
	}
	o.metrics.calls.WithLabelValues(op, status).Inc()
	o.metrics.latency.WithLabelValues(op).Observe(dur.Seconds())
}
