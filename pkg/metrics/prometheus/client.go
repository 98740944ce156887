// Package prometheus implements pkg/metrics interfaces on Prometheus
// collectors registered in the metrics registry.
package prometheus

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/dittomount/internal/protocol/rpc"
	"github.com/marmos91/dittomount/pkg/metrics"
)

// clientMetrics is the Prometheus implementation of metrics.ClientMetrics.
type clientMetrics struct {
	callsTotal    *prometheus.CounterVec
	callDuration  *prometheus.HistogramVec
	bytesTotal    *prometheus.CounterVec
	connectsTotal *prometheus.CounterVec
	failuresTotal *prometheus.CounterVec
}

var (
	globalOnce    sync.Once
	globalMetrics metrics.ClientMetrics
)

// NewClientMetrics returns the Prometheus-backed ClientMetrics registered on
// the global registry. Every call returns the same instance.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
func NewClientMetrics() metrics.ClientMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopClientMetrics()
	}
	globalOnce.Do(func() {
		globalMetrics = NewClientMetricsWith(metrics.GetRegistry())
	})
	return globalMetrics
}

// NewClientMetricsWith registers the client collectors on reg. Registering
// twice on the same registry panics, as with any promauto collector.
func NewClientMetricsWith(reg prometheus.Registerer) metrics.ClientMetrics {
	return &clientMetrics{
		callsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittomount_calls_total",
				Help: "Total number of MOUNT calls by procedure, status and error kind",
			},
			[]string{"procedure", "status", "error_kind"},
		),
		callDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittomount_call_duration_milliseconds",
				Help: "Duration of MOUNT calls in milliseconds",
				Buckets: []float64{
					1,     // 1ms
					10,    // 10ms
					100,   // 100ms
					1000,  // 1s
					10000, // 10s
				},
			},
			[]string{"procedure"},
		),
		bytesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittomount_bytes_total",
				Help: "Total bytes on the wire, record markers included",
			},
			[]string{"direction"},
		),
		connectsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittomount_connects_total",
				Help: "Total number of dial attempts by outcome",
			},
			[]string{"status"},
		),
		failuresTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittomount_connection_failures_total",
				Help: "Total number of connections discarded after a fatal error, by error kind",
			},
			[]string{"kind"},
		),
	}
}

func (m *clientMetrics) RecordCall(procedure string, duration time.Duration, err error) {
	status, kind := "success", ""
	if err != nil {
		status, kind = "error", rpc.KindOf(err).String()
		if rpc.KindOf(err) == rpc.KindReplyStatus {
			status = "rejected"
		}
	}

	m.callsTotal.WithLabelValues(procedure, status, kind).Inc()
	m.callDuration.WithLabelValues(procedure).Observe(duration.Seconds() * 1000) // Convert to milliseconds
}

func (m *clientMetrics) RecordBytes(direction string, bytes int) {
	if bytes <= 0 {
		return
	}
	m.bytesTotal.WithLabelValues(direction).Add(float64(bytes))
}

func (m *clientMetrics) RecordConnect(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.connectsTotal.WithLabelValues(status).Inc()
}

func (m *clientMetrics) RecordFailure(kind string) {
	m.failuresTotal.WithLabelValues(kind).Inc()
}
