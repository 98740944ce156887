package prometheus

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittomount/internal/protocol/rpc"
	"github.com/marmos91/dittomount/pkg/metrics"
)

func newTestMetrics(t *testing.T) (*clientMetrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m, ok := NewClientMetricsWith(reg).(*clientMetrics)
	require.True(t, ok)
	return m, reg
}

func TestClientMetrics_RecordCall(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordCall("MNT", 3*time.Millisecond, nil)
	m.RecordCall("MNT", time.Millisecond, &rpc.ReplyStatusError{Stat: rpc.MsgDenied})
	m.RecordCall("EXPORT", time.Millisecond, fmt.Errorf("call: %w", &rpc.FramingError{Reason: "oversized"}))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.callsTotal.WithLabelValues("MNT", "success", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.callsTotal.WithLabelValues("MNT", "rejected", "reply_status")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.callsTotal.WithLabelValues("EXPORT", "error", "framing")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.callDuration))
}

func TestClientMetrics_Counters(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordBytes("sent", 48)
	m.RecordBytes("sent", 0)
	m.RecordBytes("received", 32)
	m.RecordConnect(nil)
	m.RecordConnect(errors.New("refused"))
	m.RecordConnect(errors.New("refused"))
	m.RecordFailure("correlation")

	assert.Equal(t, 48.0, testutil.ToFloat64(m.bytesTotal.WithLabelValues("sent")))
	assert.Equal(t, 32.0, testutil.ToFloat64(m.bytesTotal.WithLabelValues("received")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connectsTotal.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.connectsTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failuresTotal.WithLabelValues("correlation")))
}

func TestClientMetrics_Registered(t *testing.T) {
	m, reg := newTestMetrics(t)
	m.RecordCall("NULL", time.Millisecond, nil)
	m.RecordConnect(nil)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "dittomount_calls_total")
	assert.Contains(t, names, "dittomount_call_duration_milliseconds")
	assert.Contains(t, names, "dittomount_connects_total")
}

func TestNewClientMetrics_Global(t *testing.T) {
	metrics.InitRegistry()

	first := NewClientMetrics()
	second := NewClientMetrics()
	assert.Same(t, first, second)

	_, ok := first.(*clientMetrics)
	assert.True(t, ok)
}
