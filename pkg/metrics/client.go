package metrics

import "time"

// ClientMetrics provides observability for MOUNT client operations.
//
// Implementations collect per-procedure call counts and latency, bytes on
// the wire, connection attempts and fatal failures. Components given a nil
// ClientMetrics fall back to NewNoopClientMetrics.
//
// Example usage:
//
//	metrics.InitRegistry()
//	m := prometheus.NewClientMetrics()
//	client, err := mountclient.New(cfg, mountclient.WithMetrics(m))
type ClientMetrics interface {
	// RecordCall records a completed call.
	//
	// Parameters:
	//   - procedure: MOUNT procedure name (e.g., "MNT", "EXPORT")
	//   - duration: Time from encoding the call to decoding the reply
	//   - err: Error if the call failed, nil if successful
	RecordCall(procedure string, duration time.Duration, err error)

	// RecordBytes records bytes written to or read from the connection,
	// record markers included.
	//
	// Parameters:
	//   - direction: "sent" or "received"
	//   - bytes: Number of bytes
	RecordBytes(direction string, bytes int)

	// RecordConnect records a dial attempt and its outcome.
	RecordConnect(err error)

	// RecordFailure records a fatal error that discarded the connection.
	//
	// Parameters:
	//   - kind: error kind (e.g., "framing", "correlation")
	RecordFailure(kind string)
}

// NewNoopClientMetrics returns a ClientMetrics that records nothing.
func NewNoopClientMetrics() ClientMetrics {
	return noopClientMetrics{}
}

// OrNoop returns m, or a no-op implementation when m is nil.
func OrNoop(m ClientMetrics) ClientMetrics {
	if m == nil {
		return noopClientMetrics{}
	}
	return m
}

type noopClientMetrics struct{}

func (noopClientMetrics) RecordCall(procedure string, duration time.Duration, err error) {}
func (noopClientMetrics) RecordBytes(direction string, bytes int)                        {}
func (noopClientMetrics) RecordConnect(err error)                                        {}
func (noopClientMetrics) RecordFailure(kind string)                                      {}
