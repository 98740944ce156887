package rpc

import (
	"errors"
	"fmt"

	"github.com/marmos91/dittomount/internal/protocol/xdr"
)

// ErrorKind classifies the failures a call can end with.
type ErrorKind int

const (
	// KindUnknown is any error the client did not produce itself.
	KindUnknown ErrorKind = iota

	// KindConnection: dialing, reading or writing the transport failed,
	// or the peer closed the stream.
	KindConnection

	// KindFraming: a record marker was invalid, a record exceeded the size
	// bound, or the stream ended in the middle of a record.
	KindFraming

	// KindCorrelation: the reply carried a different xid than the call.
	KindCorrelation

	// KindDecode: the reply header or results were malformed.
	KindDecode

	// KindTrailingBytes: the results decoded but bytes were left over.
	KindTrailingBytes

	// KindReplyStatus: a well-formed reply reporting a non-success outcome,
	// at the RPC layer or at the procedure layer.
	KindReplyStatus

	// KindEncode: the arguments could not be encoded; nothing was sent.
	KindEncode
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindFraming:
		return "framing"
	case KindCorrelation:
		return "correlation"
	case KindDecode:
		return "decode"
	case KindTrailingBytes:
		return "trailing_bytes"
	case KindReplyStatus:
		return "reply_status"
	case KindEncode:
		return "encode"
	default:
		return "unknown"
	}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	var kinded interface{ Kind() ErrorKind }
	if errors.As(err, &kinded) {
		return kinded.Kind()
	}

	var decodeErr *xdr.DecodeError
	if errors.As(err, &decodeErr) {
		return KindDecode
	}
	var trailingErr *xdr.TrailingBytesError
	if errors.As(err, &trailingErr) {
		return KindTrailingBytes
	}
	var encodeErr *xdr.EncodeError
	if errors.As(err, &encodeErr) {
		return KindEncode
	}
	return KindUnknown
}

// IsFatal reports whether err leaves the connection unusable. After a fatal
// error the client is Failed and must be discarded; non-fatal errors leave
// it Idle and ready for the next call.
//
// Decode and trailing-bytes errors are fatal: the client cannot prove the
// server and it agree on the message layout any more.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindReplyStatus, KindEncode:
		return false
	case KindUnknown:
		return err != nil
	default:
		return true
	}
}

// ConnectionError wraps a transport failure.
type ConnectionError struct {
	// Op is the failing operation: "dial", "read", "write" or "closed"
	Op string

	// Addr is the remote address, if known
	Addr string

	Err error
}

func (e *ConnectionError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("rpc: %s %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("rpc: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error   { return e.Err }
func (e *ConnectionError) Kind() ErrorKind { return KindConnection }

// FramingError reports a violation of record marking.
type FramingError struct {
	Reason string
	Err    error
}

func (e *FramingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rpc: framing: %s: %v", e.Reason, e.Err)
	}
	return "rpc: framing: " + e.Reason
}

func (e *FramingError) Unwrap() error   { return e.Err }
func (e *FramingError) Kind() ErrorKind { return KindFraming }

// CorrelationError reports a reply whose xid does not match the outstanding
// call. With one call in flight there is nobody else the reply could belong
// to, so the stream is considered desynchronized.
type CorrelationError struct {
	Expected uint32
	Got      uint32
}

func (e *CorrelationError) Error() string {
	return fmt.Sprintf("rpc: reply xid 0x%08x does not match call xid 0x%08x", e.Got, e.Expected)
}

func (e *CorrelationError) Kind() ErrorKind { return KindCorrelation }

// ReplyStatusError is a well-formed reply that did not carry results:
// the call was accepted with a status other than SUCCESS, or denied.
type ReplyStatusError struct {
	XID  uint32
	Stat ReplyStat

	// AcceptStat is meaningful when Stat is MsgAccepted.
	AcceptStat AcceptStat

	// RejectStat is meaningful when Stat is MsgDenied.
	RejectStat RejectStat

	// AuthStat is meaningful when RejectStat is AuthError.
	AuthStat AuthStat

	// Mismatch carries the supported range for PROG_MISMATCH and RPC_MISMATCH.
	Mismatch *VersionRange
}

func (e *ReplyStatusError) Error() string {
	switch e.Stat {
	case MsgAccepted:
		if e.Mismatch != nil {
			return fmt.Sprintf("rpc: call accepted with %s (supported versions %d-%d)",
				e.AcceptStat, e.Mismatch.Low, e.Mismatch.High)
		}
		return fmt.Sprintf("rpc: call accepted with %s", e.AcceptStat)
	default:
		if e.RejectStat == AuthError {
			return fmt.Sprintf("rpc: call denied: %s (%s)", e.RejectStat, e.AuthStat)
		}
		if e.Mismatch != nil {
			return fmt.Sprintf("rpc: call denied: %s (supported versions %d-%d)",
				e.RejectStat, e.Mismatch.Low, e.Mismatch.High)
		}
		return fmt.Sprintf("rpc: call denied: %s", e.RejectStat)
	}
}

func (e *ReplyStatusError) Kind() ErrorKind { return KindReplyStatus }

// ErrClientFailed is returned by calls on a client that already hit a fatal
// error. It is wrapped in a ConnectionError.
var ErrClientFailed = errors.New("client failed, reconnect required")

// ErrCallInProgress is returned when a call is attempted while another one
// is outstanding on the same client.
var ErrCallInProgress = errors.New("another call is in progress")
