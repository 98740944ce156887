package rpc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Record marking (RFC 5531 Section 11)
//
// On a byte stream every RPC message is sent as one or more fragments, each
// preceded by a 4-byte big-endian marker:
//
//	bit 31:     1 if this is the last fragment of the message
//	bits 0-30:  fragment body length in bytes
//
// Example: 0x80000064 is the last fragment, 100 bytes long.
const (
	lastFragmentFlag   = 0x80000000
	fragmentLengthMask = 0x7FFFFFFF
	markerSize         = 4

	// DefaultMaxRecordSize bounds a reassembled message. MOUNT replies are
	// tiny; anything near this size is a corrupt or hostile marker.
	DefaultMaxRecordSize = 1 << 20
)

// EncodeRecord frames msg as a single fragment marked last.
func EncodeRecord(msg []byte) ([]byte, error) {
	if len(msg) > fragmentLengthMask {
		return nil, &FramingError{Reason: fmt.Sprintf("message of %d bytes does not fit in one fragment", len(msg))}
	}
	out := make([]byte, markerSize, markerSize+len(msg))
	binary.BigEndian.PutUint32(out, lastFragmentFlag|uint32(len(msg)))
	return append(out, msg...), nil
}

// FramerState is the state of a RecordDecoder.
type FramerState int

const (
	// AwaitingMarker: fewer than 4 bytes of the next marker are buffered.
	AwaitingMarker FramerState = iota

	// AwaitingFragmentBody: the marker was read, its body is incomplete.
	AwaitingFragmentBody

	// MessageReady: the last fragment is complete; Next hands it out.
	MessageReady
)

func (s FramerState) String() string {
	switch s {
	case AwaitingMarker:
		return "AwaitingMarker"
	case AwaitingFragmentBody:
		return "AwaitingFragmentBody"
	case MessageReady:
		return "MessageReady"
	default:
		return fmt.Sprintf("FramerState(%d)", int(s))
	}
}

// RecordDecoder reassembles record-marked messages from a byte stream.
//
// Bytes are pushed with Feed in whatever chunks the transport delivers and
// complete messages are pulled with Next. The decoder never blocks and never
// reads: the caller owns the I/O. Once it has reported a FramingError the
// decoder stays broken, because the stream is no longer message-aligned.
type RecordDecoder struct {
	maxSize int

	// Accumulation buffer: buf[off:] has not been consumed yet.
	buf []byte
	off int

	state   FramerState
	fragLen int
	last    bool
	message []byte

	err error
}

// NewRecordDecoder returns a decoder refusing messages larger than maxSize
// bytes. maxSize <= 0 selects DefaultMaxRecordSize.
func NewRecordDecoder(maxSize int) *RecordDecoder {
	if maxSize <= 0 {
		maxSize = DefaultMaxRecordSize
	}
	return &RecordDecoder{maxSize: maxSize}
}

// State returns the current decoding state.
func (r *RecordDecoder) State() FramerState {
	return r.state
}

// Buffered returns the number of received bytes not yet assigned to a message.
func (r *RecordDecoder) Buffered() int {
	return len(r.buf) - r.off
}

// Pending reports whether a message has been partially received.
func (r *RecordDecoder) Pending() bool {
	return r.state != AwaitingMarker || r.Buffered() > 0 || len(r.message) > 0
}

// Feed appends received bytes to the accumulation buffer.
func (r *RecordDecoder) Feed(p []byte) {
	r.buf = append(r.buf, p...)
}

// Next advances the state machine as far as the buffered bytes allow.
// It returns (message, true, nil) when a complete message is available and
// (nil, false, nil) when more input is needed.
func (r *RecordDecoder) Next() ([]byte, bool, error) {
	if r.err != nil {
		return nil, false, r.err
	}

	for {
		switch r.state {
		case AwaitingMarker:
			if r.Buffered() < markerSize {
				return nil, false, nil
			}
			marker := binary.BigEndian.Uint32(r.buf[r.off:])
			r.off += markerSize
			r.last = marker&lastFragmentFlag != 0
			r.fragLen = int(marker & fragmentLengthMask)

			if len(r.message)+r.fragLen > r.maxSize {
				r.err = &FramingError{Reason: fmt.Sprintf("fragment of %d bytes would grow record to %d bytes, maximum is %d",
					r.fragLen, len(r.message)+r.fragLen, r.maxSize)}
				return nil, false, r.err
			}
			r.state = AwaitingFragmentBody

		case AwaitingFragmentBody:
			if r.Buffered() < r.fragLen {
				return nil, false, nil
			}
			r.message = append(r.message, r.buf[r.off:r.off+r.fragLen]...)
			r.off += r.fragLen
			r.compact()
			if r.last {
				r.state = MessageReady
			} else {
				r.state = AwaitingMarker
			}

		case MessageReady:
			msg := r.message
			if msg == nil {
				msg = []byte{}
			}
			r.message = nil
			r.state = AwaitingMarker
			return msg, true, nil
		}
	}
}

// Close signals end of stream. It returns a FramingError if a record was
// partially received and nil if the stream ended on a message boundary.
func (r *RecordDecoder) Close() error {
	if r.err != nil {
		return r.err
	}
	if r.Pending() {
		r.err = &FramingError{
			Reason: fmt.Sprintf("stream closed mid-record (%s, %d bytes buffered)", r.state, r.Buffered()),
			Err:    io.ErrUnexpectedEOF,
		}
		return r.err
	}
	return nil
}

// compact drops consumed bytes once they dominate the buffer.
func (r *RecordDecoder) compact() {
	if r.off == len(r.buf) {
		r.buf = r.buf[:0]
		r.off = 0
		return
	}
	if r.off > len(r.buf)/2 {
		n := copy(r.buf, r.buf[r.off:])
		r.buf = r.buf[:n]
		r.off = 0
	}
}

// ReadRecord drives dec from a blocking reader until one message is complete.
// chunk is the read buffer; its size sets the read granularity.
//
// End of stream with nothing pending is a ConnectionError wrapping io.EOF;
// end of stream in the middle of a record is a FramingError.
func ReadRecord(rd io.Reader, dec *RecordDecoder, chunk []byte) ([]byte, error) {
	for {
		msg, ok, err := dec.Next()
		if err != nil {
			return nil, err
		}
		if ok {
			return msg, nil
		}

		n, readErr := rd.Read(chunk)
		if n > 0 {
			dec.Feed(chunk[:n])
		}
		if readErr == nil {
			continue
		}

		if n > 0 {
			if msg, ok, err := dec.Next(); err != nil {
				return nil, err
			} else if ok {
				return msg, nil
			}
		}
		if errors.Is(readErr, io.EOF) {
			if err := dec.Close(); err != nil {
				return nil, err
			}
			return nil, &ConnectionError{Op: "read", Err: io.EOF}
		}
		return nil, &ConnectionError{Op: "read", Err: readErr}
	}
}
