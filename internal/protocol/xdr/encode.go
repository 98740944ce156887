package xdr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// ============================================================================
// XDR Encoding - Go values → Wire Format
// ============================================================================

// Encoder appends XDR encoded items to a buffer.
//
// Per RFC 4506 every item occupies a multiple of 4 bytes and integers are
// big-endian. Writes to a bytes.Buffer cannot fail, so fixed-size items do
// not return errors; only items with a length bound can.
type Encoder struct {
	buf *bytes.Buffer
}

// NewEncoder returns an Encoder appending to buf.
func NewEncoder(buf *bytes.Buffer) *Encoder {
	return &Encoder{buf: buf}
}

// Len returns the number of bytes encoded so far.
func (e *Encoder) Len() int {
	return e.buf.Len()
}

// Bytes returns the encoded bytes. The slice aliases the underlying buffer.
func (e *Encoder) Bytes() []byte {
	return e.buf.Bytes()
}

// Uint32 encodes an unsigned int (RFC 4506 Section 4.2).
func (e *Encoder) Uint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

// Int32 encodes a signed int (RFC 4506 Section 4.1).
func (e *Encoder) Int32(v int32) {
	e.Uint32(uint32(v))
}

// Uint64 encodes an unsigned hyper integer (RFC 4506 Section 4.5).
func (e *Encoder) Uint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

// Bool encodes a boolean as 0 or 1 (RFC 4506 Section 4.4).
func (e *Encoder) Bool(v bool) {
	if v {
		e.Uint32(1)
		return
	}
	e.Uint32(0)
}

// Opaque encodes variable-length opaque data without an upper bound.
//
// Format: [length:uint32][data:length bytes][padding:0-3 zero bytes]
func (e *Encoder) Opaque(data []byte) error {
	return e.OpaqueMax(data, 0)
}

// OpaqueMax encodes variable-length opaque data declared as opaque<max>.
// A max of 0 means unbounded.
func (e *Encoder) OpaqueMax(data []byte, max uint32) error {
	if uint64(len(data)) > math.MaxUint32 {
		return &EncodeError{What: "opaque", Reason: fmt.Sprintf("length %d does not fit in 32 bits", len(data))}
	}
	length := uint32(len(data))
	if max > 0 && length > max {
		return &EncodeError{What: "opaque", Reason: fmt.Sprintf("length %d exceeds maximum %d", length, max)}
	}

	e.Uint32(length)
	e.buf.Write(data)

	// Padding to 4-byte boundary
	for range Padding(length) {
		e.buf.WriteByte(0)
	}
	return nil
}

// String encodes an XDR string (same layout as opaque).
func (e *Encoder) String(s string) error {
	return e.StringMax(s, 0)
}

// StringMax encodes a string declared as string<max>.
func (e *Encoder) StringMax(s string, max uint32) error {
	if err := e.OpaqueMax([]byte(s), max); err != nil {
		if encErr, ok := err.(*EncodeError); ok {
			encErr.What = "string"
		}
		return err
	}
	return nil
}

// FixedOpaque encodes fixed-length opaque data: the bytes followed by padding,
// with no length prefix (RFC 4506 Section 4.9).
func (e *Encoder) FixedOpaque(data []byte) {
	e.buf.Write(data)
	for range Padding(uint32(len(data))) {
		e.buf.WriteByte(0)
	}
}

// Padding returns the number of zero bytes needed to align length to 4.
//
// Formula: (4 - (length % 4)) % 4
func Padding(length uint32) uint32 {
	return (4 - (length % 4)) % 4
}
