package xdr

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ============================================================================
// XDR Decoding - Wire Format → Go values
// ============================================================================

// Decoder reads XDR items from an in-memory message.
//
// The decoder works on a complete message (as handed over by the record
// framer) rather than on a stream, so it always knows how many bytes are
// left. That makes truncation a DecodeError instead of a blocking read, and
// lets Finish detect trailing bytes.
type Decoder struct {
	data []byte
	off  int
}

// NewDecoder returns a Decoder positioned at the start of data.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int {
	return d.off
}

// Remaining returns the number of bytes not yet consumed.
func (d *Decoder) Remaining() int {
	return len(d.data) - d.off
}

// Rest returns the unconsumed bytes without advancing.
func (d *Decoder) Rest() []byte {
	return d.data[d.off:]
}

// Finish checks that the whole message was consumed. typeName is used for
// the error message only.
func (d *Decoder) Finish(typeName string) error {
	if rem := d.Remaining(); rem != 0 {
		return &TrailingBytesError{Type: typeName, Consumed: d.off, Remaining: rem}
	}
	return nil
}

func (d *Decoder) take(n int, what string) ([]byte, error) {
	if n < 0 || n > d.Remaining() {
		return nil, &DecodeError{
			What:   what,
			Offset: d.off,
			Reason: fmt.Sprintf("need %d bytes, %d available", n, d.Remaining()),
			Err:    io.ErrUnexpectedEOF,
		}
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *Decoder) errorf(what string, offset int, format string, args ...any) error {
	return &DecodeError{What: what, Offset: offset, Reason: fmt.Sprintf(format, args...)}
}

// Uint32 decodes an unsigned int.
func (d *Decoder) Uint32() (uint32, error) {
	b, err := d.take(4, "uint32")
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// Int32 decodes a signed int.
func (d *Decoder) Int32() (int32, error) {
	v, err := d.Uint32()
	return int32(v), err
}

// Uint64 decodes an unsigned hyper integer.
func (d *Decoder) Uint64() (uint64, error) {
	b, err := d.take(8, "uint64")
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// Bool decodes a boolean. Values other than 0 and 1 are rejected.
func (d *Decoder) Bool() (bool, error) {
	start := d.off
	v, err := d.Uint32()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, d.errorf("bool", start, "invalid boolean value %d", v)
	}
}

// Opaque decodes variable-length opaque data without an upper bound.
func (d *Decoder) Opaque() ([]byte, error) {
	return d.OpaqueMax(0)
}

// OpaqueMax decodes opaque<max> data. A max of 0 means the only bound is
// the size of the message itself.
//
// The padding bytes must be present but their value is not checked: some
// servers do not zero them.
func (d *Decoder) OpaqueMax(max uint32) ([]byte, error) {
	start := d.off
	length, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	if max > 0 && length > max {
		return nil, d.errorf("opaque", start, "length %d exceeds maximum %d", length, max)
	}

	padded := uint64(length) + uint64(Padding(length))
	if padded > uint64(d.Remaining()) {
		return nil, &DecodeError{
			What:   "opaque",
			Offset: start,
			Reason: fmt.Sprintf("declared length %d (padded %d) but %d bytes available", length, padded, d.Remaining()),
			Err:    io.ErrUnexpectedEOF,
		}
	}

	body, _ := d.take(int(padded), "opaque")
	data := make([]byte, length)
	copy(data, body[:length])
	return data, nil
}

// String decodes an XDR string.
func (d *Decoder) String() (string, error) {
	return d.StringMax(0)
}

// StringMax decodes a string<max>.
func (d *Decoder) StringMax(max uint32) (string, error) {
	data, err := d.OpaqueMax(max)
	if err != nil {
		if decErr, ok := err.(*DecodeError); ok {
			decErr.What = "string"
		}
		return "", err
	}
	return string(data), nil
}

// FixedOpaque decodes n bytes of fixed-length opaque data plus padding.
func (d *Decoder) FixedOpaque(n uint32) ([]byte, error) {
	body, err := d.take(int(n+Padding(n)), "fixed opaque")
	if err != nil {
		return nil, err
	}
	data := make([]byte, n)
	copy(data, body[:n])
	return data, nil
}
