// Package xdr implements the XDR canonical encoding (RFC 4506) used by ONC RPC.
//
// Message types implement Encodable and Decodable once; the generic entry
// points Marshal and Unmarshal then work for any of them, and the compiler
// checks the pairing at the call site. Compound types encode their fields in
// declaration order with no surrounding length.
package xdr

import (
	"bytes"
	"fmt"
)

// Encodable is implemented by types that can write themselves as XDR.
type Encodable interface {
	EncodeXDR(e *Encoder) error
}

// Decodable is implemented by (pointers to) types that can read themselves
// from XDR.
type Decodable interface {
	DecodeXDR(d *Decoder) error
}

// Enum is the constraint for enumerations: a 32-bit code plus a predicate
// telling the codec which codes are defined.
type Enum interface {
	~uint32
	Valid() bool
}

// Marshal encodes v into a new byte slice.
func Marshal(v Encodable) ([]byte, error) {
	var buf bytes.Buffer
	if err := v.EncodeXDR(NewEncoder(&buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a T from data and returns it together with the number
// of bytes consumed. data must hold exactly one T: leftover bytes are a
// TrailingBytesError and the partially useful value is discarded.
func Unmarshal[T any, PT interface {
	*T
	Decodable
}](data []byte) (T, int, error) {
	var v T
	d := NewDecoder(data)
	if err := PT(&v).DecodeXDR(d); err != nil {
		var zero T
		return zero, d.Offset(), err
	}
	if err := d.Finish(fmt.Sprintf("%T", v)); err != nil {
		var zero T
		return zero, d.Offset(), err
	}
	return v, d.Offset(), nil
}

// EncodeEnum writes the numeric code of v. Unknown variants are refused so a
// peer never sees a code we could not decode ourselves.
func EncodeEnum[E Enum](e *Encoder, v E) error {
	if !v.Valid() {
		return &EncodeError{What: fmt.Sprintf("%T", v), Reason: fmt.Sprintf("unknown enum value %d", uint32(v))}
	}
	e.Uint32(uint32(v))
	return nil
}

// DecodeEnum reads a code and checks it against E's defined variants.
func DecodeEnum[E Enum](d *Decoder) (E, error) {
	start := d.Offset()
	raw, err := d.Uint32()
	if err != nil {
		return 0, err
	}
	v := E(raw)
	if !v.Valid() {
		return 0, d.errorf(fmt.Sprintf("%T", v), start, "unrecognized enum value %d", raw)
	}
	return v, nil
}

// ============================================================================
// Sequences
// ============================================================================

// EncodeSlice writes a counted array: the element count followed by each
// element (RFC 4506 Section 4.13).
func EncodeSlice[T any](e *Encoder, items []T, encodeItem func(*Encoder, T) error) error {
	e.Uint32(uint32(len(items)))
	for i, item := range items {
		if err := encodeItem(e, item); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// DecodeSlice reads a counted array. Every XDR item is at least 4 bytes, so
// a count the remaining bytes cannot possibly hold is rejected up front
// instead of allocating for it.
func DecodeSlice[T any](d *Decoder, decodeItem func(*Decoder) (T, error)) ([]T, error) {
	start := d.Offset()
	count, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	if uint64(count)*4 > uint64(d.Remaining()) {
		return nil, d.errorf("array", start, "element count %d exceeds remaining %d bytes", count, d.Remaining())
	}

	items := make([]T, 0, count)
	for i := uint32(0); i < count; i++ {
		item, err := decodeItem(d)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// EncodeList writes an XDR optional-data linked list, the form used by
// MOUNT's exports and mountlist:
//
//	[1][item][1][item]...[0]
func EncodeList[T any](e *Encoder, items []T, encodeItem func(*Encoder, T) error) error {
	for i, item := range items {
		e.Bool(true)
		if err := encodeItem(e, item); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}
	e.Bool(false)
	return nil
}

// DecodeList reads an optional-data linked list. Each iteration consumes at
// least the 4-byte presence flag, so a malformed list ends in a DecodeError
// rather than looping.
func DecodeList[T any](d *Decoder, decodeItem func(*Decoder) (T, error)) ([]T, error) {
	var items []T
	for {
		more, err := d.Bool()
		if err != nil {
			return nil, err
		}
		if !more {
			return items, nil
		}
		item, err := decodeItem(d)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", len(items), err)
		}
		items = append(items, item)
	}
}
