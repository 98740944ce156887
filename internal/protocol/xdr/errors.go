package xdr

import "fmt"

// DecodeError reports malformed input: a truncated item, a bad length,
// missing padding or an enumeration code the decoder does not know.
//
// A DecodeError is fatal to the call that produced it. The caller cannot
// assume anything about the bytes that follow the failing item.
type DecodeError struct {
	// What names the item being decoded (e.g. "uint32", "opaque", "mountstat3")
	What string

	// Offset is the byte offset of the failing item within the decoded buffer
	Offset int

	// Reason is a short human readable description
	Reason string

	// Err is the underlying cause, if any (usually io.ErrUnexpectedEOF)
	Err error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("xdr: decode %s at offset %d: %s: %v", e.What, e.Offset, e.Reason, e.Err)
	}
	return fmt.Sprintf("xdr: decode %s at offset %d: %s", e.What, e.Offset, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// TrailingBytesError reports that a value decoded successfully but did not
// consume the whole message. The value is never returned in that case.
type TrailingBytesError struct {
	// Type is the Go type that was decoded
	Type string

	// Consumed is the number of bytes the decoder used
	Consumed int

	// Remaining is the number of bytes left over
	Remaining int
}

func (e *TrailingBytesError) Error() string {
	return fmt.Sprintf("xdr: unexpected trailing bytes after %s (consumed %d, %d left)",
		e.Type, e.Consumed, e.Remaining)
}

// EncodeError reports a value that has no valid wire representation, such
// as an opaque longer than its declared bound or an unknown enum variant.
// It is raised before anything reaches the connection.
type EncodeError struct {
	What   string
	Reason string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("xdr: encode %s: %s", e.What, e.Reason)
}
