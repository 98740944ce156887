package xdr

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Helper Types
// ============================================================================

type color uint32

const (
	colorRed   color = 0
	colorGreen color = 1
	colorBlue  color = 7
)

func (c color) Valid() bool {
	switch c {
	case colorRed, colorGreen, colorBlue:
		return true
	}
	return false
}

// pair is a compound type: fields in declaration order, no wrapper.
type pair struct {
	ID     uint64
	Name   string
	Colors []color
}

func (p pair) EncodeXDR(e *Encoder) error {
	e.Uint64(p.ID)
	if err := e.StringMax(p.Name, 16); err != nil {
		return err
	}
	return EncodeSlice(e, p.Colors, EncodeEnum[color])
}

func (p *pair) DecodeXDR(d *Decoder) error {
	var err error
	if p.ID, err = d.Uint64(); err != nil {
		return err
	}
	if p.Name, err = d.StringMax(16); err != nil {
		return err
	}
	p.Colors, err = DecodeSlice(d, DecodeEnum[color])
	return err
}

func roundTrip[T any, PT interface {
	*T
	Decodable
}](t *testing.T, v Encodable) T {
	t.Helper()
	data, err := Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, 0, len(data)%4, "encoding must be 4-byte aligned")

	got, n, err := Unmarshal[T, PT](data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n, "decode must consume exactly the encoded bytes")
	return got
}

// ============================================================================
// Primitive Tests
// ============================================================================

func TestUint32(t *testing.T) {
	t.Run("EncodesBigEndian", func(t *testing.T) {
		data, err := Marshal(Uint32(0x01020304))
		require.NoError(t, err)
		assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, data)
	})

	t.Run("RoundTrips", func(t *testing.T) {
		for _, v := range []uint32{0, 1, 13, 100005, 0x7FFFFFFF, 0xFFFFFFFF} {
			assert.Equal(t, Uint32(v), roundTrip[Uint32](t, Uint32(v)))
		}
	})

	t.Run("RejectsTruncatedInput", func(t *testing.T) {
		_, _, err := Unmarshal[Uint32]([]byte{0, 0, 1})
		var decErr *DecodeError
		require.ErrorAs(t, err, &decErr)
		assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	})
}

func TestUint64(t *testing.T) {
	t.Run("EncodesBigEndian", func(t *testing.T) {
		data, err := Marshal(Uint64(1))
		require.NoError(t, err)
		assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 1}, data)
	})

	t.Run("RoundTrips", func(t *testing.T) {
		for _, v := range []uint64{0, 1, 1 << 32, 0xFFFFFFFFFFFFFFFF} {
			assert.Equal(t, Uint64(v), roundTrip[Uint64](t, Uint64(v)))
		}
	})
}

func TestBool(t *testing.T) {
	t.Run("RoundTrips", func(t *testing.T) {
		assert.Equal(t, Bool(true), roundTrip[Bool](t, Bool(true)))
		assert.Equal(t, Bool(false), roundTrip[Bool](t, Bool(false)))
	})

	t.Run("RejectsValuesOtherThanZeroAndOne", func(t *testing.T) {
		_, _, err := Unmarshal[Bool]([]byte{0, 0, 0, 2})
		var decErr *DecodeError
		require.ErrorAs(t, err, &decErr)
		assert.Equal(t, "bool", decErr.What)
	})
}

func TestVoid(t *testing.T) {
	data, err := Marshal(Void{})
	require.NoError(t, err)
	assert.Empty(t, data)

	_, n, err := Unmarshal[Void](nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, _, err = Unmarshal[Void]([]byte{0, 0, 0, 0})
	var trailing *TrailingBytesError
	require.ErrorAs(t, err, &trailing)
	assert.Equal(t, 4, trailing.Remaining)
}

// ============================================================================
// Opaque / String Tests
// ============================================================================

func TestOpaque(t *testing.T) {
	t.Run("EncodesWithLengthAndPadding", func(t *testing.T) {
		data, err := Marshal(Opaque{0x01, 0x02, 0x03})
		require.NoError(t, err)
		assert.Equal(t, []byte{
			0, 0, 0, 3, // length
			0x01, 0x02, 0x03, 0, // data + 1 byte padding
		}, data)
	})

	t.Run("EncodesAlignedWithoutPadding", func(t *testing.T) {
		data, err := Marshal(Opaque{1, 2, 3, 4})
		require.NoError(t, err)
		assert.Len(t, data, 8)
	})

	t.Run("RoundTripsAllPaddingLengths", func(t *testing.T) {
		for n := 0; n <= 9; n++ {
			v := Opaque(bytes.Repeat([]byte{0xAB}, n))
			got := roundTrip[Opaque](t, v)
			assert.Equal(t, []byte(v), []byte(got), "length %d", n)
		}
	})

	t.Run("AcceptsNonZeroPadding", func(t *testing.T) {
		got, _, err := Unmarshal[Opaque]([]byte{0, 0, 0, 1, 0x42, 0xFF, 0xFF, 0xFF})
		require.NoError(t, err)
		assert.Equal(t, Opaque{0x42}, got)
	})

	t.Run("RejectsMissingPadding", func(t *testing.T) {
		_, _, err := Unmarshal[Opaque]([]byte{0, 0, 0, 1, 0x42})
		var decErr *DecodeError
		require.ErrorAs(t, err, &decErr)
		assert.Equal(t, "opaque", decErr.What)
	})

	t.Run("RejectsLengthBeyondMessage", func(t *testing.T) {
		_, _, err := Unmarshal[Opaque]([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0, 0, 0, 0})
		var decErr *DecodeError
		require.ErrorAs(t, err, &decErr)
	})

	t.Run("EnforcesMaximumOnEncode", func(t *testing.T) {
		enc := NewEncoder(new(bytes.Buffer))
		err := enc.OpaqueMax(make([]byte, 5), 4)
		var encErr *EncodeError
		require.ErrorAs(t, err, &encErr)
		assert.Equal(t, 0, enc.Len(), "nothing must be written on failure")
	})

	t.Run("EnforcesMaximumOnDecode", func(t *testing.T) {
		dec := NewDecoder([]byte{0, 0, 0, 5, 1, 2, 3, 4, 5, 0, 0, 0})
		_, err := dec.OpaqueMax(4)
		var decErr *DecodeError
		require.ErrorAs(t, err, &decErr)
	})
}

func TestString(t *testing.T) {
	t.Run("RoundTrips", func(t *testing.T) {
		for _, s := range []string{"", "/", "/home", "/export/data"} {
			assert.Equal(t, String(s), roundTrip[String](t, String(s)))
		}
	})

	t.Run("ReportsStringInErrors", func(t *testing.T) {
		dec := NewDecoder([]byte{0, 0, 0, 8, 'a'})
		_, err := dec.String()
		var decErr *DecodeError
		require.ErrorAs(t, err, &decErr)
		assert.Equal(t, "string", decErr.What)
	})
}

// ============================================================================
// Enum / Sequence / Compound Tests
// ============================================================================

func TestEnum(t *testing.T) {
	t.Run("EncodesNumericCode", func(t *testing.T) {
		enc := NewEncoder(new(bytes.Buffer))
		require.NoError(t, EncodeEnum(enc, colorBlue))
		assert.Equal(t, []byte{0, 0, 0, 7}, enc.Bytes())
	})

	t.Run("RefusesUnknownVariantOnEncode", func(t *testing.T) {
		enc := NewEncoder(new(bytes.Buffer))
		var encErr *EncodeError
		require.ErrorAs(t, EncodeEnum(enc, color(3)), &encErr)
	})

	t.Run("RejectsUnrecognizedCode", func(t *testing.T) {
		_, err := DecodeEnum[color](NewDecoder([]byte{0, 0, 0, 3}))
		var decErr *DecodeError
		require.ErrorAs(t, err, &decErr)
		assert.Contains(t, decErr.Error(), "unrecognized enum value 3")
	})
}

func TestSlice(t *testing.T) {
	t.Run("EncodesCountThenElements", func(t *testing.T) {
		data, err := Marshal(Uint32s{5, 6})
		require.NoError(t, err)
		assert.Equal(t, []byte{0, 0, 0, 2, 0, 0, 0, 5, 0, 0, 0, 6}, data)
	})

	t.Run("RoundTrips", func(t *testing.T) {
		assert.Equal(t, Uint32s{1, 2, 3}, roundTrip[Uint32s](t, Uint32s{1, 2, 3}))
		assert.Empty(t, roundTrip[Uint32s](t, Uint32s{}))
	})

	t.Run("RejectsImpossibleCount", func(t *testing.T) {
		_, _, err := Unmarshal[Uint32s]([]byte{0x7F, 0xFF, 0xFF, 0xFF, 0, 0, 0, 1})
		var decErr *DecodeError
		require.ErrorAs(t, err, &decErr)
		assert.Equal(t, "array", decErr.What)
	})

	t.Run("RejectsShortElementList", func(t *testing.T) {
		_, _, err := Unmarshal[Uint32s]([]byte{0, 0, 0, 2, 0, 0, 0, 1, 0, 0})
		var decErr *DecodeError
		require.ErrorAs(t, err, &decErr)
	})
}

func TestList(t *testing.T) {
	encodeString := func(e *Encoder, s string) error { return e.String(s) }
	decodeString := func(d *Decoder) (string, error) { return d.String() }

	t.Run("RoundTrips", func(t *testing.T) {
		enc := NewEncoder(new(bytes.Buffer))
		require.NoError(t, EncodeList(enc, []string{"/a", "/bb"}, encodeString))

		dec := NewDecoder(enc.Bytes())
		got, err := DecodeList(dec, decodeString)
		require.NoError(t, err)
		require.NoError(t, dec.Finish("list"))
		assert.Equal(t, []string{"/a", "/bb"}, got)
	})

	t.Run("EmptyListIsSingleFalse", func(t *testing.T) {
		enc := NewEncoder(new(bytes.Buffer))
		require.NoError(t, EncodeList(enc, nil, encodeString))
		assert.Equal(t, []byte{0, 0, 0, 0}, enc.Bytes())
	})

	t.Run("RejectsMissingTerminator", func(t *testing.T) {
		_, err := DecodeList(NewDecoder([]byte{0, 0, 0, 1, 0, 0, 0, 0}), decodeString)
		var decErr *DecodeError
		require.ErrorAs(t, err, &decErr)
	})
}

func TestCompound(t *testing.T) {
	t.Run("RoundTrips", func(t *testing.T) {
		v := pair{ID: 42, Name: "abc", Colors: []color{colorRed, colorBlue}}
		assert.Equal(t, v, roundTrip[pair](t, v))
	})

	t.Run("EncodesFieldsInDeclarationOrder", func(t *testing.T) {
		data, err := Marshal(pair{ID: 1, Name: "x", Colors: []color{colorGreen}})
		require.NoError(t, err)
		assert.Equal(t, []byte{
			0, 0, 0, 0, 0, 0, 0, 1, // ID
			0, 0, 0, 1, 'x', 0, 0, 0, // Name
			0, 0, 0, 1, 0, 0, 0, 1, // Colors
		}, data)
	})

	t.Run("PropagatesElementErrors", func(t *testing.T) {
		_, err := Marshal(pair{Colors: []color{color(9)}})
		var encErr *EncodeError
		require.ErrorAs(t, err, &encErr)
	})
}

// ============================================================================
// Trailing Bytes
// ============================================================================

func TestUnmarshalTrailingBytes(t *testing.T) {
	data, err := Marshal(pair{ID: 7, Name: "n", Colors: nil})
	require.NoError(t, err)

	for extra := 1; extra <= 8; extra++ {
		withExtra := append(append([]byte{}, data...), make([]byte, extra)...)
		got, n, err := Unmarshal[pair](withExtra)

		var trailing *TrailingBytesError
		require.ErrorAs(t, err, &trailing, "extra=%d", extra)
		assert.Equal(t, extra, trailing.Remaining)
		assert.Equal(t, len(data), n)
		assert.Equal(t, pair{}, got, "no partially decoded value is returned")
	}
}

func TestPadding(t *testing.T) {
	cases := map[uint32]uint32{0: 0, 1: 3, 2: 2, 3: 1, 4: 0, 5: 3, 8: 0}
	for length, want := range cases {
		assert.Equal(t, want, Padding(length), "length %d", length)
	}
}
