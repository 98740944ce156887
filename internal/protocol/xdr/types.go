package xdr

// Primitive wrappers so that the generic entry points (Marshal, Unmarshal,
// rpc.Call) also accept bare integers, strings and "void".

// Void is the XDR void type. It encodes to zero bytes.
type Void struct{}

func (Void) EncodeXDR(*Encoder) error  { return nil }
func (*Void) DecodeXDR(*Decoder) error { return nil }

// Uint32 is an XDR unsigned int.
type Uint32 uint32

func (v Uint32) EncodeXDR(e *Encoder) error {
	e.Uint32(uint32(v))
	return nil
}

func (v *Uint32) DecodeXDR(d *Decoder) error {
	x, err := d.Uint32()
	if err != nil {
		return err
	}
	*v = Uint32(x)
	return nil
}

// Uint64 is an XDR unsigned hyper.
type Uint64 uint64

func (v Uint64) EncodeXDR(e *Encoder) error {
	e.Uint64(uint64(v))
	return nil
}

func (v *Uint64) DecodeXDR(d *Decoder) error {
	x, err := d.Uint64()
	if err != nil {
		return err
	}
	*v = Uint64(x)
	return nil
}

// Bool is an XDR bool.
type Bool bool

func (v Bool) EncodeXDR(e *Encoder) error {
	e.Bool(bool(v))
	return nil
}

func (v *Bool) DecodeXDR(d *Decoder) error {
	x, err := d.Bool()
	if err != nil {
		return err
	}
	*v = Bool(x)
	return nil
}

// Opaque is unbounded variable-length opaque data.
type Opaque []byte

func (v Opaque) EncodeXDR(e *Encoder) error {
	return e.Opaque(v)
}

func (v *Opaque) DecodeXDR(d *Decoder) error {
	x, err := d.Opaque()
	if err != nil {
		return err
	}
	*v = x
	return nil
}

// String is an unbounded XDR string.
type String string

func (v String) EncodeXDR(e *Encoder) error {
	return e.String(string(v))
}

func (v *String) DecodeXDR(d *Decoder) error {
	x, err := d.String()
	if err != nil {
		return err
	}
	*v = String(x)
	return nil
}

// Uint32s is a counted array of unsigned ints.
type Uint32s []uint32

func (v Uint32s) EncodeXDR(e *Encoder) error {
	return EncodeSlice(e, v, func(e *Encoder, x uint32) error {
		e.Uint32(x)
		return nil
	})
}

func (v *Uint32s) DecodeXDR(d *Decoder) error {
	x, err := DecodeSlice(d, func(d *Decoder) (uint32, error) { return d.Uint32() })
	if err != nil {
		return err
	}
	*v = x
	return nil
}
