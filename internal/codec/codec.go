// Package codec converts scalar values to and from fixed-width byte buffers
// in a byte order chosen at construction.
//
// The layout never depends on the host: a Codec built for LittleEndian
// always writes the least significant byte first.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ByteOrder selects the wire byte order of a Codec.
type ByteOrder int

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

func (o ByteOrder) String() string {
	switch o {
	case LittleEndian:
		return "little-endian"
	case BigEndian:
		return "big-endian"
	default:
		return fmt.Sprintf("ByteOrder(%d)", int(o))
	}
}

// ErrLengthMismatch is matched by every LengthError.
var ErrLengthMismatch = errors.New("length mismatch")

// LengthError reports a decode attempt on a buffer whose length differs
// from the natural width of the requested type.
type LengthError struct {
	Type string
	Want int
	Got  int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("cannot decode %s: want %d bytes, got %d", e.Type, e.Want, e.Got)
}

// Is allows errors.Is(err, ErrLengthMismatch).
func (e *LengthError) Is(target error) bool {
	return target == ErrLengthMismatch
}

// Codec encodes and decodes scalars with a fixed byte order.
type Codec struct {
	order     ByteOrder
	byteOrder binary.ByteOrder
}

// Ready-made codecs for both byte orders.
var (
	Little = New(LittleEndian)
	Big    = New(BigEndian)
)

// New returns a Codec for the given byte order. Unknown orders fall back to little-endian.
func New(order ByteOrder) Codec {
	if order == BigEndian {
		return Codec{order: BigEndian, byteOrder: binary.BigEndian}
	}
	return Codec{order: LittleEndian, byteOrder: binary.LittleEndian}
}

// Order reports the byte order fixed at construction.
func (c Codec) Order() ByteOrder {
	return c.order
}

func (c Codec) bo() binary.ByteOrder {
	if c.byteOrder == nil {
		return binary.LittleEndian
	}
	return c.byteOrder
}

func checkLen(typ string, b []byte, want int) error {
	if len(b) != want {
		return &LengthError{Type: typ, Want: want, Got: len(b)}
	}
	return nil
}

func (c Codec) EncodeUint8(v uint8) []byte { return []byte{v} }
func (c Codec) EncodeInt8(v int8) []byte   { return []byte{byte(v)} }

func (c Codec) EncodeBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

func (c Codec) EncodeUint16(v uint16) []byte {
	b := make([]byte, 2)
	c.bo().PutUint16(b, v)
	return b
}

func (c Codec) EncodeInt16(v int16) []byte { return c.EncodeUint16(uint16(v)) }

func (c Codec) EncodeUint32(v uint32) []byte {
	b := make([]byte, 4)
	c.bo().PutUint32(b, v)
	return b
}

func (c Codec) EncodeInt32(v int32) []byte { return c.EncodeUint32(uint32(v)) }

func (c Codec) EncodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	c.bo().PutUint64(b, v)
	return b
}

func (c Codec) EncodeInt64(v int64) []byte { return c.EncodeUint64(uint64(v)) }

func (c Codec) EncodeFloat32(v float32) []byte { return c.EncodeUint32(math.Float32bits(v)) }
func (c Codec) EncodeFloat64(v float64) []byte { return c.EncodeUint64(math.Float64bits(v)) }

// EncodeString returns the UTF-8 bytes of s.
func (c Codec) EncodeString(s string) []byte { return []byte(s) }

func (c Codec) DecodeUint8(b []byte) (uint8, error) {
	if err := checkLen("uint8", b, 1); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c Codec) DecodeInt8(b []byte) (int8, error) {
	if err := checkLen("int8", b, 1); err != nil {
		return 0, err
	}
	return int8(b[0]), nil
}

// DecodeBool treats any non-zero byte as true.
func (c Codec) DecodeBool(b []byte) (bool, error) {
	if err := checkLen("bool", b, 1); err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

func (c Codec) DecodeUint16(b []byte) (uint16, error) {
	if err := checkLen("uint16", b, 2); err != nil {
		return 0, err
	}
	return c.bo().Uint16(b), nil
}

func (c Codec) DecodeInt16(b []byte) (int16, error) {
	if err := checkLen("int16", b, 2); err != nil {
		return 0, err
	}
	return int16(c.bo().Uint16(b)), nil
}

func (c Codec) DecodeUint32(b []byte) (uint32, error) {
	if err := checkLen("uint32", b, 4); err != nil {
		return 0, err
	}
	return c.bo().Uint32(b), nil
}

func (c Codec) DecodeInt32(b []byte) (int32, error) {
	if err := checkLen("int32", b, 4); err != nil {
		return 0, err
	}
	return int32(c.bo().Uint32(b)), nil
}

func (c Codec) DecodeUint64(b []byte) (uint64, error) {
	if err := checkLen("uint64", b, 8); err != nil {
		return 0, err
	}
	return c.bo().Uint64(b), nil
}

func (c Codec) DecodeInt64(b []byte) (int64, error) {
	if err := checkLen("int64", b, 8); err != nil {
		return 0, err
	}
	return int64(c.bo().Uint64(b)), nil
}

func (c Codec) DecodeFloat32(b []byte) (float32, error) {
	if err := checkLen("float32", b, 4); err != nil {
		return 0, err
	}
	return math.Float32frombits(c.bo().Uint32(b)), nil
}

func (c Codec) DecodeFloat64(b []byte) (float64, error) {
	if err := checkLen("float64", b, 8); err != nil {
		return 0, err
	}
	return math.Float64frombits(c.bo().Uint64(b)), nil
}

// DecodeString interprets b as UTF-8. Any length is accepted.
func (c Codec) DecodeString(b []byte) string { return string(b) }
