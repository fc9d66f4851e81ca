package device

import (
	"encoding/hex"
	"fmt"

	"github.com/srg/openvario/internal/codec"
)

// Type tags the interpretation of a Value's bytes.
type Type int

const (
	TypeBytes Type = iota
	TypeUint8
	TypeInt8
	TypeUint16
	TypeInt16
	TypeUint32
	TypeInt32
	TypeUint64
	TypeInt64
	TypeFloat32
	TypeFloat64
	TypeBool
	TypeString
)

var typeNames = map[Type]string{
	TypeBytes:   "bytes",
	TypeUint8:   "uint8",
	TypeInt8:    "int8",
	TypeUint16:  "uint16",
	TypeInt16:   "int16",
	TypeUint32:  "uint32",
	TypeInt32:   "int32",
	TypeUint64:  "uint64",
	TypeInt64:   "int64",
	TypeFloat32: "float32",
	TypeFloat64: "float64",
	TypeBool:    "bool",
	TypeString:  "string",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Width returns the natural encoded width of t, or 0 for variable-length types.
func (t Type) Width() int {
	switch t {
	case TypeUint8, TypeInt8, TypeBool:
		return 1
	case TypeUint16, TypeInt16:
		return 2
	case TypeUint32, TypeInt32, TypeFloat32:
		return 4
	case TypeUint64, TypeInt64, TypeFloat64:
		return 8
	default:
		return 0
	}
}

// wire is the byte order of every GATT value exchanged with the device.
var wire = codec.Little

// Value is an immutable typed byte buffer exchanged with a characteristic.
// The zero Value is an empty TypeBytes value.
type Value struct {
	typ  Type
	data []byte
}

// ValueOf tags raw with t. Fixed-width types must match their natural width.
func ValueOf(t Type, raw []byte) (Value, error) {
	if w := t.Width(); w > 0 && len(raw) != w {
		return Value{}, &codec.LengthError{Type: t.String(), Want: w, Got: len(raw)}
	}
	return Value{typ: t, data: clone(raw)}, nil
}

func BytesValue(b []byte) Value      { return Value{typ: TypeBytes, data: clone(b)} }
func Uint8Value(v uint8) Value       { return Value{typ: TypeUint8, data: wire.EncodeUint8(v)} }
func Int8Value(v int8) Value         { return Value{typ: TypeInt8, data: wire.EncodeInt8(v)} }
func Uint16Value(v uint16) Value     { return Value{typ: TypeUint16, data: wire.EncodeUint16(v)} }
func Int16Value(v int16) Value       { return Value{typ: TypeInt16, data: wire.EncodeInt16(v)} }
func Uint32Value(v uint32) Value     { return Value{typ: TypeUint32, data: wire.EncodeUint32(v)} }
func Int32Value(v int32) Value       { return Value{typ: TypeInt32, data: wire.EncodeInt32(v)} }
func Uint64Value(v uint64) Value     { return Value{typ: TypeUint64, data: wire.EncodeUint64(v)} }
func Int64Value(v int64) Value       { return Value{typ: TypeInt64, data: wire.EncodeInt64(v)} }
func Float32Value(v float32) Value   { return Value{typ: TypeFloat32, data: wire.EncodeFloat32(v)} }
func Float64Value(v float64) Value   { return Value{typ: TypeFloat64, data: wire.EncodeFloat64(v)} }
func BoolValue(v bool) Value         { return Value{typ: TypeBool, data: wire.EncodeBool(v)} }
func StringValue(s string) Value     { return Value{typ: TypeString, data: wire.EncodeString(s)} }

// Type returns the tag the value was created with.
func (v Value) Type() Type { return v.typ }

// Len returns the number of encoded bytes.
func (v Value) Len() int { return len(v.data) }

// Bytes returns a copy of the encoded bytes.
func (v Value) Bytes() []byte { return clone(v.data) }

// The accessors below decode the raw bytes regardless of the tag, so a
// TypeBytes notification payload can be read as the characteristic's real type.

func (v Value) Uint8() (uint8, error)     { return wire.DecodeUint8(v.data) }
func (v Value) Int8() (int8, error)       { return wire.DecodeInt8(v.data) }
func (v Value) Uint16() (uint16, error)   { return wire.DecodeUint16(v.data) }
func (v Value) Int16() (int16, error)     { return wire.DecodeInt16(v.data) }
func (v Value) Uint32() (uint32, error)   { return wire.DecodeUint32(v.data) }
func (v Value) Int32() (int32, error)     { return wire.DecodeInt32(v.data) }
func (v Value) Uint64() (uint64, error)   { return wire.DecodeUint64(v.data) }
func (v Value) Int64() (int64, error)     { return wire.DecodeInt64(v.data) }
func (v Value) Float32() (float32, error) { return wire.DecodeFloat32(v.data) }
func (v Value) Float64() (float64, error) { return wire.DecodeFloat64(v.data) }
func (v Value) Bool() (bool, error)       { return wire.DecodeBool(v.data) }

// Text decodes the bytes as UTF-8.
func (v Value) Text() string { return wire.DecodeString(v.data) }

// Decode interprets the bytes as t and returns the Go value.
func (v Value) Decode(t Type) (any, error) {
	switch t {
	case TypeUint8:
		return v.Uint8()
	case TypeInt8:
		return v.Int8()
	case TypeUint16:
		return v.Uint16()
	case TypeInt16:
		return v.Int16()
	case TypeUint32:
		return v.Uint32()
	case TypeInt32:
		return v.Int32()
	case TypeUint64:
		return v.Uint64()
	case TypeInt64:
		return v.Int64()
	case TypeFloat32:
		return v.Float32()
	case TypeFloat64:
		return v.Float64()
	case TypeBool:
		return v.Bool()
	case TypeString:
		return v.Text(), nil
	default:
		return v.Bytes(), nil
	}
}

func (v Value) String() string {
	return fmt.Sprintf("%s[%s]", v.typ, hex.EncodeToString(v.data))
}

func clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
