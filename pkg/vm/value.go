package vm

import (
	"encoding/binary"
	"math"
)

// Value is the little-endian encoding of a single script value: a primitive
// or a flat struct (its fields concatenated in declaration order).
type Value []byte

func Char(v int8) Value { return Value{byte(v)} }

func Int(v int32) Value {
	return binary.LittleEndian.AppendUint32(make(Value, 0, IntSize), uint32(v))
}

func Float(v float32) Value {
	return binary.LittleEndian.AppendUint32(make(Value, 0, FloatSize), math.Float32bits(v))
}

func Ptr(v uint64) Value {
	return binary.LittleEndian.AppendUint64(make(Value, 0, PtrSize), v)
}

// Bool encodes b the way comparisons do: 1 for true, 0 for false.
func Bool(b bool) Value {
	if b {
		return Char(1)
	}
	return Char(0)
}

// Pack concatenates fields into one struct value.
func Pack(fields ...Value) Value {
	var out Value
	for _, f := range fields {
		out = append(out, f...)
	}
	return out
}

// The accessors below read from offset 0 and return the zero value when v is
// too short. Use Field to reach into struct values.

func (v Value) Char() int8 {
	if len(v) < CharSize {
		return 0
	}
	return int8(v[0])
}

func (v Value) Int() int32 {
	if len(v) < IntSize {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(v))
}

func (v Value) Float() float32 {
	if len(v) < FloatSize {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(v))
}

func (v Value) Ptr() uint64 {
	if len(v) < PtrSize {
		return 0
	}
	return binary.LittleEndian.Uint64(v)
}

// Field returns the size bytes at offset, or nil when out of range.
func (v Value) Field(offset, size int) Value {
	if offset < 0 || size < 0 || offset+size > len(v) {
		return nil
	}
	return v[offset : offset+size]
}

// Args holds native call arguments in declaration order.
type Args []Value

func (a Args) at(i int) Value {
	if i < 0 || i >= len(a) {
		return nil
	}
	return a[i]
}

func (a Args) Char(i int) int8           { return a.at(i).Char() }
func (a Args) Int(i int) int32           { return a.at(i).Int() }
func (a Args) Float(i int) float32       { return a.at(i).Float() }
func (a Args) Ptr(i int) uint64          { return a.at(i).Ptr() }
func (a Args) Value(i int) Value         { return a.at(i) }
func (a Args) Field(i, off, n int) Value { return a.at(i).Field(off, n) }

// NativeFunc is a host callback. It receives its arguments already popped and
// ordered, and returns its result encoded; a void native returns nil.
type NativeFunc func(args Args) (Value, error)

// Native is a native callback bound with the byte sizes of its signature, so
// the machine can pop arguments and check the result without trusting the
// callback's own stack discipline.
type Native struct {
	Name       string
	ParamSizes []int
	ReturnSize int
	Fn         NativeFunc
}
