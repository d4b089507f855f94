package vm

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Primitive value sizes in bytes.
const (
	CharSize  = 1
	IntSize   = 4
	FloatSize = 4
	PtrSize   = 8

	// FrameHeaderSize is the housekeeping block pushed by Call: saved FP,
	// saved IP and the unwind byte count.
	FrameHeaderSize = 2*PtrSize + IntSize
)

// Memory is the flat byte arena shared by the argument scratch area, the
// compiled code and the runtime stack. All accessors are bounds-checked and
// panic with a *Fault on violation; Machine.Run recovers those panics.
type Memory struct {
	buf []byte
}

// NewMemory wraps buf without copying it.
func NewMemory(buf []byte) *Memory {
	return &Memory{buf: buf}
}

// Len reports the arena capacity.
func (m *Memory) Len() uint64 { return uint64(len(m.buf)) }

// Raw exposes the backing slice.
func (m *Memory) Raw() []byte { return m.buf }

// Slice returns the n bytes starting at addr, aliasing the arena.
func (m *Memory) Slice(addr, n uint64) []byte {
	m.check(addr, n)
	return m.buf[addr : addr+n]
}

func (m *Memory) check(addr, n uint64) {
	size := uint64(len(m.buf))
	if addr > size || n > size-addr {
		panic(&Fault{Err: fmt.Errorf("%w: [%d,+%d) outside arena of %d bytes", ErrOutOfRange, addr, n, size)})
	}
}

func (m *Memory) Char(addr uint64) int8 {
	m.check(addr, CharSize)
	return int8(m.buf[addr])
}

func (m *Memory) SetChar(addr uint64, v int8) {
	m.check(addr, CharSize)
	m.buf[addr] = byte(v)
}

func (m *Memory) Int(addr uint64) int32 {
	m.check(addr, IntSize)
	return int32(binary.LittleEndian.Uint32(m.buf[addr:]))
}

func (m *Memory) SetInt(addr uint64, v int32) {
	m.check(addr, IntSize)
	binary.LittleEndian.PutUint32(m.buf[addr:], uint32(v))
}

func (m *Memory) Float(addr uint64) float32 {
	m.check(addr, FloatSize)
	return math.Float32frombits(binary.LittleEndian.Uint32(m.buf[addr:]))
}

func (m *Memory) SetFloat(addr uint64, v float32) {
	m.check(addr, FloatSize)
	binary.LittleEndian.PutUint32(m.buf[addr:], math.Float32bits(v))
}

func (m *Memory) Ptr(addr uint64) uint64 {
	m.check(addr, PtrSize)
	return binary.LittleEndian.Uint64(m.buf[addr:])
}

func (m *Memory) SetPtr(addr uint64, v uint64) {
	m.check(addr, PtrSize)
	binary.LittleEndian.PutUint64(m.buf[addr:], v)
}

// Move copies n bytes from src to dst. Overlapping ranges are handled.
func (m *Memory) Move(dst, src, n uint64) {
	m.check(src, n)
	m.check(dst, n)
	copy(m.buf[dst:dst+n], m.buf[src:src+n])
}

// Zero clears n bytes starting at addr.
func (m *Memory) Zero(addr, n uint64) {
	clear(m.Slice(addr, n))
}
