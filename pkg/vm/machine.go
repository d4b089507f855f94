package vm

import (
	"errors"
	"fmt"
)

var errStackUnderflow = errors.New("stack underflow")

// Machine interprets bytecode held in a Memory arena. The stack starts at the
// end of the code region and grows upward.
type Machine struct {
	SP uint64
	IP uint64
	FP uint64

	mem     *Memory
	natives []Native

	codeStart uint64
	codeEnd   uint64

	// instruction being executed, for fault reports
	curIP uint64
	curOp OpCode
}

// New creates a machine over mem. natives is indexed by the pointer operand
// of CallNative.
func New(mem *Memory, natives []Native) *Machine {
	return &Machine{mem: mem, natives: natives}
}

// Memory returns the arena the machine runs against.
func (m *Machine) Memory() *Memory { return m.mem }

// Run executes from codeStart with a fresh stack at codeEnd until the
// instruction pointer reaches codeEnd. Runtime failures are returned as
// *Fault.
func (m *Machine) Run(codeStart, codeEnd uint64) (err error) {
	if codeStart > codeEnd || codeEnd > m.mem.Len() {
		return &Fault{IP: codeStart, Op: OpInvalid, Err: fmt.Errorf("%w: code region [%d,%d)", ErrOutOfRange, codeStart, codeEnd)}
	}
	m.codeStart, m.codeEnd = codeStart, codeEnd
	m.IP, m.SP, m.FP = codeStart, codeEnd, 0

	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(*Fault)
			if !ok {
				panic(r)
			}
			f.IP, f.Op = m.curIP, m.curOp
			err = f
		}
	}()

	for m.IP < m.codeEnd {
		m.step()
	}
	return nil
}

func (m *Machine) step() {
	m.curIP = m.IP
	m.curOp = OpInvalid
	if m.IP < m.codeStart {
		fault(fmt.Errorf("%w: jump below code start %d", ErrOutOfRange, m.codeStart))
	}
	op := OpCode(m.mem.Char(m.IP))
	if int(op) >= opCount {
		fault(fmt.Errorf("%w: 0x%02X", ErrInvalidOpcode, byte(op)))
	}
	m.curOp = op
	handlers[op](m)
}

// reserve grows the stack by n bytes and returns the old top.
func (m *Machine) reserve(n uint64) uint64 {
	at := m.SP
	if at > m.mem.Len() || n > m.mem.Len()-at {
		fault(fmt.Errorf("%w: need %d bytes at sp=%d, arena is %d bytes", ErrStackOverflow, n, at, m.mem.Len()))
	}
	m.SP += n
	return at
}

// release shrinks the stack by n bytes and returns the new top.
func (m *Machine) release(n uint64) uint64 {
	if m.SP < m.codeEnd || n > m.SP-m.codeEnd {
		fault(fmt.Errorf("%w: pop %d bytes at sp=%d", errStackUnderflow, n, m.SP))
	}
	m.SP -= n
	return m.SP
}

func (m *Machine) PushChar(v int8)     { m.mem.SetChar(m.reserve(CharSize), v) }
func (m *Machine) PushInt(v int32)     { m.mem.SetInt(m.reserve(IntSize), v) }
func (m *Machine) PushFloat(v float32) { m.mem.SetFloat(m.reserve(FloatSize), v) }
func (m *Machine) PushPtr(v uint64)    { m.mem.SetPtr(m.reserve(PtrSize), v) }

func (m *Machine) PushBytes(b []byte) {
	copy(m.mem.Slice(m.reserve(uint64(len(b))), uint64(len(b))), b)
}

func (m *Machine) PopChar() int8     { return m.mem.Char(m.release(CharSize)) }
func (m *Machine) PopInt() int32     { return m.mem.Int(m.release(IntSize)) }
func (m *Machine) PopFloat() float32 { return m.mem.Float(m.release(FloatSize)) }
func (m *Machine) PopPtr() uint64    { return m.mem.Ptr(m.release(PtrSize)) }

// PopBytes pops n bytes and returns a copy.
func (m *Machine) PopBytes(n uint64) []byte {
	return append([]byte(nil), m.mem.Slice(m.release(n), n)...)
}

// popSize pops an int used as a byte count.
func (m *Machine) popSize() uint64 {
	n := m.PopInt()
	if n < 0 {
		fault(fmt.Errorf("%w: negative size %d", ErrOutOfRange, n))
	}
	return uint64(n)
}

func (m *Machine) operandInt(at uint64) int32 { return m.mem.Int(m.IP + 1 + at) }
