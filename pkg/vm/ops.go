package vm

import "fmt"

type scalar interface {
	int8 | int32 | float32 | uint64
}

type number interface {
	int8 | int32 | float32
}

type integer interface {
	int8 | int32
}

func pop[T scalar](m *Machine) T {
	var v T
	switch p := any(&v).(type) {
	case *int8:
		*p = m.PopChar()
	case *int32:
		*p = m.PopInt()
	case *float32:
		*p = m.PopFloat()
	case *uint64:
		*p = m.PopPtr()
	}
	return v
}

func push[T scalar](m *Machine, v T) {
	switch x := any(v).(type) {
	case int8:
		m.PushChar(x)
	case int32:
		m.PushInt(x)
	case float32:
		m.PushFloat(x)
	case uint64:
		m.PushPtr(x)
	}
}

func boolChar(b bool) int8 {
	if b {
		return 1
	}
	return 0
}

func eq[T number](a, b T) bool { return a == b }
func lt[T number](a, b T) bool { return a < b }
func gt[T number](a, b T) bool { return a > b }
func le[T number](a, b T) bool { return a <= b }
func ge[T number](a, b T) bool { return a >= b }
func ne[T number](a, b T) bool { return a != b }

func add[T number](a, b T) T { return a + b }
func sub[T number](a, b T) T { return a - b }
func mul[T number](a, b T) T { return a * b }

func and[T integer](a, b T) T { return a & b }
func or[T integer](a, b T) T  { return a | b }
func xor[T integer](a, b T) T { return a ^ b }

// Binary handlers pop the left operand first; call sites push it last.

func compare[T number](cmp func(a, b T) bool) func(*Machine) {
	return func(m *Machine) {
		lhs := pop[T](m)
		rhs := pop[T](m)
		m.PushChar(boolChar(cmp(lhs, rhs)))
		m.IP++
	}
}

func arith[T number](f func(a, b T) T) func(*Machine) {
	return func(m *Machine) {
		lhs := pop[T](m)
		rhs := pop[T](m)
		push(m, f(lhs, rhs))
		m.IP++
	}
}

func bitwise[T integer](f func(a, b T) T) func(*Machine) {
	return func(m *Machine) {
		lhs := pop[T](m)
		rhs := pop[T](m)
		push(m, f(lhs, rhs))
		m.IP++
	}
}

func divide[T number](m *Machine) {
	lhs := pop[T](m)
	rhs := pop[T](m)
	if _, isFloat := any(rhs).(float32); !isFloat && rhs == 0 {
		fault(ErrDivideByZero)
	}
	push(m, lhs/rhs)
	m.IP++
}

func negate[T number](m *Machine) {
	push(m, -pop[T](m))
	m.IP++
}

func shiftLeft[T integer](m *Machine) {
	lhs := pop[T](m)
	n := m.PopInt()
	if n < 0 {
		fault(fmt.Errorf("%w: %d", ErrNegativeShift, n))
	}
	push(m, lhs<<uint32(n))
	m.IP++
}

func shiftRight[T integer](m *Machine) {
	lhs := pop[T](m)
	n := m.PopInt()
	if n < 0 {
		fault(fmt.Errorf("%w: %d", ErrNegativeShift, n))
	}
	push(m, lhs>>uint32(n))
	m.IP++
}

func opLoadFP(m *Machine) {
	m.PushPtr(m.FP)
	m.IP++
}

func opLoadBytesFrom(m *Machine) {
	size := m.popSize()
	addr := m.PopPtr()
	m.mem.Move(m.reserve(size), addr, size)
	m.IP++
}

func opLoadConstChar(m *Machine) {
	m.PushChar(m.mem.Char(m.IP + 1))
	m.IP += 1 + CharSize
}

func opLoadConstInt(m *Machine) {
	m.PushInt(m.operandInt(0))
	m.IP += 1 + IntSize
}

func opLoadConstFloat(m *Machine) {
	m.PushFloat(m.mem.Float(m.IP + 1))
	m.IP += 1 + FloatSize
}

func opLoadConstPtr(m *Machine) {
	m.PushPtr(m.mem.Ptr(m.IP + 1))
	m.IP += 1 + PtrSize
}

func opWriteIP(m *Machine) {
	m.IP = m.PopPtr()
}

func opWriteIPIf(m *Machine) {
	cond := m.PopChar()
	target := m.PopPtr()
	if cond > 0 {
		m.IP = target
		return
	}
	m.IP++
}

func opWriteBytesTo(m *Machine) {
	size := m.popSize()
	addr := m.PopPtr()
	m.mem.Move(addr, m.release(size), size)
	m.IP++
}

func opCall(m *Machine) {
	params := m.operandInt(0)
	locals := m.operandInt(IntSize)
	if params < 0 || locals < 0 {
		fault(fmt.Errorf("%w: frame of %d params, %d locals", ErrOutOfRange, params, locals))
	}
	ret := m.IP + 1 + 2*IntSize
	target := m.PopPtr()

	m.mem.Zero(m.reserve(uint64(locals)), uint64(locals))
	m.PushInt(params + locals)
	m.PushPtr(ret)
	m.PushPtr(m.FP)
	m.FP = m.SP
	m.IP = target
}

func opReturn(m *Machine) {
	size := m.operandInt(0)
	if size < 0 || uint64(size) > m.SP {
		fault(fmt.Errorf("%w: return of %d bytes", ErrOutOfRange, size))
	}
	n := uint64(size)
	retAddr := m.SP - n

	m.SP = m.FP
	m.FP = m.PopPtr()
	m.IP = m.PopPtr()
	m.release(m.popSize())

	m.mem.Move(m.reserve(n), retAddr, n)
}

func opCallNative(m *Machine) {
	idx := m.PopPtr()
	if idx >= uint64(len(m.natives)) {
		fault(fmt.Errorf("%w: index %d", ErrUnknownNative, idx))
	}
	nat := m.natives[idx]

	args := make(Args, len(nat.ParamSizes))
	for i, size := range nat.ParamSizes {
		args[i] = m.PopBytes(uint64(size))
	}

	res, err := nat.Fn(args)
	if err != nil {
		fault(fmt.Errorf("native %s: %w", nat.Name, err))
	}
	if len(res) != nat.ReturnSize {
		fault(fmt.Errorf("%w: %s returned %d bytes, declared %d", ErrNativeResult, nat.Name, len(res), nat.ReturnSize))
	}
	m.PushBytes(res)
	m.IP++
}

func opNot(m *Machine) {
	m.PushChar(boolChar(m.PopChar() <= 0))
	m.IP++
}

func opAnd(m *Machine) {
	lhs := m.PopChar()
	rhs := m.PopChar()
	m.PushChar(boolChar(lhs > 0 && rhs > 0))
	m.IP++
}

func opOr(m *Machine) {
	lhs := m.PopChar()
	rhs := m.PopChar()
	m.PushChar(boolChar(lhs > 0 || rhs > 0))
	m.IP++
}

func opPtrAdd(m *Machine) {
	lhs := m.PopPtr()
	rhs := m.PopInt()
	m.PushPtr(lhs + uint64(int64(rhs)))
	m.IP++
}

func opPtrSub(m *Machine) {
	lhs := m.PopPtr()
	rhs := m.PopInt()
	m.PushPtr(lhs - uint64(int64(rhs)))
	m.IP++
}

// handlers is the dispatch table, indexed by opcode byte.
var handlers = [opCount]func(*Machine){
	OpLoadFP:         opLoadFP,
	OpLoadBytesFrom:  opLoadBytesFrom,
	OpLoadConstChar:  opLoadConstChar,
	OpLoadConstInt:   opLoadConstInt,
	OpLoadConstFloat: opLoadConstFloat,
	OpLoadConstPtr:   opLoadConstPtr,

	OpWriteIP:      opWriteIP,
	OpWriteIPIf:    opWriteIPIf,
	OpWriteBytesTo: opWriteBytesTo,
	OpCall:         opCall,
	OpReturn:       opReturn,
	OpCallNative:   opCallNative,

	OpCharEqual:          compare(eq[int8]),
	OpCharLess:           compare(lt[int8]),
	OpCharGreater:        compare(gt[int8]),
	OpCharLessOrEqual:    compare(le[int8]),
	OpCharGreaterOrEqual: compare(ge[int8]),
	OpCharNotEqual:       compare(ne[int8]),
	OpCharAdd:            arith(add[int8]),
	OpCharSub:            arith(sub[int8]),
	OpCharMul:            arith(mul[int8]),
	OpCharDiv:            divide[int8],
	OpCharNegate:         negate[int8],
	OpNot:                opNot,
	OpAnd:                opAnd,
	OpOr:                 opOr,

	OpIntEqual:          compare(eq[int32]),
	OpIntLess:           compare(lt[int32]),
	OpIntGreater:        compare(gt[int32]),
	OpIntLessOrEqual:    compare(le[int32]),
	OpIntGreaterOrEqual: compare(ge[int32]),
	OpIntNotEqual:       compare(ne[int32]),
	OpIntAdd:            arith(add[int32]),
	OpIntSub:            arith(sub[int32]),
	OpIntMul:            arith(mul[int32]),
	OpIntDiv:            divide[int32],
	OpIntNegate:         negate[int32],

	OpFloatEqual:          compare(eq[float32]),
	OpFloatLess:           compare(lt[float32]),
	OpFloatGreater:        compare(gt[float32]),
	OpFloatLessOrEqual:    compare(le[float32]),
	OpFloatGreaterOrEqual: compare(ge[float32]),
	OpFloatNotEqual:       compare(ne[float32]),
	OpFloatAdd:            arith(add[float32]),
	OpFloatSub:            arith(sub[float32]),
	OpFloatMul:            arith(mul[float32]),
	OpFloatDiv:            divide[float32],
	OpFloatNegate:         negate[float32],

	OpPtrAdd: opPtrAdd,
	OpPtrSub: opPtrSub,

	OpBit8And:        bitwise(and[int8]),
	OpBit8Or:         bitwise(or[int8]),
	OpBit8Xor:        bitwise(xor[int8]),
	OpBit8LeftShift:  shiftLeft[int8],
	OpBit8RightShift: shiftRight[int8],

	OpBit32And:        bitwise(and[int32]),
	OpBit32Or:         bitwise(or[int32]),
	OpBit32Xor:        bitwise(xor[int32]),
	OpBit32LeftShift:  shiftLeft[int32],
	OpBit32RightShift: shiftRight[int32],
}
