package compiler

import "scriptvm/pkg/vm"

// Expr is a typed IR node. The set of implementations is closed: emit is
// unexported.
type Expr interface {
	// Type is the name of the type the expression leaves on the stack, or
	// "void" for statements.
	Type() string
	emit(cb *CodeBuilder, s labelScope)
}

func emitAll(cb *CodeBuilder, s labelScope, exprs []Expr) {
	for _, e := range exprs {
		e.emit(cb, s)
	}
}

type loadConstChar struct{ v int8 }

func (e *loadConstChar) Type() string { return TypeChar }
func (e *loadConstChar) emit(cb *CodeBuilder, _ labelScope) {
	cb.Op(vm.OpLoadConstChar)
	cb.ConstChar(e.v)
}

type loadConstInt struct{ v int32 }

func (e *loadConstInt) Type() string { return TypeInt }
func (e *loadConstInt) emit(cb *CodeBuilder, _ labelScope) {
	cb.Op(vm.OpLoadConstInt)
	cb.ConstInt(e.v)
}

type loadConstFloat struct{ v float32 }

func (e *loadConstFloat) Type() string { return TypeFloat }
func (e *loadConstFloat) emit(cb *CodeBuilder, _ labelScope) {
	cb.Op(vm.OpLoadConstFloat)
	cb.ConstFloat(e.v)
}

type loadConstPtr struct{ v uint64 }

func (e *loadConstPtr) Type() string { return TypePtr }
func (e *loadConstPtr) emit(cb *CodeBuilder, _ labelScope) {
	cb.Op(vm.OpLoadConstPtr)
	cb.ConstPtr(e.v)
}

type loadConstPtrToLabel struct{ label string }

func (e *loadConstPtrToLabel) Type() string { return TypePtr }
func (e *loadConstPtrToLabel) emit(cb *CodeBuilder, _ labelScope) {
	cb.Op(vm.OpLoadConstPtr)
	cb.ConstPtrToLabel(e.label)
}

// loadConstBytes pushes size raw bytes copied from a fixed address.
type loadConstBytes struct {
	addr uint64
	size int
	typ  string
}

func (e *loadConstBytes) Type() string { return e.typ }
func (e *loadConstBytes) emit(cb *CodeBuilder, s labelScope) {
	(&loadConstPtr{e.addr}).emit(cb, s)
	(&loadConstInt{int32(e.size)}).emit(cb, s)
	cb.Op(vm.OpLoadBytesFrom)
}

// loadVariablePtr pushes FP - FrameHeaderSize - offset.
type loadVariablePtr struct{ offset int }

func (e *loadVariablePtr) Type() string { return TypePtr }
func (e *loadVariablePtr) emit(cb *CodeBuilder, s labelScope) {
	(&loadConstInt{int32(-(vm.FrameHeaderSize + e.offset))}).emit(cb, s)
	cb.Op(vm.OpLoadFP)
	cb.Op(vm.OpPtrAdd)
}

type loadVariable struct {
	offset int
	size   int
	typ    string
}

func (e *loadVariable) Type() string { return e.typ }
func (e *loadVariable) emit(cb *CodeBuilder, s labelScope) {
	(&loadVariablePtr{e.offset}).emit(cb, s)
	(&loadConstInt{int32(e.size)}).emit(cb, s)
	cb.Op(vm.OpLoadBytesFrom)
}

// loadMulti builds a struct value by pushing its fields in declaration
// order, so the first field ends up at the lowest address.
type loadMulti struct {
	typ    string
	fields []Expr
}

func (e *loadMulti) Type() string                       { return e.typ }
func (e *loadMulti) emit(cb *CodeBuilder, s labelScope) { emitAll(cb, s, e.fields) }

type writeBytesTo struct {
	ptr   Expr
	value Expr
	size  int
}

func (e *writeBytesTo) Type() string { return TypeVoid }
func (e *writeBytesTo) emit(cb *CodeBuilder, s labelScope) {
	e.value.emit(cb, s)
	e.ptr.emit(cb, s)
	(&loadConstInt{int32(e.size)}).emit(cb, s)
	cb.Op(vm.OpWriteBytesTo)
}

// pushArgs emits call arguments in reverse so the first ends on top.
func pushArgs(cb *CodeBuilder, s labelScope, args []Expr) {
	for i := len(args) - 1; i >= 0; i-- {
		args[i].emit(cb, s)
	}
}

type callFunction struct {
	fn   *FunctionInfo
	args []Expr
}

func (e *callFunction) Type() string { return e.fn.ReturnType }
func (e *callFunction) emit(cb *CodeBuilder, s labelScope) {
	pushArgs(cb, s, e.args)
	(&loadConstPtrToLabel{e.fn.Label}).emit(cb, s)
	cb.Op(vm.OpCall)
	cb.ConstInt(int32(e.fn.ParamsSize))
	cb.ConstInt(int32(e.fn.LocalsSize))
}

type callNative struct {
	fn   *NativeFunctionInfo
	args []Expr
}

func (e *callNative) Type() string { return e.fn.ReturnType }
func (e *callNative) emit(cb *CodeBuilder, s labelScope) {
	pushArgs(cb, s, e.args)
	(&loadConstPtr{uint64(e.fn.Index)}).emit(cb, s)
	cb.Op(vm.OpCallNative)
}

// binaryOp evaluates rhs first so that lhs is on top for the handler.
type binaryOp struct {
	op       vm.OpCode
	lhs, rhs Expr
	typ      string
}

func (e *binaryOp) Type() string { return e.typ }
func (e *binaryOp) emit(cb *CodeBuilder, s labelScope) {
	e.rhs.emit(cb, s)
	e.lhs.emit(cb, s)
	cb.Op(e.op)
}

type unaryOp struct {
	op      vm.OpCode
	operand Expr
	typ     string
}

func (e *unaryOp) Type() string { return e.typ }
func (e *unaryOp) emit(cb *CodeBuilder, s labelScope) {
	e.operand.emit(cb, s)
	cb.Op(e.op)
}

type returnExpr struct {
	value Expr // nil for a bare return
	size  int
}

func (e *returnExpr) Type() string { return TypeVoid }
func (e *returnExpr) emit(cb *CodeBuilder, s labelScope) {
	if e.value != nil {
		e.value.emit(cb, s)
	}
	cb.Op(vm.OpReturn)
	cb.ConstInt(int32(e.size))
}

// jumpIf pushes the target, then the condition, then a conditional jump.
func jumpIf(cb *CodeBuilder, s labelScope, target string, cond Expr) {
	cb.Op(vm.OpLoadConstPtr)
	cb.ConstPtrToLabel(target)
	cond.emit(cb, s)
	cb.Op(vm.OpWriteIPIf)
}

func jump(cb *CodeBuilder, target string) {
	cb.Op(vm.OpLoadConstPtr)
	cb.ConstPtrToLabel(target)
	cb.Op(vm.OpWriteIP)
}

// emitArm emits one conditional arm at the depth of s: jump to the body when
// cond holds, otherwise past it. When chained, the body ends with a jump to
// the shared chain end.
func emitArm(cb *CodeBuilder, s labelScope, cond Expr, body []Expr, chained bool) {
	jumpIf(cb, s, s.ifBody(), cond)
	jump(cb, s.ifEnd())
	cb.DefineLabel(s.ifBody())
	emitAll(cb, s, body)
	if chained {
		jump(cb, s.chainEnd())
	}
	cb.DefineLabel(s.ifEnd())
	cb.RemoveLabel(s.ifBody())
	cb.RemoveLabel(s.ifEnd())
}

type ifSingle struct {
	cond Expr
	body []Expr
}

func (e *ifSingle) Type() string { return TypeVoid }
func (e *ifSingle) emit(cb *CodeBuilder, s labelScope) {
	emitArm(cb, s.enterBranch(), e.cond, e.body, false)
}

type ifChain struct {
	cond Expr
	body []Expr
	next Expr // elseIfSingle, elseIfChain or elseExpr
}

func (e *ifChain) Type() string { return TypeVoid }
func (e *ifChain) emit(cb *CodeBuilder, s labelScope) {
	inner := s.enterBranch()
	emitArm(cb, inner, e.cond, e.body, true)
	e.next.emit(cb, inner)
	cb.DefineLabel(inner.chainEnd())
	cb.RemoveLabel(inner.chainEnd())
}

// The else-if and else arms run at the depth of the chain they belong to.

type elseIfSingle struct {
	cond Expr
	body []Expr
}

func (e *elseIfSingle) Type() string { return TypeVoid }
func (e *elseIfSingle) emit(cb *CodeBuilder, s labelScope) {
	emitArm(cb, s, e.cond, e.body, false)
}

type elseIfChain struct {
	cond Expr
	body []Expr
	next Expr
}

func (e *elseIfChain) Type() string { return TypeVoid }
func (e *elseIfChain) emit(cb *CodeBuilder, s labelScope) {
	emitArm(cb, s, e.cond, e.body, true)
	e.next.emit(cb, s)
}

type elseExpr struct{ body []Expr }

func (e *elseExpr) Type() string                       { return TypeVoid }
func (e *elseExpr) emit(cb *CodeBuilder, s labelScope) { emitAll(cb, s, e.body) }

// whileExpr tests at the bottom: jump to the condition, body, condition
// jumping back to the body.
type whileExpr struct {
	cond Expr
	body []Expr
}

func (e *whileExpr) Type() string { return TypeVoid }
func (e *whileExpr) emit(cb *CodeBuilder, s labelScope) {
	inner := s.enterLoop()
	jump(cb, inner.whileCondition())
	cb.DefineLabel(inner.whileBody())
	emitAll(cb, inner, e.body)
	cb.DefineLabel(inner.whileCondition())
	jumpIf(cb, s, inner.whileBody(), e.cond)
	cb.DefineLabel(inner.whileEnd())
	cb.RemoveLabel(inner.whileBody())
	cb.RemoveLabel(inner.whileCondition())
	cb.RemoveLabel(inner.whileEnd())
}

type breakExpr struct{}

func (e *breakExpr) Type() string                       { return TypeVoid }
func (e *breakExpr) emit(cb *CodeBuilder, s labelScope) { jump(cb, s.whileEnd()) }

type continueExpr struct{}

func (e *continueExpr) Type() string                       { return TypeVoid }
func (e *continueExpr) emit(cb *CodeBuilder, s labelScope) { jump(cb, s.whileCondition()) }

type defineFunction struct {
	fn   *FunctionInfo
	body []Expr
}

func (e *defineFunction) Type() string { return TypeVoid }
func (e *defineFunction) emit(cb *CodeBuilder, _ labelScope) {
	cb.DefineLabel(e.fn.Label)
	emitAll(cb, labelScope{}, e.body)
}
