package vm

import "fmt"

// OpCode is a single bytecode instruction. Operands, where present, follow
// the opcode byte inline in the code region.
type OpCode byte

const (
	OpLoadFP        OpCode = iota // push FP
	OpLoadBytesFrom               // pop size:int, addr:ptr; push size bytes from addr
	OpLoadConstChar               // push inline char
	OpLoadConstInt                // push inline int
	OpLoadConstFloat              // push inline float
	OpLoadConstPtr                // push inline ptr

	OpWriteIP      // pop ptr; IP = ptr
	OpWriteIPIf    // pop cond:char, target:ptr; IP = target if cond > 0
	OpWriteBytesTo // pop size:int, addr:ptr, then size bytes; store them at addr
	OpCall         // inline params:int, locals:int; pop target
	OpReturn       // inline size:int
	OpCallNative   // pop native index

	OpCharEqual
	OpCharLess
	OpCharGreater
	OpCharLessOrEqual
	OpCharGreaterOrEqual
	OpCharNotEqual
	OpCharAdd
	OpCharSub
	OpCharMul
	OpCharDiv
	OpCharNegate
	OpNot
	OpAnd
	OpOr

	OpIntEqual
	OpIntLess
	OpIntGreater
	OpIntLessOrEqual
	OpIntGreaterOrEqual
	OpIntNotEqual
	OpIntAdd
	OpIntSub
	OpIntMul
	OpIntDiv
	OpIntNegate

	OpFloatEqual
	OpFloatLess
	OpFloatGreater
	OpFloatLessOrEqual
	OpFloatGreaterOrEqual
	OpFloatNotEqual
	OpFloatAdd
	OpFloatSub
	OpFloatMul
	OpFloatDiv
	OpFloatNegate

	OpPtrAdd
	OpPtrSub

	OpBit8And
	OpBit8Or
	OpBit8Xor
	OpBit8LeftShift
	OpBit8RightShift

	OpBit32And
	OpBit32Or
	OpBit32Xor
	OpBit32LeftShift
	OpBit32RightShift

	OpInvalid // sentinel: table entry with no builtin, never emitted
)

// opCount is the number of dispatchable opcodes.
const opCount = int(OpInvalid)

var opNames = [...]string{
	OpLoadFP:         "LOAD_FP",
	OpLoadBytesFrom:  "LOAD_BYTES_FROM",
	OpLoadConstChar:  "LOAD_CONST_CHAR",
	OpLoadConstInt:   "LOAD_CONST_INT",
	OpLoadConstFloat: "LOAD_CONST_FLOAT",
	OpLoadConstPtr:   "LOAD_CONST_PTR",

	OpWriteIP:      "WRITE_IP",
	OpWriteIPIf:    "WRITE_IP_IF",
	OpWriteBytesTo: "WRITE_BYTES_TO",
	OpCall:         "CALL",
	OpReturn:       "RETURN",
	OpCallNative:   "CALL_NATIVE",

	OpCharEqual:          "CHAR_EQ",
	OpCharLess:           "CHAR_LT",
	OpCharGreater:        "CHAR_GT",
	OpCharLessOrEqual:    "CHAR_LE",
	OpCharGreaterOrEqual: "CHAR_GE",
	OpCharNotEqual:       "CHAR_NE",
	OpCharAdd:            "CHAR_ADD",
	OpCharSub:            "CHAR_SUB",
	OpCharMul:            "CHAR_MUL",
	OpCharDiv:            "CHAR_DIV",
	OpCharNegate:         "CHAR_NEG",
	OpNot:                "NOT",
	OpAnd:                "AND",
	OpOr:                 "OR",

	OpIntEqual:          "INT_EQ",
	OpIntLess:           "INT_LT",
	OpIntGreater:        "INT_GT",
	OpIntLessOrEqual:    "INT_LE",
	OpIntGreaterOrEqual: "INT_GE",
	OpIntNotEqual:       "INT_NE",
	OpIntAdd:            "INT_ADD",
	OpIntSub:            "INT_SUB",
	OpIntMul:            "INT_MUL",
	OpIntDiv:            "INT_DIV",
	OpIntNegate:         "INT_NEG",

	OpFloatEqual:          "FLOAT_EQ",
	OpFloatLess:           "FLOAT_LT",
	OpFloatGreater:        "FLOAT_GT",
	OpFloatLessOrEqual:    "FLOAT_LE",
	OpFloatGreaterOrEqual: "FLOAT_GE",
	OpFloatNotEqual:       "FLOAT_NE",
	OpFloatAdd:            "FLOAT_ADD",
	OpFloatSub:            "FLOAT_SUB",
	OpFloatMul:            "FLOAT_MUL",
	OpFloatDiv:            "FLOAT_DIV",
	OpFloatNegate:         "FLOAT_NEG",

	OpPtrAdd: "PTR_ADD",
	OpPtrSub: "PTR_SUB",

	OpBit8And:        "BIT8_AND",
	OpBit8Or:         "BIT8_OR",
	OpBit8Xor:        "BIT8_XOR",
	OpBit8LeftShift:  "BIT8_SHL",
	OpBit8RightShift: "BIT8_SHR",

	OpBit32And:        "BIT32_AND",
	OpBit32Or:         "BIT32_OR",
	OpBit32Xor:        "BIT32_XOR",
	OpBit32LeftShift:  "BIT32_SHL",
	OpBit32RightShift: "BIT32_SHR",

	OpInvalid: "INVALID",
}

func (op OpCode) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("OP(0x%02X)", byte(op))
}

// OperandSize returns the number of inline operand bytes following op.
func (op OpCode) OperandSize() int {
	switch op {
	case OpLoadConstChar:
		return CharSize
	case OpLoadConstInt:
		return IntSize
	case OpLoadConstFloat:
		return FloatSize
	case OpLoadConstPtr:
		return PtrSize
	case OpCall:
		return 2 * IntSize
	case OpReturn:
		return IntSize
	}
	return 0
}
