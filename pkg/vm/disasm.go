package vm

import (
	"fmt"
	"strings"
)

// Disassemble returns a listing of the instructions in [start, end) of mem.
// labels, when non-nil, annotates addresses with symbolic names.
func Disassemble(mem *Memory, start, end uint64, labels map[uint64]string) (string, error) {
	var sb strings.Builder
	if end > mem.Len() || start > end {
		return "", fmt.Errorf("%w: [%d,%d) outside arena of %d bytes", ErrOutOfRange, start, end, mem.Len())
	}
	code := mem.Raw()

	for offset := start; offset < end; {
		if name, ok := labels[offset]; ok {
			sb.WriteString(fmt.Sprintf("%s:\n", name))
		}
		sb.WriteString(fmt.Sprintf("%04d ", offset))

		op := OpCode(code[offset])
		if int(op) >= opCount {
			return sb.String(), fmt.Errorf("%w: 0x%02X at %d", ErrInvalidOpcode, byte(op), offset)
		}
		size := uint64(op.OperandSize())
		if offset+1+size > end {
			return sb.String(), fmt.Errorf("truncated %s operand at %d", op, offset)
		}

		switch op {
		case OpLoadConstChar:
			sb.WriteString(fmt.Sprintf("%-18s %d", op, mem.Char(offset+1)))
		case OpLoadConstInt, OpReturn:
			sb.WriteString(fmt.Sprintf("%-18s %d", op, mem.Int(offset+1)))
		case OpLoadConstFloat:
			sb.WriteString(fmt.Sprintf("%-18s %g", op, mem.Float(offset+1)))
		case OpLoadConstPtr:
			ptr := mem.Ptr(offset + 1)
			sb.WriteString(fmt.Sprintf("%-18s %d", op, ptr))
			if name, ok := labels[ptr]; ok {
				sb.WriteString(" ; " + name)
			}
		case OpCall:
			sb.WriteString(fmt.Sprintf("%-18s params=%d locals=%d", op, mem.Int(offset+1), mem.Int(offset+1+IntSize)))
		default:
			sb.WriteString(op.String())
		}
		sb.WriteByte('\n')
		offset += 1 + size
	}
	return sb.String(), nil
}
