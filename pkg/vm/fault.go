package vm

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfRange     = errors.New("memory access out of range")
	ErrStackOverflow  = errors.New("stack overflow")
	ErrDivideByZero   = errors.New("integer division by zero")
	ErrNegativeShift  = errors.New("negative shift count")
	ErrInvalidOpcode  = errors.New("invalid opcode")
	ErrUnknownNative  = errors.New("unknown native function")
	ErrNativeResult   = errors.New("native result size mismatch")
	ErrNativeArgument = errors.New("native argument size mismatch")
)

// Fault is a runtime failure raised by the machine. IP and Op identify the
// instruction that was executing.
type Fault struct {
	IP  uint64
	Op  OpCode
	Err error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("vm fault at ip=%d (%s): %v", f.IP, f.Op, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

func fault(err error) {
	panic(&Fault{Err: err})
}
