package compiler

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"scriptvm/pkg/vm"
)

// CodeBuilder appends bytecode to a growable buffer and resolves labels.
// References to a label that is not yet defined are recorded in patches and
// filled in when DefineLabel runs.
type CodeBuilder struct {
	code    []byte
	labels  map[string]uint64
	patches map[string][]uint64
	symbols map[uint64]string // every label ever defined, for listings
	err     error
}

// NewCodeBuilder returns a builder whose first reserve bytes are left zero
// for the argument scratch area.
func NewCodeBuilder(reserve int) *CodeBuilder {
	return &CodeBuilder{
		code:    make([]byte, reserve, reserve+256),
		labels:  make(map[string]uint64),
		patches: make(map[string][]uint64),
		symbols: make(map[uint64]string),
	}
}

// Len is the address the next byte will be written at.
func (cb *CodeBuilder) Len() uint64 { return uint64(len(cb.code)) }

func (cb *CodeBuilder) Op(op vm.OpCode) { cb.code = append(cb.code, byte(op)) }

func (cb *CodeBuilder) ConstChar(v int8) { cb.code = append(cb.code, byte(v)) }

func (cb *CodeBuilder) ConstInt(v int32) {
	cb.code = binary.LittleEndian.AppendUint32(cb.code, uint32(v))
}

func (cb *CodeBuilder) ConstFloat(v float32) {
	cb.code = binary.LittleEndian.AppendUint32(cb.code, math.Float32bits(v))
}

func (cb *CodeBuilder) ConstPtr(v uint64) {
	cb.code = binary.LittleEndian.AppendUint64(cb.code, v)
}

// ConstPtrToLabel writes the address of name, or a placeholder to be patched
// once name is defined.
func (cb *CodeBuilder) ConstPtrToLabel(name string) {
	if addr, ok := cb.labels[name]; ok {
		cb.ConstPtr(addr)
		return
	}
	cb.patches[name] = append(cb.patches[name], cb.Len())
	cb.ConstPtr(0)
}

// DefineLabel binds name to the current address and patches all pending
// references to it.
func (cb *CodeBuilder) DefineLabel(name string) {
	if _, ok := cb.labels[name]; ok {
		cb.fail(fmt.Errorf("label '%s' is already defined", name))
		return
	}
	addr := cb.Len()
	cb.labels[name] = addr
	cb.symbols[addr] = name
	for _, site := range cb.patches[name] {
		binary.LittleEndian.PutUint64(cb.code[site:], addr)
	}
	delete(cb.patches, name)
}

// RemoveLabel forgets name so it can be defined again. Sites already written
// keep the old address.
func (cb *CodeBuilder) RemoveLabel(name string) {
	delete(cb.labels, name)
}

// Unresolved returns the labels that were referenced but never defined.
func (cb *CodeBuilder) Unresolved() []string {
	var names []string
	for name := range cb.patches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (cb *CodeBuilder) fail(err error) {
	if cb.err == nil {
		cb.err = err
	}
}

// Err returns the first error recorded while building.
func (cb *CodeBuilder) Err() error { return cb.err }

// Bytes returns the built buffer.
func (cb *CodeBuilder) Bytes() []byte { return cb.code }

// Symbols maps addresses to the labels defined there.
func (cb *CodeBuilder) Symbols() map[uint64]string { return cb.symbols }

// labelScope carries the branch and loop nesting depths down through code
// emission. Synthetic labels are named by fixed suffix plus depth; a loop's
// break and continue target the labels of the innermost loop.
type labelScope struct {
	branch int
	loop   int
}

func (s labelScope) ifBody() string   { return fmt.Sprintf("if_body#%d", s.branch) }
func (s labelScope) ifEnd() string    { return fmt.Sprintf("if_end#%d", s.branch) }
func (s labelScope) chainEnd() string { return fmt.Sprintf("chain_end#%d", s.branch) }

func (s labelScope) whileBody() string      { return fmt.Sprintf("while_body#%d", s.loop) }
func (s labelScope) whileCondition() string { return fmt.Sprintf("while_condition#%d", s.loop) }
func (s labelScope) whileEnd() string       { return fmt.Sprintf("while_end#%d", s.loop) }

func (s labelScope) enterBranch() labelScope { return labelScope{branch: s.branch + 1, loop: s.loop} }
func (s labelScope) enterLoop() labelScope   { return labelScope{branch: s.branch, loop: s.loop + 1} }
