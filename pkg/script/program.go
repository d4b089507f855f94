// Package script is the host-facing handle on a compiled script: bind host
// functions and structs, compile from a file or source, and execute the
// entry function with typed arguments.
package script

import (
	"errors"
	"fmt"
	"os"

	"scriptvm/pkg/compiler"
	"scriptvm/pkg/vm"
)

var (
	ErrNotCompiled  = errors.New("program is not compiled")
	ErrReturnSize   = errors.New("return type does not match the entry function")
	ErrArgumentSize = errors.New("arguments do not match the entry function parameters")
)

// DefaultStackSize is the stack given to a program when none is configured.
const DefaultStackSize = 64 * 1024

// Program owns the host bindings and the current compiled image of one
// script. It is not safe for concurrent use.
type Program struct {
	path      string
	stackSize int
	entry     string

	reg *compiler.Registry
	img *compiler.Image
	mem []byte // execution arena, rebuilt when the image changes
}

// NewProgram binds a program to the script at path. A zero stackSize or empty
// entry selects the defaults.
func NewProgram(path string, stackSize int, entry string) *Program {
	if stackSize <= 0 {
		stackSize = DefaultStackSize
	}
	if entry == "" {
		entry = compiler.DefaultEntry
	}
	return &Program{path: path, stackSize: stackSize, entry: entry, reg: compiler.NewRegistry()}
}

func (p *Program) Path() string  { return p.path }
func (p *Program) Entry() string { return p.entry }

// AddFunction binds a host function. Names of the form "operator<symbol>"
// bind an operator for the type of the first parameter.
func (p *Program) AddFunction(ret, name string, params []string, fn vm.NativeFunc) error {
	return p.reg.AddFunction(ret, name, params, fn)
}

// AddStruct binds a host struct type.
func (p *Program) AddStruct(name string, fields ...compiler.Field) error {
	return p.reg.AddStruct(name, fields...)
}

// Compile reads the bound file and compiles it. The current image is kept
// when compilation fails.
func (p *Program) Compile() error {
	src, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	return p.CompileSource(string(src))
}

// CompileSource compiles src and swaps it in on success.
func (p *Program) CompileSource(src string) error {
	img, err := compiler.Compile(src, p.reg, compiler.Options{Entry: p.entry})
	if err != nil {
		return err
	}
	p.setImage(img)
	return nil
}

func (p *Program) setImage(img *compiler.Image) {
	p.img = img
	p.mem = nil
}

// Compiled reports whether an image is loaded.
func (p *Program) Compiled() bool { return p.img != nil }

// Image returns the current image, or nil.
func (p *Program) Image() *compiler.Image { return p.img }

// Execute runs the entry function. ret names the expected return type and
// args are the encoded parameters in declaration order.
func (p *Program) Execute(ret string, args ...vm.Value) (vm.Value, error) {
	img := p.img
	if img == nil {
		return nil, ErrNotCompiled
	}
	if ret != img.EntryReturnType {
		size, ok := p.reg.TypeSize(ret)
		if !ok || size != img.EntryReturnSize {
			return nil, fmt.Errorf("%w: %s returns %s, not %s", ErrReturnSize, img.Entry, img.EntryReturnType, ret)
		}
	}
	if len(args) != len(img.EntryParamSizes) {
		return nil, fmt.Errorf("%w: %s takes %v, got %d values", ErrArgumentSize, img.Entry, img.EntryParams, len(args))
	}
	for i, a := range args {
		if len(a) != img.EntryParamSizes[i] {
			return nil, fmt.Errorf("%w: %s parameter %d is %s (%d bytes), got %d bytes",
				ErrArgumentSize, img.Entry, i, img.EntryParams[i], img.EntryParamSizes[i], len(a))
		}
	}

	if p.mem == nil {
		p.mem = make([]byte, int(img.CodeEnd)+p.stackSize)
		copy(p.mem, img.Code)
	}
	// The first argument ends at the scratch boundary, the rest below it.
	at := img.ArgsSize
	for _, a := range args {
		at -= len(a)
		copy(p.mem[at:], a)
	}

	m := vm.New(vm.NewMemory(p.mem), img.Natives)
	if err := m.Run(img.CodeStart(), img.CodeEnd); err != nil {
		return nil, fmt.Errorf("execute %s: %w", img.Entry, err)
	}
	out := make(vm.Value, img.EntryReturnSize)
	copy(out, p.mem[img.CodeEnd:])
	return out, nil
}
