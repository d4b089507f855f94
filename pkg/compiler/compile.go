package compiler

import (
	"errors"
	"fmt"
)

// DefaultEntry is the function a program starts in unless Options says
// otherwise.
const DefaultEntry = "main"

const programEnd = "@program_end"

// Options tune a compilation.
type Options struct {
	Entry string // entry function name; DefaultEntry when empty
}

// Compile builds an executable image from src against the host bindings in
// reg. Errors raised by the compiler stages are *Error values carrying the
// offending source line.
func Compile(src string, reg *Registry, opts Options) (*Image, error) {
	img, err := compile(src, reg, opts)
	var ce *Error
	if errors.As(err, &ce) {
		attachSource(ce, src)
	}
	return img, err
}

func compile(src string, reg *Registry, opts Options) (*Image, error) {
	entryName := opts.Entry
	if entryName == "" {
		entryName = DefaultEntry
	}

	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	nodes, err := Structure(tokens, reg.NativeNames())
	if err != nil {
		return nil, err
	}
	prog, err := Parse(nodes, reg)
	if err != nil {
		return nil, err
	}

	entry, ok := prog.Functions[entryName]
	if !ok {
		return nil, errorf(SemanticError, 0, "no function called '%s' found", entryName)
	}

	cb := NewCodeBuilder(entry.ParamsSize)
	emitPrologue(cb, entry)
	emitAll(cb, labelScope{}, prog.Defs)
	cb.DefineLabel(programEnd)

	if err := cb.Err(); err != nil {
		return nil, fmt.Errorf("code generation: %w", err)
	}
	if missing := cb.Unresolved(); len(missing) > 0 {
		return nil, fmt.Errorf("code generation: unresolved labels %v", missing)
	}

	return &Image{
		Code:            cb.Bytes(),
		ArgsSize:        entry.ParamsSize,
		CodeEnd:         cb.Len(),
		Entry:           entryName,
		EntryReturnType: entry.ReturnType,
		EntryReturnSize: entry.ReturnSize,
		EntryParams:     append([]string(nil), entry.ParamTypes...),
		EntryParamSizes: paramSizes(entry, prog.Structs, reg),
		Natives:         reg.Natives(),
		Symbols:         cb.Symbols(),
	}, nil
}

func paramSizes(fn *FunctionInfo, structs map[string]*StructInfo, reg *Registry) []int {
	sizes := make([]int, len(fn.ParamTypes))
	for i, typ := range fn.ParamTypes {
		if st, ok := structs[typ]; ok {
			sizes[i] = st.Size
			continue
		}
		sizes[i], _ = reg.TypeSize(typ)
	}
	return sizes
}

// emitPrologue calls the entry function with the argument scratch area as
// its parameters, then jumps to the end of the program.
func emitPrologue(cb *CodeBuilder, entry *FunctionInfo) {
	var args []Expr
	if entry.ParamsSize > 0 {
		args = append(args, &loadConstBytes{addr: 0, size: entry.ParamsSize, typ: TypeVoid})
	}
	call := &callFunction{fn: entry, args: args}
	call.emit(cb, labelScope{})
	jump(cb, programEnd)
}
