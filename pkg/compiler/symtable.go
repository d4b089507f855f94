package compiler

import (
	"fmt"
	"sort"
	"strings"

	"scriptvm/pkg/vm"
)

// Primitive type names.
const (
	TypeChar  = "char"
	TypeInt   = "int"
	TypeFloat = "float"
	TypePtr   = "ptr"
	TypeVoid  = "void"

	// anyType is the expected type when the type is inferred from the first
	// operand instead of the context.
	anyType = "__any__"

	// negateOp is the operator key for unary minus.
	negateOp = "negate"
)

var primitiveSizes = map[string]int{
	TypeChar:  vm.CharSize,
	TypeInt:   vm.IntSize,
	TypeFloat: vm.FloatSize,
	TypePtr:   vm.PtrSize,
	TypeVoid:  0,
}

// builtinOps is the per-primitive opcode table. A missing entry means the
// operator is not defined for the type.
var builtinOps = map[string]map[string]vm.OpCode{
	TypeChar: {
		"+": vm.OpCharAdd, "-": vm.OpCharSub, "*": vm.OpCharMul, "/": vm.OpCharDiv,
		"&": vm.OpBit8And, "|": vm.OpBit8Or, "^": vm.OpBit8Xor, "<<": vm.OpBit8LeftShift, ">>": vm.OpBit8RightShift,
		"<": vm.OpCharLess, ">": vm.OpCharGreater, "==": vm.OpCharEqual,
		"<=": vm.OpCharLessOrEqual, ">=": vm.OpCharGreaterOrEqual, "!=": vm.OpCharNotEqual,
		"&&": vm.OpAnd, "||": vm.OpOr, negateOp: vm.OpCharNegate, "!": vm.OpNot,
	},
	TypeInt: {
		"+": vm.OpIntAdd, "-": vm.OpIntSub, "*": vm.OpIntMul, "/": vm.OpIntDiv,
		"&": vm.OpBit32And, "|": vm.OpBit32Or, "^": vm.OpBit32Xor, "<<": vm.OpBit32LeftShift, ">>": vm.OpBit32RightShift,
		"<": vm.OpIntLess, ">": vm.OpIntGreater, "==": vm.OpIntEqual,
		"<=": vm.OpIntLessOrEqual, ">=": vm.OpIntGreaterOrEqual, "!=": vm.OpIntNotEqual,
		negateOp: vm.OpIntNegate,
	},
	TypeFloat: {
		"+": vm.OpFloatAdd, "-": vm.OpFloatSub, "*": vm.OpFloatMul, "/": vm.OpFloatDiv,
		"&": vm.OpBit32And, "|": vm.OpBit32Or, "^": vm.OpBit32Xor, "<<": vm.OpBit32LeftShift, ">>": vm.OpBit32RightShift,
		"<": vm.OpFloatLess, ">": vm.OpFloatGreater, "==": vm.OpFloatEqual,
		"<=": vm.OpFloatLessOrEqual, ">=": vm.OpFloatGreaterOrEqual, "!=": vm.OpFloatNotEqual,
		negateOp: vm.OpFloatNegate,
	},
	TypePtr: {
		"+": vm.OpPtrAdd, "-": vm.OpPtrSub,
	},
}

// nativeOperatorSymbols are the operators a host may bind as
// "operator<symbol>".
var nativeOperatorSymbols = map[string]bool{
	"+": true, "-": true, "*": true, "/": true,
	"<": true, ">": true, "<=": true, ">=": true, "==": true, "!=": true,
	"<<": true, ">>": true, "&": true, "|": true, "^": true,
}

func isComparison(op string) bool {
	switch op {
	case "<", ">", "<=", ">=", "==", "!=":
		return true
	}
	return false
}

// VariableInfo locates a parameter or local: the value lives at
// FP - FrameHeaderSize - Offset.
type VariableInfo struct {
	Type   string
	Offset int
}

// FunctionInfo describes a script function or operator overload.
type FunctionInfo struct {
	Label      string // code label; the name, or type+operator for overloads
	ReturnType string
	ReturnSize int
	LocalsSize int
	ParamsSize int
	Params     []string // parameter names in declaration order
	ParamTypes []string
	Vars       map[string]VariableInfo
	Line       int
}

// StructInfo is a flat struct layout. Fields are packed in declaration order
// without padding.
type StructInfo struct {
	Name       string
	Properties []string
	Fields     map[string]VariableInfo // Offset is the byte offset within the struct
	Size       int
}

// NativeFunctionInfo is a host function bound into the registry. Index
// selects its entry in the machine's native table.
type NativeFunctionInfo struct {
	Name       string
	ReturnType string
	Params     []string // parameter type names
	Index      int
}

// Field is one (type, name) pair of a struct registration.
type Field struct {
	Type string
	Name string
}

// Registry holds the host-provided structs, native functions and native
// operators a program is compiled against.
type Registry struct {
	structs   map[string]*StructInfo
	natives   map[string]*NativeFunctionInfo
	nativeOps map[string]map[string]*NativeFunctionInfo
	bindings  []vm.Native
}

func NewRegistry() *Registry {
	return &Registry{
		structs:   make(map[string]*StructInfo),
		natives:   make(map[string]*NativeFunctionInfo),
		nativeOps: make(map[string]map[string]*NativeFunctionInfo),
	}
}

func validName(name string) bool {
	if name == "" || name[0] >= '0' && name[0] <= '9' {
		return false
	}
	for _, r := range name {
		if !isNameRune(r) {
			return false
		}
	}
	return true
}

// TypeSize returns the byte size of a primitive or registered struct type.
func (r *Registry) TypeSize(name string) (int, bool) {
	if size, ok := primitiveSizes[name]; ok {
		return size, true
	}
	if st, ok := r.structs[name]; ok {
		return st.Size, true
	}
	return 0, false
}

// Struct returns the layout of a registered struct.
func (r *Registry) Struct(name string) (*StructInfo, bool) {
	st, ok := r.structs[name]
	return st, ok
}

// AddStruct registers a flat struct type.
func (r *Registry) AddStruct(name string, fields ...Field) error {
	st, err := buildStruct(name, fields, r.TypeSize)
	if err != nil {
		return err
	}
	if _, ok := r.natives[name]; ok {
		return fmt.Errorf("struct name '%s' is already used by a native function", name)
	}
	r.structs[name] = st
	return nil
}

// buildStruct validates fields and lays them out. sizeOf resolves field types
// and reports whether the struct name is already taken.
func buildStruct(name string, fields []Field, sizeOf func(string) (int, bool)) (*StructInfo, error) {
	if !validName(name) {
		return nil, fmt.Errorf("invalid struct name '%s'", name)
	}
	if _, ok := sizeOf(name); ok {
		return nil, fmt.Errorf("type '%s' is already defined", name)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("struct '%s' has no properties", name)
	}

	st := &StructInfo{Name: name, Fields: make(map[string]VariableInfo, len(fields))}
	for _, f := range fields {
		if f.Type == name {
			return nil, fmt.Errorf("struct '%s' cannot contain itself", name)
		}
		size, ok := sizeOf(f.Type)
		if !ok {
			return nil, fmt.Errorf("type name '%s' in struct '%s' is not defined", f.Type, name)
		}
		if f.Type == TypeVoid {
			return nil, fmt.Errorf("property '%s' in struct '%s' cannot be void", f.Name, name)
		}
		if !validName(f.Name) {
			return nil, fmt.Errorf("invalid property name '%s' in struct '%s'", f.Name, name)
		}
		if _, dup := st.Fields[f.Name]; dup {
			return nil, fmt.Errorf("property '%s' is already defined in struct '%s'", f.Name, name)
		}
		st.Fields[f.Name] = VariableInfo{Type: f.Type, Offset: st.Size}
		st.Properties = append(st.Properties, f.Name)
		st.Size += size
	}
	return st, nil
}

// AddFunction binds a native function. Names of the form "operator<symbol>"
// register an operator for the type of the first parameter instead; a unary
// minus is stored as "negate".
func (r *Registry) AddFunction(ret, name string, params []string, fn vm.NativeFunc) error {
	if fn == nil {
		return fmt.Errorf("native function '%s' has no implementation", name)
	}
	retSize, ok := r.TypeSize(ret)
	if !ok {
		return fmt.Errorf("return type '%s' of native function '%s' is not defined", ret, name)
	}
	paramSizes := make([]int, len(params))
	for i, p := range params {
		size, ok := r.TypeSize(p)
		if !ok || p == TypeVoid {
			return fmt.Errorf("parameter type '%s' of native function '%s' is not defined", p, name)
		}
		paramSizes[i] = size
	}

	info := &NativeFunctionInfo{Name: name, ReturnType: ret, Params: append([]string(nil), params...)}

	if sym, isOp := strings.CutPrefix(name, "operator"); isOp && nativeOperatorSymbols[sym] {
		key, err := operatorKey(sym, len(params), ret)
		if err != nil {
			return fmt.Errorf("native %s", err)
		}
		operand := params[0]
		if r.nativeOps[operand] == nil {
			r.nativeOps[operand] = make(map[string]*NativeFunctionInfo)
		}
		if _, dup := r.nativeOps[operand][key]; dup {
			return fmt.Errorf("native operator '%s' for type '%s' is already defined", sym, operand)
		}
		r.nativeOps[operand][key] = info
	} else {
		if !validName(name) {
			return fmt.Errorf("invalid native function name '%s'", name)
		}
		if _, dup := r.natives[name]; dup {
			return fmt.Errorf("native function '%s' is already defined", name)
		}
		if _, isType := r.TypeSize(name); isType {
			return fmt.Errorf("native function name '%s' is already used by a type", name)
		}
		r.natives[name] = info
	}

	info.Index = len(r.bindings)
	r.bindings = append(r.bindings, vm.Native{Name: name, ParamSizes: paramSizes, ReturnSize: retSize, Fn: fn})
	return nil
}

// operatorKey validates an operator signature and returns its table key.
func operatorKey(sym string, nParams int, ret string) (string, error) {
	switch {
	case nParams == 1 && sym == "-":
		return negateOp, nil
	case nParams != 2:
		return "", fmt.Errorf("operator '%s' takes 2 parameters, got %d", sym, nParams)
	case ret == TypeVoid:
		return "", fmt.Errorf("operator '%s' must return a value", sym)
	case isComparison(sym) && ret != TypeChar:
		return "", fmt.Errorf("comparison operator '%s' must return char, not '%s'", sym, ret)
	}
	return sym, nil
}

// NativeNames returns the set of plain native function names.
func (r *Registry) NativeNames() map[string]bool {
	names := make(map[string]bool, len(r.natives))
	for name := range r.natives {
		names[name] = true
	}
	return names
}

// Natives returns the machine binding table, indexed like
// NativeFunctionInfo.Index.
func (r *Registry) Natives() []vm.Native {
	return append([]vm.Native(nil), r.bindings...)
}

// String lists the registry contents in a stable order.
func (r *Registry) String() string {
	var sb strings.Builder
	names := make([]string, 0, len(r.structs))
	for name := range r.structs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		st := r.structs[name]
		fmt.Fprintf(&sb, "struct %s (%d bytes)\n", name, st.Size)
		for _, prop := range st.Properties {
			f := st.Fields[prop]
			fmt.Fprintf(&sb, "  %-6d %s %s\n", f.Offset, f.Type, prop)
		}
	}
	for _, b := range r.bindings {
		fmt.Fprintf(&sb, "native %s params=%v ret=%d\n", b.Name, b.ParamSizes, b.ReturnSize)
	}
	return sb.String()
}
