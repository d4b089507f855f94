package compiler

// Parser type-checks the structured tree and lowers it to IR.
//
// Parsing runs in two passes so that definitions may appear in any order:
//
//	declare  structs in source order, then every function and operator
//	         signature with its frame layout
//	lower    function bodies, each expression against the type its context
//	         expects
type Parser struct {
	reg *Registry

	structs map[string]*StructInfo
	funcs   map[string]*FunctionInfo
	userOps map[string]map[string]*FunctionInfo // operand type -> operator key

	fn *FunctionInfo // function whose body is being lowered
}

// Lowered is a type-checked program ready for code generation.
type Lowered struct {
	Functions map[string]*FunctionInfo
	Structs   map[string]*StructInfo
	Defs      []Expr // one defineFunction per definition, in source order
}

// Parse declares and lowers the definitions produced by Structure.
func Parse(nodes []*LexNode, reg *Registry) (*Lowered, error) {
	p := &Parser{
		reg:     reg,
		structs: make(map[string]*StructInfo),
		funcs:   make(map[string]*FunctionInfo),
		userOps: make(map[string]map[string]*FunctionInfo),
	}

	for _, n := range nodes {
		if n.Kind == NodeStructDef {
			if err := p.declareStruct(n); err != nil {
				return nil, err
			}
		}
	}

	declared := make(map[*LexNode]*FunctionInfo)
	for _, n := range nodes {
		if n.Kind == NodeStructDef {
			continue
		}
		fn, err := p.declareFunction(n)
		if err != nil {
			return nil, err
		}
		declared[n] = fn
	}

	out := &Lowered{Functions: p.funcs, Structs: p.structs}
	for _, n := range nodes {
		if n.Kind == NodeStructDef {
			continue
		}
		def, err := p.lowerFunction(n, declared[n])
		if err != nil {
			return nil, err
		}
		out.Defs = append(out.Defs, def)
	}
	return out, nil
}

func (p *Parser) typeSize(name string) (int, bool) {
	if st, ok := p.structs[name]; ok {
		return st.Size, true
	}
	return p.reg.TypeSize(name)
}

func (p *Parser) structOf(name string) (*StructInfo, bool) {
	if st, ok := p.structs[name]; ok {
		return st, true
	}
	return p.reg.Struct(name)
}

func (p *Parser) declareStruct(n *LexNode) error {
	name := n.Token.Lexeme
	if _, ok := p.reg.natives[name]; ok {
		return semanticErrorf(n.Token, "'%s' is already defined as a native function", name)
	}
	fields := make([]Field, 0, len(n.Children)/2)
	for i := 0; i+1 < len(n.Children); i += 2 {
		fields = append(fields, Field{Type: n.Children[i].Token.Lexeme, Name: n.Children[i+1].Token.Lexeme})
	}
	st, err := buildStruct(name, fields, p.typeSize)
	if err != nil {
		return semanticErrorf(n.Token, "%s", err)
	}
	p.structs[name] = st
	return nil
}

// splitSignature separates the parameter pairs of a definition from its body.
// Parameters are the run of Identifier children following the return type.
func splitSignature(n *LexNode) (params, body []*LexNode) {
	i := 1
	for i < len(n.Children) && n.Children[i].Kind == NodeIdentifier {
		i++
	}
	return n.Children[1:i], n.Children[i:]
}

func (p *Parser) declareFunction(n *LexNode) (*FunctionInfo, error) {
	retTok := n.Children[0].Token
	retSize, ok := p.typeSize(retTok.Lexeme)
	if !ok {
		return nil, semanticErrorf(retTok, "return type '%s' is not defined", retTok.Lexeme)
	}
	params, body := splitSignature(n)
	fn := &FunctionInfo{
		ReturnType: retTok.Lexeme,
		ReturnSize: retSize,
		Vars:       make(map[string]VariableInfo),
		Line:       n.Token.Line,
	}

	for _, v := range flatten(body) {
		if err := p.addVariable(fn, v.Children[0].Token, v.Token); err != nil {
			return nil, err
		}
	}
	fn.LocalsSize = p.frameSize(fn)
	for i := 0; i+1 < len(params); i += 2 {
		typ, name := params[i].Token, params[i+1].Token
		if err := p.addVariable(fn, typ, name); err != nil {
			return nil, err
		}
		fn.Params = append(fn.Params, name.Lexeme)
		fn.ParamTypes = append(fn.ParamTypes, typ.Lexeme)
	}
	fn.ParamsSize = p.frameSize(fn) - fn.LocalsSize

	if n.Kind == NodeOperatorDef {
		return fn, p.declareOperator(n, fn)
	}

	name := n.Token.Lexeme
	if _, ok := p.funcs[name]; ok {
		return nil, semanticErrorf(n.Token, "function '%s' is already defined", name)
	}
	if _, ok := p.reg.natives[name]; ok {
		return nil, semanticErrorf(n.Token, "function '%s' is already defined as a native function", name)
	}
	if _, ok := p.typeSize(name); ok {
		return nil, semanticErrorf(n.Token, "function name '%s' is already used by a type", name)
	}
	if !validName(name) {
		return nil, semanticErrorf(n.Token, "invalid function name '%s'", name)
	}
	fn.Label = name
	p.funcs[name] = fn
	return fn, nil
}

func (p *Parser) declareOperator(n *LexNode, fn *FunctionInfo) error {
	sym := n.Token.Lexeme
	key, err := operatorKey(sym, len(fn.ParamTypes), fn.ReturnType)
	if err != nil {
		return semanticErrorf(n.Token, "%s", err)
	}
	operand := fn.ParamTypes[0]
	if p.userOps[operand] == nil {
		p.userOps[operand] = make(map[string]*FunctionInfo)
	}
	if _, dup := p.userOps[operand][key]; dup {
		return semanticErrorf(n.Token, "operator '%s' for type '%s' is already defined", sym, operand)
	}

	fn.Label = operatorLabel(operand, key)
	p.userOps[operand][key] = fn
	return nil
}

// operatorLabel names the code of an operator overload. '@' never appears
// in an identifier, so the label cannot shadow a function.
func operatorLabel(operand, key string) string { return operand + "@" + key }

// addVariable appends a variable after the ones already laid out in fn.
// Offsets are cumulative end offsets, so the first variable sits closest to
// the frame header.
func (p *Parser) addVariable(fn *FunctionInfo, typ, name Token) error {
	size, ok := p.typeSize(typ.Lexeme)
	if !ok {
		return semanticErrorf(typ, "type '%s' is not defined", typ.Lexeme)
	}
	if typ.Lexeme == TypeVoid {
		return semanticErrorf(typ, "variable '%s' cannot be void", name.Lexeme)
	}
	if !validName(name.Lexeme) {
		return semanticErrorf(name, "invalid variable name '%s'", name.Lexeme)
	}
	if _, dup := fn.Vars[name.Lexeme]; dup {
		return semanticErrorf(name, "variable '%s' is already defined", name.Lexeme)
	}
	fn.Vars[name.Lexeme] = VariableInfo{Type: typ.Lexeme, Offset: p.frameSize(fn) + size}
	return nil
}

// frameSize is the number of bytes taken by the variables of fn so far.
func (p *Parser) frameSize(fn *FunctionInfo) int {
	end := 0
	for _, v := range fn.Vars {
		if v.Offset > end {
			end = v.Offset
		}
	}
	return end
}

// flatten collects the variable definitions of a body, descending into
// conditional and loop bodies.
func flatten(body []*LexNode) []*LexNode {
	var defs []*LexNode
	for _, n := range body {
		switch n.Kind {
		case NodeVariableDef:
			defs = append(defs, n)
		case NodeIfSingle, NodeIfChain, NodeElseIfSingle, NodeElseIfChain, NodeElse, NodeWhile:
			defs = append(defs, flatten(n.Children)...)
		}
	}
	return defs
}

func (p *Parser) lowerFunction(n *LexNode, fn *FunctionInfo) (Expr, error) {
	_, body := splitSignature(n)
	if len(body) == 0 || body[len(body)-1].Kind != NodeReturn {
		return nil, semanticErrorf(n.Token, "missing 'return'-statement in function '%s'", fn.Label)
	}

	p.fn = fn
	defer func() { p.fn = nil }()

	stmts, err := p.lowerBody(body)
	if err != nil {
		return nil, err
	}
	return &defineFunction{fn: fn, body: stmts}, nil
}
