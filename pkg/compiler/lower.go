package compiler

import "strconv"

func (p *Parser) lowerBody(nodes []*LexNode) ([]Expr, error) {
	out := make([]Expr, 0, len(nodes))
	for _, n := range nodes {
		e, err := p.lowerStatement(n)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (p *Parser) lowerStatement(n *LexNode) (Expr, error) {
	switch n.Kind {
	case NodeVariableDef, NodeVariableWrite:
		v, ok := p.fn.Vars[n.Token.Lexeme]
		if !ok {
			return nil, semanticErrorf(n.Token, "undefined name '%s'", n.Token.Lexeme)
		}
		return p.write(v.Offset, v.Type, n.Children[len(n.Children)-1])

	case NodePropertyWrite:
		offset, typ, err := p.property(n.Token, n.Children[:len(n.Children)-1])
		if err != nil {
			return nil, err
		}
		return p.write(offset, typ, n.Children[len(n.Children)-1])

	case NodeReturn:
		return p.lowerReturn(n)

	case NodeIfSingle, NodeIfChain, NodeElseIfSingle, NodeElseIfChain, NodeElse:
		return p.lowerArm(n)

	case NodeWhile:
		cond, err := p.lower(n.Children[0], TypeChar)
		if err != nil {
			return nil, err
		}
		body, err := p.lowerBody(n.Children[1:])
		if err != nil {
			return nil, err
		}
		return &whileExpr{cond: cond, body: body}, nil

	case NodeBreak:
		return &breakExpr{}, nil
	case NodeContinue:
		return &continueExpr{}, nil
	}

	if n.IsValueExpression() {
		// Only void expressions may stand alone; anything else would leave its
		// value on the stack.
		return p.lower(n, TypeVoid)
	}
	return nil, semanticErrorf(n.Token, "%s is not a statement", n.Kind)
}

func (p *Parser) write(offset int, typ string, valueNode *LexNode) (Expr, error) {
	value, err := p.lower(valueNode, typ)
	if err != nil {
		return nil, err
	}
	size, _ := p.typeSize(typ)
	return &writeBytesTo{ptr: &loadVariablePtr{offset: offset}, value: value, size: size}, nil
}

func (p *Parser) lowerReturn(n *LexNode) (Expr, error) {
	ret := p.fn.ReturnType
	if ret == TypeVoid {
		if len(n.Children) > 0 {
			return nil, semanticErrorf(n.Token, "void function '%s' cannot return a value", p.fn.Label)
		}
		return &returnExpr{}, nil
	}
	if len(n.Children) == 0 {
		return nil, semanticErrorf(n.Token, "missing return value of type '%s'", ret)
	}
	value, err := p.lower(n.Children[0], ret)
	if err != nil {
		return nil, err
	}
	return &returnExpr{value: value, size: p.fn.ReturnSize}, nil
}

// lowerArm lowers one arm of an if statement and, for chains, the arms
// after it.
func (p *Parser) lowerArm(n *LexNode) (Expr, error) {
	if n.Kind == NodeElse {
		body, err := p.lowerBody(n.Children)
		if err != nil {
			return nil, err
		}
		return &elseExpr{body: body}, nil
	}

	cond, err := p.lower(n.Children[0], TypeChar)
	if err != nil {
		return nil, err
	}
	rest := n.Children[1:]
	chained := n.Kind == NodeIfChain || n.Kind == NodeElseIfChain

	var next Expr
	if chained {
		next, err = p.lowerArm(rest[len(rest)-1])
		if err != nil {
			return nil, err
		}
		rest = rest[:len(rest)-1]
	}
	body, err := p.lowerBody(rest)
	if err != nil {
		return nil, err
	}

	switch n.Kind {
	case NodeIfSingle:
		return &ifSingle{cond: cond, body: body}, nil
	case NodeIfChain:
		return &ifChain{cond: cond, body: body, next: next}, nil
	case NodeElseIfSingle:
		return &elseIfSingle{cond: cond, body: body}, nil
	}
	return &elseIfChain{cond: cond, body: body, next: next}, nil
}

func checkType(tok Token, want, got string) error {
	if want == anyType || want == got {
		return nil
	}
	return semanticErrorf(tok, "expected an expression of type '%s' but got '%s'", want, got)
}

// lower converts a value expression, checking that it yields want.
func (p *Parser) lower(n *LexNode, want string) (Expr, error) {
	switch n.Kind {
	case NodeLiteral:
		return p.literal(n.Token, want)

	case NodeParenthesis:
		return p.lower(n.Children[0], want)

	case NodeVariableLoad:
		v, ok := p.fn.Vars[n.Token.Lexeme]
		if !ok {
			return nil, semanticErrorf(n.Token, "undefined name '%s'", n.Token.Lexeme)
		}
		return p.load(n.Token, v.Offset, v.Type, want)

	case NodePropertyLoad:
		offset, typ, err := p.property(n.Token, n.Children)
		if err != nil {
			return nil, err
		}
		return p.load(n.Token, offset, typ, want)

	case NodeNativeCall:
		nf, ok := p.reg.natives[n.Token.Lexeme]
		if !ok {
			return nil, semanticErrorf(n.Token, "undefined name '%s'", n.Token.Lexeme)
		}
		args, err := p.arguments(n, nf.Params)
		if err != nil {
			return nil, err
		}
		return &callNative{fn: nf, args: args}, checkType(n.Token, want, nf.ReturnType)

	case NodeUserCall:
		name := n.Token.Lexeme
		if st, ok := p.structOf(name); ok {
			return p.construct(n, st, want)
		}
		fn, ok := p.funcs[name]
		if !ok {
			return nil, semanticErrorf(n.Token, "undefined name '%s'", name)
		}
		args, err := p.arguments(n, fn.ParamTypes)
		if err != nil {
			return nil, err
		}
		return &callFunction{fn: fn, args: args}, checkType(n.Token, want, fn.ReturnType)

	case NodeBinaryOp:
		sym := n.Token.Lexeme
		if isComparison(sym) || sym == "&&" || sym == "||" {
			return p.comparison(n, want)
		}
		return p.arithmetic(n, want)

	case NodeUnaryOp:
		if n.Token.Type == NOT {
			if err := checkType(n.Token, want, TypeChar); err != nil {
				return nil, err
			}
			operand, err := p.lower(n.Children[0], TypeChar)
			if err != nil {
				return nil, err
			}
			return &unaryOp{op: builtinOps[TypeChar]["!"], operand: operand, typ: TypeChar}, nil
		}
		return p.negate(n, want)
	}
	return nil, semanticErrorf(n.Token, "%s does not produce a value", n.Kind)
}

func (p *Parser) literal(tok Token, want string) (Expr, error) {
	var e Expr
	switch tok.Type {
	case CHAR_LIT:
		e = &loadConstChar{v: int8([]rune(tok.Lexeme)[0])}
	case INT_LIT:
		v, err := strconv.ParseInt(tok.Lexeme, 10, 32)
		if err != nil {
			return nil, semanticErrorf(tok, "int literal %s is out of range", tok.Lexeme)
		}
		e = &loadConstInt{v: int32(v)}
	case FLOAT_LIT:
		v, err := strconv.ParseFloat(tok.Lexeme, 32)
		if err != nil {
			return nil, semanticErrorf(tok, "float literal %s is out of range", tok.Lexeme)
		}
		e = &loadConstFloat{v: float32(v)}
	default:
		return nil, semanticErrorf(tok, "unexpected literal %q", tok.Lexeme)
	}
	return e, checkType(tok, want, e.Type())
}

func (p *Parser) load(tok Token, offset int, typ, want string) (Expr, error) {
	if err := checkType(tok, want, typ); err != nil {
		return nil, err
	}
	size, _ := p.typeSize(typ)
	return &loadVariable{offset: offset, size: size, typ: typ}, nil
}

// property resolves base.f1.f2... to a frame offset and type. Each field
// moves the address up by its offset within the enclosing struct.
func (p *Parser) property(base Token, fields []*LexNode) (int, string, error) {
	v, ok := p.fn.Vars[base.Lexeme]
	if !ok {
		return 0, "", semanticErrorf(base, "undefined name '%s'", base.Lexeme)
	}
	offset, typ := v.Offset, v.Type
	for _, f := range fields {
		st, ok := p.structOf(typ)
		if !ok {
			return 0, "", semanticErrorf(f.Token, "type '%s' has no properties", typ)
		}
		field, ok := st.Fields[f.Token.Lexeme]
		if !ok {
			return 0, "", semanticErrorf(f.Token, "struct '%s' has no property '%s'", typ, f.Token.Lexeme)
		}
		offset -= field.Offset
		typ = field.Type
	}
	return offset, typ, nil
}

func (p *Parser) arguments(call *LexNode, params []string) ([]Expr, error) {
	if len(call.Children) != len(params) {
		return nil, semanticErrorf(call.Token, "argument count in function call does not match parameter count: '%s' takes %d, got %d",
			call.Token.Lexeme, len(params), len(call.Children))
	}
	args := make([]Expr, len(params))
	for i, a := range call.Children {
		e, err := p.lower(a, params[i])
		if err != nil {
			return nil, err
		}
		args[i] = e
	}
	return args, nil
}

func (p *Parser) construct(call *LexNode, st *StructInfo, want string) (Expr, error) {
	if err := checkType(call.Token, want, st.Name); err != nil {
		return nil, err
	}
	types := make([]string, len(st.Properties))
	for i, prop := range st.Properties {
		types[i] = st.Fields[prop].Type
	}
	fields, err := p.arguments(call, types)
	if err != nil {
		return nil, err
	}
	return &loadMulti{typ: st.Name, fields: fields}, nil
}

// resolveBinary picks the implementation of sym for operand type typ: a
// script overload first, then a host overload, then the builtin opcode.
func (p *Parser) resolveBinary(tok Token, typ string, lhs Expr, rhsNode *LexNode) (Expr, error) {
	sym := tok.Lexeme
	if fn := p.userOps[typ][sym]; fn != nil {
		rhs, err := p.lower(rhsNode, fn.ParamTypes[1])
		if err != nil {
			return nil, err
		}
		return &callFunction{fn: fn, args: []Expr{lhs, rhs}}, nil
	}
	if nf := p.reg.nativeOps[typ][sym]; nf != nil {
		rhs, err := p.lower(rhsNode, nf.Params[1])
		if err != nil {
			return nil, err
		}
		return &callNative{fn: nf, args: []Expr{lhs, rhs}}, nil
	}
	op, ok := builtinOps[typ][sym]
	if !ok {
		return nil, semanticErrorf(tok, "cannot perform binary math operation '%s' on operand of type '%s'", sym, typ)
	}
	rhsType := typ
	if typ == TypePtr || sym == "<<" || sym == ">>" {
		rhsType = TypeInt
	}
	rhs, err := p.lower(rhsNode, rhsType)
	if err != nil {
		return nil, err
	}
	result := typ
	if isComparison(sym) || sym == "&&" || sym == "||" {
		result = TypeChar
	}
	return &binaryOp{op: op, lhs: lhs, rhs: rhs, typ: result}, nil
}

func (p *Parser) arithmetic(n *LexNode, want string) (Expr, error) {
	lhs, err := p.lower(n.Children[0], want)
	if err != nil {
		return nil, err
	}
	typ := want
	if want == anyType {
		typ = lhs.Type()
	}
	e, err := p.resolveBinary(n.Token, typ, lhs, n.Children[1])
	if err != nil {
		return nil, err
	}
	return e, checkType(n.Token, want, e.Type())
}

// comparison lowers comparisons and logical operators. The operand type comes
// from the left side; the result is always char.
func (p *Parser) comparison(n *LexNode, want string) (Expr, error) {
	if err := checkType(n.Token, want, TypeChar); err != nil {
		return nil, err
	}
	lhs, err := p.lower(n.Children[0], anyType)
	if err != nil {
		return nil, err
	}
	e, err := p.resolveBinary(n.Token, lhs.Type(), lhs, n.Children[1])
	if err != nil {
		return nil, err
	}
	return e, checkType(n.Token, TypeChar, e.Type())
}

func (p *Parser) negate(n *LexNode, want string) (Expr, error) {
	operand, err := p.lower(n.Children[0], want)
	if err != nil {
		return nil, err
	}
	typ := want
	if want == anyType {
		typ = operand.Type()
	}

	var e Expr
	switch {
	case p.userOps[typ][negateOp] != nil:
		e = &callFunction{fn: p.userOps[typ][negateOp], args: []Expr{operand}}
	case p.reg.nativeOps[typ][negateOp] != nil:
		e = &callNative{fn: p.reg.nativeOps[typ][negateOp], args: []Expr{operand}}
	default:
		op, ok := builtinOps[typ][negateOp]
		if !ok {
			return nil, semanticErrorf(n.Token, "cannot perform unary operation '-' on operand of type '%s'", typ)
		}
		e = &unaryOp{op: op, operand: operand, typ: typ}
	}
	return e, checkType(n.Token, want, e.Type())
}
