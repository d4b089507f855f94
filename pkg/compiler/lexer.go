package compiler

// Lexer structures a token slice into a LexNode tree.
//
// Grammar:
//
//	program    = (structDef | functionDef | operatorDef)* EOF
//	structDef  = "struct" NAME "{" (NAME NAME ";")+ "}" ";"
//	functionDef = NAME NAME "(" params ")" block
//	operatorDef = NAME "operator" OP "(" params ")" block
//	params     = (NAME NAME ("," NAME NAME)*)?
//	block      = "{" statement* "}"
//	statement  = "return" expression? ";" | "break" ";" | "continue" ";"
//	           | "if" "(" expression ")" block ("else" ("if" ... | block))?
//	           | "while" "(" expression ")" block
//	           | NAME NAME "=" expression ";"
//	           | NAME ("." NAME)* "=" expression ";"
//	           | expression ";"
//	expression = unary (BINOP expression)*   precedence climbing
//	unary      = ("-" | "!") unary | primary
//	primary    = LITERAL | NAME | NAME ("." NAME)+ | NAME "(" args ")" | "(" expression ")"
type Lexer struct {
	tokens      []Token
	pos         int
	natives     map[string]bool
	insideWhile bool
}

const unaryPrecedence = 4

// binaryPrecedence returns the binding power of tt as an infix operator, or 0
// when tt is not one.
func binaryPrecedence(tt TokenType) int {
	switch tt {
	case AND_LOGICAL, OR_LOGICAL:
		return 1
	case LESS, GREATER, EQUALS, LESS_EQ, GREATER_EQ, NOT_EQ:
		return 2
	case PLUS, MINUS, AND, PIPE, CARET, SHL_OP, SHR_OP:
		return 3
	case STAR, SLASH:
		return 5
	}
	return 0
}

// overloadable lists the operators a user or host may define for a type.
var overloadable = map[TokenType]bool{
	PLUS: true, MINUS: true, STAR: true, SLASH: true,
	LESS: true, GREATER: true, LESS_EQ: true, GREATER_EQ: true, EQUALS: true, NOT_EQ: true,
	SHL_OP: true, SHR_OP: true, AND: true, PIPE: true, CARET: true,
}

// Structure builds the top-level definitions of a program. natives names the
// host functions so calls to them are recognized as native calls.
func Structure(tokens []Token, natives map[string]bool) ([]*LexNode, error) {
	l := &Lexer{tokens: tokens, natives: natives}
	var defs []*LexNode
	for l.peek().Type != EOF {
		tok := l.peek()
		node, err := l.nextNode(0)
		if err != nil {
			return nil, err
		}
		if !node.isDefinition() {
			return nil, syntaxErrorf(tok, "only struct, function and operator definitions are allowed at top level, got %s", node.Kind)
		}
		defs = append(defs, node)
	}
	return defs, nil
}

func (l *Lexer) peek() Token { return l.peekAt(0) }

func (l *Lexer) peekAt(offset int) Token {
	if l.pos+offset >= len(l.tokens) {
		if len(l.tokens) > 0 {
			return Token{Type: EOF, Line: l.tokens[len(l.tokens)-1].Line}
		}
		return Token{Type: EOF, Line: 1}
	}
	return l.tokens[l.pos+offset]
}

// prev returns the most recently consumed token.
func (l *Lexer) prev() Token {
	if l.pos == 0 || len(l.tokens) == 0 {
		return l.peek()
	}
	return l.tokens[l.pos-1]
}

func (l *Lexer) advance() Token {
	tok := l.peek()
	if l.pos < len(l.tokens) {
		l.pos++
	}
	return tok
}

func (l *Lexer) isKeyword(offset int, kw string) bool {
	tok := l.peekAt(offset)
	return tok.Type == IDENTIFIER && tok.Lexeme == kw
}

// expect consumes a token of type tt. A mismatch reports "missing" at the line
// of the previous token, which is where the delimiter belonged.
func (l *Lexer) expect(tt TokenType, what string) (Token, error) {
	if l.peek().Type != tt {
		return Token{}, syntaxErrorf(l.prev(), "missing '%s'", what)
	}
	return l.advance(), nil
}

func (l *Lexer) expectName(what string) (Token, error) {
	tok := l.peek()
	if tok.Type != IDENTIFIER {
		return Token{}, syntaxErrorf(tok, "expected %s, got %q", what, tok.Lexeme)
	}
	return l.advance(), nil
}

func leaf(kind NodeKind, tok Token) *LexNode {
	return &LexNode{Kind: kind, Token: tok}
}

// nextNode parses one node, continuing through infix operators that bind
// tighter than floor.
func (l *Lexer) nextNode(floor int) (*LexNode, error) {
	left, err := l.prefix()
	if err != nil {
		return nil, err
	}
	if !left.IsValueExpression() {
		return left, nil
	}

	for floor < binaryPrecedence(l.peek().Type) {
		op := l.advance()
		right, err := l.valueNode(binaryPrecedence(op.Type), op)
		if err != nil {
			return nil, err
		}
		left = &LexNode{Kind: NodeBinaryOp, Token: op, Children: []*LexNode{left, right}}
	}
	return left, nil
}

// valueNode parses a node that must produce a value. after names the token
// the value follows, for diagnostics.
func (l *Lexer) valueNode(floor int, after Token) (*LexNode, error) {
	start := l.peek()
	node, err := l.nextNode(floor)
	if err != nil {
		return nil, err
	}
	if !node.IsValueExpression() {
		if start.Type == EOF {
			start = after
		}
		return nil, syntaxErrorf(start, "invalid expression after %q", after.Lexeme)
	}
	return node, nil
}

func (l *Lexer) prefix() (*LexNode, error) {
	tok := l.peek()
	switch tok.Type {
	case IDENTIFIER:
		return l.identifierPrefix()
	case CHAR_LIT, INT_LIT, FLOAT_LIT:
		return leaf(NodeLiteral, l.advance()), nil
	case LPAREN:
		l.advance()
		inner, err := l.valueNode(0, tok)
		if err != nil {
			return nil, err
		}
		if _, err := l.expect(RPAREN, ")"); err != nil {
			return nil, err
		}
		return &LexNode{Kind: NodeParenthesis, Token: tok, Children: []*LexNode{inner}}, nil
	case MINUS, NOT:
		l.advance()
		operand, err := l.valueNode(unaryPrecedence, tok)
		if err != nil {
			return nil, err
		}
		return &LexNode{Kind: NodeUnaryOp, Token: tok, Children: []*LexNode{operand}}, nil
	case RBRACE:
		return leaf(NodeEndCurly, l.advance()), nil
	case RPAREN:
		return leaf(NodeEndPar, l.advance()), nil
	case EOF:
		return nil, syntaxErrorf(l.prev(), "unexpected end of input")
	}
	return nil, syntaxErrorf(tok, "unexpected token %q", tok.Lexeme)
}

func (l *Lexer) identifierPrefix() (*LexNode, error) {
	tok := l.peek()
	switch tok.Lexeme {
	case "break", "continue":
		if !l.insideWhile {
			return nil, semanticErrorf(tok, "'%s' outside of a while loop", tok.Lexeme)
		}
		l.advance()
		if _, err := l.expect(SEMICOLON, ";"); err != nil {
			return nil, err
		}
		if tok.Lexeme == "break" {
			return leaf(NodeBreak, tok), nil
		}
		return leaf(NodeContinue, tok), nil
	case "return":
		return l.parseReturn()
	case "if":
		return l.parseIf(NodeIfSingle, NodeIfChain)
	case "while":
		return l.parseWhile()
	case "struct":
		return l.parseStruct()
	}

	next := l.peekAt(1)
	switch {
	case next.Type == IDENTIFIER && next.Lexeme == "operator":
		return l.parseFunction(NodeOperatorDef)
	case next.Type == LPAREN:
		return l.parseCall()
	case next.Type == ASSIGN:
		l.advance()
		l.advance()
		return l.finishWrite(&LexNode{Kind: NodeVariableWrite, Token: tok}, next)
	case next.Type == DOT:
		return l.parseProperty()
	case next.Type == IDENTIFIER && l.peekAt(2).Type == ASSIGN:
		return l.parseVariableDef()
	case next.Type == IDENTIFIER && l.peekAt(2).Type == LPAREN:
		return l.parseFunction(NodeFunctionDef)
	}
	return leaf(NodeVariableLoad, l.advance()), nil
}

// finishWrite parses the assigned value and the closing ';' of a write.
func (l *Lexer) finishWrite(node *LexNode, assign Token) (*LexNode, error) {
	value, err := l.valueNode(0, assign)
	if err != nil {
		return nil, err
	}
	if _, err := l.expect(SEMICOLON, ";"); err != nil {
		return nil, err
	}
	node.Children = append(node.Children, value)
	return node, nil
}

func (l *Lexer) parseReturn() (*LexNode, error) {
	tok := l.advance()
	node := leaf(NodeReturn, tok)
	if l.peek().Type == SEMICOLON {
		l.advance()
		return node, nil
	}
	return l.finishWrite(node, tok)
}

func (l *Lexer) parseVariableDef() (*LexNode, error) {
	typ := l.advance()
	name := l.advance()
	assign := l.advance()
	node := &LexNode{Kind: NodeVariableDef, Token: name, Children: []*LexNode{leaf(NodeIdentifier, typ)}}
	return l.finishWrite(node, assign)
}

func (l *Lexer) parseProperty() (*LexNode, error) {
	base := l.advance()
	node := &LexNode{Kind: NodePropertyLoad, Token: base}
	for l.peek().Type == DOT {
		l.advance()
		field, err := l.expectName("property name after '.'")
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, leaf(NodeIdentifier, field))
	}
	if l.peek().Type == ASSIGN {
		node.Kind = NodePropertyWrite
		return l.finishWrite(node, l.advance())
	}
	return node, nil
}

func (l *Lexer) parseCall() (*LexNode, error) {
	name := l.advance()
	open := l.advance()
	kind := NodeUserCall
	if l.natives[name.Lexeme] {
		kind = NodeNativeCall
	}
	node := &LexNode{Kind: kind, Token: name}

	for {
		if l.peek().Type == EOF {
			return nil, syntaxErrorf(l.prev(), "missing ')'")
		}
		start := l.peek()
		arg, err := l.nextNode(0)
		if err != nil {
			return nil, err
		}
		if arg.Kind == NodeEndPar {
			if len(node.Children) > 0 && l.tokens[l.pos-2].Type == COMMA {
				return nil, syntaxErrorf(start, "expected an argument after ','")
			}
			return node, nil
		}
		if !arg.IsValueExpression() {
			return nil, syntaxErrorf(start, "invalid argument in call to '%s'", name.Lexeme)
		}
		node.Children = append(node.Children, arg)

		switch l.peek().Type {
		case COMMA:
			l.advance()
		case RPAREN:
		default:
			return nil, syntaxErrorf(l.prev(), "missing ',' or ')' in call to '%s' opened at line %d", name.Lexeme, open.Line)
		}
	}
}

// parseCondition parses "(" expression ")".
func (l *Lexer) parseCondition(keyword Token) (*LexNode, error) {
	if _, err := l.expect(LPAREN, "("); err != nil {
		return nil, err
	}
	cond, err := l.valueNode(0, keyword)
	if err != nil {
		return nil, err
	}
	if _, err := l.expect(RPAREN, ")"); err != nil {
		return nil, err
	}
	return cond, nil
}

// parseBlock parses "{" statement* "}" and returns the statements.
func (l *Lexer) parseBlock() ([]*LexNode, error) {
	if _, err := l.expect(LBRACE, "{"); err != nil {
		return nil, err
	}
	var body []*LexNode
	for {
		if l.peek().Type == EOF {
			return nil, syntaxErrorf(l.prev(), "missing '}' after line %d", l.prev().Line)
		}
		start := l.peek()
		node, err := l.nextNode(0)
		if err != nil {
			return nil, err
		}
		if node.Kind == NodeEndCurly {
			return body, nil
		}
		if !node.isValidInBody() {
			return nil, syntaxErrorf(start, "%s is not allowed inside a block", node.Kind)
		}
		if node.IsValueExpression() {
			if _, err := l.expect(SEMICOLON, ";"); err != nil {
				return nil, err
			}
		}
		body = append(body, node)
	}
}

func (l *Lexer) parseIf(single, chain NodeKind) (*LexNode, error) {
	kw := l.advance()
	cond, err := l.parseCondition(kw)
	if err != nil {
		return nil, err
	}
	body, err := l.parseBlock()
	if err != nil {
		return nil, err
	}
	node := &LexNode{Kind: single, Token: kw, Children: append([]*LexNode{cond}, body...)}

	if !l.isKeyword(0, "else") {
		return node, nil
	}
	elseTok := l.advance()
	var next *LexNode
	if l.isKeyword(0, "if") {
		next, err = l.parseIf(NodeElseIfSingle, NodeElseIfChain)
	} else {
		var elseBody []*LexNode
		elseBody, err = l.parseBlock()
		next = &LexNode{Kind: NodeElse, Token: elseTok, Children: elseBody}
	}
	if err != nil {
		return nil, err
	}
	node.Kind = chain
	node.Children = append(node.Children, next)
	return node, nil
}

func (l *Lexer) parseWhile() (*LexNode, error) {
	kw := l.advance()
	cond, err := l.parseCondition(kw)
	if err != nil {
		return nil, err
	}

	saved := l.insideWhile
	l.insideWhile = true
	body, err := l.parseBlock()
	l.insideWhile = saved
	if err != nil {
		return nil, err
	}
	return &LexNode{Kind: NodeWhile, Token: kw, Children: append([]*LexNode{cond}, body...)}, nil
}

func (l *Lexer) parseStruct() (*LexNode, error) {
	l.advance()
	name, err := l.expectName("struct name")
	if err != nil {
		return nil, err
	}
	if _, err := l.expect(LBRACE, "{"); err != nil {
		return nil, err
	}
	node := &LexNode{Kind: NodeStructDef, Token: name}
	for l.peek().Type != RBRACE {
		if l.peek().Type == EOF {
			return nil, syntaxErrorf(l.prev(), "missing '}' after line %d", l.prev().Line)
		}
		typ, err := l.expectName("property type")
		if err != nil {
			return nil, err
		}
		field, err := l.expectName("property name")
		if err != nil {
			return nil, err
		}
		if _, err := l.expect(SEMICOLON, ";"); err != nil {
			return nil, err
		}
		node.Children = append(node.Children, leaf(NodeIdentifier, typ), leaf(NodeIdentifier, field))
	}
	l.advance()
	if len(node.Children) == 0 {
		return nil, syntaxErrorf(name, "struct '%s' has no properties", name.Lexeme)
	}
	if _, err := l.expect(SEMICOLON, ";"); err != nil {
		return nil, err
	}
	return node, nil
}

// parseFunction parses a function or operator definition. The node token is
// the function name, or the operator for operator definitions.
func (l *Lexer) parseFunction(kind NodeKind) (*LexNode, error) {
	ret := l.advance()
	name := l.advance()
	if kind == NodeOperatorDef {
		name = l.advance()
		if !overloadable[name.Type] {
			return nil, syntaxErrorf(name, "operator '%s' cannot be overloaded", name.Lexeme)
		}
	}
	node := &LexNode{Kind: kind, Token: name, Children: []*LexNode{leaf(NodeIdentifier, ret)}}

	if _, err := l.expect(LPAREN, "("); err != nil {
		return nil, err
	}
	for l.peek().Type != RPAREN {
		if len(node.Children) > 1 {
			if _, err := l.expect(COMMA, ","); err != nil {
				return nil, err
			}
		}
		typ, err := l.expectName("parameter type")
		if err != nil {
			return nil, err
		}
		param, err := l.expectName("parameter name")
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, leaf(NodeIdentifier, typ), leaf(NodeIdentifier, param))
	}
	l.advance()

	saved := l.insideWhile
	l.insideWhile = false
	body, err := l.parseBlock()
	l.insideWhile = saved
	if err != nil {
		return nil, err
	}
	node.Children = append(node.Children, body...)
	return node, nil
}
