package compiler

import (
	"fmt"
	"strings"
)

// NodeKind tags a LexNode.
type NodeKind int

const (
	NodeInvalid NodeKind = iota
	NodeReturn
	NodeIfSingle
	NodeIfChain
	NodeElseIfSingle
	NodeElseIfChain
	NodeElse
	NodeWhile
	NodeBreak
	NodeContinue
	NodeBinaryOp
	NodeUnaryOp
	NodeParenthesis
	NodeNativeCall
	NodeUserCall
	NodeVariableWrite
	NodeVariableLoad
	NodePropertyLoad
	NodePropertyWrite
	NodeStructDef
	NodeVariableDef
	NodeFunctionDef
	NodeOperatorDef
	NodeIdentifier
	NodeLiteral
	NodeEndCurly
	NodeEndPar
)

var nodeNames = [...]string{
	NodeInvalid:       "Invalid",
	NodeReturn:        "Return",
	NodeIfSingle:      "IfSingle",
	NodeIfChain:       "IfChain",
	NodeElseIfSingle:  "ElseIfSingle",
	NodeElseIfChain:   "ElseIfChain",
	NodeElse:          "Else",
	NodeWhile:         "While",
	NodeBreak:         "Break",
	NodeContinue:      "Continue",
	NodeBinaryOp:      "BinaryOp",
	NodeUnaryOp:       "UnaryOp",
	NodeParenthesis:   "Parenthesis",
	NodeNativeCall:    "NativeCall",
	NodeUserCall:      "UserCall",
	NodeVariableWrite: "VariableWrite",
	NodeVariableLoad:  "VariableLoad",
	NodePropertyLoad:  "PropertyLoad",
	NodePropertyWrite: "PropertyWrite",
	NodeStructDef:     "StructDef",
	NodeVariableDef:   "VariableDef",
	NodeFunctionDef:   "FunctionDef",
	NodeOperatorDef:   "OperatorDef",
	NodeIdentifier:    "Identifier",
	NodeLiteral:       "Literal",
	NodeEndCurly:      "EndCurly",
	NodeEndPar:        "EndPar",
}

func (k NodeKind) String() string {
	if int(k) >= 0 && int(k) < len(nodeNames) {
		return nodeNames[k]
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// LexNode is an untyped syntax tree node. Token is the token the node was
// recognized by (the name for definitions, calls and loads; the operator for
// operations; the keyword for statements).
//
// Child layout by kind:
//
//	IfSingle, ElseIfSingle, While   cond, body...
//	IfChain, ElseIfChain            cond, body..., next arm
//	Else                            body...
//	FunctionDef, OperatorDef        return type, (param type, param name)..., body...
//	StructDef                       (field type, field name)...
//	VariableDef                     type, value
//	PropertyLoad                    field names...
//	PropertyWrite                   field names..., value
type LexNode struct {
	Kind     NodeKind
	Token    Token
	Children []*LexNode
}

// IsValueExpression reports whether the node produces a value.
func (n *LexNode) IsValueExpression() bool {
	switch n.Kind {
	case NodeLiteral, NodeVariableLoad, NodePropertyLoad, NodeBinaryOp, NodeUnaryOp,
		NodeParenthesis, NodeNativeCall, NodeUserCall:
		return true
	}
	return false
}

// isValidInBody reports whether the node may appear as a statement inside a
// function body.
func (n *LexNode) isValidInBody() bool {
	switch n.Kind {
	case NodeFunctionDef, NodeOperatorDef, NodeStructDef, NodeIdentifier, NodeEndPar, NodeInvalid:
		return false
	}
	return true
}

func (n *LexNode) isDefinition() bool {
	return n.Kind == NodeFunctionDef || n.Kind == NodeOperatorDef || n.Kind == NodeStructDef
}

// String renders the node as an s-expression.
func (n *LexNode) String() string {
	var sb strings.Builder
	n.write(&sb)
	return sb.String()
}

func (n *LexNode) write(sb *strings.Builder) {
	sb.WriteString("(")
	sb.WriteString(n.Kind.String())
	if n.Token.Lexeme != "" {
		sb.WriteString(" ")
		sb.WriteString(n.Token.Lexeme)
	}
	for _, c := range n.Children {
		sb.WriteString(" ")
		c.write(sb)
	}
	sb.WriteString(")")
}
