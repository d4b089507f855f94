package compiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func structure(t *testing.T, src string, natives ...string) ([]*LexNode, error) {
	t.Helper()
	tokens, err := Tokenize(src)
	be.Err(t, err, nil)
	set := make(map[string]bool)
	for _, n := range natives {
		set[n] = true
	}
	return Structure(tokens, set)
}

func sexpr(nodes []*LexNode) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, "\n")
}

func TestStructure(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		natives []string
		want    string
	}{
		{
			name: "Precedence",
			src:  "int main(int a) { return a + 1 * 2; }",
			want: "(FunctionDef main (Identifier int) (Identifier int) (Identifier a) " +
				"(Return return (BinaryOp + (VariableLoad a) (BinaryOp * (Literal 1) (Literal 2)))))",
		},
		{
			name: "Left Associative",
			src:  "int f() { return a - b - c; }",
			want: "(FunctionDef f (Identifier int) " +
				"(Return return (BinaryOp - (BinaryOp - (VariableLoad a) (VariableLoad b)) (VariableLoad c))))",
		},
		{
			name: "Comparison Binds Looser Than Math",
			src:  "char f() { return a + 1 < b && c; }",
			want: "(FunctionDef f (Identifier char) (Return return " +
				"(BinaryOp && (BinaryOp < (BinaryOp + (VariableLoad a) (Literal 1)) (VariableLoad b)) (VariableLoad c))))",
		},
		{
			name: "Unary And Parenthesis",
			src:  "int f() { return -(a + b); }",
			want: "(FunctionDef f (Identifier int) (Return return " +
				"(UnaryOp - (Parenthesis ( (BinaryOp + (VariableLoad a) (VariableLoad b))))))",
		},
		{
			name: "Definitions And Writes",
			src:  "void f() { int y = 2; p.x = 1; y = y; return; }",
			want: "(FunctionDef f (Identifier void) (VariableDef y (Identifier int) (Literal 2)) " +
				"(PropertyWrite p (Identifier x) (Literal 1)) (VariableWrite y (VariableLoad y)) (Return return))",
		},
		{
			name:    "Native And User Calls",
			src:     "float f() { g(1, x.y); return sqrt(2.0); }",
			natives: []string{"sqrt"},
			want: "(FunctionDef f (Identifier float) (UserCall g (Literal 1) (PropertyLoad x (Identifier y))) " +
				"(Return return (NativeCall sqrt (Literal 2.0))))",
		},
		{
			name: "If Chain",
			src:  "void f() { if (x) { return; } else if (y) { return; } else { return; } return; }",
			want: "(FunctionDef f (Identifier void) (IfChain if (VariableLoad x) (Return return) " +
				"(ElseIfChain if (VariableLoad y) (Return return) (Else else (Return return)))) (Return return))",
		},
		{
			name: "While With Break",
			src:  "void f() { while (i < 3) { break; continue; } return; }",
			want: "(FunctionDef f (Identifier void) (While while (BinaryOp < (VariableLoad i) (Literal 3)) " +
				"(Break break) (Continue continue)) (Return return))",
		},
		{
			name: "Struct And Operator",
			src:  "struct V { int a; int b; }; V operator+(V a, V b) { return a; }",
			want: "(StructDef V (Identifier int) (Identifier a) (Identifier int) (Identifier b))\n" +
				"(OperatorDef + (Identifier V) (Identifier V) (Identifier a) (Identifier V) (Identifier b) " +
				"(Return return (VariableLoad a)))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes, err := structure(t, tt.src, tt.natives...)
			be.Err(t, err, nil)
			be.Equal(t, sexpr(nodes), tt.want)
		})
	}
}

func TestStructureErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind ErrorKind
		msg  string
	}{
		{"Missing Curly", "void f() { return;", SyntaxError, "missing '}' after line 1"},
		{"Missing Semicolon", "void f() { g() }", SyntaxError, "missing ';'"},
		{"Break Outside Loop", "void f() {\n  break;\n}", SemanticError, "'break' outside of a while loop"},
		{"Continue After Loop", "void f() { while (1) { return; } continue; }", SemanticError, "'continue' outside of a while loop"},
		{"Top Level Statement", "int x = 1;", SyntaxError, "only struct, function and operator definitions"},
		{"Trailing Comma", "void f() { g(1,); return; }", SyntaxError, "expected an argument after ','"},
		{"Not Overloadable", "int operator&&(int a, int b) { return a; }", SyntaxError, "cannot be overloaded"},
		{"Empty Struct", "struct S { };", SyntaxError, "has no properties"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := structure(t, tt.src)
			var ce *Error
			be.True(t, errors.As(err, &ce))
			be.Equal(t, ce.Kind, tt.kind)
			be.True(t, strings.Contains(ce.Msg, tt.msg))
		})
	}
}

func TestBreakReportsItsLine(t *testing.T) {
	_, err := structure(t, "void f() {\n  break;\n}")
	var ce *Error
	be.True(t, errors.As(err, &ce))
	be.Equal(t, ce.Line, 2)
}
