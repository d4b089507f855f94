package compiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"scriptvm/pkg/vm"
)

// execute runs img with args written below the scratch area boundary, first
// argument highest, and returns the entry function's result.
func execute(t *testing.T, img *Image, args ...vm.Value) vm.Value {
	t.Helper()
	buf := make([]byte, img.CodeEnd+4096)
	copy(buf, img.Code)
	at := img.ArgsSize
	for _, a := range args {
		at -= len(a)
		copy(buf[at:], a)
	}
	be.Equal(t, at, 0)

	m := vm.New(vm.NewMemory(buf), img.Natives)
	be.Err(t, m.Run(img.CodeStart(), img.CodeEnd), nil)
	return vm.Value(buf[img.CodeEnd : img.CodeEnd+uint64(img.EntryReturnSize)])
}

func mustCompile(t *testing.T, src string, reg *Registry) *Image {
	t.Helper()
	if reg == nil {
		reg = NewRegistry()
	}
	img, err := Compile(src, reg, Options{})
	be.Err(t, err, nil)
	return img
}

func TestCompileRoundTrip(t *testing.T) {
	img := mustCompile(t, "int main(int a, int b) { return a + b; }", nil)
	be.Equal(t, img.ArgsSize, 8)
	be.Equal(t, img.EntryParams, []string{TypeInt, TypeInt})
	be.Equal(t, img.EntryReturnSize, 4)
	be.Equal(t, img.EntryParamSizes, []int{4, 4})
	be.Err(t, img.Validate(), nil)

	be.Equal(t, execute(t, img, vm.Int(2), vm.Int(3)).Int(), int32(5))
	be.Equal(t, execute(t, img, vm.Int(-1), vm.Int(1)).Int(), int32(0))
}

func TestStructParamSizes(t *testing.T) {
	img := mustCompile(t, "struct P { int a; char b; };\nint main(P p, float f) { return p.a; }", nil)
	be.Equal(t, img.EntryParamSizes, []int{5, 4})
	be.Err(t, img.Validate(), nil)

	img.EntryReturnSize = -1
	be.Err(t, img.Validate(), ErrBadImage)
}

func TestArgumentOrder(t *testing.T) {
	img := mustCompile(t, "int main(int a, char c, int b) { return a - b; }", nil)
	be.Equal(t, execute(t, img, vm.Int(10), vm.Char(1), vm.Int(3)).Int(), int32(7))
}

func TestPrograms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want vm.Value
	}{
		{
			name: "Truncating Division",
			src:  "int main() { return -7 / 2; }",
			want: vm.Int(-3),
		},
		{
			name: "Precedence",
			src:  "int main() { return 2 + 3 * 4 - 1; }",
			want: vm.Int(13),
		},
		{
			name: "Shifts And Bits",
			src:  "int main() { return (1 << 4 | 3) ^ 1; }",
			want: vm.Int(18),
		},
		{
			name: "Float Math",
			src:  "float main() { float x = 1.5; return x * 2.0 - 0.5; }",
			want: vm.Float(2.5),
		},
		{
			name: "Char Logic",
			src:  "char main() { return !(1 < 2) || 'a' == 'a' && 2.0 >= 1.0; }",
			want: vm.Char(1),
		},
		{
			name: "Forward Reference",
			src: `
				int main() { return twice(21); }
				int twice(int v) { return v * 2; }`,
			want: vm.Int(42),
		},
		{
			name: "Recursion",
			src: `
				int fib(int n) {
					if (n < 2) { return n; }
					return fib(n - 1) + fib(n - 2);
				}
				int main() { return fib(10); }`,
			want: vm.Int(55),
		},
		{
			name: "While Continue Break",
			src: `
				int main() {
					int i = 0;
					while (1 == 1) {
						i = i + 1;
						if (i < 3) { continue; }
						if (i == 4) { break; }
					}
					return i;
				}`,
			want: vm.Int(4),
		},
		{
			name: "Continue Rechecks Condition",
			src: `
				int main() {
					int i = 0;
					while (i < 5) {
						i = i + 1;
						if (i == 3) { continue; }
						if (i == 4) { break; }
					}
					return i;
				}`,
			want: vm.Int(4),
		},
		{
			name: "Nested Loops",
			src: `
				int main() {
					int total = 0;
					int i = 0;
					while (i < 3) {
						int j = 0;
						while (j < 4) {
							total = total + 1;
							j = j + 1;
						}
						i = i + 1;
					}
					return total;
				}`,
			want: vm.Int(12),
		},
		{
			name: "If Chain",
			src: `
				int classify(int v) {
					int r = 0;
					if (v < 0) { r = 1; } else if (v == 0) { r = 2; } else if (v < 10) { r = 3; } else { r = 4; }
					return r;
				}
				int main() { return classify(-5) * 1000 + classify(0) * 100 + classify(5) * 10 + classify(50); }`,
			want: vm.Int(1234),
		},
		{
			name: "Struct Properties",
			src: `
				struct V { float x; float y; float z; };
				float main() {
					V v = V(1.0, 2.0, 3.0);
					v.y = 5.0;
					return v.x + v.y + v.z;
				}`,
			want: vm.Float(9),
		},
		{
			name: "Nested Struct Write",
			src: `
				struct P { int a; int b; };
				struct Box { P lo; P hi; };
				int main() {
					Box b = Box(P(1, 2), P(3, 4));
					b.hi.a = 30;
					P lo = b.lo;
					return b.hi.a + b.hi.b + lo.b;
				}`,
			want: vm.Int(36),
		},
		{
			name: "Struct Return",
			src: `
				struct P { int a; int b; };
				P swap(P p) { return P(p.b, p.a); }
				P main() { return swap(P(7, 9)); }`,
			want: vm.Pack(vm.Int(9), vm.Int(7)),
		},
		{
			name: "User Operators",
			src: `
				struct P { int a; int b; };
				P operator+(P l, P r) { return P(l.a + r.a, l.b + r.b); }
				P operator-(P v) { return P(-v.a, -v.b); }
				char operator==(P l, P r) { return l.a == r.a && l.b == r.b; }
				int main() {
					P s = P(1, 2) + P(10, 20);
					P n = -s;
					if (n == P(-11, -22)) { return s.b; }
					return 0;
				}`,
			want: vm.Int(22),
		},
		{
			name: "Void Function",
			src: `
				void noop(int v) { return; }
				int main() { noop(1); return 3; }`,
			want: vm.Int(3),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := mustCompile(t, tt.src, nil)
			be.Equal(t, execute(t, img), tt.want)
		})
	}
}

func TestNativeCalls(t *testing.T) {
	reg := NewRegistry()
	be.Err(t, reg.AddStruct("Vec", Field{TypeFloat, "x"}, Field{TypeFloat, "y"}), nil)
	be.Err(t, reg.AddFunction(TypeFloat, "sub", []string{TypeFloat, TypeFloat}, func(a vm.Args) (vm.Value, error) {
		return vm.Float(a.Float(0) - a.Float(1)), nil
	}), nil)
	be.Err(t, reg.AddFunction("Vec", "operator*", []string{"Vec", TypeFloat}, func(a vm.Args) (vm.Value, error) {
		k := a.Float(1)
		return vm.Pack(vm.Float(a.Field(0, 0, 4).Float()*k), vm.Float(a.Field(0, 4, 4).Float()*k)), nil
	}), nil)

	img := mustCompile(t, `
		float main() {
			Vec v = Vec(1.0, 2.0) * 3.0;
			return sub(v.y, v.x);
		}`, reg)
	be.Equal(t, execute(t, img).Float(), float32(3))
}

func TestUserOperatorBeatsNative(t *testing.T) {
	reg := NewRegistry()
	be.Err(t, reg.AddStruct("Vec", Field{TypeFloat, "x"}, Field{TypeFloat, "y"}), nil)
	be.Err(t, reg.AddFunction("Vec", "operator+", []string{"Vec", "Vec"}, func(vm.Args) (vm.Value, error) {
		return vm.Pack(vm.Float(7), vm.Float(0)), nil
	}), nil)

	const body = `
		float main() {
			Vec a = Vec(1.0, 2.0);
			Vec c = a + a;
			return c.x;
		}`
	be.Equal(t, execute(t, mustCompile(t, body, reg)).Float(), float32(7))

	img := mustCompile(t, "Vec operator+(Vec a, Vec b) { return Vec(100.0, 0.0); }\n"+body, reg)
	be.Equal(t, execute(t, img).Float(), float32(100))
}

func TestOperatorAndFunctionLabels(t *testing.T) {
	img := mustCompile(t, `
		struct V { int x; };
		V operator-(V a) { return V(0 - a.x); }
		int Vnegate() { return 1; }
		int main() {
			V v = -V(5);
			return v.x + Vnegate();
		}`, nil)
	be.Equal(t, execute(t, img).Int(), int32(-4))
}

func TestCustomEntry(t *testing.T) {
	img, err := Compile("void Update(float dt) { return; }", NewRegistry(), Options{Entry: "Update"})
	be.Err(t, err, nil)
	be.Equal(t, img.Entry, "Update")
	be.Equal(t, img.EntryReturnSize, 0)
	execute(t, img, vm.Float(0.5))
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind ErrorKind
		line int
		msg  string
	}{
		{"No Entry", "int helper() { return 1; }", SemanticError, 0, "no function called 'main' found"},
		{"Undefined Name", "int main() {\n return x;\n}", SemanticError, 2, "undefined name 'x'"},
		{"Type Mismatch", "int main() { return 1.5; }", SemanticError, 1, "expected an expression of type 'int' but got 'float'"},
		{"No Math On Ptr", "int main(ptr p) { p = p * 2; return 0; }", SemanticError, 1, "cannot perform binary math operation '*' on operand of type 'ptr'"},
		{"Missing Return", "int main() { int x = 1; }", SemanticError, 1, "missing 'return'-statement in function 'main'"},
		{"Argument Count", "int f(int a) { return a; }\nint main() { return f(1, 2); }", SemanticError, 2, "argument count in function call does not match parameter count"},
		{"Duplicate Function", "int main() { return 1; }\nint main() { return 2; }", SemanticError, 2, "function 'main' is already defined"},
		{"Duplicate Variable", "int main(int a) { int a = 1; return a; }", SemanticError, 1, "variable 'a' is already defined"},
		{"Duplicate Operator", "struct P { int a; };\nP operator+(P x, P y) { return x; }\nP operator+(P x, P y) { return y; }\nint main() { return 0; }", SemanticError, 3, "operator '+' for type 'P' is already defined"},
		{"Non Void Statement", "int main() { 1 + 2; return 0; }", SemanticError, 1, "expected an expression of type 'void'"},
		{"Void Return Value", "void main() { return 1; }", SemanticError, 1, "cannot return a value"},
		{"Unknown Property", "struct P { int a; };\nint main() { P p = P(1); return p.b; }", SemanticError, 2, "struct 'P' has no property 'b'"},
		{"Constructor Arity", "struct P { int a; int b; };\nint main() { P p = P(1); return 0; }", SemanticError, 2, "does not match parameter count"},
		{"Int Out Of Range", "int main() { return 3000000000; }", SemanticError, 1, "out of range"},
		{"Logical On Int", "char main() { return 1 && 2; }", SemanticError, 1, "'&&' on operand of type 'int'"},
		{"Break Outside Loop", "int main() { break; return 0; }", SemanticError, 1, "'break' outside of a while loop"},
		{"Lexical", "int main() { return 1 # 2; }", LexicalError, 1, "unexpected character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.src, NewRegistry(), Options{})
			var ce *Error
			be.True(t, errors.As(err, &ce))
			be.Equal(t, ce.Kind, tt.kind)
			be.Equal(t, ce.Line, tt.line)
			be.True(t, strings.Contains(ce.Msg, tt.msg))
		})
	}
}

func TestErrorSnippet(t *testing.T) {
	_, err := Compile("int main() {\n    return y;\n}", NewRegistry(), Options{})
	be.Equal(t, err.Error(), "line 2: semantic error: undefined name 'y'\n  |> return y;")
}

func TestDisassembleImage(t *testing.T) {
	img := mustCompile(t, "int main() { return 1; }", nil)
	listing, err := img.Disassemble()
	be.Err(t, err, nil)
	be.True(t, strings.Contains(listing, "main:"))
	be.True(t, strings.Contains(listing, "RETURN"))
}
