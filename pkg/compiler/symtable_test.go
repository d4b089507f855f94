package compiler

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"scriptvm/pkg/vm"
)

func nopNative(vm.Args) (vm.Value, error) { return vm.Int(0), nil }

func TestStructLayout(t *testing.T) {
	reg := NewRegistry()
	err := reg.AddStruct("Vec3", Field{TypeFloat, "x"}, Field{TypeFloat, "y"}, Field{TypeFloat, "z"})
	be.Err(t, err, nil)

	st, ok := reg.Struct("Vec3")
	be.True(t, ok)
	be.Equal(t, st.Size, 12)
	be.Equal(t, st.Properties, []string{"x", "y", "z"})
	be.Equal(t, st.Fields["x"].Offset, 0)
	be.Equal(t, st.Fields["y"].Offset, 4)
	be.Equal(t, st.Fields["z"].Offset, 8)

	t.Run("Nested", func(t *testing.T) {
		err := reg.AddStruct("Ray", Field{"Vec3", "origin"}, Field{TypeChar, "hit"}, Field{"Vec3", "dir"})
		be.Err(t, err, nil)
		ray, _ := reg.Struct("Ray")
		be.Equal(t, ray.Fields["hit"].Offset, 12)
		be.Equal(t, ray.Fields["dir"].Offset, 13)
		be.Equal(t, ray.Size, 25)
	})
}

func TestAddStructErrors(t *testing.T) {
	reg := NewRegistry()
	be.Err(t, reg.AddStruct("P", Field{TypeInt, "a"}), nil)

	tests := []struct {
		name   string
		sname  string
		fields []Field
		msg    string
	}{
		{"Existing Type", "P", []Field{{TypeInt, "a"}}, "already defined"},
		{"Primitive Name", "int", []Field{{TypeInt, "a"}}, "already defined"},
		{"No Properties", "E", nil, "no properties"},
		{"Self Containment", "S", []Field{{"S", "s"}}, "cannot contain itself"},
		{"Unknown Field Type", "Q", []Field{{"Nope", "a"}}, "is not defined"},
		{"Repeated Field", "R", []Field{{TypeInt, "a"}, {TypeChar, "a"}}, "already defined in struct"},
		{"Void Field", "V", []Field{{TypeVoid, "a"}}, "cannot be void"},
		{"Bad Name", "9lives", []Field{{TypeInt, "a"}}, "invalid struct name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.AddStruct(tt.sname, tt.fields...)
			be.True(t, err != nil)
			be.True(t, strings.Contains(err.Error(), tt.msg))
		})
	}
}

func TestAddFunction(t *testing.T) {
	reg := NewRegistry()
	be.Err(t, reg.AddStruct("Vec2", Field{TypeFloat, "x"}, Field{TypeFloat, "y"}), nil)

	be.Err(t, reg.AddFunction(TypeFloat, "sqrt", []string{TypeFloat}, nopNative), nil)
	be.Err(t, reg.AddFunction("Vec2", "operator+", []string{"Vec2", "Vec2"}, nopNative), nil)
	be.Err(t, reg.AddFunction("Vec2", "operator-", []string{"Vec2"}, nopNative), nil)
	be.Err(t, reg.AddFunction(TypeChar, "operator==", []string{"Vec2", "Vec2"}, nopNative), nil)

	be.True(t, reg.NativeNames()["sqrt"])
	be.True(t, !reg.NativeNames()["operator+"])
	be.True(t, reg.nativeOps["Vec2"]["+"] != nil)
	be.True(t, reg.nativeOps["Vec2"][negateOp] != nil)

	natives := reg.Natives()
	be.Equal(t, len(natives), 4)
	be.Equal(t, natives[0].Name, "sqrt")
	be.Equal(t, natives[1].ParamSizes, []int{8, 8})
	be.Equal(t, natives[1].ReturnSize, 8)
	be.Equal(t, reg.nativeOps["Vec2"]["+"].Index, 1)

	tests := []struct {
		name   string
		ret    string
		fname  string
		params []string
		msg    string
	}{
		{"Duplicate", TypeFloat, "sqrt", []string{TypeFloat}, "already defined"},
		{"Duplicate Operator", "Vec2", "operator+", []string{"Vec2", "Vec2"}, "already defined"},
		{"Type Name", TypeInt, "Vec2", nil, "already used by a type"},
		{"Unknown Return", "Nope", "f", nil, "return type 'Nope'"},
		{"Unknown Param", TypeInt, "f", []string{"Nope"}, "parameter type 'Nope'"},
		{"Operator Without Params", TypeInt, "operator*", nil, "takes 2 parameters"},
		{"Comparison Returns Char", TypeInt, "operator<", []string{TypeInt, TypeInt}, "must return char"},
		{"Bad Name", TypeInt, "no-dash", nil, "invalid native function name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.AddFunction(tt.ret, tt.fname, tt.params, nopNative)
			be.True(t, err != nil)
			be.True(t, strings.Contains(err.Error(), tt.msg))
		})
	}
}
