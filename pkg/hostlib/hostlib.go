// Package hostlib provides the standard host bindings for scripts: vector
// structs, math functions and vector operators.
package hostlib

import (
	"fmt"
	"math"

	"scriptvm/pkg/compiler"
	"scriptvm/pkg/vm"
)

// Binder is anything host functions and structs can be registered with,
// such as *script.Program or *compiler.Registry.
type Binder interface {
	AddFunction(ret, name string, params []string, fn vm.NativeFunc) error
	AddStruct(name string, fields ...compiler.Field) error
}

const (
	tFloat = compiler.TypeFloat
	tInt   = compiler.TypeInt
)

type binding struct {
	ret    string
	name   string
	params []string
	fn     vm.NativeFunc
}

// Vec2 and Vec3 mirror the script struct layouts.
type Vec2 struct{ X, Y float32 }
type Vec3 struct{ X, Y, Z float32 }

func (v Vec2) Value() vm.Value { return vm.Pack(vm.Float(v.X), vm.Float(v.Y)) }
func (v Vec3) Value() vm.Value { return vm.Pack(vm.Float(v.X), vm.Float(v.Y), vm.Float(v.Z)) }

func Vec2Of(v vm.Value) Vec2 {
	return Vec2{v.Field(0, 4).Float(), v.Field(4, 4).Float()}
}

func Vec3Of(v vm.Value) Vec3 {
	return Vec3{v.Field(0, 4).Float(), v.Field(4, 4).Float(), v.Field(8, 4).Float()}
}

func unary(f func(float64) float64) vm.NativeFunc {
	return func(a vm.Args) (vm.Value, error) {
		return vm.Float(float32(f(float64(a.Float(0))))), nil
	}
}

func binary(f func(a, b float32) float32) vm.NativeFunc {
	return func(a vm.Args) (vm.Value, error) {
		return vm.Float(f(a.Float(0), a.Float(1))), nil
	}
}

var bindings = []binding{
	{tFloat, "sqrt", []string{tFloat}, unary(math.Sqrt)},
	{tFloat, "sin", []string{tFloat}, unary(math.Sin)},
	{tFloat, "cos", []string{tFloat}, unary(math.Cos)},
	{tFloat, "abs", []string{tFloat}, unary(math.Abs)},
	{tFloat, "floor", []string{tFloat}, unary(math.Floor)},
	{tFloat, "min", []string{tFloat, tFloat}, binary(func(a, b float32) float32 { return min(a, b) })},
	{tFloat, "max", []string{tFloat, tFloat}, binary(func(a, b float32) float32 { return max(a, b) })},
	{tFloat, "int_to_float", []string{tInt}, func(a vm.Args) (vm.Value, error) {
		return vm.Float(float32(a.Int(0))), nil
	}},
	{tInt, "float_to_int", []string{tFloat}, func(a vm.Args) (vm.Value, error) {
		return vm.Int(int32(a.Float(0))), nil
	}},

	{tFloat, "length", []string{"Vec2"}, func(a vm.Args) (vm.Value, error) {
		v := Vec2Of(a.Value(0))
		return vm.Float(float32(math.Hypot(float64(v.X), float64(v.Y)))), nil
	}},
	{tFloat, "length3", []string{"Vec3"}, func(a vm.Args) (vm.Value, error) {
		v := Vec3Of(a.Value(0))
		return vm.Float(float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y + v.Z*v.Z)))), nil
	}},
	{tFloat, "dot", []string{"Vec2", "Vec2"}, func(a vm.Args) (vm.Value, error) {
		l, r := Vec2Of(a.Value(0)), Vec2Of(a.Value(1))
		return vm.Float(l.X*r.X + l.Y*r.Y), nil
	}},

	{"Vec2", "operator+", []string{"Vec2", "Vec2"}, func(a vm.Args) (vm.Value, error) {
		l, r := Vec2Of(a.Value(0)), Vec2Of(a.Value(1))
		return Vec2{l.X + r.X, l.Y + r.Y}.Value(), nil
	}},
	{"Vec2", "operator-", []string{"Vec2", "Vec2"}, func(a vm.Args) (vm.Value, error) {
		l, r := Vec2Of(a.Value(0)), Vec2Of(a.Value(1))
		return Vec2{l.X - r.X, l.Y - r.Y}.Value(), nil
	}},
	{"Vec2", "operator*", []string{"Vec2", tFloat}, func(a vm.Args) (vm.Value, error) {
		v, k := Vec2Of(a.Value(0)), a.Float(1)
		return Vec2{v.X * k, v.Y * k}.Value(), nil
	}},
	{"Vec2", "operator-", []string{"Vec2"}, func(a vm.Args) (vm.Value, error) {
		v := Vec2Of(a.Value(0))
		return Vec2{-v.X, -v.Y}.Value(), nil
	}},

	{"Vec3", "operator+", []string{"Vec3", "Vec3"}, func(a vm.Args) (vm.Value, error) {
		l, r := Vec3Of(a.Value(0)), Vec3Of(a.Value(1))
		return Vec3{l.X + r.X, l.Y + r.Y, l.Z + r.Z}.Value(), nil
	}},
	{"Vec3", "operator-", []string{"Vec3", "Vec3"}, func(a vm.Args) (vm.Value, error) {
		l, r := Vec3Of(a.Value(0)), Vec3Of(a.Value(1))
		return Vec3{l.X - r.X, l.Y - r.Y, l.Z - r.Z}.Value(), nil
	}},
	{"Vec3", "operator*", []string{"Vec3", tFloat}, func(a vm.Args) (vm.Value, error) {
		v, k := Vec3Of(a.Value(0)), a.Float(1)
		return Vec3{v.X * k, v.Y * k, v.Z * k}.Value(), nil
	}},
}

// Register binds the vector structs, math functions and vector operators.
func Register(b Binder) error {
	if err := b.AddStruct("Vec2", compiler.Field{Type: tFloat, Name: "x"}, compiler.Field{Type: tFloat, Name: "y"}); err != nil {
		return fmt.Errorf("hostlib: %w", err)
	}
	if err := b.AddStruct("Vec3",
		compiler.Field{Type: tFloat, Name: "x"}, compiler.Field{Type: tFloat, Name: "y"}, compiler.Field{Type: tFloat, Name: "z"}); err != nil {
		return fmt.Errorf("hostlib: %w", err)
	}
	for _, fb := range bindings {
		if err := b.AddFunction(fb.ret, fb.name, fb.params, fb.fn); err != nil {
			return fmt.Errorf("hostlib: %w", err)
		}
	}
	return nil
}
