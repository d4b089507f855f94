// Package scene is a minimal world of moving bodies driven by per-object
// scripts. Each frame the host calls
//
//	void Update(ptr self, float dt)
//
// once per body, where self is the body's handle. Scripts read and write
// their body through the natives bound by World.Bind.
package scene

import (
	"errors"
	"fmt"

	"scriptvm/pkg/compiler"
	"scriptvm/pkg/hostlib"
	"scriptvm/pkg/vm"
)

// ErrBadHandle is returned by the natives for a self pointer that names no
// body.
var ErrBadHandle = errors.New("invalid body handle")

// Executor runs a compiled Update function.
type Executor interface {
	Execute(ret string, args ...vm.Value) (vm.Value, error)
}

// Body mirrors the script struct
//
//	struct Body { Vec2 pos; Vec2 vel; };
type Body struct {
	Pos hostlib.Vec2
	Vel hostlib.Vec2
}

func (b Body) Value() vm.Value { return vm.Pack(b.Pos.Value(), b.Vel.Value()) }

func BodyOf(v vm.Value) Body {
	return Body{Pos: hostlib.Vec2Of(v.Field(0, 8)), Vel: hostlib.Vec2Of(v.Field(8, 8))}
}

// World owns the bodies and the input state the scripts observe. It is
// not safe for concurrent use.
type World struct {
	Width, Height float32

	bodies []Body
	keys   map[int32]bool
}

func NewWorld(width, height float32) *World {
	return &World{Width: width, Height: height, keys: make(map[int32]bool)}
}

// Spawn adds a body and returns its handle.
func (w *World) Spawn(b Body) uint64 {
	w.bodies = append(w.bodies, b)
	return uint64(len(w.bodies))
}

// Bodies returns a copy of the current bodies in spawn order.
func (w *World) Bodies() []Body { return append([]Body(nil), w.bodies...) }

func (w *World) Reset() { w.bodies = w.bodies[:0] }

// SetKey records the state of a key code as reported by key_down.
func (w *World) SetKey(code int32, down bool) { w.keys[code] = down }

func (w *World) body(handle uint64) (*Body, error) {
	if handle == 0 || handle > uint64(len(w.bodies)) {
		return nil, fmt.Errorf("%w: %d", ErrBadHandle, handle)
	}
	return &w.bodies[handle-1], nil
}

// Bind registers the Body struct and the world natives. The host library
// must already be bound, since Body is built from Vec2.
func (w *World) Bind(b hostlib.Binder) error {
	vec2 := "Vec2"
	if err := b.AddStruct("Body", compiler.Field{Type: vec2, Name: "pos"}, compiler.Field{Type: vec2, Name: "vel"}); err != nil {
		return fmt.Errorf("scene: %w", err)
	}

	bindings := []struct {
		ret    string
		name   string
		params []string
		fn     vm.NativeFunc
	}{
		{"Body", "get_body", []string{compiler.TypePtr}, func(a vm.Args) (vm.Value, error) {
			body, err := w.body(a.Ptr(0))
			if err != nil {
				return nil, err
			}
			return body.Value(), nil
		}},
		{compiler.TypeVoid, "set_body", []string{compiler.TypePtr, "Body"}, func(a vm.Args) (vm.Value, error) {
			body, err := w.body(a.Ptr(0))
			if err != nil {
				return nil, err
			}
			*body = BodyOf(a.Value(1))
			return nil, nil
		}},
		{vec2, "screen_size", nil, func(vm.Args) (vm.Value, error) {
			return hostlib.Vec2{X: w.Width, Y: w.Height}.Value(), nil
		}},
		{compiler.TypeChar, "key_down", []string{compiler.TypeInt}, func(a vm.Args) (vm.Value, error) {
			return vm.Bool(w.keys[a.Int(0)]), nil
		}},
	}
	for _, fb := range bindings {
		if err := b.AddFunction(fb.ret, fb.name, fb.params, fb.fn); err != nil {
			return fmt.Errorf("scene: %w", err)
		}
	}
	return nil
}

// Step runs the Update script once for every body.
func (w *World) Step(ex Executor, dt float32) error {
	for i := range w.bodies {
		if _, err := ex.Execute(compiler.TypeVoid, vm.Ptr(uint64(i+1)), vm.Float(dt)); err != nil {
			return fmt.Errorf("update body %d: %w", i+1, err)
		}
	}
	return nil
}
