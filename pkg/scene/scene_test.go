package scene

import (
	"math"
	"testing"

	"github.com/nalgeon/be"

	"scriptvm/pkg/compiler"
	"scriptvm/pkg/hostlib"
	"scriptvm/pkg/script"
	"scriptvm/pkg/vm"
)

func newProgram(t *testing.T, w *World, path, src string) *script.Program {
	t.Helper()
	p := script.NewProgram(path, 0, "Update")
	be.Err(t, hostlib.Register(p), nil)
	be.Err(t, w.Bind(p), nil)
	if src != "" {
		be.Err(t, p.CompileSource(src), nil)
	} else {
		be.Err(t, p.Compile(), nil)
	}
	return p
}

func near(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-3 }

func TestBallScript(t *testing.T) {
	w := NewWorld(100, 100)
	p := newProgram(t, w, "../../scripts/ball.sc", "")
	w.Spawn(Body{Pos: hostlib.Vec2{X: 50, Y: 10}, Vel: hostlib.Vec2{X: 10}})
	w.Spawn(Body{Pos: hostlib.Vec2{X: 99, Y: 0}, Vel: hostlib.Vec2{X: 10}})

	be.Err(t, w.Step(p, 0.5), nil)
	bodies := w.Bodies()

	falling := bodies[0]
	be.True(t, near(falling.Pos.X, 55))
	be.True(t, near(falling.Pos.Y, 100))
	be.True(t, near(falling.Vel.X, 10))
	be.True(t, near(falling.Vel.Y, -180))

	wall := bodies[1]
	be.True(t, near(wall.Pos.X, 100))
	be.True(t, near(wall.Vel.X, -10))

	w.SetKey(32, true)
	w.Reset()
	w.Spawn(Body{Pos: hostlib.Vec2{X: 50, Y: 99}})
	be.Err(t, w.Step(p, 0.5), nil)
	be.True(t, near(w.Bodies()[0].Vel.Y, -500))
}

func TestScreenSize(t *testing.T) {
	w := NewWorld(320, 200)
	p := newProgram(t, w, "", `
		void Update(ptr self, float dt) {
			Body b = get_body(self);
			b.pos = screen_size() * dt;
			set_body(self, b);
			return;
		}`)
	w.Spawn(Body{})
	be.Err(t, w.Step(p, 0.5), nil)
	be.Equal(t, w.Bodies()[0].Pos, hostlib.Vec2{X: 160, Y: 100})
}

func TestBadHandle(t *testing.T) {
	w := NewWorld(10, 10)
	p := newProgram(t, w, "", `
		void Update(ptr self, float dt) {
			Body b = get_body(self);
			return;
		}`)
	w.Spawn(Body{})

	_, err := p.Execute(compiler.TypeVoid, vm.Ptr(0), vm.Float(0))
	be.Err(t, err, ErrBadHandle)
	_, err = p.Execute(compiler.TypeVoid, vm.Ptr(2), vm.Float(0))
	be.Err(t, err, ErrBadHandle)
	_, err = p.Execute(compiler.TypeVoid, vm.Ptr(1), vm.Float(0))
	be.Err(t, err, nil)
}

func TestBodyValue(t *testing.T) {
	b := Body{Pos: hostlib.Vec2{X: 1, Y: 2}, Vel: hostlib.Vec2{X: 3, Y: 4}}
	v := b.Value()
	be.Equal(t, len(v), 16)
	be.Equal(t, BodyOf(v), b)
}

func TestBindTwice(t *testing.T) {
	w := NewWorld(1, 1)
	p := script.NewProgram("", 0, "")
	be.Err(t, hostlib.Register(p), nil)
	be.Err(t, w.Bind(p), nil)
	be.Err(t, w.Bind(p))
}
