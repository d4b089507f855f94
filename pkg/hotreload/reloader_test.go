package hotreload

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nalgeon/be"

	"scriptvm/pkg/compiler"
	"scriptvm/pkg/logger"
	"scriptvm/pkg/script"
	"scriptvm/pkg/vm"
)

// rewrite replaces the file content and pushes its mtime forward so the
// change is visible regardless of filesystem timestamp resolution.
func rewrite(t *testing.T, path, src string, age int) {
	t.Helper()
	be.Err(t, os.WriteFile(path, []byte(src), 0644), nil)
	stamp := time.Now().Add(time.Duration(age) * time.Second)
	be.Err(t, os.Chtimes(path, stamp, stamp), nil)
}

func newReloader(t *testing.T, src string) (*Reloader, string, *bytes.Buffer) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.sc")
	rewrite(t, path, src, 0)
	var buf bytes.Buffer
	r := New(script.NewProgram(path, 0, ""), logger.New(&buf, logger.LevelDebug, ""))
	return r, path, &buf
}

func run(t *testing.T, r *Reloader) int32 {
	t.Helper()
	got, err := r.Execute(compiler.TypeInt)
	be.Err(t, err, nil)
	return got.Int()
}

func TestWatcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	rewrite(t, path, "a", 0)
	w := NewWatcher(path)
	be.Equal(t, w.Path(), path)
	be.Err(t, w.Init(), nil)

	changed, err := w.Changed()
	be.Err(t, err, nil)
	be.True(t, !changed)

	rewrite(t, path, "b", 10)
	changed, err = w.Changed()
	be.Err(t, err, nil)
	be.True(t, changed)

	changed, err = w.Changed()
	be.Err(t, err, nil)
	be.True(t, !changed)

	be.Err(t, os.Remove(path), nil)
	_, err = w.Changed()
	be.Err(t, err, os.ErrNotExist)
}

func TestReloadSwapsOnSuccess(t *testing.T) {
	r, path, _ := newReloader(t, "int main() { return 1; }")
	var hooked []string
	r.OnReload(func(gen string, p *script.Program) {
		be.True(t, p.Compiled())
		hooked = append(hooked, gen)
	})

	be.Err(t, r.Init(), nil)
	be.Equal(t, run(t, r), int32(1))
	first := r.Current()
	be.True(t, first != "")

	swapped, err := r.Poll()
	be.Err(t, err, nil)
	be.True(t, !swapped)

	rewrite(t, path, "int main() { return 2; }", 10)
	swapped, err = r.Poll()
	be.Err(t, err, nil)
	be.True(t, swapped)
	be.Equal(t, run(t, r), int32(2))
	be.True(t, r.Current() != first)
	be.Equal(t, r.Reloads(), 2)
	be.Equal(t, hooked, []string{first, r.Current()})
}

func TestReloadKeepsOldProgramOnFailure(t *testing.T) {
	r, path, buf := newReloader(t, "int main() { return 1; }")
	be.Err(t, r.Init(), nil)
	gen := r.Current()

	rewrite(t, path, "int main() { return 1 }", 10)
	swapped, err := r.Poll()
	be.Err(t, err, nil)
	be.True(t, !swapped)
	be.Equal(t, run(t, r), int32(1))
	be.Equal(t, r.Current(), gen)
	be.True(t, strings.Contains(buf.String(), "keeping generation "+gen))

	rewrite(t, path, "int main() { return 3; }", 20)
	swapped, err = r.Poll()
	be.Err(t, err, nil)
	be.True(t, swapped)
	be.Equal(t, run(t, r), int32(3))
}

func TestInitFailure(t *testing.T) {
	r, _, _ := newReloader(t, "int main() { break; return 0; }")
	err := r.Init()
	var cerr *compiler.Error
	be.True(t, errors.As(err, &cerr))
	be.Equal(t, r.Current(), "")

	_, err = r.Execute(compiler.TypeInt)
	be.Err(t, err, script.ErrNotCompiled)
}

func TestRunStopsWithContext(t *testing.T) {
	r, path, buf := newReloader(t, "int main() { return 1; }")
	be.Err(t, r.Init(), nil)
	rewrite(t, path, "int main() { return 5; }", 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for r.Reloads() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done
	be.Equal(t, run(t, r), int32(5))
	be.True(t, strings.Contains(buf.String(), "watching "+path))
}

func TestDebugListing(t *testing.T) {
	r, _, buf := newReloader(t, "int main() { return 1; }")
	be.Err(t, r.Init(), nil)
	be.True(t, strings.Contains(buf.String(), "listing for "+r.Current()))
	be.True(t, strings.Contains(buf.String(), "RETURN"))

	path := filepath.Join(t.TempDir(), "main.sc")
	rewrite(t, path, "int main() { return 1; }", 0)
	var quiet bytes.Buffer
	r = New(script.NewProgram(path, 0, ""), logger.New(&quiet, logger.LevelInfo, ""))
	be.Err(t, r.Init(), nil)
	be.True(t, strings.Contains(quiet.String(), "generation "))
	be.True(t, !strings.Contains(quiet.String(), "listing"))
}

func TestExecuteArguments(t *testing.T) {
	r, _, _ := newReloader(t, "int main(int a, int b) { return a * b; }")
	be.Err(t, r.Init(), nil)
	got, err := r.Execute(compiler.TypeInt, vm.Int(6), vm.Int(7))
	be.Err(t, err, nil)
	be.Equal(t, got.Int(), int32(42))
}

func TestWith(t *testing.T) {
	r, _, _ := newReloader(t, "int main() { return 8; }")
	be.Err(t, r.Init(), nil)
	r.With(func(p *script.Program) {
		be.Equal(t, p.Image().EntryReturnType, compiler.TypeInt)
		got, err := p.Execute(compiler.TypeInt)
		be.Err(t, err, nil)
		be.Equal(t, got.Int(), int32(8))
	})
}
