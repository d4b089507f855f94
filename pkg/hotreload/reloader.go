// Package hotreload recompiles a script when its file changes while the host
// keeps running the last good version.
package hotreload

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"scriptvm/pkg/logger"
	"scriptvm/pkg/script"
	"scriptvm/pkg/vm"
)

// Hook is called after every successful reload with the new generation id.
// Hooks run with the reloader locked and may use the program directly.
type Hook func(generation string, p *script.Program)

// Reloader owns a program and swaps in a new compilation when its file
// changes. A failed compile leaves the previous image running.
type Reloader struct {
	mu      sync.Mutex
	prog    *script.Program
	watch   *Watcher
	log     *logger.Logger
	gen     string
	hooks   []Hook
	reloads int
}

// New wraps prog, whose host functions and structs must already be bound.
// A nil log writes to stdout.
func New(prog *script.Program, log *logger.Logger) *Reloader {
	if log == nil {
		log = logger.Default()
	}
	return &Reloader{
		prog:  prog,
		watch: NewWatcher(prog.Path()),
		log:   log.WithPrefix("reload"),
	}
}

// OnReload registers a hook for successful reloads.
func (r *Reloader) OnReload(h Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, h)
}

// Init primes the watcher and performs the first compilation. The compile
// error is returned so a host can refuse to start without a program.
func (r *Reloader) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.watch.Init(); err != nil {
		return err
	}
	return r.compile()
}

// Poll recompiles when the file has changed. It reports whether a new
// image was swapped in.
func (r *Reloader) Poll() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	changed, err := r.watch.Changed()
	if err != nil {
		r.log.Warn("%v", err)
		return false, err
	}
	if !changed {
		return false, nil
	}
	if err := r.compile(); err != nil {
		return false, nil
	}
	return true, nil
}

func (r *Reloader) compile() error {
	done := r.log.Step("compile " + r.prog.Path())
	if err := r.prog.Compile(); err != nil {
		r.log.Compilation(r.prog.Path(), err)
		if r.prog.Compiled() {
			r.log.Warn("keeping generation %s", r.gen)
		}
		return err
	}
	done()
	r.gen = uuid.NewString()
	r.reloads++
	r.log.Info("generation %s", r.gen)
	if r.log.Enabled(logger.LevelDebug) {
		if listing, err := r.prog.Image().Disassemble(); err == nil {
			r.log.Debug("listing for %s:\n%s", r.gen, listing)
		}
	}
	for _, h := range r.hooks {
		h(r.gen, r.prog)
	}
	return nil
}

// Execute runs the current program's entry function.
func (r *Reloader) Execute(ret string, args ...vm.Value) (vm.Value, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.prog.Execute(ret, args...)
}

// With calls fn with the program while holding the reloader lock, so fn
// sees one generation throughout.
func (r *Reloader) With(fn func(p *script.Program)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.prog)
}

// Current returns the generation id of the running image, or "" before the
// first successful compile.
func (r *Reloader) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen
}

// Reloads counts successful compilations, the initial one included.
func (r *Reloader) Reloads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reloads
}

// Run polls every interval until ctx is done.
func (r *Reloader) Run(ctx context.Context, interval time.Duration) {
	r.log.Info("watching %s every %v", r.watch.Path(), interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Poll()
		case <-ctx.Done():
			return
		}
	}
}
