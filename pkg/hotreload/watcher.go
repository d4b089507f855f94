package hotreload

import (
	"fmt"
	"os"
	"time"
)

// Watcher reports when a file's modification time moves forward.
type Watcher struct {
	path     string
	lastSeen time.Time
}

// NewWatcher returns a watcher for path. Call Init before the first Changed
// so that the current version is not reported as new.
func NewWatcher(path string) *Watcher {
	return &Watcher{path: path}
}

func (w *Watcher) Path() string { return w.path }

// Init records the current modification time.
func (w *Watcher) Init() error {
	_, err := w.Changed()
	return err
}

// Changed reports whether the file was written since the last call.
func (w *Watcher) Changed() (bool, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return false, fmt.Errorf("watch %s: %w", w.path, err)
	}
	if mod := info.ModTime(); mod.After(w.lastSeen) {
		w.lastSeen = mod
		return true, nil
	}
	return false, nil
}
