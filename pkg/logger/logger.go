// Package logger writes leveled, timestamped lines for the script hosts:
//
//	15:04:05.000 INF desktop/reload: generation 3f2a...
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// levels holds the config name, the line tag and the terminal color of
// each Level.
var levels = [...]struct{ name, tag, color string }{
	LevelDebug: {"debug", "DBG", "\x1b[90m"},
	LevelInfo:  {"info", "INF", "\x1b[36m"},
	LevelWarn:  {"warn", "WRN", "\x1b[33m"},
	LevelError: {"error", "ERR", "\x1b[31m"},
}

const colorReset = "\x1b[0m"

func (l Level) valid() bool { return l >= 0 && int(l) < len(levels) }

// String returns the name ParseLevel accepts.
func (l Level) String() string {
	if !l.valid() {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levels[l].name
}

// ParseLevel maps a level name in any case to its Level. Empty selects info.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return LevelInfo, nil
	case "warning":
		return LevelWarn, nil
	}
	for l, lv := range levels {
		if lv.name == s {
			return Level(l), nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

var (
	colorOnce sync.Once
	colorOK   bool
)

// stdoutColor reports whether stdout is a terminal that accepts ANSI colors.
func stdoutColor() bool {
	colorOnce.Do(func() {
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			return
		}
		if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
			return
		}
		colorOK = os.Getenv("TERM") != "dumb"
	})
	return colorOK
}

// Logger is safe for concurrent use. Loggers derived with WithPrefix share
// one lock per writer.
type Logger struct {
	mu       *sync.Mutex
	out      io.Writer
	minLevel Level
	prefix   string
	color    bool
}

// New returns a logger writing to out, or stdout when out is nil. Tags are
// colored only when out is a stdout terminal.
func New(out io.Writer, minLevel Level, prefix string) *Logger {
	if out == nil {
		out = os.Stdout
	}
	return &Logger{
		mu:       new(sync.Mutex),
		out:      out,
		minLevel: minLevel,
		prefix:   prefix,
		color:    out == io.Writer(os.Stdout) && stdoutColor(),
	}
}

func Default() *Logger { return New(nil, LevelInfo, "") }

// WithPrefix returns a logger whose prefix is nested under l's as "l/prefix".
func (l *Logger) WithPrefix(prefix string) *Logger {
	sub := *l
	if l.prefix != "" {
		prefix = l.prefix + "/" + prefix
	}
	sub.prefix = prefix
	return &sub
}

// Enabled reports whether messages at level are written. Callers use it to
// skip building expensive messages.
func (l *Logger) Enabled(level Level) bool { return level >= l.minLevel }

func (l *Logger) output(level Level, format string, args []any) {
	if !l.Enabled(level) {
		return
	}
	tag := "???"
	if level.valid() {
		tag = levels[level].tag
		if l.color {
			tag = levels[level].color + tag + colorReset
		}
	}

	line := time.Now().AppendFormat(make([]byte, 0, 80), "15:04:05.000")
	line = append(line, ' ')
	line = append(line, tag...)
	line = append(line, ' ')
	if l.prefix != "" {
		line = append(line, l.prefix...)
		line = append(line, ": "...)
	}
	line = fmt.Appendf(line, format, args...)
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.Write(line)
}

func (l *Logger) Debug(format string, args ...any) { l.output(LevelDebug, format, args) }
func (l *Logger) Info(format string, args ...any)  { l.output(LevelInfo, format, args) }
func (l *Logger) Warn(format string, args ...any)  { l.output(LevelWarn, format, args) }
func (l *Logger) Error(format string, args ...any) { l.output(LevelError, format, args) }

// Step logs the start of name at debug level and returns a func that logs
// how long it took.
func (l *Logger) Step(name string) func() {
	start := time.Now()
	l.Debug("start %s", name)
	return func() {
		l.Info("%s done in %v", name, time.Since(start).Round(time.Microsecond))
	}
}

// Compilation logs the outcome of compiling path.
func (l *Logger) Compilation(path string, err error) {
	if err != nil {
		l.Error("compile %s failed: %v", path, err)
		return
	}
	l.Info("compiled %s", path)
}
