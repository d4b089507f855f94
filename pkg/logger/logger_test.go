package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelWarn, "")
	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown %d", 1)
	log.Error("shown %d", 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	be.Equal(t, len(lines), 2)
	be.True(t, strings.Contains(lines[0], "WRN shown 1"))
	be.True(t, strings.Contains(lines[1], "ERR shown 2"))
	be.True(t, !log.Enabled(LevelInfo))
}

func TestWithPrefix(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo, "host").WithPrefix("reload")
	log.Info("ok")
	be.True(t, strings.Contains(buf.String(), "INF host/reload: ok"))
	be.True(t, !strings.Contains(buf.String(), "\x1b["))
}

func TestStep(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelDebug, "")
	done := log.Step("compile")
	done()
	out := buf.String()
	be.True(t, strings.Contains(out, "start compile"))
	be.True(t, strings.Contains(out, "compile done in"))
}

func TestCompilation(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo, "")
	log.Compilation("a.c", nil)
	log.Compilation("b.c", errors.New("boom"))
	out := buf.String()
	be.True(t, strings.Contains(out, "INF compiled a.c"))
	be.True(t, strings.Contains(out, "ERR compile b.c failed: boom"))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"", LevelInfo},
		{"warning", LevelWarn},
		{" error ", LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		be.Err(t, err, nil)
		be.Equal(t, got, tt.want)
	}
	_, err := ParseLevel("loud")
	be.Err(t, err)

	for _, l := range []Level{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		got, err := ParseLevel(l.String())
		be.Err(t, err, nil)
		be.Equal(t, got, l)
	}
	be.Equal(t, Level(9).String(), "level(9)")
}
