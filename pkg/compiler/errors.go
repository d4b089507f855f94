package compiler

import (
	"fmt"
	"strings"
)

// ErrorKind classifies compile errors by the stage that raised them.
type ErrorKind int

const (
	LexicalError ErrorKind = iota
	SyntaxError
	SemanticError
)

func (k ErrorKind) String() string {
	switch k {
	case LexicalError:
		return "lexical error"
	case SyntaxError:
		return "syntax error"
	case SemanticError:
		return "semantic error"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is the single error value every compile stage returns. Compilation
// stops at the first one.
type Error struct {
	Kind    ErrorKind
	Line    int // 0 when no source position applies
	Msg     string
	Snippet string // offending source line, filled in by Compile
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&sb, "line %d: ", e.Line)
	}
	fmt.Fprintf(&sb, "%s: %s", e.Kind, e.Msg)
	if e.Snippet != "" {
		fmt.Fprintf(&sb, "\n  |> %s", e.Snippet)
	}
	return sb.String()
}

func errorf(kind ErrorKind, line int, format string, args ...any) *Error {
	return &Error{Kind: kind, Line: line, Msg: fmt.Sprintf(format, args...)}
}

func lexErrorf(line int, format string, args ...any) *Error {
	return errorf(LexicalError, line, format, args...)
}

func syntaxErrorf(tok Token, format string, args ...any) *Error {
	return errorf(SyntaxError, tok.Line, format, args...)
}

func semanticErrorf(tok Token, format string, args ...any) *Error {
	return errorf(SemanticError, tok.Line, format, args...)
}

// attachSource fills in the snippet of e from src.
func attachSource(e *Error, src string) {
	if e == nil || e.Line <= 0 {
		return
	}
	lines := strings.Split(src, "\n")
	if e.Line-1 < len(lines) {
		e.Snippet = strings.TrimSpace(lines[e.Line-1])
	}
}
