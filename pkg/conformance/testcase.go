// Package conformance runs markdown suites of script programs against the
// compiler and virtual machine.
//
// A suite is a markdown document. Every heading starting with "Test: "
// opens a case, followed by fenced blocks:
//
//	script         the program source (exactly one)
//	args           typed arguments for the entry function, e.g. "int 2, int 3"
//	entry          the entry function name, when not main
//	execute        the expected result, e.g. "int 5"
//	compile-error  a fragment the compile error message must contain
package conformance

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// AssertionType is the fence language of an expectation.
type AssertionType string

const (
	AssertionExecute      AssertionType = "execute"
	AssertionCompileError AssertionType = "compile-error"
)

const (
	fenceScript = "script"
	fenceArgs   = "args"
	fenceEntry  = "entry"
)

type Assertion struct {
	Type    AssertionType
	Content string
	Line    int
}

// TestCase is one "Test: " section of a suite.
type TestCase struct {
	Name       string
	Script     string
	Args       string
	Entry      string
	Assertions []Assertion
	Line       int
}

// ExtractTestCases parses a suite and returns its cases in document order.
func ExtractTestCases(markdown string) ([]TestCase, error) {
	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var cases []TestCase
	var cur *TestCase

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.Heading:
			heading := nodeText(n, source)
			name, ok := strings.CutPrefix(heading, "Test: ")
			if !ok {
				return ast.WalkContinue, nil
			}
			if cur != nil {
				if err := validate(cur); err != nil {
					return ast.WalkStop, err
				}
				cases = append(cases, *cur)
			}
			cur = &TestCase{Name: name, Line: lineOf(n, source)}

		case *ast.FencedCodeBlock:
			lang := string(n.Language(source))
			line := lineOf(n, source)
			content := strings.TrimRight(blockContent(n, source), "\n")

			if cur == nil {
				if lang != "" {
					return ast.WalkStop, fmt.Errorf("line %d: %s fence found outside of test case", line, lang)
				}
				return ast.WalkContinue, nil
			}

			switch lang {
			case fenceScript:
				if cur.Script != "" {
					return ast.WalkStop, fmt.Errorf("line %d: multiple script fences in test '%s'", line, cur.Name)
				}
				cur.Script = content
			case fenceArgs:
				cur.Args = strings.TrimSpace(content)
			case fenceEntry:
				cur.Entry = strings.TrimSpace(content)
			case string(AssertionExecute), string(AssertionCompileError):
				cur.Assertions = append(cur.Assertions, Assertion{
					Type:    AssertionType(lang),
					Content: strings.TrimSpace(content),
					Line:    line,
				})
			case "":
			default:
				return ast.WalkStop, fmt.Errorf("line %d: unknown fence language '%s' in test '%s'", line, lang, cur.Name)
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking markdown AST: %w", err)
	}

	if cur != nil {
		if err := validate(cur); err != nil {
			return nil, err
		}
		cases = append(cases, *cur)
	}
	return cases, nil
}

func validate(tc *TestCase) error {
	if tc.Script == "" {
		return fmt.Errorf("test '%s' has no script fence", tc.Name)
	}
	if len(tc.Assertions) == 0 {
		return fmt.Errorf("test '%s' has no assertion fences", tc.Name)
	}
	return nil
}

func nodeText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func blockContent(block *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}

// lineOf returns the 1-based source line of the node's first content line.
func lineOf(node ast.Node, source []byte) int {
	if node.Lines().Len() == 0 {
		return 1
	}
	start := node.Lines().At(0).Start
	return bytes.Count(source[:min(start, len(source))], []byte("\n")) + 1
}
