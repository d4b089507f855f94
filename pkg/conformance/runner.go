package conformance

import (
	"errors"
	"fmt"
	"strings"

	"scriptvm/pkg/compiler"
	"scriptvm/pkg/hostlib"
	"scriptvm/pkg/script"
)

// ErrMismatch is returned when a case compiles and runs but an expectation
// does not hold.
var ErrMismatch = errors.New("expectation mismatch")

// Run compiles and executes one case with the standard host library bound.
// It returns nil when every assertion holds.
func Run(tc TestCase) error {
	prog := script.NewProgram("", 0, tc.Entry)
	if err := hostlib.Register(prog); err != nil {
		return fmt.Errorf("bind host library: %w", err)
	}
	compileErr := prog.CompileSource(tc.Script)

	for _, a := range tc.Assertions {
		var err error
		switch a.Type {
		case AssertionCompileError:
			err = checkCompileError(compileErr, a.Content)
		case AssertionExecute:
			err = compileErr
			if err == nil {
				err = checkExecute(prog, tc.Args, a.Content)
			}
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", a.Line, err)
		}
	}
	return nil
}

func checkCompileError(err error, want string) error {
	var cerr *compiler.Error
	if !errors.As(err, &cerr) {
		return fmt.Errorf("%w: expected compile error containing %q, got %v", ErrMismatch, want, err)
	}
	if !strings.Contains(cerr.Error(), want) {
		return fmt.Errorf("%w: compile error %q does not contain %q", ErrMismatch, cerr.Error(), want)
	}
	return nil
}

func checkExecute(prog *script.Program, args, want string) error {
	values, err := script.ParseArgs(args)
	if err != nil {
		return err
	}
	ret, _, _ := strings.Cut(want, " ")
	got, err := prog.Execute(ret, values...)
	if err != nil {
		return err
	}
	if s := script.FormatValue(ret, got); s != want {
		return fmt.Errorf("%w: got %q, want %q", ErrMismatch, s, want)
	}
	return nil
}
