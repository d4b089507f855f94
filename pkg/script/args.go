package script

import (
	"fmt"
	"strconv"
	"strings"

	"scriptvm/pkg/compiler"
	"scriptvm/pkg/vm"
)

// ParseArgs parses a comma separated list of typed literals such as
// "int 2, float 0.5, char 1". An empty string yields no arguments.
func ParseArgs(s string) ([]vm.Value, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []vm.Value
	for i, part := range strings.Split(s, ",") {
		typ, lit, ok := strings.Cut(strings.TrimSpace(part), " ")
		if !ok {
			return nil, fmt.Errorf("argument %d: expected '<type> <value>', got %q", i+1, part)
		}
		v, err := ParseValue(typ, strings.TrimSpace(lit))
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ParseValue encodes a single primitive literal.
func ParseValue(typ, lit string) (vm.Value, error) {
	switch typ {
	case compiler.TypeChar:
		n, err := strconv.ParseInt(lit, 0, 8)
		if err != nil {
			return nil, fmt.Errorf("char %q: %w", lit, err)
		}
		return vm.Char(int8(n)), nil
	case compiler.TypeInt:
		n, err := strconv.ParseInt(lit, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("int %q: %w", lit, err)
		}
		return vm.Int(int32(n)), nil
	case compiler.TypeFloat:
		f, err := strconv.ParseFloat(lit, 32)
		if err != nil {
			return nil, fmt.Errorf("float %q: %w", lit, err)
		}
		return vm.Float(float32(f)), nil
	case compiler.TypePtr:
		n, err := strconv.ParseUint(lit, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("ptr %q: %w", lit, err)
		}
		return vm.Ptr(n), nil
	}
	return nil, fmt.Errorf("unsupported argument type '%s'", typ)
}

// FormatValue renders v as "<type> <value>". Struct and unknown types are
// printed as raw bytes.
func FormatValue(typ string, v vm.Value) string {
	switch typ {
	case compiler.TypeVoid:
		return compiler.TypeVoid
	case compiler.TypeChar:
		return fmt.Sprintf("char %d", v.Char())
	case compiler.TypeInt:
		return fmt.Sprintf("int %d", v.Int())
	case compiler.TypeFloat:
		return "float " + strconv.FormatFloat(float64(v.Float()), 'g', -1, 32)
	case compiler.TypePtr:
		return fmt.Sprintf("ptr %#x", v.Ptr())
	}
	return fmt.Sprintf("%s % x", typ, []byte(v))
}
