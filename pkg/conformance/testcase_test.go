package conformance

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

const fence = "```"

func TestExtractTestCases(t *testing.T) {
	markdown := `# Suite

Some prose.

` + fence + `
untagged blocks are ignored
` + fence + `

## Test: add
` + fence + `script
int main(int a, int b) {
    return a + b;
}
` + fence + `
` + fence + `args
int 2, int 3
` + fence + `
` + fence + `execute
int 5
` + fence + `

## Test: broken
` + fence + `entry
Update
` + fence + `
` + fence + `script
void Update() { return 1; }
` + fence + `
` + fence + `compile-error
cannot return a value
` + fence

	cases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(cases), 2)

	add := cases[0]
	be.Equal(t, add.Name, "add")
	be.Equal(t, add.Script, "int main(int a, int b) {\n    return a + b;\n}")
	be.Equal(t, add.Args, "int 2, int 3")
	be.Equal(t, add.Entry, "")
	be.Equal(t, add.Assertions, []Assertion{{Type: AssertionExecute, Content: "int 5", Line: 19}})

	broken := cases[1]
	be.Equal(t, broken.Entry, "Update")
	be.Equal(t, len(broken.Assertions), 1)
	be.Equal(t, broken.Assertions[0].Type, AssertionCompileError)
	be.Err(t, Run(broken), nil)
}

func TestExtractTestCasesErrors(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		msg      string
	}{
		{
			name:     "Fence Outside Test",
			markdown: fence + "script\nint main() { return 0; }\n" + fence,
			msg:      "outside of test case",
		},
		{
			name:     "Unknown Fence",
			markdown: "## Test: x\n" + fence + "python\nprint()\n" + fence,
			msg:      "unknown fence language 'python'",
		},
		{
			name:     "No Script",
			markdown: "## Test: x\n" + fence + "execute\nint 1\n" + fence,
			msg:      "has no script fence",
		},
		{
			name:     "No Assertion",
			markdown: "## Test: x\n" + fence + "script\nint main() { return 0; }\n" + fence,
			msg:      "has no assertion fences",
		},
		{
			name: "Two Scripts",
			markdown: "## Test: x\n" + fence + "script\nint main() { return 0; }\n" + fence +
				"\n" + fence + "script\nint main() { return 1; }\n" + fence,
			msg: "multiple script fences",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractTestCases(tt.markdown)
			be.Err(t, err)
			be.True(t, strings.Contains(err.Error(), tt.msg))
		})
	}
}
