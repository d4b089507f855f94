// Command ccompiler prints every compiler stage for a script: tokens, the
// structured tree, the host registry and the bytecode listing.
package main

import (
	"fmt"
	"os"

	"scriptvm/pkg/compiler"
	"scriptvm/pkg/hostlib"
)

const testSource = `int main(int a, int b) {
    int sum = a + b;
    return sum;
}
`

func main() {
	src := testSource
	entry := compiler.DefaultEntry
	if len(os.Args) > 1 {
		data, err := os.ReadFile(os.Args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			os.Exit(1)
		}
		src = string(data)
	}
	if len(os.Args) > 2 {
		entry = os.Args[2]
	}

	reg := compiler.NewRegistry()
	if err := hostlib.Register(reg); err != nil {
		fmt.Fprintln(os.Stderr, "registry error:", err)
		os.Exit(1)
	}

	fmt.Printf("Source:\n%s\n", src)

	tokens, err := compiler.Tokenize(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tokenize error:", err)
		os.Exit(1)
	}
	fmt.Printf("Tokens (%d)\n", len(tokens))
	fmt.Print(compiler.TokenString(tokens))
	fmt.Println()

	nodes, err := compiler.Structure(tokens, reg.NativeNames())
	if err != nil {
		fmt.Fprintln(os.Stderr, "structure error:", err)
		os.Exit(1)
	}
	fmt.Println("Tree")
	for _, n := range nodes {
		fmt.Println(" ", n)
	}
	fmt.Println()

	img, err := compiler.Compile(src, reg, compiler.Options{Entry: entry})
	if err != nil {
		fmt.Fprintln(os.Stderr, "compile error:", err)
		os.Exit(1)
	}
	listing, err := img.Disassemble()
	if err != nil {
		fmt.Fprintln(os.Stderr, "disassemble error:", err)
		os.Exit(1)
	}

	fmt.Println("Bytecode")
	fmt.Print(listing)
	fmt.Println()
	fmt.Print(reg)
}
