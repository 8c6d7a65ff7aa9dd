// Package repl implements the interactive burlap prompt. Each line is
// lexed, parsed, and compiled into its own *bytecode.Program, but the
// underlying *vm.VM is kept alive across lines so that globals declared
// on one line are visible on the next (SPEC_FULL.md §C).
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"burlap/internal/compiler"
	"burlap/internal/lexer"
	"burlap/internal/parser"
	"burlap/internal/vm"
)

// Start runs the REPL loop, reading from v.Stdin and writing to v.Stdout
// when set so the prompt can be driven from tests, falling back to the
// process's own stdin/stdout for a real interactive session.
func Start(v *vm.VM) {
	in := io.Reader(os.Stdin)
	if v.Stdin != nil {
		in = v.Stdin
	}
	out := io.Writer(os.Stdout)
	if v.Stdout != nil {
		out = v.Stdout
	}

	interactive := false
	if f, ok := in.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd())
	}
	scanner := bufio.NewScanner(in)

	for {
		if interactive {
			fmt.Fprint(out, ">>> ")
		}
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "exit" {
			break
		}
		if line == "" {
			continue
		}
		runLine(v, out, line)
	}
}

func runLine(v *vm.VM, out io.Writer, line string) {
	tokens := lexer.NewScanner(line).ScanTokens()
	p := parser.New(tokens)
	root := p.Parse()

	prog, err := compiler.Compile(root)
	if err != nil {
		fmt.Fprintln(out, err)
		return
	}

	v.Reset(prog)
	result, err := v.Run()
	if err != nil {
		return // v.Run already reported the formatted error
	}
	if result.GetType() != "None" {
		fmt.Fprintln(out, result.ToString())
	}
}
