// Command burlap is the single binary described in spec.md §6: it runs a
// source file (or stdin), or drops into the REPL, with an optional debug
// dump and an --extensions gate for the optional builtin surface.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/mod/semver"
	"golang.org/x/sync/errgroup"

	"burlap/internal/builtins"
	"burlap/internal/compiler"
	"burlap/internal/irdump"
	"burlap/internal/lexer"
	"burlap/internal/parser"
	"burlap/internal/repl"
	"burlap/internal/vm"
)

const version = "0.1.0"

// commandAliases mirrors the teacher CLI's short-form dispatch, pared
// down to the handful of subcommands SPEC_FULL.md actually names.
var commandAliases = map[string]string{
	"r":      "run",
	"i":      "repl",
	"b":      "build",
	"c":      "check",
	"--repl": "repl",
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run holds all of the CLI's actual logic and returns a process exit code,
// so it can be driven from tests (or any other host) without main()'s
// os.Exit short-circuiting the test binary.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		showUsage(stdout)
		return 1
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "--help", "-h", "help":
		showUsage(stdout)
		return 0
	case "--version", "-v", "version":
		fmt.Fprintln(stdout, "burlap", version)
		return 0
	case "repl":
		runRepl(args[1:], stdout, stderr)
		return 0
	case "build", "check":
		if err := buildFiles(args[1:], cmd == "check"); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		return 0
	case "run":
		return runFile(args[1:], stdout, stderr)
	default:
		// Bare `burlap path.bur` runs the file directly.
		return runFile(args, stdout, stderr)
	}
}

func showUsage(w io.Writer) {
	fmt.Fprintln(w, `burlap - a small dynamically-typed scripting language

Usage:
  burlap <file>                 run a script
  burlap -                      run a script from stdin
  burlap run <file> [--debug] [--extensions <list>]
  burlap repl [--extensions <list>]
  burlap build <file...>        compile and dump bytecode
  burlap check <file...>        compile without running

Flags:
  --debug               dump the compiled bytecode before running
  --emit-llvm <path>    also write a best-effort LLVM IR sketch
  --extensions <list>   comma-separated: network,database,crypto,all`)
}

type options struct {
	path       string
	debug      bool
	emitLLVM   string
	extensions []string
}

func parseOptions(args []string) options {
	var o options
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--debug":
			o.debug = true
		case "--emit-llvm":
			if i+1 < len(args) {
				i++
				o.emitLLVM = args[i]
			}
		case "--extensions":
			if i+1 < len(args) {
				i++
				o.extensions = strings.Split(args[i], ",")
			}
		default:
			if o.path == "" {
				o.path = args[i]
			}
		}
	}
	return o
}

func readSource(path string) (string, error) {
	if path == "-" || path == "" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

// checkVersionPragma honors an optional leading `// burlap:requires
// >=1.0.0` line the way go.mod's `go` directive gates a toolchain: a
// soft, informational check, not a hard requirement from spec.md.
func checkVersionPragma(src string, stderr io.Writer) {
	first, _, _ := strings.Cut(src, "\n")
	first = strings.TrimSpace(first)
	const prefix = "// burlap:requires"
	if !strings.HasPrefix(first, prefix) {
		return
	}
	want := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(first, prefix), ">="))
	wantV := "v" + want
	if !semver.IsValid(wantV) {
		return
	}
	if semver.Compare("v"+version, wantV) < 0 {
		fmt.Fprintf(stderr, "warning: script requests burlap >=%s, running %s\n", want, version)
	}
}

func newVM(exts []string) *vm.VM {
	v := vm.New(nil)
	builtins.RegisterDebugPrint(v)
	for _, e := range exts {
		switch strings.TrimSpace(e) {
		case "network":
			builtins.RegisterNetwork(v)
		case "database":
			builtins.RegisterDatabase(v)
		case "crypto":
			builtins.RegisterCrypto(v)
		case "all", "burlap-extensions":
			builtins.RegisterNetwork(v)
			builtins.RegisterDatabase(v)
			builtins.RegisterCrypto(v)
		case "va-print", "":
			// print() is already variadic in the core builtins.
		}
	}
	return v
}

func runFile(args []string, stdout, stderr io.Writer) int {
	o := parseOptions(args)
	src, err := readSource(o.path)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	checkVersionPragma(src, stderr)

	tokens := lexer.NewScanner(src).ScanTokens()
	root := parser.New(tokens).Parse()
	prog, err := compiler.Compile(root)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	if o.debug {
		prog.Disassemble(stderr, o.path)
	}

	v := newVM(o.extensions)
	v.Filename = o.path
	if v.Filename == "" {
		v.Filename = "<stdin>"
	}
	v.Stdout = stdout
	v.Stderr = stderr
	v.Reset(prog)
	_, runErr := v.Run()
	// The function table is filled in as FN instructions execute, so the
	// IR dump is written after the run.
	if o.emitLLVM != "" {
		f, err := os.Create(o.emitLLVM)
		if err == nil {
			irdump.Dump(f, prog, o.path)
			f.Close()
		}
	}
	if runErr != nil {
		return 1
	}
	return 0
}

func runRepl(args []string, stdout, stderr io.Writer) {
	o := parseOptions(args)
	v := newVM(o.extensions)
	v.Filename = "<repl>"
	v.Stdout = stdout
	v.Stderr = stderr
	repl.Start(v)
}

// buildFiles compiles each file concurrently (spec.md's CLI surface
// doesn't require this, but it is a natural extension of the ambient
// stack's use of errgroup for independent, order-insensitive work).
func buildFiles(paths []string, checkOnly bool) error {
	if len(paths) == 0 {
		return fmt.Errorf("build: no input files")
	}
	var g errgroup.Group
	for _, p := range paths {
		p := p
		g.Go(func() error {
			src, err := readSource(p)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			tokens := lexer.NewScanner(src).ScanTokens()
			root := parser.New(tokens).Parse()
			prog, err := compiler.Compile(root)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			if !checkOnly {
				out, err := os.Create(p + ".bco")
				if err != nil {
					return err
				}
				defer out.Close()
				prog.Disassemble(out, p)
			}
			return nil
		})
	}
	return g.Wait()
}
