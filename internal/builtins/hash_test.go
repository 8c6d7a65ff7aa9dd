package builtins

import (
	"bytes"
	"strings"
	"testing"

	"burlap/internal/compiler"
	"burlap/internal/lexer"
	"burlap/internal/parser"
	"burlap/internal/vm"
)

func run(t *testing.T, register func(*vm.VM), src string) string {
	t.Helper()
	tokens := lexer.NewScanner(src).ScanTokens()
	root := parser.New(tokens).Parse()
	prog, err := compiler.Compile(root)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	v := vm.New(prog)
	register(v)
	v.Reset(prog)
	var out bytes.Buffer
	v.Stdout = &out
	if _, err := v.Run(); err != nil {
		t.Fatalf("run error: %v", err)
	}
	return out.String()
}

func runErr(t *testing.T, register func(*vm.VM), src string) (string, error) {
	t.Helper()
	tokens := lexer.NewScanner(src).ScanTokens()
	root := parser.New(tokens).Parse()
	prog, err := compiler.Compile(root)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	v := vm.New(prog)
	register(v)
	v.Reset(prog)
	var out bytes.Buffer
	v.Stdout = &out
	_, err = v.Run()
	return out.String(), err
}

func TestRegisterCryptoEnablesExtensionAndHashIsDeterministic(t *testing.T) {
	v := vm.New(nil)
	RegisterCrypto(v)
	if !v.ExtensionEnabled("crypto") {
		t.Error("RegisterCrypto should enable the crypto extension")
	}

	outA := run(t, RegisterCrypto, `print(__burlap_hash("hello"));`)
	outB := run(t, RegisterCrypto, `print(__burlap_hash("hello"));`)
	if outA != outB {
		t.Errorf("__burlap_hash should be deterministic, got %q and %q", outA, outB)
	}

	outC := run(t, RegisterCrypto, `print(__burlap_hash("world"));`)
	if outA == outC {
		t.Error("__burlap_hash should differ for different input")
	}
}

func TestDebugPrintFormatsNumbersWithHumanize(t *testing.T) {
	out := run(t, RegisterDebugPrint, `__burlap_print(1000);`)
	if strings.TrimSpace(out) != "1,000" {
		t.Errorf("__burlap_print(1000) = %q, want %q", out, "1,000")
	}
}
