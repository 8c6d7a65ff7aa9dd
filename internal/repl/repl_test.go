package repl

import (
	"bytes"
	"strings"
	"testing"

	"burlap/internal/vm"
)

func TestStartPersistsGlobalsAcrossLines(t *testing.T) {
	v := vm.New(nil)
	var out bytes.Buffer
	v.Stdin = strings.NewReader("let x = 40;\nprint(x + 2);\nexit\n")
	v.Stdout = &out

	Start(v)

	if got := strings.TrimSpace(out.String()); got != "42" {
		t.Errorf("output = %q, want %q (x from line 1 visible on line 2)", got, "42")
	}
}

func TestStartStopsOnEOFWithoutExit(t *testing.T) {
	v := vm.New(nil)
	var out bytes.Buffer
	v.Stdin = strings.NewReader("let y = 1;\n")
	v.Stdout = &out

	Start(v) // must return once the reader is exhausted, even without "exit"
}

func TestStartSkipsBlankLines(t *testing.T) {
	v := vm.New(nil)
	var out bytes.Buffer
	v.Stdin = strings.NewReader("\n\nlet z = 1;\nprint(z);\n")
	v.Stdout = &out

	Start(v)

	if strings.TrimSpace(out.String()) != "1" {
		t.Errorf("output = %q, want just %q", out.String(), "1")
	}
}

func TestStartContinuesAfterARuntimeErrorOnAnEarlierLine(t *testing.T) {
	v := vm.New(nil)
	var out bytes.Buffer
	v.Stdin = strings.NewReader("print(never_declared);\nprint(1);\n")
	v.Stdout = &out

	Start(v)

	if !strings.Contains(out.String(), "1") {
		t.Errorf("output = %q, want the second line to still execute after a bad first line", out.String())
	}
}
