package main

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

// TestMain lets testscript re-exec this binary as `burlap` inside each
// script, the same "in-process fake binary" trick the teacher's build
// tooling relies on for fast CLI tests (no go build/install round trip).
func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"burlap": func() int { return run(os.Args[1:], os.Stdout, os.Stderr) },
	}))
}

func TestCLI(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
	})
}
