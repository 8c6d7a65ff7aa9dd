// Package irdump renders a compiled Program as a textual LLVM IR module
// for `burlap run --emit-llvm`. It is a bounded sketch, not a JIT: one
// declared i32 function per registered functi and one global per deduplicated
// int/float constant. The point is to exercise llir/llvm's module/
// function/type/global builders with real data from the Program, the
// way the teacher's jit.Profiler/Compiler stubs gestured at a
// compilation tier without ever performing one.
package irdump

import (
	"fmt"
	"io"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"

	"burlap/internal/bytecode"
	"burlap/internal/value"
)

// Dump writes prog's functis and scalar constant pool to w as an LLVM
// IR module.
func Dump(w io.Writer, prog *bytecode.Program, moduleName string) error {
	m := ir.NewModule()
	m.SourceFilename = moduleName

	for i, c := range prog.Consts {
		switch c.Kind {
		case value.KindInt:
			m.NewGlobalDef(fmt.Sprintf("const_%d_i32", i), constant.NewInt(types.I32, int64(c.ToInt())))
		case value.KindFloat:
			m.NewGlobalDef(fmt.Sprintf("const_%d_f32", i), constant.NewFloat(types.Float, float64(c.ToFloat())))
		}
	}

	for name, entry := range prog.Functis {
		params := make([]*ir.Param, entry.Arity)
		for i := range params {
			params[i] = ir.NewParam(fmt.Sprintf("arg%d", i), types.I32)
		}
		fn := m.NewFunc(name, types.I32, params...)
		block := fn.NewBlock("entry")
		block.NewRet(constant.NewInt(types.I32, 0))
	}

	_, err := io.WriteString(w, m.String())
	return err
}
