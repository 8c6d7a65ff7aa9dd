package builtins

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/kr/pretty"

	"burlap/internal/value"
	"burlap/internal/vm"
)

// RegisterDebugPrint wires __burlap_print, the catalogue's debug-format
// twin of print(): structural values go through pretty.Sprint, Int values
// get humanize's comma rendering and Byte values its byte-size rendering,
// instead of print()'s plain ToString.
func RegisterDebugPrint(v *vm.VM) {
	v.AddBuiltin("__burlap_print", func(vm *vm.VM, args []value.Value) (value.Value, error) {
		out := vm.Stdout
		if out == nil {
			out = os.Stdout
		}
		parts := make([]interface{}, len(args))
		for i, a := range args {
			parts[i] = debugFormat(a)
		}
		fmt.Fprintln(out, parts...)
		return value.None(), nil
	})
}

func debugFormat(v value.Value) string {
	switch v.Kind {
	case value.KindInt:
		return humanize.Comma(int64(v.I))
	case value.KindByte:
		return humanize.Bytes(uint64(v.Byte))
	case value.KindFile:
		return "<file " + v.File.Path + ">"
	case value.KindList, value.KindFastList:
		return pretty.Sprint(v.ToString())
	default:
		return v.ToString()
	}
}
