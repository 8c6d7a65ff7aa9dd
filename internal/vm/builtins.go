package vm

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"burlap/internal/value"
	"burlap/internal/vmerrors"
)

// RegisterCoreBuiltins wires the fixed builtin catalogue from spec.md
// §4.5 into a freshly constructed VM. Extension builtins (networking,
// database, hashing) register separately, only when a host calls their
// Register function, and record their name with vm.EnableExtension, since
// spec.md treats them as optional surface.
func RegisterCoreBuiltins(vm *VM) {
	vm.AddBuiltin("print", builtinPrint)
	vm.AddBuiltin("input", builtinInput)
	vm.AddBuiltin("type", builtinType)
	vm.AddBuiltin("len", builtinLen)
	vm.AddBuiltin("range", builtinRange)
	vm.AddBuiltin("__burlap_range", builtinRange)
	vm.AddBuiltin("args", builtinArgs)

	vm.AddBuiltin("int", castBuiltin(value.KindInt))
	vm.AddBuiltin("float", castBuiltin(value.KindFloat))
	vm.AddBuiltin("string", castBuiltin(value.KindStr))
	vm.AddBuiltin("byte", castBuiltin(value.KindByte))

	vm.AddBuiltin("__burlap_typed_eq", builtinTypedEq)
	vm.AddBuiltin("__burlap_throw", builtinThrow)

	vm.AddBuiltin("open", builtinOpen)
	vm.AddBuiltin("close", builtinClose)
	vm.AddBuiltin("read", builtinRead)
	vm.AddBuiltin("write", builtinWrite)
	vm.AddBuiltin("seek", builtinSeek)
	vm.AddBuiltin("flush", builtinFlush)
}

func arg(args []value.Value, i int) value.Value {
	if i < 0 || i >= len(args) {
		return value.None()
	}
	return args[i]
}

func builtinPrint(vm *VM, args []value.Value) (value.Value, error) {
	out := vm.Stdout
	if out == nil {
		out = os.Stdout
	}
	parts := make([]interface{}, len(args))
	for i, a := range args {
		parts[i] = a.ToString()
	}
	fmt.Fprintln(out, parts...)
	return value.None(), nil
}

func builtinInput(vm *VM, args []value.Value) (value.Value, error) {
	if len(args) > 0 {
		out := vm.Stdout
		if out == nil {
			out = os.Stdout
		}
		fmt.Fprint(out, args[0].ToString())
	}
	in := vm.Stdin
	if in == nil {
		in = os.Stdin
	}
	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return value.Str(scanner.Text()), nil
	}
	return value.Str(""), nil
}

func builtinType(vm *VM, args []value.Value) (value.Value, error) {
	return value.Str(arg(args, 0).GetType()), nil
}

// builtinLen implements spec.md §4.5's documented "len - 1" quirk: it
// returns the highest valid index, not a count, matching the original
// burlap len() rather than a conventional length function.
func builtinLen(vm *VM, args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	var n int
	switch v.Kind {
	case value.KindList:
		n = len(v.List)
	case value.KindFastList:
		n = len(v.Items)
	case value.KindStr:
		n = len([]rune(v.S))
	default:
		return value.Value{}, vmerrors.New("Cannot get length of %s", v.GetType())
	}
	if n == 0 {
		return value.None(), nil
	}
	return value.Int(int32(n - 1)), nil
}

func builtinRange(vm *VM, args []value.Value) (value.Value, error) {
	switch len(args) {
	case 1:
		end := args[0].ToInt()
		step := int32(1)
		if end < 0 {
			step = -1
		}
		return value.Range(0, end, step), nil
	case 2:
		start, end := args[0].ToInt(), args[1].ToInt()
		step := int32(1)
		if end < start {
			step = -1
		}
		return value.Range(start, end, step), nil
	case 3:
		start, end, step := args[0].ToInt(), args[1].ToInt(), args[2].ToInt()
		if step != 1 && step != -1 {
			return value.Value{}, vmerrors.New("range() step must be 1 or -1")
		}
		return value.Range(start, end, step), nil
	default:
		return value.Value{}, vmerrors.New("range() takes 1 to 3 arguments, got %d", len(args))
	}
}

func builtinArgs(vm *VM, args []value.Value) (value.Value, error) {
	return value.FastList(append([]value.Value{}, vm.CurrentArgs()...)), nil
}

func castBuiltin(kind value.Kind) Builtin {
	return func(vm *VM, args []value.Value) (value.Value, error) {
		v := arg(args, 0)
		switch kind {
		case value.KindInt:
			return value.Int(v.ToInt()), nil
		case value.KindFloat:
			return value.Float(v.ToFloat()), nil
		case value.KindStr:
			return value.Str(v.ToString()), nil
		case value.KindByte:
			return value.Byte(byte(v.ToInt())), nil
		default:
			return value.Value{}, vmerrors.New("IMPOSSIBLE_STATE: unknown cast kind")
		}
	}
}

func builtinTypedEq(vm *VM, args []value.Value) (value.Value, error) {
	return value.Bool(value.TypedEqual(arg(args, 0), arg(args, 1))), nil
}

func builtinThrow(vm *VM, args []value.Value) (value.Value, error) {
	return value.Value{}, vmerrors.New("%s", arg(args, 0).ToString())
}

// resolvePath resolves a relative open() path against the running
// script's directory rather than the process's current working
// directory, the way the original toolchain's asset_manager resolved
// data paths against the thing that was running, not the shell's cwd.
// Absolute paths and special filenames (stdin/repl sessions, which have
// no on-disk directory of their own) pass through unchanged.
func resolvePath(scriptFile, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if scriptFile == "" || strings.HasPrefix(scriptFile, "<") {
		return path
	}
	return filepath.Join(filepath.Dir(scriptFile), path)
}

func builtinOpen(vm *VM, args []value.Value) (value.Value, error) {
	path := resolvePath(vm.Filename, arg(args, 0).ToString())
	modeStr := arg(args, 1).ToString()
	var mode int
	var flag int
	switch modeStr {
	case "r", "":
		mode, flag = 1, os.O_RDONLY
	case "rb":
		mode, flag = -1, os.O_RDONLY
	case "w":
		mode, flag = 2, os.O_WRONLY|os.O_CREATE|os.O_TRUNC
	case "wb":
		mode, flag = -2, os.O_WRONLY|os.O_CREATE|os.O_TRUNC
	case "a":
		mode, flag = 0, os.O_WRONLY|os.O_CREATE|os.O_APPEND
	default:
		return value.Value{}, vmerrors.New("Unknown open() mode '%s'", modeStr)
	}
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return value.Value{}, vmerrors.New("Cannot open '%s': %s", path, err.Error())
	}
	of := value.NewOpenFile(path, mode)
	of.SetHandle(f)
	return value.File(of), nil
}

func fileHandle(v value.Value) (*value.OpenFile, *os.File, error) {
	if v.Kind != value.KindFile {
		return nil, nil, vmerrors.New("Expected a File, got %s", v.GetType())
	}
	if v.File.Closed {
		return nil, nil, vmerrors.New("File is closed")
	}
	f, _ := v.File.Handle().(*os.File)
	if f == nil {
		return nil, nil, vmerrors.New("IMPOSSIBLE_STATE: file handle missing")
	}
	return v.File, f, nil
}

func builtinClose(vm *VM, args []value.Value) (value.Value, error) {
	of, f, err := fileHandle(arg(args, 0))
	if err != nil {
		return value.Value{}, err
	}
	of.Closed = true
	f.Close()
	return value.None(), nil
}

func builtinRead(vm *VM, args []value.Value) (value.Value, error) {
	of, f, err := fileHandle(arg(args, 0))
	if err != nil {
		return value.Value{}, err
	}
	if of.Mode != 1 && of.Mode != -1 {
		return value.Value{}, vmerrors.New("File '%s' is not open for reading", of.Path)
	}
	data, err := os.ReadFile(f.Name())
	if err != nil {
		return value.Value{}, vmerrors.New("Read failed: %s", err.Error())
	}
	return value.Str(string(data)), nil
}

func builtinWrite(vm *VM, args []value.Value) (value.Value, error) {
	of, f, err := fileHandle(arg(args, 0))
	if err != nil {
		return value.Value{}, err
	}
	if of.Mode != 2 && of.Mode != -2 && of.Mode != 0 {
		return value.Value{}, vmerrors.New("File '%s' is not open for writing", of.Path)
	}
	n, err := f.WriteString(arg(args, 1).ToString())
	if err != nil {
		return value.Value{}, vmerrors.New("Write failed: %s", err.Error())
	}
	return value.Int(int32(n)), nil
}

func builtinSeek(vm *VM, args []value.Value) (value.Value, error) {
	of, f, err := fileHandle(arg(args, 0))
	if err != nil {
		return value.Value{}, err
	}
	if of.Mode != 2 && of.Mode != -2 {
		return value.Value{}, vmerrors.New("File '%s' is not open for seeking", of.Path)
	}
	target := int64(arg(args, 1).ToInt())
	if target < 0 {
		return value.Value{}, vmerrors.New("seek() position must be non-negative")
	}
	if info, statErr := f.Stat(); statErr == nil && target > info.Size() {
		return value.Value{}, vmerrors.New("seek() position past end of file")
	}
	pos, serr := f.Seek(target, 0)
	if serr != nil {
		return value.Value{}, vmerrors.New("Seek failed: %s", serr.Error())
	}
	of.Pos = pos
	return value.Int(int32(pos)), nil
}

func builtinFlush(vm *VM, args []value.Value) (value.Value, error) {
	_, f, err := fileHandle(arg(args, 0))
	if err != nil {
		return value.Value{}, err
	}
	if err := f.Sync(); err != nil {
		return value.Value{}, vmerrors.New("Flush failed: %s", err.Error())
	}
	return value.None(), nil
}
