// Package vm interprets a compiled *bytecode.Program: a stack, scope
// frames, call frames, and builtin dispatch (spec.md §3 "VM state",
// §4.4). This is the largest component of the pipeline by design — the
// dispatch loop is a thin switch over opcodes whose real work lives in
// internal/value.
package vm

import (
	"fmt"
	"io"
	"os"

	"burlap/internal/bytecode"
	"burlap/internal/value"
	"burlap/internal/vmerrors"
)

// Builtin is a native function invoked by name from CALL (spec.md §4.5).
type Builtin func(vm *VM, args []value.Value) (value.Value, error)

// DebugHook lets an embedder observe execution without changing it
// (spec.md §5: "a host embedding may check an external flag between
// opcodes but this is not part of the contract" — the hook is exactly
// that kind of optional, out-of-contract observation point), modeled on
// the teacher's DebugHook interface.
type DebugHook interface {
	OnInstruction(vm *VM, pc int, line int)
}

// scopeFrame is pushed by LEVI (block, isCall false) and by CALL (isCall
// true). RET unwinds frames, including any stray block frames an early
// return skipped past, until it consumes the first isCall frame.
type scopeFrame struct {
	prevVarMin int
	prevVarTop int
	isCall     bool
}

// VM is the process-wide interpreter state from spec.md §3.
type VM struct {
	Filename string
	Stdout   io.Writer
	Stderr   io.Writer
	Stdin    io.Reader

	prog *bytecode.Program

	stack []value.Value

	globals map[string]value.Value

	varNames []string
	varVals  []value.Value
	varMin   int

	scope []scopeFrame

	callFrames  [][]value.Value
	returnAddrs []int

	builtins   map[string]Builtin
	extensions map[string]bool

	pc   int
	jump bool

	processArgs []value.Value

	DebugHook DebugHook
	Debug     bool
}

func New(prog *bytecode.Program) *VM {
	v := &VM{
		prog:       prog,
		globals:    make(map[string]value.Value),
		builtins:   make(map[string]Builtin),
		extensions: make(map[string]bool),
		Filename:   "<script>",
	}
	RegisterCoreBuiltins(v)
	return v
}

// Reset swaps in a new Program while keeping globals and builtins, the
// property the REPL relies on (spec.md §7: "The REPL may restart a fresh
// run preserving globals").
func (vm *VM) Reset(prog *bytecode.Program) {
	vm.prog = prog
	vm.stack = vm.stack[:0]
	vm.varNames = nil
	vm.varVals = nil
	vm.varMin = 0
	vm.scope = nil
	vm.callFrames = nil
	vm.returnAddrs = nil
	vm.pc = 0
	vm.jump = false
}

func (vm *VM) EnableExtension(name string) { vm.extensions[name] = true }
func (vm *VM) ExtensionEnabled(name string) bool { return vm.extensions[name] }

func (vm *VM) AddBuiltin(name string, fn Builtin) { vm.builtins[name] = fn }

func (vm *VM) SetProcessArgs(args []string) {
	vm.processArgs = vm.processArgs[:0]
	for _, a := range args {
		vm.processArgs = append(vm.processArgs, value.Str(a))
	}
}

func (vm *VM) isGlobal() bool { return len(vm.scope) == 0 }

// ---- stack helpers ----

func (vm *VM) push(v value.Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() value.Value {
	n := len(vm.stack) - 1
	v := vm.stack[n]
	vm.stack = vm.stack[:n]
	return v
}

func (vm *VM) peek(offset int) value.Value {
	return vm.stack[len(vm.stack)-1-offset]
}

// ---- Run ----

// Run executes the VM's current Program from the current pc until it
// finishes or a handler fails. It returns the last pushed value (mainly
// useful for the REPL / `value\n` scripts); errors are reported per
// spec.md §4.4.3 and also returned to the caller.
func (vm *VM) Run() (value.Value, error) {
	for vm.pc < len(vm.prog.Ops) {
		opStart := vm.pc
		op := bytecode.OpCode(vm.prog.Ops[vm.pc])
		if !bytecode.Valid(vm.prog.Ops[vm.pc]) {
			return value.None(), vm.fail(opStart, vmerrors.New("invalid opcode byte %d", vm.prog.Ops[vm.pc]))
		}
		vm.pc++
		operand := vm.readOperand(op)

		if vm.DebugHook != nil {
			vm.DebugHook.OnInstruction(vm, opStart, vm.prog.GetInfo(opStart))
		}

		vm.jump = false
		if err := vm.exec(op, operand); err != nil {
			return value.None(), vm.fail(opStart, err)
		}
		_ = vm.jump // pc has already been fully positioned by exec; kept for parity with spec.md's "jump flag" framing
	}
	if len(vm.stack) == 0 {
		return value.None(), nil
	}
	return vm.peek(0), nil
}

func (vm *VM) fail(at int, err error) error {
	line := vm.prog.GetInfo(at)
	vm.pc = len(vm.prog.Ops)
	if ve, ok := err.(*vmerrors.Error); ok {
		ve.At(vm.Filename, line)
		fmt.Fprintln(vm.stderr(), ve.Error())
		return ve
	}
	ve := vmerrors.New("%s", err.Error()).At(vm.Filename, line)
	fmt.Fprintln(vm.stderr(), ve.Error())
	return ve
}

func (vm *VM) stderr() io.Writer {
	if vm.Stderr != nil {
		return vm.Stderr
	}
	return os.Stderr
}

// readOperand reads however many operand bytes op carries, advancing pc
// past the full instruction. Jump offsets are real 24-bit little-endian
// values per spec.md §4.4 (see DESIGN.md for the §9 open-question
// resolution).
func (vm *VM) readOperand(op bytecode.OpCode) int {
	switch op {
	case bytecode.PUSH:
		b := vm.prog.Ops[vm.pc]
		vm.pc++
		return int(b)
	case bytecode.PUSH3, bytecode.JMPU, bytecode.JMPB, bytecode.JMPNT, bytecode.TCO:
		b0, b1, b2 := vm.prog.Ops[vm.pc], vm.prog.Ops[vm.pc+1], vm.prog.Ops[vm.pc+2]
		vm.pc += 3
		return int(b0) | int(b1)<<8 | int(b2)<<16
	default:
		return 0
	}
}
