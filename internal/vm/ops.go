package vm

import (
	"burlap/internal/bytecode"
	"burlap/internal/value"
	"burlap/internal/vmerrors"
)

// exec runs one decoded instruction. operand is already decoded by
// readOperand: a const-pool index for PUSH/PUSH3, a jump distance for
// JMPU/JMPB/JMPNT/TCO, and unused (0) otherwise.
func (vm *VM) exec(op bytecode.OpCode, operand int) error {
	switch op {
	case bytecode.NOP:
		// nothing

	case bytecode.PUSH, bytecode.PUSH3:
		if operand < 0 || operand >= len(vm.prog.Consts) {
			return vmerrors.New("IMPOSSIBLE_STATE: constant index %d out of range", operand)
		}
		vm.push(vm.prog.Consts[operand])

	case bytecode.DUP:
		vm.push(vm.peek(0))

	case bytecode.DEL:
		vm.pop()

	case bytecode.LEVI:
		vm.scope = append(vm.scope, scopeFrame{prevVarMin: vm.varMin, prevVarTop: len(vm.varNames)})

	case bytecode.RS:
		if len(vm.scope) == 0 {
			return vmerrors.New("cannot raise global scope")
		}
		vm.popScope()

	case bytecode.FN:
		return vm.execFN()

	case bytecode.CALL:
		return vm.execCall()

	case bytecode.TCO:
		return vm.execTCO(operand)

	case bytecode.RET:
		return vm.execRet()

	case bytecode.PV:
		name := vm.pop().ToString()
		v, ok := vm.lookup(name)
		if !ok {
			return vmerrors.New("no variable called \"%s\"", name)
		}
		vm.push(v)

	case bytecode.DV:
		name := vm.pop().ToString()
		v := vm.pop()
		if vm.hasVar(name) {
			return vmerrors.New("cannot redefine \"%s\"", name)
		}
		vm.declare(name, v)

	case bytecode.SV:
		name := vm.pop().ToString()
		v := vm.pop()
		if !vm.assign(name, v) {
			return vmerrors.New("no variable called \"%s\"", name)
		}

	case bytecode.DOS:
		name := vm.pop().ToString()
		v := vm.pop()
		if !vm.assign(name, v) {
			vm.declare(name, v)
		}

	case bytecode.LL:
		return vm.execLL()

	case bytecode.LFL:
		return vm.execLFL()

	case bytecode.INX:
		key := vm.pop()
		target := vm.pop()
		v, ok := value.Index(target, key)
		if !ok {
			return vmerrors.New("Cannot index %s with %s", target.GetType(), key.ToString())
		}
		vm.push(v)

	case bytecode.TITR:
		v := vm.pop()
		it, err := value.ToIter(v)
		if err != nil {
			return vmerrors.New("%s", err.Error())
		}
		vm.push(it)

	case bytecode.NXT:
		it := vm.pop()
		next, ok := value.IterNext(it)
		vm.push(it)
		if !ok {
			vm.push(value.Bool(false))
			return nil
		}
		vm.push(next)
		vm.push(value.Bool(true))

	case bytecode.SKY:
		key := vm.pop()
		list := vm.pop()
		v := vm.pop()
		result, err := value.SetKey(list, key, v)
		if err != nil {
			return vmerrors.New("%s", err.Error())
		}
		vm.push(result)

	case bytecode.ADD:
		return vm.arith(value.Add)
	case bytecode.SUB:
		return vm.arith(value.Sub)
	case bytecode.MUL:
		return vm.arith(value.Mul)
	case bytecode.DIV:
		return vm.arith(value.Div)
	case bytecode.MOD:
		return vm.arith(value.Mod)

	case bytecode.AND:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Bool(a.IsTruthy() && b.IsTruthy()))
	case bytecode.OR:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Bool(a.IsTruthy() || b.IsTruthy()))
	case bytecode.XOR:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Bool(a.IsTruthy() != b.IsTruthy()))
	case bytecode.NOT:
		a := vm.pop()
		vm.push(value.Bool(!a.IsTruthy()))

	case bytecode.EQ:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Bool(value.CoercedEqual(a, b)))

	case bytecode.GT:
		b, a := vm.pop(), vm.pop()
		r, err := compare(a, b)
		if err != nil {
			return err
		}
		vm.push(value.Bool(r > 0))

	case bytecode.LT:
		b, a := vm.pop(), vm.pop()
		r, err := compare(a, b)
		if err != nil {
			return err
		}
		vm.push(value.Bool(r < 0))

	case bytecode.IN:
		key := vm.pop()
		target := vm.pop()
		vm.push(value.Bool(value.Contains(target, key)))

	case bytecode.JMPU:
		vm.pc += operand

	case bytecode.JMPB:
		vm.pc -= operand

	case bytecode.JMPNT:
		cond := vm.pop()
		if !cond.IsTruthy() {
			vm.pc += operand
		}

	default:
		return vmerrors.New("IMPOSSIBLE_STATE: unhandled opcode %s", op)
	}
	return nil
}

func (vm *VM) arith(fn func(a, b value.Value) (value.Value, error)) error {
	b, a := vm.pop(), vm.pop()
	r, err := fn(a, b)
	if err != nil {
		return vmerrors.New("%s", err.Error())
	}
	vm.push(r)
	return nil
}

// compare returns -1/0/1 the way strings.Compare does, for numeric pairs
// (via to_float) and for strings (lexicographic); any other pairing is a
// runtime error (spec.md §4.1 only defines ordering for those two cases).
func compare(a, b value.Value) (int, error) {
	an, bn := isOrderableNumeric(a), isOrderableNumeric(b)
	if an && bn {
		af, bf := a.ToFloat(), b.ToFloat()
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		default:
			return 0, nil
		}
	}
	if a.Kind == value.KindStr && b.Kind == value.KindStr {
		switch {
		case a.S < b.S:
			return -1, nil
		case a.S > b.S:
			return 1, nil
		default:
			return 0, nil
		}
	}
	return 0, vmerrors.New("Cannot compare %s and %s", a.GetType(), b.GetType())
}

func isOrderableNumeric(v value.Value) bool {
	return v.Kind == value.KindInt || v.Kind == value.KindFloat || v.Kind == value.KindByte || v.Kind == value.KindBool
}

func (vm *VM) popScope() {
	if len(vm.scope) == 0 {
		return
	}
	n := len(vm.scope) - 1
	f := vm.scope[n]
	vm.scope = vm.scope[:n]
	vm.varNames = vm.varNames[:f.prevVarTop]
	vm.varVals = vm.varVals[:f.prevVarTop]
	vm.varMin = f.prevVarMin
}

// hasVar mirrors the original interpreter's check_for_var: a name is
// already bound if it shadows a local in the current frame, or if it
// names an existing global (checked unconditionally, even from inside a
// function) -- DV refuses to redefine either.
func (vm *VM) hasVar(name string) bool {
	if !vm.isGlobal() {
		for i := len(vm.varNames) - 1; i >= vm.varMin; i-- {
			if vm.varNames[i] == name {
				return true
			}
		}
	}
	_, ok := vm.globals[name]
	return ok
}

// lookup searches the visible local arena (from varMin to top, most
// recent first so shadowing wins) and falls back to globals.
func (vm *VM) lookup(name string) (value.Value, bool) {
	for i := len(vm.varNames) - 1; i >= vm.varMin; i-- {
		if vm.varNames[i] == name {
			return vm.varVals[i], true
		}
	}
	if v, ok := vm.globals[name]; ok {
		return v, true
	}
	return value.Value{}, false
}

// declare implements DV: at global scope it writes straight into
// globals, otherwise it pushes a fresh local binding (spec.md §3,
// "is_global (scope empty)").
func (vm *VM) declare(name string, v value.Value) {
	if vm.isGlobal() {
		vm.globals[name] = v
		return
	}
	vm.varNames = append(vm.varNames, name)
	vm.varVals = append(vm.varVals, v)
}

// assign implements SV: update an existing binding, local first, then
// global. Returns false if name is bound nowhere.
func (vm *VM) assign(name string, v value.Value) bool {
	for i := len(vm.varNames) - 1; i >= vm.varMin; i-- {
		if vm.varNames[i] == name {
			vm.varVals[i] = v
			return true
		}
	}
	if _, ok := vm.globals[name]; ok {
		vm.globals[name] = v
		return true
	}
	return false
}

func (vm *VM) execFN() error {
	name := vm.pop().ToString()
	arity := vm.pop()
	vm.prog.Functis[name] = bytecode.FunctiEntry{Entry: vm.pc + 4, Arity: int(arity.ToInt())}
	return nil
}

// execCall implements CALL: argN..arg1, n, name -> ret. Builtins run
// immediately; user functis raise a call-boundary scope and transfer pc
// to the registered entry point (spec.md §4.4).
func (vm *VM) execCall() error {
	name := vm.pop().ToString()
	n := int(vm.pop().ToInt())
	if n < 0 || n > len(vm.stack) {
		return vmerrors.New("IMPOSSIBLE_STATE: bad argument count %d for '%s'", n, name)
	}
	// popped[0] is the last-pushed (source-rightmost) arg; popped[n-1] is
	// the first. Re-pushing popped in this same order reverses the
	// segment, landing the first source argument on top.
	popped := make([]value.Value, n)
	for i := 0; i < n; i++ {
		popped[i] = vm.pop()
	}

	if functi, ok := vm.prog.Functis[name]; ok {
		if functi.Arity != n {
			if n > functi.Arity {
				return vmerrors.New("too many args for %s (got %d need %d)", name, n, functi.Arity)
			}
			return vmerrors.New("too few args for %s (got %d need %d)", name, n, functi.Arity)
		}
		natural := make([]value.Value, n)
		for i, v := range popped {
			natural[n-1-i] = v
		}
		vm.callFrames = append(vm.callFrames, natural)
		vm.returnAddrs = append(vm.returnAddrs, vm.pc-1)
		vm.scope = append(vm.scope, scopeFrame{prevVarMin: vm.varMin, prevVarTop: len(vm.varNames), isCall: true})
		vm.varMin = len(vm.varNames)
		for _, v := range popped {
			vm.push(v)
		}
		vm.pc = functi.Entry
		return nil
	}

	if builtin, ok := vm.builtins[name]; ok {
		natural := make([]value.Value, n)
		for i, v := range popped {
			natural[n-1-i] = v
		}
		result, err := builtin(vm, natural)
		if err != nil {
			return err
		}
		vm.push(result)
		return nil
	}

	return vmerrors.New("no function called \"%s\"", name)
}

// execTCO reuses the current call frame instead of raising a new one: it
// drops the frame's locals and jumps back off bytes. Nothing in this
// compiler currently emits TCO; it is kept because the instruction set
// names it, and a future compiler pass can use it for self-recursive tail
// calls without growing returnAddrs.
func (vm *VM) execTCO(off int) error {
	if len(vm.scope) == 0 {
		return vmerrors.New("IMPOSSIBLE_STATE: TCO outside a call")
	}
	vm.varNames = vm.varNames[:vm.varMin]
	vm.varVals = vm.varVals[:vm.varMin]
	vm.pc -= off
	return nil
}

func (vm *VM) execRet() error {
	retVal := vm.pop()

	// A `return` from inside a `loop` skips the loop's own closing DEL, so
	// its Iter can still be sitting under the return value; pop it off
	// before continuing (spec.md §4.4.1 step 2).
	if len(vm.returnAddrs) == 0 {
		for len(vm.stack) > 0 && vm.peek(0).Kind == value.KindIter {
			vm.pop()
		}
		vm.pc = len(vm.prog.Ops)
		vm.push(retVal)
		return nil
	}

	for {
		n := len(vm.scope) - 1
		f := vm.scope[n]
		vm.scope = vm.scope[:n]
		vm.varNames = vm.varNames[:f.prevVarTop]
		vm.varVals = vm.varVals[:f.prevVarTop]
		vm.varMin = f.prevVarMin
		if f.isCall {
			break
		}
		// Each block frame left open is one iteration of a loop of this
		// functi, whose Iter is on the stack; a caller's Iter is left alone.
		if len(vm.stack) > 0 && vm.peek(0).Kind == value.KindIter {
			vm.pop()
		}
	}

	retAddr := vm.returnAddrs[len(vm.returnAddrs)-1]
	vm.returnAddrs = vm.returnAddrs[:len(vm.returnAddrs)-1]
	vm.callFrames = vm.callFrames[:len(vm.callFrames)-1]
	vm.pc = retAddr + 1
	vm.push(retVal)
	return nil
}

// execLL builds a List literal: (val,key)xN were emitted value-then-key
// per entry, entries themselves in reverse source order; popping in that
// order reconstructs the pairs already in source order.
func (vm *VM) execLL() error {
	n := int(vm.pop().ToInt())
	pairs := make([]value.Pair, n)
	for i := 0; i < n; i++ {
		key := vm.pop().ToString()
		val := vm.pop()
		pairs[i] = value.Pair{Key: key, Val: val}
	}
	vm.push(value.List(pairs))
	return nil
}

func (vm *VM) execLFL() error {
	n := int(vm.pop().ToInt())
	items := make([]value.Value, n)
	for i := 0; i < n; i++ {
		items[i] = vm.pop()
	}
	vm.push(value.FastList(items))
	return nil
}

// CurrentArgs backs the args() builtin (spec.md §4.5): the natural-order
// argument list of the innermost active user call.
func (vm *VM) CurrentArgs() []value.Value {
	if len(vm.callFrames) == 0 {
		return nil
	}
	return vm.callFrames[len(vm.callFrames)-1]
}
