// Package compiler walks the AST (internal/ast) and emits bytecode into a
// fresh *bytecode.Program (spec.md §4.3). It never touches the VM: the
// Program it produces is a self-contained artifact.
package compiler

import (
	"fmt"

	"github.com/pkg/errors"

	"burlap/internal/ast"
	"burlap/internal/bytecode"
	"burlap/internal/value"
)

type Compiler struct {
	prog    *bytecode.Program
	curLine int
}

func New() *Compiler {
	return &Compiler{prog: bytecode.New(), curLine: 1}
}

// Compile lowers a parsed program to bytecode. A final NOP is appended so
// that a jump landing "just past the last real instruction" is always
// well-defined (spec.md §4.3).
func Compile(root *ast.BodyStmt) (*bytecode.Program, error) {
	c := New()
	if err := c.compileStmt(root); err != nil {
		return nil, err
	}
	c.prog.Emit(bytecode.NOP, c.curLine)
	return c.prog, nil
}

func (c *Compiler) emit(op bytecode.OpCode) int   { return c.prog.Emit(op, c.curLine) }
func (c *Compiler) emitByte(b byte)               { c.prog.EmitByte(b, c.curLine) }
func (c *Compiler) emitU24(v int)                 { c.prog.EmitU24(v, c.curLine) }
func (c *Compiler) pushConst(v value.Value) error {
	if err := c.prog.Push(v, c.curLine); err != nil {
		return errors.Wrap(err, "IMPOSSIBLE_STATE")
	}
	return nil
}
func (c *Compiler) pushName(name string) error { return c.pushConst(value.Str(name)) }

// emitPlaceholder reserves a 3-byte forward-jump operand and returns its
// offset for a later patchJump call.
func (c *Compiler) emitPlaceholder(op bytecode.OpCode) int {
	c.emit(op)
	at := len(c.prog.Ops)
	c.emitU24(0)
	return at
}

func (c *Compiler) patchJump(at int) {
	c.prog.PatchU24(at, len(c.prog.Ops)-at-3)
}

func (c *Compiler) emitBackJump(toOffset int) {
	c.emit(bytecode.JMPB)
	c.emitU24(len(c.prog.Ops) + 3 - toOffset)
}

// ---- statements ----

func (c *Compiler) compileStmt(n ast.Node) error {
	c.curLine++
	switch s := n.(type) {
	case *ast.BodyStmt:
		for _, child := range s.Stmts {
			if err := c.compileStmt(child); err != nil {
				return err
			}
		}
	case *ast.LetStmt:
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		if err := c.pushName(s.Name); err != nil {
			return err
		}
		c.emit(bytecode.DV)
	case *ast.IfStmt:
		return c.compileIf(s)
	case *ast.LoopStmt:
		return c.compileLoop(s)
	case *ast.WhileStmt:
		return c.compileWhile(s)
	case *ast.FunctiStmt:
		return c.compileFunc(s)
	case *ast.ReturnStmt:
		if s.Value != nil {
			if err := c.compileExpr(s.Value); err != nil {
				return err
			}
		} else {
			if err := c.pushConst(value.None()); err != nil {
				return err
			}
		}
		c.emit(bytecode.RET)
	case *ast.ImportStmt:
		// no-op in this core (spec.md §6 AST contract).
	case *ast.ExprStmt:
		if err := c.compileExpr(s.Expr); err != nil {
			return err
		}
		if exprPushesValue(s.Expr) {
			c.emit(bytecode.DEL)
		}
	case *ast.Nop, nil:
		// nothing to emit
	default:
		return errors.Errorf("IMPOSSIBLE_STATE: unknown statement node %T", n)
	}
	return nil
}

func (c *Compiler) compileIf(s *ast.IfStmt) error {
	body, elseBody := s.Body, s.Else
	invert := ast.IsEmptyBody(body) && !ast.IsEmptyBody(elseBody)
	if invert {
		body, elseBody = elseBody, nil
	}
	if err := c.compileExpr(s.Cond); err != nil {
		return err
	}
	if invert {
		c.emit(bytecode.NOT)
	}
	exitPatch := c.emitPlaceholder(bytecode.JMPNT)
	if err := c.compileStmt(body); err != nil {
		return err
	}
	if !ast.IsEmptyBody(elseBody) {
		overPatch := c.emitPlaceholder(bytecode.JMPU)
		c.patchJump(exitPatch)
		if err := c.compileStmt(elseBody); err != nil {
			return err
		}
		c.patchJump(overPatch)
		return nil
	}
	c.patchJump(exitPatch)
	return nil
}

func (c *Compiler) compileLoop(s *ast.LoopStmt) error {
	if err := c.compileExpr(s.Iter); err != nil {
		return err
	}
	c.emit(bytecode.TITR)
	loopTop := len(c.prog.Ops)
	c.emit(bytecode.NXT)
	exitPatch := c.emitPlaceholder(bytecode.JMPNT)
	// Each iteration runs in its own block scope, so DV binds the loop
	// variable afresh instead of failing as a redefinition.
	c.emit(bytecode.LEVI)
	if err := c.pushName(s.Var); err != nil {
		return err
	}
	c.emit(bytecode.DV)
	if err := c.compileStmt(s.Body); err != nil {
		return err
	}
	c.emit(bytecode.RS)
	c.emitBackJump(loopTop)
	c.patchJump(exitPatch)
	c.emit(bytecode.DEL)
	return nil
}

func (c *Compiler) compileWhile(s *ast.WhileStmt) error {
	loopTop := len(c.prog.Ops)
	if err := c.compileExpr(s.Cond); err != nil {
		return err
	}
	exitPatch := c.emitPlaceholder(bytecode.JMPNT)
	if err := c.compileStmt(s.Body); err != nil {
		return err
	}
	c.emitBackJump(loopTop)
	c.patchJump(exitPatch)
	return nil
}

func (c *Compiler) compileFunc(s *ast.FunctiStmt) error {
	if err := c.pushConst(value.Int(int32(len(s.Params)))); err != nil {
		return err
	}
	if err := c.pushName(s.Name); err != nil {
		return err
	}
	c.emit(bytecode.FN)
	skipPatch := c.emitPlaceholder(bytecode.JMPU)
	for _, p := range s.Params {
		if err := c.pushName(p); err != nil {
			return err
		}
		c.emit(bytecode.DV)
	}
	if err := c.compileStmt(s.Body); err != nil {
		return err
	}
	if err := c.pushConst(value.None()); err != nil {
		return err
	}
	c.emit(bytecode.RET)
	c.patchJump(skipPatch)
	return nil
}

// ---- expressions ----

func (c *Compiler) compileExpr(n ast.Node) error {
	switch e := n.(type) {
	case *ast.VarExpr:
		if err := c.pushName(e.Name); err != nil {
			return err
		}
		c.emit(bytecode.PV)
	case *ast.StringExpr:
		return c.pushConst(value.Str(e.Value))
	case *ast.NumberExpr:
		return c.pushConst(value.Int(e.Value))
	case *ast.DecimalExpr:
		return c.pushConst(value.Float(e.Value))
	case *ast.BoolExpr:
		return c.pushConst(value.Bool(e.Value))
	case *ast.ByteExpr:
		return c.pushConst(value.Byte(e.Value))
	case *ast.NoneExpr:
		return c.pushConst(value.None())
	case *ast.BinopExpr:
		return c.compileBinop(e)
	case *ast.UnaryExpr:
		return c.compileUnary(e)
	case *ast.CallExpr:
		return c.compileCall(e)
	case *ast.ListExpr:
		return c.compileList(e)
	case *ast.IndexExpr:
		if err := c.compileExpr(e.Target); err != nil {
			return err
		}
		if err := c.compileExpr(e.Key); err != nil {
			return err
		}
		c.emit(bytecode.INX)
	default:
		return errors.Errorf("IMPOSSIBLE_STATE: unknown expression node %T", n)
	}
	return nil
}

var baseOp = map[string]bytecode.OpCode{
	"+": bytecode.ADD, "-": bytecode.SUB, "*": bytecode.MUL, "/": bytecode.DIV, "%": bytecode.MOD,
	"+=": bytecode.ADD, "-=": bytecode.SUB, "*=": bytecode.MUL, "/=": bytecode.DIV,
}

func (c *Compiler) compileBinop(e *ast.BinopExpr) error {
	switch e.Op {
	case "=":
		if err := c.compileExpr(e.Rhs); err != nil {
			return err
		}
		return c.storeInto(e.Lhs)
	case "+=", "-=", "*=", "/=":
		if err := c.compileExpr(e.Lhs); err != nil {
			return err
		}
		if err := c.compileExpr(e.Rhs); err != nil {
			return err
		}
		c.emit(baseOp[e.Op])
		return c.storeInto(e.Lhs)
	case "&&":
		return c.binaryPair(e, bytecode.AND)
	case "||":
		return c.binaryPair(e, bytecode.OR)
	case "^^":
		return c.binaryPair(e, bytecode.XOR)
	case ">":
		return c.binaryPair(e, bytecode.GT)
	case "<":
		return c.binaryPair(e, bytecode.LT)
	case "==":
		return c.binaryPair(e, bytecode.EQ)
	case "!=":
		if err := c.binaryPair(e, bytecode.EQ); err != nil {
			return err
		}
		c.emit(bytecode.NOT)
		return nil
	case "<=":
		if err := c.binaryPair(e, bytecode.GT); err != nil {
			return err
		}
		c.emit(bytecode.NOT)
		return nil
	case ">=":
		if err := c.binaryPair(e, bytecode.LT); err != nil {
			return err
		}
		c.emit(bytecode.NOT)
		return nil
	case "+", "-", "*", "/", "%":
		return c.binaryPair(e, baseOp[e.Op])
	default:
		return fmt.Errorf("IMPOSSIBLE_STATE: unknown operator %q", e.Op)
	}
}

func (c *Compiler) binaryPair(e *ast.BinopExpr, op bytecode.OpCode) error {
	if err := c.compileExpr(e.Lhs); err != nil {
		return err
	}
	if err := c.compileExpr(e.Rhs); err != nil {
		return err
	}
	c.emit(op)
	return nil
}

// storeInto emits the store half of an assignment, for either a plain
// variable target or an index target (spec.md §4.3 only spells out the
// VarExpr case explicitly; IndexExpr assignment follows the same
// read-modify-write-back shape using SKY).
func (c *Compiler) storeInto(lhs ast.Node) error {
	switch t := lhs.(type) {
	case *ast.VarExpr:
		if err := c.pushName(t.Name); err != nil {
			return err
		}
		c.emit(bytecode.SV)
		return nil
	case *ast.IndexExpr:
		// stack currently holds the new value (rhs); SKY wants
		// val, list, key -> list.
		if err := c.compileExpr(t.Target); err != nil {
			return err
		}
		if err := c.compileExpr(t.Key); err != nil {
			return err
		}
		c.emit(bytecode.SKY)
		return c.storeInto(t.Target)
	default:
		return fmt.Errorf("IMPOSSIBLE_STATE: invalid assignment target %T", lhs)
	}
}

func (c *Compiler) compileUnary(e *ast.UnaryExpr) error {
	switch e.Op {
	case "-":
		if err := c.pushConst(value.Int(0)); err != nil {
			return err
		}
		if err := c.compileExpr(e.V); err != nil {
			return err
		}
		c.emit(bytecode.SUB)
		return nil
	case "!":
		if err := c.compileExpr(e.V); err != nil {
			return err
		}
		c.emit(bytecode.NOT)
		return nil
	case "++", "--":
		if err := c.compileExpr(e.V); err != nil {
			return err
		}
		if err := c.pushConst(value.Int(1)); err != nil {
			return err
		}
		if e.Op == "++" {
			c.emit(bytecode.ADD)
		} else {
			c.emit(bytecode.SUB)
		}
		c.emit(bytecode.DUP)
		if v, ok := e.V.(*ast.VarExpr); ok {
			if err := c.pushName(v.Name); err != nil {
				return err
			}
			c.emit(bytecode.SV)
		}
		return nil
	default:
		return fmt.Errorf("IMPOSSIBLE_STATE: unknown unary operator %q", e.Op)
	}
}

func (c *Compiler) compileCall(e *ast.CallExpr) error {
	for _, a := range e.Args {
		if err := c.compileExpr(a); err != nil {
			return err
		}
	}
	if err := c.pushConst(value.Int(int32(len(e.Args)))); err != nil {
		return err
	}
	if err := c.pushName(e.Name); err != nil {
		return err
	}
	c.emit(bytecode.CALL)
	return nil
}

func (c *Compiler) compileList(e *ast.ListExpr) error {
	dense := true
	for _, k := range e.Keys {
		if k != "" {
			dense = false
			break
		}
	}
	if dense {
		for i := len(e.Values) - 1; i >= 0; i-- {
			if err := c.compileExpr(e.Values[i]); err != nil {
				return err
			}
		}
		if err := c.pushConst(value.Int(int32(len(e.Values)))); err != nil {
			return err
		}
		c.emit(bytecode.LFL)
		return nil
	}
	for i := len(e.Values) - 1; i >= 0; i-- {
		if err := c.compileExpr(e.Values[i]); err != nil {
			return err
		}
		key := e.Keys[i]
		if key == "" {
			key = fmt.Sprint(i)
		}
		if err := c.pushName(key); err != nil {
			return err
		}
	}
	if err := c.pushConst(value.Int(int32(len(e.Values)))); err != nil {
		return err
	}
	c.emit(bytecode.LL)
	return nil
}

// exprPushesValue reports whether compiling n leaves exactly one value on
// the operand stack, used by ExprStmt to decide whether a trailing DEL is
// needed (spec.md §4.3).
func exprPushesValue(n ast.Node) bool {
	if b, ok := n.(*ast.BinopExpr); ok {
		switch b.Op {
		case "=", "+=", "-=", "*=", "/=":
			return false
		}
	}
	return true
}
