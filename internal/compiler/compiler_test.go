package compiler

import (
	"testing"

	"burlap/internal/ast"
	"burlap/internal/bytecode"
)

func opsOf(t *testing.T, root *ast.BodyStmt) []bytecode.OpCode {
	t.Helper()
	prog, err := Compile(root)
	if err != nil {
		t.Fatal(err)
	}
	var ops []bytecode.OpCode
	ip := 0
	for ip < len(prog.Ops) {
		op := bytecode.OpCode(prog.Ops[ip])
		ops = append(ops, op)
		n := 0
		switch op {
		case bytecode.PUSH:
			n = 1
		case bytecode.PUSH3, bytecode.JMPU, bytecode.JMPB, bytecode.JMPNT, bytecode.TCO:
			n = 3
		}
		ip += 1 + n
	}
	return ops
}

func contains(ops []bytecode.OpCode, want bytecode.OpCode) bool {
	for _, op := range ops {
		if op == want {
			return true
		}
	}
	return false
}

func TestCompileLetEmitsDV(t *testing.T) {
	root := &ast.BodyStmt{Stmts: []ast.Node{
		&ast.LetStmt{Name: "x", Value: &ast.NumberExpr{Value: 1}},
	}}
	ops := opsOf(t, root)
	if !contains(ops, bytecode.DV) {
		t.Errorf("let should emit DV, got %v", ops)
	}
}

func TestCompileIfEmitsJMPNT(t *testing.T) {
	root := &ast.BodyStmt{Stmts: []ast.Node{
		&ast.IfStmt{
			Cond: &ast.BoolExpr{Value: true},
			Body: &ast.BodyStmt{Stmts: []ast.Node{
				&ast.ExprStmt{Expr: &ast.NumberExpr{Value: 1}},
			}},
		},
	}}
	ops := opsOf(t, root)
	if !contains(ops, bytecode.JMPNT) {
		t.Errorf("if should emit JMPNT, got %v", ops)
	}
}

func TestCompileWhileEmitsBackJump(t *testing.T) {
	root := &ast.BodyStmt{Stmts: []ast.Node{
		&ast.WhileStmt{
			Cond: &ast.BoolExpr{Value: true},
			Body: &ast.BodyStmt{},
		},
	}}
	ops := opsOf(t, root)
	if !contains(ops, bytecode.JMPB) {
		t.Errorf("while should emit a backward jump (JMPB), got %v", ops)
	}
}

func TestCompileFunctiEmitsFNThenSkipJump(t *testing.T) {
	root := &ast.BodyStmt{Stmts: []ast.Node{
		&ast.FunctiStmt{Name: "f", Params: []string{"a"}, Body: &ast.BodyStmt{}},
	}}
	ops := opsOf(t, root)
	fnIdx := -1
	for i, op := range ops {
		if op == bytecode.FN {
			fnIdx = i
			break
		}
	}
	if fnIdx == -1 {
		t.Fatalf("functi should emit FN, got %v", ops)
	}
	if ops[fnIdx+1] != bytecode.JMPU {
		t.Errorf("FN must be immediately followed by a JMPU skip, got %v at %d", ops, fnIdx)
	}
}

func TestCompileCallPushesArgCountThenName(t *testing.T) {
	root := &ast.BodyStmt{Stmts: []ast.Node{
		&ast.ExprStmt{Expr: &ast.CallExpr{Name: "f", Args: []ast.Node{&ast.NumberExpr{Value: 1}}}},
	}}
	ops := opsOf(t, root)
	if !contains(ops, bytecode.CALL) {
		t.Errorf("call should emit CALL, got %v", ops)
	}

	// PUSH 1 (arg), PUSH 1 (arg count, deduplicated), PUSH "f", CALL
	prog, err := Compile(root)
	if err != nil {
		t.Fatal(err)
	}
	at := 6
	if bytecode.OpCode(prog.Ops[at]) != bytecode.CALL {
		t.Fatalf("expected CALL at offset %d, got %v", at, bytecode.OpCode(prog.Ops[at]))
	}
	if bytecode.OpCode(prog.Ops[at-4]) != bytecode.PUSH || prog.Consts[prog.Ops[at-3]].I != 1 {
		t.Errorf("CALL should be preceded by a push of the arg count 1, then the name")
	}
	if bytecode.OpCode(prog.Ops[at-2]) != bytecode.PUSH || prog.Consts[prog.Ops[at-1]].S != "f" {
		t.Errorf("the push right before CALL should be the name %q", "f")
	}
}

func TestCompileAssignmentToIndexEmitsSKY(t *testing.T) {
	root := &ast.BodyStmt{Stmts: []ast.Node{
		&ast.ExprStmt{Expr: &ast.BinopExpr{
			Lhs: &ast.IndexExpr{Target: &ast.VarExpr{Name: "a"}, Key: &ast.NumberExpr{Value: 1}},
			Op:  "=",
			Rhs: &ast.NumberExpr{Value: 9},
		}},
	}}
	ops := opsOf(t, root)
	if !contains(ops, bytecode.SKY) {
		t.Errorf("index assignment should emit SKY, got %v", ops)
	}
	if !contains(ops, bytecode.SV) {
		t.Errorf("index assignment should write the rebuilt list back with SV, got %v", ops)
	}
}

func TestCompileDenseListEmitsLFL(t *testing.T) {
	root := &ast.BodyStmt{Stmts: []ast.Node{
		&ast.ExprStmt{Expr: &ast.ListExpr{
			Keys:   []string{"", ""},
			Values: []ast.Node{&ast.NumberExpr{Value: 1}, &ast.NumberExpr{Value: 2}},
		}},
	}}
	ops := opsOf(t, root)
	if !contains(ops, bytecode.LFL) {
		t.Errorf("all-dense list literal should emit LFL, got %v", ops)
	}
	if contains(ops, bytecode.LL) {
		t.Errorf("all-dense list literal should not emit LL, got %v", ops)
	}
}

func TestCompileKeyedListEmitsLL(t *testing.T) {
	root := &ast.BodyStmt{Stmts: []ast.Node{
		&ast.ExprStmt{Expr: &ast.ListExpr{
			Keys:   []string{"a", ""},
			Values: []ast.Node{&ast.NumberExpr{Value: 1}, &ast.NumberExpr{Value: 2}},
		}},
	}}
	ops := opsOf(t, root)
	if !contains(ops, bytecode.LL) {
		t.Errorf("a list literal with any explicit key should emit LL, got %v", ops)
	}
}

func TestCompileCompoundAssignReusesBaseOp(t *testing.T) {
	root := &ast.BodyStmt{Stmts: []ast.Node{
		&ast.ExprStmt{Expr: &ast.BinopExpr{
			Lhs: &ast.VarExpr{Name: "x"},
			Op:  "+=",
			Rhs: &ast.NumberExpr{Value: 1},
		}},
	}}
	ops := opsOf(t, root)
	if !contains(ops, bytecode.ADD) || !contains(ops, bytecode.SV) {
		t.Errorf("+= should emit ADD then SV, got %v", ops)
	}
}
