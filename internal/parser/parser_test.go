package parser

import (
	"testing"

	"burlap/internal/ast"
	"burlap/internal/lexer"
)

func parse(src string) *ast.BodyStmt {
	tokens := lexer.NewScanner(src).ScanTokens()
	return New(tokens).Parse()
}

func TestParseLetStatement(t *testing.T) {
	root := parse(`let x = 1;`)
	if len(root.Stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(root.Stmts))
	}
	let, ok := root.Stmts[0].(*ast.LetStmt)
	if !ok {
		t.Fatalf("expected *ast.LetStmt, got %T", root.Stmts[0])
	}
	if let.Name != "x" {
		t.Errorf("let name = %q, want x", let.Name)
	}
}

func TestParsePrecedence(t *testing.T) {
	root := parse(`1 + 2 * 3;`)
	expr := root.Stmts[0].(*ast.ExprStmt).Expr
	bin, ok := expr.(*ast.BinopExpr)
	if !ok {
		t.Fatalf("expected top-level BinopExpr, got %T", expr)
	}
	if bin.Op != "+" {
		t.Fatalf("top-level op = %q, want + (multiplication should bind tighter)", bin.Op)
	}
	rhs, ok := bin.Rhs.(*ast.BinopExpr)
	if !ok || rhs.Op != "*" {
		t.Errorf("rhs should be the * subexpression, got %#v", bin.Rhs)
	}
}

func TestParseIfElse(t *testing.T) {
	root := parse(`if true { 1; } else { 2; }`)
	ifs, ok := root.Stmts[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("expected *ast.IfStmt, got %T", root.Stmts[0])
	}
	if ast.IsEmptyBody(ifs.Body) || ast.IsEmptyBody(ifs.Else) {
		t.Error("both branches should be non-empty")
	}
}

func TestParseFunctiWithParams(t *testing.T) {
	root := parse(`func add(a, b) { return a + b; }`)
	fn, ok := root.Stmts[0].(*ast.FunctiStmt)
	if !ok {
		t.Fatalf("expected *ast.FunctiStmt, got %T", root.Stmts[0])
	}
	if len(fn.Params) != 2 || fn.Params[0] != "a" || fn.Params[1] != "b" {
		t.Errorf("params = %v, want [a b]", fn.Params)
	}
}

func TestParseIndexChain(t *testing.T) {
	root := parse(`a[0][1];`)
	expr := root.Stmts[0].(*ast.ExprStmt).Expr
	outer, ok := expr.(*ast.IndexExpr)
	if !ok {
		t.Fatalf("expected outer *ast.IndexExpr, got %T", expr)
	}
	if _, ok := outer.Target.(*ast.IndexExpr); !ok {
		t.Errorf("outer target should itself be an IndexExpr, got %T", outer.Target)
	}
}

func TestParseDenseListLiteral(t *testing.T) {
	root := parse(`[1, 2, 3];`)
	lst, ok := root.Stmts[0].(*ast.ExprStmt).Expr.(*ast.ListExpr)
	if !ok {
		t.Fatalf("expected *ast.ListExpr, got %T", root.Stmts[0].(*ast.ExprStmt).Expr)
	}
	for _, k := range lst.Keys {
		if k != "" {
			t.Errorf("dense list should have only empty keys, got %v", lst.Keys)
		}
	}
}

func TestParseKeyedListLiteral(t *testing.T) {
	root := parse(`[x: 1, y: 2];`)
	lst := root.Stmts[0].(*ast.ExprStmt).Expr.(*ast.ListExpr)
	if len(lst.Keys) != 2 || lst.Keys[0] != "x" || lst.Keys[1] != "y" {
		t.Errorf("keys = %v, want [x y]", lst.Keys)
	}
}

func TestParseAssignmentRightAssociative(t *testing.T) {
	root := parse(`a = b = 1;`)
	top := root.Stmts[0].(*ast.ExprStmt).Expr.(*ast.BinopExpr)
	if top.Op != "=" {
		t.Fatalf("top op = %q, want =", top.Op)
	}
	if _, ok := top.Rhs.(*ast.BinopExpr); !ok {
		t.Errorf("rhs of a = b = 1 should itself be an assignment, got %T", top.Rhs)
	}
}

func TestParseLoopStatement(t *testing.T) {
	root := parse(`loop i in range(3) { print(i); }`)
	l, ok := root.Stmts[0].(*ast.LoopStmt)
	if !ok {
		t.Fatalf("expected *ast.LoopStmt, got %T", root.Stmts[0])
	}
	if l.Var != "i" {
		t.Errorf("loop var = %q, want i", l.Var)
	}
}
