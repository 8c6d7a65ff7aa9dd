// Package parser builds the AST the compiler consumes, from the token
// stream the lexer produces. Its contract (spec.md §6) is the set of AST
// node variants it emits; the recursive-descent strategy below is ours to
// pick, modeled on the teacher's sentra/internal/parser.
package parser

import (
	"fmt"

	"burlap/internal/ast"
	"burlap/internal/lexer"
)

var precedence = map[lexer.TokenType]int{
	lexer.TokenOrOr:    1,
	lexer.TokenXorXor:  1,
	lexer.TokenAndAnd:  2,
	lexer.TokenEqEq:    3,
	lexer.TokenNotEq:   3,
	lexer.TokenLT:      3,
	lexer.TokenGT:      3,
	lexer.TokenLE:       3,
	lexer.TokenGE:       3,
	lexer.TokenPlus:    4,
	lexer.TokenMinus:   4,
	lexer.TokenStar:    5,
	lexer.TokenSlash:   5,
	lexer.TokenPercent: 5,
}

var assignOps = map[lexer.TokenType]string{
	lexer.TokenEqual:      "=",
	lexer.TokenPlusEqual:  "+=",
	lexer.TokenMinusEqual: "-=",
	lexer.TokenStarEqual:  "*=",
	lexer.TokenSlashEqual: "/=",
}

// ParseError reports a token position alongside the message, the same
// shape the teacher's errors.SentraError carries for syntax errors.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Parse Error at line %d: %s", e.Line, e.Message)
}

type Parser struct {
	tokens  []lexer.Token
	current int
	Errors  []error
}

func New(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

func (p *Parser) Parse() *ast.BodyStmt {
	var stmts []ast.Node
	for !p.isAtEnd() {
		stmts = append(stmts, p.declaration())
	}
	return &ast.BodyStmt{Stmts: stmts}
}

// ---- token plumbing ----

func (p *Parser) peek() lexer.Token { return p.tokens[p.current] }
func (p *Parser) isAtEnd() bool     { return p.peek().Type == lexer.TokenEOF }
func (p *Parser) previous() lexer.Token {
	return p.tokens[p.current-1]
}

func (p *Parser) advance() lexer.Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.previous()
}

func (p *Parser) check(t lexer.TokenType) bool {
	if p.isAtEnd() {
		return false
	}
	return p.peek().Type == t
}

func (p *Parser) match(types ...lexer.TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) expect(t lexer.TokenType, msg string) lexer.Token {
	if p.check(t) {
		return p.advance()
	}
	p.errorf("%s (got %s %q)", msg, p.peek().Type, p.peek().Lexeme)
	return p.peek()
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.Errors = append(p.Errors, &ParseError{Line: p.peek().Line, Message: fmt.Sprintf(format, args...)})
}

func (p *Parser) skipSemis() {
	for p.match(lexer.TokenSemi, lexer.TokenNewline) {
	}
}

// ---- statements ----

func (p *Parser) declaration() ast.Node {
	p.skipSemis()
	switch {
	case p.match(lexer.TokenFunc):
		return p.functiStatement()
	case p.match(lexer.TokenLet):
		return p.letStatement()
	case p.match(lexer.TokenIf):
		return p.ifStatement()
	case p.match(lexer.TokenLoop):
		return p.loopStatement()
	case p.match(lexer.TokenWhile):
		return p.whileStatement()
	case p.match(lexer.TokenReturn):
		return p.returnStatement()
	case p.match(lexer.TokenImport):
		return p.importStatement()
	case p.match(lexer.TokenLBrace):
		return p.block()
	default:
		return p.exprStatement()
	}
}

func (p *Parser) letStatement() ast.Node {
	name := p.expect(lexer.TokenIdent, "expected variable name").Lexeme
	p.expect(lexer.TokenEqual, "expected '=' in let")
	val := p.expression()
	p.skipSemis()
	return &ast.LetStmt{Name: name, Value: val}
}

func (p *Parser) block() ast.Node {
	var stmts []ast.Node
	p.skipSemis()
	for !p.check(lexer.TokenRBrace) && !p.isAtEnd() {
		stmts = append(stmts, p.declaration())
		p.skipSemis()
	}
	p.expect(lexer.TokenRBrace, "expected '}'")
	return &ast.BodyStmt{Stmts: stmts}
}

func (p *Parser) ifStatement() ast.Node {
	cond := p.expression()
	p.expect(lexer.TokenLBrace, "expected '{' after if condition")
	body := p.block()
	var elseBody ast.Node
	p.skipSemis()
	if p.match(lexer.TokenElse) {
		if p.match(lexer.TokenIf) {
			elseBody = &ast.BodyStmt{Stmts: []ast.Node{p.ifStatement()}}
		} else {
			p.expect(lexer.TokenLBrace, "expected '{' after else")
			elseBody = p.block()
		}
	}
	return &ast.IfStmt{Cond: cond, Body: body, Else: elseBody}
}

func (p *Parser) loopStatement() ast.Node {
	varName := p.expect(lexer.TokenIdent, "expected loop variable").Lexeme
	p.expect(lexer.TokenIn, "expected 'in' in loop")
	iter := p.expression()
	p.expect(lexer.TokenLBrace, "expected '{' after loop header")
	body := p.block()
	return &ast.LoopStmt{Var: varName, Iter: iter, Body: body}
}

func (p *Parser) whileStatement() ast.Node {
	cond := p.expression()
	p.expect(lexer.TokenLBrace, "expected '{' after while condition")
	body := p.block()
	return &ast.WhileStmt{Cond: cond, Body: body}
}

func (p *Parser) functiStatement() ast.Node {
	name := p.expect(lexer.TokenIdent, "expected function name").Lexeme
	p.expect(lexer.TokenLParen, "expected '(' after function name")
	var params []string
	for !p.check(lexer.TokenRParen) {
		params = append(params, p.expect(lexer.TokenIdent, "expected parameter name").Lexeme)
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	p.expect(lexer.TokenRParen, "expected ')'")
	p.expect(lexer.TokenLBrace, "expected '{' to start function body")
	body := p.block()
	return &ast.FunctiStmt{Name: name, Params: params, Body: body}
}

func (p *Parser) returnStatement() ast.Node {
	var val ast.Node
	if !p.check(lexer.TokenSemi) && !p.check(lexer.TokenRBrace) {
		val = p.expression()
	}
	p.skipSemis()
	return &ast.ReturnStmt{Value: val}
}

func (p *Parser) importStatement() ast.Node {
	path := p.expect(lexer.TokenString, "expected import path").Lexeme
	p.skipSemis()
	return &ast.ImportStmt{Path: path}
}

func (p *Parser) exprStatement() ast.Node {
	expr := p.expression()
	p.skipSemis()
	return &ast.ExprStmt{Expr: expr}
}

// ---- expressions ----

func (p *Parser) expression() ast.Node {
	return p.assignment()
}

func (p *Parser) assignment() ast.Node {
	lhs := p.binary(0)
	if op, ok := assignOps[p.peek().Type]; ok {
		p.advance()
		rhs := p.assignment()
		return &ast.BinopExpr{Lhs: lhs, Op: op, Rhs: rhs}
	}
	return lhs
}

func (p *Parser) binary(minPrec int) ast.Node {
	lhs := p.unary()
	for {
		prec, ok := precedence[p.peek().Type]
		if !ok || prec < minPrec {
			break
		}
		op := string(p.advance().Type)
		rhs := p.binary(prec + 1)
		lhs = &ast.BinopExpr{Lhs: lhs, Op: op, Rhs: rhs}
	}
	return lhs
}

func (p *Parser) unary() ast.Node {
	switch {
	case p.match(lexer.TokenBang):
		return &ast.UnaryExpr{Op: "!", V: p.unary()}
	case p.match(lexer.TokenMinus):
		return &ast.UnaryExpr{Op: "-", V: p.unary()}
	case p.match(lexer.TokenPlusPlus):
		return &ast.UnaryExpr{Op: "++", V: p.unary()}
	case p.match(lexer.TokenMinusMinus):
		return &ast.UnaryExpr{Op: "--", V: p.unary()}
	default:
		return p.postfix()
	}
}

func (p *Parser) postfix() ast.Node {
	expr := p.indexOrCall()
	for {
		switch {
		case p.match(lexer.TokenPlusPlus):
			expr = &ast.UnaryExpr{Op: "++", V: expr}
		case p.match(lexer.TokenMinusMinus):
			expr = &ast.UnaryExpr{Op: "--", V: expr}
		default:
			return expr
		}
	}
}

func (p *Parser) indexOrCall() ast.Node {
	expr := p.primary()
	for p.match(lexer.TokenLBracket) {
		key := p.expression()
		p.expect(lexer.TokenRBracket, "expected ']'")
		expr = &ast.IndexExpr{Target: expr, Key: key}
	}
	return expr
}

func (p *Parser) primary() ast.Node {
	tok := p.peek()
	switch {
	case p.match(lexer.TokenInt):
		return parseInt(tok.Lexeme)
	case p.match(lexer.TokenFloat):
		return parseFloat(tok.Lexeme)
	case p.match(lexer.TokenString):
		return &ast.StringExpr{Value: tok.Lexeme}
	case p.match(lexer.TokenByte):
		return &ast.ByteExpr{Value: tok.Lexeme[0]}
	case p.match(lexer.TokenBool):
		return &ast.BoolExpr{Value: tok.Lexeme == "true"}
	case p.match(lexer.TokenNone):
		return &ast.NoneExpr{}
	case p.match(lexer.TokenLBracket):
		return p.listLiteral()
	case p.match(lexer.TokenLParen):
		expr := p.expression()
		p.expect(lexer.TokenRParen, "expected ')'")
		return expr
	case p.match(lexer.TokenIdent):
		name := tok.Lexeme
		if p.match(lexer.TokenLParen) {
			return p.finishCall(name)
		}
		return &ast.VarExpr{Name: name}
	default:
		p.errorf("unexpected token %s %q", tok.Type, tok.Lexeme)
		p.advance()
		return &ast.NoneExpr{}
	}
}

func (p *Parser) finishCall(name string) ast.Node {
	var args []ast.Node
	for !p.check(lexer.TokenRParen) {
		args = append(args, p.expression())
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	p.expect(lexer.TokenRParen, "expected ')' after call arguments")
	return &ast.CallExpr{Name: name, Args: args}
}

func (p *Parser) listLiteral() ast.Node {
	var keys []string
	var values []ast.Node
	for !p.check(lexer.TokenRBracket) {
		if p.check(lexer.TokenIdent) || p.check(lexer.TokenString) {
			save := p.current
			keyTok := p.advance()
			if p.match(lexer.TokenColon) {
				keys = append(keys, keyTok.Lexeme)
				values = append(values, p.expression())
				if !p.match(lexer.TokenComma) {
					break
				}
				continue
			}
			p.current = save
		}
		keys = append(keys, "")
		values = append(values, p.expression())
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	p.expect(lexer.TokenRBracket, "expected ']'")
	return &ast.ListExpr{Keys: keys, Values: values}
}

func parseInt(lexeme string) ast.Node {
	var v int32
	neg := false
	i := 0
	if i < len(lexeme) && lexeme[i] == '-' {
		neg = true
		i++
	}
	for ; i < len(lexeme); i++ {
		v = v*10 + int32(lexeme[i]-'0')
	}
	if neg {
		v = -v
	}
	return &ast.NumberExpr{Value: v}
}

func parseFloat(lexeme string) ast.Node {
	var intPart, fracPart int64
	var fracDigits int
	seenDot := false
	for i := 0; i < len(lexeme); i++ {
		c := lexeme[i]
		if c == '.' {
			seenDot = true
			continue
		}
		if !seenDot {
			intPart = intPart*10 + int64(c-'0')
		} else {
			fracPart = fracPart*10 + int64(c-'0')
			fracDigits++
		}
	}
	f := float64(intPart)
	if fracDigits > 0 {
		div := 1.0
		for i := 0; i < fracDigits; i++ {
			div *= 10
		}
		f += float64(fracPart) / div
	}
	return &ast.DecimalExpr{Value: float32(f)}
}
