package compiler

import "github.com/dibashthapa/jsbytecode/pkg/runtime"

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for Lox
// ---------------------------------------------------------------------------

// Parser turns a token stream into statements. It stops at the first
// error; there is no synchronization or recovery.
type Parser struct {
	tokens  []Token
	current int
}

// NewParser creates a parser over tokens. The slice must end with an EOF
// token, as produced by a Lexer.
func NewParser(tokens []Token) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != TokenEOF {
		line := 1
		if len(tokens) > 0 {
			line = tokens[len(tokens)-1].Line
		}
		tokens = append(tokens[:len(tokens):len(tokens)], Token{Type: TokenEOF, Line: line})
	}
	return &Parser{tokens: tokens}
}

// Parse parses tokens into a program. The returned error, if any, is a
// *ParseError.
func Parse(tokens []Token) ([]Stmt, error) {
	return NewParser(tokens).Parse()
}

// ParseSource lexes and parses src. The first lexical error wins over any
// parse error.
func ParseSource(src string) ([]Stmt, error) {
	lexer := NewLexer(src)
	tokens := lexer.ScanTokens()
	if errs := lexer.Errors(); len(errs) > 0 {
		return nil, errs[0]
	}
	return Parse(tokens)
}

// Parse parses the whole token stream.
func (p *Parser) Parse() ([]Stmt, error) {
	var statements []Stmt
	for !p.isAtEnd() {
		stmt, err := p.declaration()
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}
	return statements, nil
}

// ParseExpression parses a single expression followed by EOF.
func (p *Parser) ParseExpression() (Expr, error) {
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if !p.isAtEnd() {
		return nil, errorAt(p.peek(), "Expect end of expression.")
	}
	return expr, nil
}

// ---------------------------------------------------------------------------
// Token cursor
// ---------------------------------------------------------------------------

func (p *Parser) peek() Token {
	return p.tokens[p.current]
}

func (p *Parser) previous() Token {
	return p.tokens[p.current-1]
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Type == TokenEOF
}

func (p *Parser) advance() Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.previous()
}

func (p *Parser) check(t TokenType) bool {
	if p.isAtEnd() {
		return false
	}
	return p.peek().Type == t
}

// match consumes the current token if it has any of the given types.
func (p *Parser) match(types ...TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

// consume advances past a token of type t or fails with message.
func (p *Parser) consume(t TokenType, message string) (Token, error) {
	if p.check(t) {
		return p.advance(), nil
	}
	return Token{}, errorAt(p.peek(), message)
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *Parser) declaration() (Stmt, error) {
	if p.match(TokenVar) {
		return p.varDeclaration()
	}
	return p.statement()
}

func (p *Parser) varDeclaration() (Stmt, error) {
	name, err := p.consume(TokenIdentifier, "Expect variable name.")
	if err != nil {
		return nil, err
	}

	var initializer Expr
	if p.match(TokenEqual) {
		if initializer, err = p.expression(); err != nil {
			return nil, err
		}
	}

	if _, err := p.consume(TokenSemicolon, "Expect ';' after variable declaration."); err != nil {
		return nil, err
	}
	return &VarStmt{Name: name, Initializer: initializer}, nil
}

func (p *Parser) statement() (Stmt, error) {
	switch {
	case p.match(TokenIf):
		return p.ifStatement()
	case p.match(TokenPrint):
		return p.printStatement()
	case p.match(TokenFor):
		return p.forStatement()
	case p.match(TokenWhile):
		return p.whileStatement()
	case p.match(TokenLeftBrace):
		statements, err := p.block()
		if err != nil {
			return nil, err
		}
		return &BlockStmt{Statements: statements}, nil
	}
	return p.expressionStatement()
}

func (p *Parser) printStatement() (Stmt, error) {
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(TokenSemicolon, "Expect ';' after value."); err != nil {
		return nil, err
	}
	return &PrintStmt{Expression: expr}, nil
}

func (p *Parser) expressionStatement() (Stmt, error) {
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(TokenSemicolon, "Expect ';' after expression."); err != nil {
		return nil, err
	}
	return &ExpressionStmt{Expression: expr}, nil
}

// block parses declarations up to the closing brace. The opening brace
// has already been consumed.
func (p *Parser) block() ([]Stmt, error) {
	var statements []Stmt
	for !p.check(TokenRightBrace) && !p.isAtEnd() {
		stmt, err := p.declaration()
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}
	if _, err := p.consume(TokenRightBrace, "Expect '}' after block."); err != nil {
		return nil, err
	}
	return statements, nil
}

// ifStatement parses an if. An else binds to the nearest if.
func (p *Parser) ifStatement() (Stmt, error) {
	if _, err := p.consume(TokenLeftParen, "Expect '(' after 'if'."); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(TokenRightParen, "Expect ')' after if condition."); err != nil {
		return nil, err
	}

	thenBranch, err := p.statement()
	if err != nil {
		return nil, err
	}

	var elseBranch Stmt
	if p.match(TokenElse) {
		if elseBranch, err = p.statement(); err != nil {
			return nil, err
		}
	}

	return &IfStmt{Condition: cond, ThenBranch: thenBranch, ElseBranch: elseBranch}, nil
}

func (p *Parser) whileStatement() (Stmt, error) {
	if _, err := p.consume(TokenLeftParen, "Expect '(' after 'while'."); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(TokenRightParen, "Expect ')' after condition."); err != nil {
		return nil, err
	}
	body, err := p.statement()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{Condition: cond, Body: body}, nil
}

// forStatement parses a for loop and desugars it:
//
//	for (init; cond; incr) body
//
// becomes
//
//	{ init; while (cond) { body; incr; } }
//
// A missing condition is true. The outer block is only produced when
// there is an initializer, the inner one only when there is an increment.
func (p *Parser) forStatement() (Stmt, error) {
	if _, err := p.consume(TokenLeftParen, "Expect '(' after 'for'."); err != nil {
		return nil, err
	}

	var (
		initializer Stmt
		err         error
	)
	switch {
	case p.match(TokenSemicolon):
	case p.match(TokenVar):
		initializer, err = p.varDeclaration()
	default:
		initializer, err = p.expressionStatement()
	}
	if err != nil {
		return nil, err
	}

	var cond Expr
	if !p.check(TokenSemicolon) {
		if cond, err = p.expression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(TokenSemicolon, "Expect ';' after loop condition."); err != nil {
		return nil, err
	}

	var increment Expr
	if !p.check(TokenRightParen) {
		if increment, err = p.expression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(TokenRightParen, "Expect ')' after for clauses."); err != nil {
		return nil, err
	}

	body, err := p.statement()
	if err != nil {
		return nil, err
	}

	if increment != nil {
		body = &BlockStmt{Statements: []Stmt{body, &ExpressionStmt{Expression: increment}}}
	}
	if cond == nil {
		v := runtime.True
		cond = &Literal{Value: &v}
	}
	body = &WhileStmt{Condition: cond, Body: body}
	if initializer != nil {
		body = &BlockStmt{Statements: []Stmt{initializer, body}}
	}
	return body, nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (p *Parser) expression() (Expr, error) {
	return p.assignment()
}

// assignment is right associative. The left side is parsed as an ordinary
// expression and must turn out to be a plain variable.
func (p *Parser) assignment() (Expr, error) {
	expr, err := p.or()
	if err != nil {
		return nil, err
	}

	if p.match(TokenEqual) {
		equals := p.previous()
		value, err := p.assignment()
		if err != nil {
			return nil, err
		}
		if v, ok := expr.(*Variable); ok {
			return &Assign{Name: v.Name, Value: value}, nil
		}
		return nil, errorAt(equals, "Invalid assignment target.")
	}

	return expr, nil
}

func (p *Parser) or() (Expr, error) {
	expr, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.match(TokenOr) {
		op := p.previous()
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		expr = &Logical{Left: expr, Operator: op, Right: right}
	}
	return expr, nil
}

func (p *Parser) and() (Expr, error) {
	expr, err := p.equality()
	if err != nil {
		return nil, err
	}
	for p.match(TokenAnd) {
		op := p.previous()
		right, err := p.equality()
		if err != nil {
			return nil, err
		}
		expr = &Logical{Left: expr, Operator: op, Right: right}
	}
	return expr, nil
}

// binaryLevel parses a left-associative chain of operators drawn from ops,
// with operands parsed by next.
func (p *Parser) binaryLevel(next func() (Expr, error), ops ...TokenType) (Expr, error) {
	expr, err := next()
	if err != nil {
		return nil, err
	}
	for p.match(ops...) {
		op := p.previous()
		right, err := next()
		if err != nil {
			return nil, err
		}
		expr = &Binary{Left: expr, Operator: op, Right: right}
	}
	return expr, nil
}

func (p *Parser) equality() (Expr, error) {
	return p.binaryLevel(p.comparison, TokenBangEqual, TokenEqualEqual)
}

func (p *Parser) comparison() (Expr, error) {
	return p.binaryLevel(p.term, TokenGreater, TokenGreaterEqual, TokenLess, TokenLessEqual)
}

func (p *Parser) term() (Expr, error) {
	return p.binaryLevel(p.factor, TokenMinus, TokenPlus)
}

func (p *Parser) factor() (Expr, error) {
	return p.binaryLevel(p.unary, TokenSlash, TokenStar)
}

func (p *Parser) unary() (Expr, error) {
	if p.match(TokenBang, TokenMinus) {
		op := p.previous()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &Unary{Operator: op, Right: right}, nil
	}
	return p.primary()
}

func (p *Parser) primary() (Expr, error) {
	switch {
	case p.match(TokenFalse):
		return p.literal(runtime.False), nil
	case p.match(TokenTrue):
		return p.literal(runtime.True), nil
	case p.match(TokenNil):
		return p.literal(runtime.Nil), nil
	case p.match(TokenNumber, TokenString):
		tok := p.previous()
		return &Literal{Value: tok.Literal, Line: tok.Line}, nil
	case p.match(TokenIdentifier):
		return &Variable{Name: p.previous()}, nil
	case p.match(TokenLeftParen):
		expr, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(TokenRightParen, "Expect ')' after expression."); err != nil {
			return nil, err
		}
		return &Grouping{Expression: expr}, nil
	}
	return nil, errorAt(p.peek(), "Expect expression.")
}

// literal builds a Literal for the keyword token just consumed.
func (p *Parser) literal(v runtime.Value) *Literal {
	return &Literal{Value: &v, Line: p.previous().Line}
}
