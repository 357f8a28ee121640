package compiler

import "github.com/dibashthapa/jsbytecode/pkg/runtime"

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for Lox
// ---------------------------------------------------------------------------

// Node is the interface implemented by all AST nodes.
type Node interface {
	node() // marker method
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// Binary represents an arithmetic, comparison or equality operation.
type Binary struct {
	Left     Expr
	Operator Token
	Right    Expr
}

func (n *Binary) node() {}
func (n *Binary) expr() {}

// Unary represents a prefix operation: ! or -.
type Unary struct {
	Operator Token
	Right    Expr
}

func (n *Unary) node() {}
func (n *Unary) expr() {}

// Grouping represents a parenthesized expression.
type Grouping struct {
	Expression Expr
}

func (n *Grouping) node() {}
func (n *Grouping) expr() {}

// Literal represents a constant. A nil Value means the literal nil.
// Line is 0 for literals synthesized by the parser.
type Literal struct {
	Value *runtime.Value
	Line  int
}

func (n *Literal) node() {}
func (n *Literal) expr() {}

// Get returns the literal's value, mapping an absent value to nil.
func (n *Literal) Get() runtime.Value {
	if n.Value == nil {
		return runtime.Nil
	}
	return *n.Value
}

// Variable represents a reference to a named variable.
type Variable struct {
	Name Token
}

func (n *Variable) node() {}
func (n *Variable) expr() {}

// Assign represents assignment to an existing variable.
type Assign struct {
	Name  Token
	Value Expr
}

func (n *Assign) node() {}
func (n *Assign) expr() {}

// Logical represents a short-circuiting and/or.
type Logical struct {
	Left     Expr
	Operator Token
	Right    Expr
}

func (n *Logical) node() {}
func (n *Logical) expr() {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// ExpressionStmt evaluates an expression for its side effects.
type ExpressionStmt struct {
	Expression Expr
}

func (n *ExpressionStmt) node() {}
func (n *ExpressionStmt) stmt() {}

// PrintStmt writes the value of an expression followed by a newline.
type PrintStmt struct {
	Expression Expr
}

func (n *PrintStmt) node() {}
func (n *PrintStmt) stmt() {}

// VarStmt declares a variable in the current scope. Initializer may be nil.
type VarStmt struct {
	Name        Token
	Initializer Expr
}

func (n *VarStmt) node() {}
func (n *VarStmt) stmt() {}

// BlockStmt is a braced list of statements with its own scope.
type BlockStmt struct {
	Statements []Stmt
}

func (n *BlockStmt) node() {}
func (n *BlockStmt) stmt() {}

// IfStmt is a conditional. ElseBranch may be nil.
type IfStmt struct {
	Condition  Expr
	ThenBranch Stmt
	ElseBranch Stmt
}

func (n *IfStmt) node() {}
func (n *IfStmt) stmt() {}

// WhileStmt loops while Condition is truthy. For loops are desugared into
// a WhileStmt by the parser.
type WhileStmt struct {
	Condition Expr
	Body      Stmt
}

func (n *WhileStmt) node() {}
func (n *WhileStmt) stmt() {}

// ---------------------------------------------------------------------------
// Source lines
// ---------------------------------------------------------------------------

// StmtLine returns the line of the first token-bearing node in stmt, or
// 0 when the statement holds no tokens (e.g. an empty block).
func StmtLine(stmt Stmt) int {
	switch st := stmt.(type) {
	case *ExpressionStmt:
		return ExprLine(st.Expression)
	case *PrintStmt:
		return ExprLine(st.Expression)
	case *VarStmt:
		return st.Name.Line
	case *BlockStmt:
		for _, inner := range st.Statements {
			if l := StmtLine(inner); l > 0 {
				return l
			}
		}
	case *IfStmt:
		return ExprLine(st.Condition)
	case *WhileStmt:
		return ExprLine(st.Condition)
	}
	return 0
}

// ExprLine returns the line of the leftmost token in expr, or 0 for
// literals synthesized by the parser.
func ExprLine(expr Expr) int {
	switch e := expr.(type) {
	case *Variable:
		return e.Name.Line
	case *Assign:
		return e.Name.Line
	case *Binary:
		if l := ExprLine(e.Left); l > 0 {
			return l
		}
		return e.Operator.Line
	case *Logical:
		if l := ExprLine(e.Left); l > 0 {
			return l
		}
		return e.Operator.Line
	case *Unary:
		return e.Operator.Line
	case *Grouping:
		return ExprLine(e.Expression)
	case *Literal:
		return e.Line
	}
	return 0
}
