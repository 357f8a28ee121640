package compiler

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Semantic Analyzer: static checks over a parsed program
// ---------------------------------------------------------------------------

// Warning is a non-fatal finding of the analyzer. Programs with warnings
// still run; the language server surfaces them as diagnostics.
type Warning struct {
	Line    int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("warning: line %d: %s", w.Line, w.Message)
}

// Declaration records where a variable was declared.
type Declaration struct {
	Name  string
	Line  int
	Depth int // 0 for globals, >0 for block scopes
}

// SemanticAnalyzer walks a program and checks for undefined variables,
// unused block locals and dead loops. It mirrors the scoping rules of the
// interpreter without evaluating anything.
type SemanticAnalyzer struct {
	warnings     []Warning
	declarations []Declaration

	scopes []*scopeFrame
}

// scopeFrame is one lexical scope: the global scope or a block.
type scopeFrame struct {
	declared map[string]int  // name -> index into declarations
	read     map[string]bool // names read while this frame was innermost owner
	order    []string
}

func newScopeFrame() *scopeFrame {
	return &scopeFrame{
		declared: make(map[string]int),
		read:     make(map[string]bool),
	}
}

// NewSemanticAnalyzer creates a new semantic analyzer.
func NewSemanticAnalyzer() *SemanticAnalyzer {
	return &SemanticAnalyzer{
		scopes: []*scopeFrame{newScopeFrame()},
	}
}

// Warnings returns accumulated warnings in source order of discovery.
func (s *SemanticAnalyzer) Warnings() []Warning {
	return s.warnings
}

// Declarations returns every variable declaration seen, in order.
func (s *SemanticAnalyzer) Declarations() []Declaration {
	return s.declarations
}

func (s *SemanticAnalyzer) warnAt(line int, format string, args ...interface{}) {
	s.warnings = append(s.warnings, Warning{Line: line, Message: fmt.Sprintf(format, args...)})
}

// AnalyzeProgram analyzes top-level statements.
func (s *SemanticAnalyzer) AnalyzeProgram(stmts []Stmt) {
	s.analyzeStatements(stmts)
}

func (s *SemanticAnalyzer) analyzeStatements(stmts []Stmt) {
	for _, stmt := range stmts {
		s.analyzeStmt(stmt)
	}
}

func (s *SemanticAnalyzer) analyzeStmt(stmt Stmt) {
	switch st := stmt.(type) {
	case *ExpressionStmt:
		s.analyzeExpr(st.Expression)
	case *PrintStmt:
		s.analyzeExpr(st.Expression)
	case *VarStmt:
		if st.Initializer != nil {
			s.analyzeExpr(st.Initializer)
		}
		s.declare(st.Name)
	case *BlockStmt:
		s.analyzeBlock(st)
	case *IfStmt:
		s.analyzeExpr(st.Condition)
		s.analyzeStmt(st.ThenBranch)
		if st.ElseBranch != nil {
			s.analyzeStmt(st.ElseBranch)
		}
	case *WhileStmt:
		s.analyzeExpr(st.Condition)
		if lit, ok := st.Condition.(*Literal); ok && lit.Get().IsFalsy() {
			s.warnAt(StmtLine(st.Body), "loop body is unreachable")
		}
		s.analyzeStmt(st.Body)
	}
}

func (s *SemanticAnalyzer) analyzeExpr(expr Expr) {
	switch e := expr.(type) {
	case *Variable:
		s.checkVariableDefined(e.Name)
		s.markRead(e.Name.Lexeme)
	case *Assign:
		s.analyzeExpr(e.Value)
		s.checkVariableDefined(e.Name)
	case *Binary:
		s.analyzeExpr(e.Left)
		s.analyzeExpr(e.Right)
	case *Logical:
		s.analyzeExpr(e.Left)
		s.analyzeExpr(e.Right)
	case *Unary:
		s.analyzeExpr(e.Right)
	case *Grouping:
		s.analyzeExpr(e.Expression)
	case *Literal:
		// OK
	}
}

// analyzeBlock opens a scope for the block body and reports block locals
// that were never read.
func (s *SemanticAnalyzer) analyzeBlock(block *BlockStmt) {
	frame := newScopeFrame()
	s.scopes = append(s.scopes, frame)

	s.analyzeStatements(block.Statements)

	for _, name := range frame.order {
		if !frame.read[name] {
			decl := s.declarations[frame.declared[name]]
			s.warnAt(decl.Line, "local variable '%s' is never read", name)
		}
	}

	s.scopes = s.scopes[:len(s.scopes)-1]
}

func (s *SemanticAnalyzer) declare(name Token) {
	frame := s.scopes[len(s.scopes)-1]
	if _, ok := frame.declared[name.Lexeme]; !ok {
		frame.order = append(frame.order, name.Lexeme)
	}
	frame.declared[name.Lexeme] = len(s.declarations)
	s.declarations = append(s.declarations, Declaration{
		Name:  name.Lexeme,
		Line:  name.Line,
		Depth: len(s.scopes) - 1,
	})
}

// lookup finds the innermost frame that declares name.
func (s *SemanticAnalyzer) lookup(name string) (*scopeFrame, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if _, ok := s.scopes[i].declared[name]; ok {
			return s.scopes[i], true
		}
	}
	return nil, false
}

func (s *SemanticAnalyzer) markRead(name string) {
	if frame, ok := s.lookup(name); ok {
		frame.read[name] = true
	}
}

// checkVariableDefined warns about names with no visible declaration.
// Globals may still be defined on another REPL line, so this is only a
// warning.
func (s *SemanticAnalyzer) checkVariableDefined(name Token) {
	if _, ok := s.lookup(name.Lexeme); ok {
		return
	}
	s.warnAt(name.Line, "variable '%s' may be undefined", name.Lexeme)
}

// ---------------------------------------------------------------------------
// Convenience entry point
// ---------------------------------------------------------------------------

// Analyze runs semantic analysis on a program and returns its warnings.
func Analyze(stmts []Stmt) []Warning {
	analyzer := NewSemanticAnalyzer()
	analyzer.AnalyzeProgram(stmts)
	return analyzer.Warnings()
}
