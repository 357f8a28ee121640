package bytecode

import (
	"fmt"

	"github.com/dibashthapa/jsbytecode/compiler"
	"github.com/dibashthapa/jsbytecode/pkg/runtime"
)

// Generator errors. All are reported as *runtime.RuntimeError with the
// line of the offending construct.
const (
	MsgUnsupported      = "Expression is not supported by the bytecode backend."
	MsgIfNotKnown       = "Condition of 'if' is not known at compile time."
	MsgLoopNotKnown     = "Loop condition is not known at compile time."
	MsgLoopComparison   = "Loop condition must be a comparison."
	MsgTooManyRegisters = "Too many registers in one program."
)

// Generator lowers syntax trees into register machine programs.
//
// Control flow is resolved at compile time where possible: an if compiles
// only the branch its folded condition selects, and a while loop is only
// emitted when its condition is statically true on entry. The loop itself
// becomes a single backward jump guarded by a comparison.
//
// A Generator keeps its global scope across calls to Compile, so
// successive REPL lines see earlier declarations. Registers are allocated
// per program: variables live in the VM's variable store between runs.
type Generator struct {
	prog   *Program
	global *Scope
	scope  *Scope

	nextReg int
	labels  int
	line    int

	// exits records the shadowing declarations of the last program.
	exits []scopeExit
}

// scopeExit is a block declaration that hides an outer variable. Between
// start (its SetVariable) and end (the SetVariable restoring the outer
// value) the outer value lives in register save.
type scopeExit struct {
	name       string
	save       Register
	start, end int
}

// NewGenerator creates a generator with an empty global scope.
func NewGenerator() *Generator {
	global := NewScope(nil)
	return &Generator{global: global, scope: global, line: 1}
}

// Compile lowers a program with a fresh generator.
func Compile(stmts []compiler.Stmt) (*Program, error) {
	return NewGenerator().Compile(stmts)
}

// Compile lowers stmts into a new Program ending with Return. The error,
// if any, is a *runtime.RuntimeError.
//
// A failed Compile leaves the global scope as it was before the call.
func (g *Generator) Compile(stmts []compiler.Stmt) (*Program, error) {
	cp := g.Checkpoint()
	g.prog = NewProgram()
	g.scope = g.global
	g.nextReg = 0
	g.exits = g.exits[:0]

	for _, stmt := range stmts {
		if err := g.stmt(stmt); err != nil {
			g.prog = nil
			g.Rollback(cp)
			return nil, err
		}
	}
	g.emit(Return(), g.line)
	g.prog.Registers = g.nextReg

	prog := g.prog
	g.prog = nil
	return prog, nil
}

// Globals returns the names declared at the top level so far.
func (g *Generator) Globals() []string {
	return g.global.Names()
}

// Checkpoint is a saved copy of a generator's global scope.
type Checkpoint struct {
	vars  map[string]Binding
	order []string
}

// Checkpoint saves the global scope.
func (g *Generator) Checkpoint() Checkpoint {
	cp := Checkpoint{
		vars:  make(map[string]Binding, len(g.global.vars)),
		order: append([]string(nil), g.global.order...),
	}
	for name, b := range g.global.vars {
		cp.vars[name] = *b
	}
	return cp
}

// Rollback restores the global scope saved by Checkpoint.
func (g *Generator) Rollback(cp Checkpoint) {
	g.global.vars = make(map[string]*Binding, len(cp.vars))
	for name, b := range cp.vars {
		nb := b
		g.global.vars[name] = &nb
	}
	g.global.order = append([]string(nil), cp.order...)
	g.scope = g.global
}

// Recover reconciles the generator and vm after vm failed while running
// the program last compiled from stmts. cp must be the checkpoint taken
// before that Compile.
//
// Block declarations live at the failing instruction get their outer value
// back, as the interpreter's scopes would. The global scope is rolled back
// and every global stmts may have assigned takes the value the VM actually
// holds.
func (g *Generator) Recover(cp Checkpoint, stmts []compiler.Stmt, vm *VM) {
	pc := vm.pc
	for _, ex := range g.exits {
		if ex.start < pc && pc < ex.end {
			vm.variables[ex.name] = vm.registers[ex.save]
		}
	}
	g.exits = g.exits[:0]

	g.Rollback(cp)
	for _, stmt := range stmts {
		for _, name := range assignedNames(stmt) {
			b, ok := g.global.vars[name]
			if !ok {
				continue
			}
			if v, ok := vm.variables[name]; ok {
				b.Value, b.Known = v, true
			}
		}
	}
}

func (g *Generator) emit(in Instruction, line int) {
	if line <= 0 {
		line = g.line
	}
	g.prog.Emit(in, line)
}

func (g *Generator) errorf(line int, format string, args ...any) error {
	if line <= 0 {
		line = g.line
	}
	return runtime.NewRuntimeError(line, format, args...)
}

// alloc returns a fresh register.
func (g *Generator) alloc(line int) (Register, error) {
	if g.nextReg >= NumRegisters {
		return 0, g.errorf(line, MsgTooManyRegisters)
	}
	r := Register(g.nextReg)
	g.nextReg++
	return r, nil
}

func (g *Generator) newLabel() string {
	g.labels++
	return fmt.Sprintf("L%d", g.labels)
}

// fold evaluates expr against the current scope, treating type errors as
// "not known" so that the VM reports them at run time instead.
func (g *Generator) fold(expr compiler.Expr) (runtime.Value, bool) {
	v, known, err := Fold(expr, g.scope)
	if err != nil {
		return runtime.Nil, false
	}
	return v, known
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (g *Generator) stmt(stmt compiler.Stmt) error {
	if l := compiler.StmtLine(stmt); l > 0 {
		g.line = l
	}

	switch s := stmt.(type) {
	case *compiler.ExpressionStmt:
		_, err := g.expr(s.Expression)
		return err

	case *compiler.PrintStmt:
		r, err := g.expr(s.Expression)
		if err != nil {
			return err
		}
		g.emit(Print(r), compiler.ExprLine(s.Expression))
		return nil

	case *compiler.VarStmt:
		return g.varStmt(s)

	case *compiler.BlockStmt:
		return g.block(s)

	case *compiler.IfStmt:
		line := compiler.ExprLine(s.Condition)
		if hasAssign(s.Condition) {
			return g.errorf(line, MsgUnsupported)
		}
		v, known, err := Fold(s.Condition, g.scope)
		if err != nil {
			return err
		}
		if !known {
			return g.errorf(line, MsgIfNotKnown)
		}
		if v.IsTruthy() {
			return g.stmt(s.ThenBranch)
		}
		if s.ElseBranch != nil {
			return g.stmt(s.ElseBranch)
		}
		return nil

	case *compiler.WhileStmt:
		return g.while(s)
	}
	return fmt.Errorf("bytecode: unknown statement %T", stmt)
}

func (g *Generator) varStmt(s *compiler.VarStmt) error {
	name := s.Name.Lexeme
	line := s.Name.Line

	var (
		r     Register
		value = runtime.Nil
		known = true
		err   error
	)
	if s.Initializer != nil {
		value, known = g.fold(s.Initializer)
		if r, err = g.expr(s.Initializer); err != nil {
			return err
		}
	} else {
		if r, err = g.alloc(line); err != nil {
			return err
		}
		g.emit(LoadUndefined(r), line)
	}

	b := Binding{Reg: r, Value: value, Known: known}

	// A block-local declaration that shadows an outer variable saves the
	// outer value so the block can put it back on exit.
	fresh := false
	if existing, ok := g.scope.vars[name]; ok {
		b.restore, b.shadows, b.from = existing.restore, existing.shadows, existing.from
	} else if g.scope != g.global {
		if _, ok := g.scope.parent.Lookup(name); ok {
			save, err := g.alloc(line)
			if err != nil {
				return err
			}
			g.emit(GetVariable(name, save), line)
			b.restore, b.shadows = save, true
			fresh = true
		}
	}

	g.emit(SetVariable(name, r), line)
	if fresh {
		b.from = g.prog.Len() - 1
	}
	g.scope.Define(name, b)
	return nil
}

func (g *Generator) block(s *compiler.BlockStmt) error {
	scope := NewScope(g.scope)
	g.scope = scope

	for _, inner := range s.Statements {
		if err := g.stmt(inner); err != nil {
			return err
		}
	}

	for _, name := range scope.Names() {
		if b := scope.vars[name]; b.shadows {
			g.emit(SetVariable(name, b.restore), g.line)
			g.exits = append(g.exits, scopeExit{
				name:  name,
				save:  b.restore,
				start: b.from,
				end:   g.prog.Len() - 1,
			})
		}
	}
	g.scope = scope.parent
	return nil
}

// while lowers a loop into
//
//	Label Ln
//	<body>
//	<lhs>, <rhs>
//	TestX lhs, rhs
//	JumpIfTrue Ln
//
// which runs the body at least once, so the condition must be known to be
// true on entry.
func (g *Generator) while(s *compiler.WhileStmt) error {
	line := compiler.ExprLine(s.Condition)

	if hasAssign(s.Condition) {
		return g.errorf(line, MsgUnsupported)
	}
	v, known, err := Fold(s.Condition, g.scope)
	if err != nil {
		return err
	}
	if !known {
		return g.errorf(line, MsgLoopNotKnown)
	}
	if v.IsFalsy() {
		return nil
	}

	cond, ok := unwrapGrouping(s.Condition).(*compiler.Binary)
	if !ok || !compiler.IsComparison(cond.Operator.Type) {
		return g.errorf(line, MsgLoopComparison)
	}

	// Anything the body assigns can differ between iterations.
	for _, name := range assignedNames(s.Body) {
		if b, ok := g.scope.Lookup(name); ok {
			b.Known = false
			b.Value = runtime.Nil
		}
	}

	label := g.newLabel()
	g.emit(Label(label), line)

	if err := g.stmt(s.Body); err != nil {
		return err
	}

	lhs, err := g.expr(cond.Left)
	if err != nil {
		return err
	}
	rhs, err := g.expr(cond.Right)
	if err != nil {
		return err
	}
	opLine := cond.Operator.Line
	g.emit(Test(testOpcode(compiler.OrderingOf(cond.Operator.Type)), lhs, rhs), opLine)
	g.emit(JumpIfTrue(label), opLine)
	return nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// expr lowers expr and returns the register holding its value.
func (g *Generator) expr(expr compiler.Expr) (Register, error) {
	switch e := expr.(type) {
	case *compiler.Literal:
		r, err := g.alloc(e.Line)
		if err != nil {
			return 0, err
		}
		v := e.Get()
		if v.IsString() {
			g.emit(NewString(r, v.Str()), e.Line)
		} else {
			g.emit(Load(r, v), e.Line)
		}
		return r, nil

	case *compiler.Grouping:
		return g.expr(e.Expression)

	case *compiler.Variable:
		name := e.Name.Lexeme
		if _, ok := g.scope.Lookup(name); !ok {
			return 0, g.errorf(e.Name.Line, runtime.MsgUndefinedVar, name)
		}
		r, err := g.alloc(e.Name.Line)
		if err != nil {
			return 0, err
		}
		g.emit(GetVariable(name, r), e.Name.Line)
		return r, nil

	case *compiler.Assign:
		name := e.Name.Lexeme
		b, ok := g.scope.Lookup(name)
		if !ok {
			return 0, g.errorf(e.Name.Line, runtime.MsgUndefinedVar, name)
		}
		value, known := g.fold(e.Value)
		r, err := g.expr(e.Value)
		if err != nil {
			return 0, err
		}
		g.emit(SetVariable(name, r), e.Name.Line)
		b.Reg, b.Value, b.Known = r, value, known
		return r, nil

	case *compiler.Unary:
		if e.Operator.Type == compiler.TokenMinus {
			return g.negate(e)
		}
		return g.folded(e, e.Operator.Line)

	case *compiler.Binary:
		switch e.Operator.Type {
		case compiler.TokenPlus, compiler.TokenMinus, compiler.TokenStar, compiler.TokenSlash:
			return g.arith(e)
		}
		return g.folded(e, e.Operator.Line)

	case *compiler.Logical:
		return g.folded(e, e.Operator.Line)
	}
	return 0, fmt.Errorf("bytecode: unknown expression %T", expr)
}

var arithOps = map[compiler.TokenType]Opcode{
	compiler.TokenPlus:  OpAdd,
	compiler.TokenMinus: OpSub,
	compiler.TokenStar:  OpMul,
	compiler.TokenSlash: OpDiv,
}

func (g *Generator) arith(e *compiler.Binary) (Register, error) {
	lhs, err := g.expr(e.Left)
	if err != nil {
		return 0, err
	}
	rhs, err := g.expr(e.Right)
	if err != nil {
		return 0, err
	}
	dst, err := g.alloc(e.Operator.Line)
	if err != nil {
		return 0, err
	}
	g.emit(Arith(arithOps[e.Operator.Type], dst, lhs, rhs), e.Operator.Line)
	return dst, nil
}

// negate lowers -x as 0 - x. A non-number operand therefore fails with
// the Sub message, "Operands must be numbers."
func (g *Generator) negate(e *compiler.Unary) (Register, error) {
	operand, err := g.expr(e.Right)
	if err != nil {
		return 0, err
	}
	line := e.Operator.Line
	zero, err := g.alloc(line)
	if err != nil {
		return 0, err
	}
	g.emit(Load(zero, runtime.FromFloat64(0)), line)
	dst, err := g.alloc(line)
	if err != nil {
		return 0, err
	}
	g.emit(Arith(OpSub, dst, zero, operand), line)
	return dst, nil
}

// folded lowers an expression the VM has no instruction for by evaluating
// it at compile time and loading the result.
func (g *Generator) folded(expr compiler.Expr, line int) (Register, error) {
	if hasAssign(expr) {
		return 0, g.errorf(line, MsgUnsupported)
	}
	v, known, err := Fold(expr, g.scope)
	if err != nil {
		return 0, err
	}
	if !known {
		return 0, g.errorf(line, MsgUnsupported)
	}
	r, err := g.alloc(line)
	if err != nil {
		return 0, err
	}
	if v.IsString() {
		g.emit(NewString(r, v.Str()), line)
	} else {
		g.emit(Load(r, v), line)
	}
	return r, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func unwrapGrouping(expr compiler.Expr) compiler.Expr {
	for {
		g, ok := expr.(*compiler.Grouping)
		if !ok {
			return expr
		}
		expr = g.Expression
	}
}

// hasAssign reports whether evaluating expr could assign a variable.
func hasAssign(expr compiler.Expr) bool {
	switch e := expr.(type) {
	case *compiler.Assign:
		return true
	case *compiler.Grouping:
		return hasAssign(e.Expression)
	case *compiler.Unary:
		return hasAssign(e.Right)
	case *compiler.Binary:
		return hasAssign(e.Left) || hasAssign(e.Right)
	case *compiler.Logical:
		return hasAssign(e.Left) || hasAssign(e.Right)
	}
	return false
}

// assignedNames lists every variable assigned anywhere inside stmt.
func assignedNames(stmt compiler.Stmt) []string {
	var names []string
	seen := make(map[string]bool)

	var visitExpr func(compiler.Expr)
	visitExpr = func(expr compiler.Expr) {
		switch e := expr.(type) {
		case *compiler.Assign:
			if !seen[e.Name.Lexeme] {
				seen[e.Name.Lexeme] = true
				names = append(names, e.Name.Lexeme)
			}
			visitExpr(e.Value)
		case *compiler.Grouping:
			visitExpr(e.Expression)
		case *compiler.Unary:
			visitExpr(e.Right)
		case *compiler.Binary:
			visitExpr(e.Left)
			visitExpr(e.Right)
		case *compiler.Logical:
			visitExpr(e.Left)
			visitExpr(e.Right)
		}
	}

	var visitStmt func(compiler.Stmt)
	visitStmt = func(stmt compiler.Stmt) {
		switch s := stmt.(type) {
		case *compiler.ExpressionStmt:
			visitExpr(s.Expression)
		case *compiler.PrintStmt:
			visitExpr(s.Expression)
		case *compiler.VarStmt:
			if s.Initializer != nil {
				visitExpr(s.Initializer)
			}
		case *compiler.BlockStmt:
			for _, inner := range s.Statements {
				visitStmt(inner)
			}
		case *compiler.IfStmt:
			visitExpr(s.Condition)
			visitStmt(s.ThenBranch)
			if s.ElseBranch != nil {
				visitStmt(s.ElseBranch)
			}
		case *compiler.WhileStmt:
			visitExpr(s.Condition)
			visitStmt(s.Body)
		}
	}

	visitStmt(stmt)
	return names
}
