package bytecode

import (
	"github.com/dibashthapa/jsbytecode/compiler"
	"github.com/dibashthapa/jsbytecode/pkg/runtime"
)

// ---------------------------------------------------------------------------
// Constant folder: a pure partial evaluator
// ---------------------------------------------------------------------------

// Binding is the compile-time knowledge about one variable: the register
// its current value was stored from and, when statically known, the value.
type Binding struct {
	Reg   Register
	Value runtime.Value
	Known bool

	// restore is the register holding the shadowed outer value, valid when
	// shadows is set. from is the index of the declaring SetVariable.
	restore Register
	shadows bool
	from    int
}

// Scope is a compile-time lexical scope mirroring the interpreter's
// Environment.
type Scope struct {
	vars   map[string]*Binding
	order  []string
	parent *Scope
}

// NewScope creates a scope nested inside parent (nil for the global scope).
func NewScope(parent *Scope) *Scope {
	return &Scope{vars: make(map[string]*Binding), parent: parent}
}

// Parent returns the enclosing scope.
func (s *Scope) Parent() *Scope { return s.parent }

// Lookup finds the nearest binding of name.
func (s *Scope) Lookup(name string) (*Binding, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if b, ok := sc.vars[name]; ok {
			return b, true
		}
	}
	return nil, false
}

// Define binds name in this scope and returns the new binding.
func (s *Scope) Define(name string, b Binding) *Binding {
	if _, ok := s.vars[name]; !ok {
		s.order = append(s.order, name)
	}
	nb := b
	s.vars[name] = &nb
	return &nb
}

// Names returns the names defined directly in this scope in definition
// order.
func (s *Scope) Names() []string {
	return s.order
}

// Folder evaluates expressions whose operands are statically known. It
// never emits code and never mutates its scope.
type Folder struct {
	scope *Scope
}

// NewFolder creates a folder that resolves variables in scope.
func NewFolder(scope *Scope) *Folder {
	return &Folder{scope: scope}
}

// Fold evaluates expr. known is false when any operand that decides the
// result is not statically known. A type error between known operands is
// returned as a *runtime.RuntimeError with the same message the
// interpreter would raise.
func (f *Folder) Fold(expr compiler.Expr) (v runtime.Value, known bool, err error) {
	switch e := expr.(type) {
	case *compiler.Literal:
		return e.Get(), true, nil

	case *compiler.Grouping:
		return f.Fold(e.Expression)

	case *compiler.Variable:
		b, ok := f.scope.Lookup(e.Name.Lexeme)
		if !ok {
			return runtime.Nil, false, runtime.NewRuntimeError(e.Name.Line, runtime.MsgUndefinedVar, e.Name.Lexeme)
		}
		return b.Value, b.Known, nil

	case *compiler.Assign:
		if _, ok := f.scope.Lookup(e.Name.Lexeme); !ok {
			return runtime.Nil, false, runtime.NewRuntimeError(e.Name.Line, runtime.MsgUndefinedVar, e.Name.Lexeme)
		}
		return f.Fold(e.Value)

	case *compiler.Unary:
		right, known, err := f.Fold(e.Right)
		if err != nil || !known {
			return runtime.Nil, false, err
		}
		v, err := compiler.ApplyUnary(e.Operator, right)
		return v, err == nil, err

	case *compiler.Binary:
		left, lk, err := f.Fold(e.Left)
		if err != nil {
			return runtime.Nil, false, err
		}
		right, rk, err := f.Fold(e.Right)
		if err != nil {
			return runtime.Nil, false, err
		}
		if !lk || !rk {
			return runtime.Nil, false, nil
		}
		v, err := compiler.ApplyBinary(e.Operator, left, right)
		return v, err == nil, err

	case *compiler.Logical:
		left, known, err := f.Fold(e.Left)
		if err != nil || !known {
			return runtime.Nil, false, err
		}
		if e.Operator.Type == compiler.TokenOr {
			if left.IsTruthy() {
				return left, true, nil
			}
		} else if left.IsFalsy() {
			return left, true, nil
		}
		return f.Fold(e.Right)
	}
	return runtime.Nil, false, nil
}

// Fold is a convenience wrapper around NewFolder(scope).Fold(expr).
func Fold(expr compiler.Expr, scope *Scope) (runtime.Value, bool, error) {
	return NewFolder(scope).Fold(expr)
}
