// Package interpreter evaluates Lox syntax trees directly.
package interpreter

import (
	"fmt"
	"io"
	"os"

	"github.com/dibashthapa/jsbytecode/compiler"
	"github.com/dibashthapa/jsbytecode/pkg/runtime"
)

// Interpreter is a tree-walking evaluator. Global bindings persist across
// calls to Interpret, which is what a REPL session needs.
type Interpreter struct {
	globals     *Environment
	environment *Environment
	out         io.Writer
}

// New creates an interpreter that prints to out. A nil out prints to
// standard output.
func New(out io.Writer) *Interpreter {
	if out == nil {
		out = os.Stdout
	}
	globals := NewEnvironment(nil)
	return &Interpreter{
		globals:     globals,
		environment: globals,
		out:         out,
	}
}

// Globals returns the global scope.
func (in *Interpreter) Globals() *Environment {
	return in.globals
}

// Interpret executes statements in order. The first runtime error stops
// execution and is returned as a *runtime.RuntimeError; output printed
// before it stays printed.
func (in *Interpreter) Interpret(stmts []compiler.Stmt) error {
	for _, stmt := range stmts {
		if err := in.execute(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate evaluates a single expression in the current scope.
func (in *Interpreter) Evaluate(expr compiler.Expr) (runtime.Value, error) {
	return in.evaluate(expr)
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (in *Interpreter) execute(stmt compiler.Stmt) error {
	switch s := stmt.(type) {
	case *compiler.ExpressionStmt:
		_, err := in.evaluate(s.Expression)
		return err

	case *compiler.PrintStmt:
		v, err := in.evaluate(s.Expression)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(in.out, v.String()); err != nil {
			return fmt.Errorf("print: %w", err)
		}
		return nil

	case *compiler.VarStmt:
		value := runtime.Nil
		if s.Initializer != nil {
			v, err := in.evaluate(s.Initializer)
			if err != nil {
				return err
			}
			value = v
		}
		in.environment.Define(s.Name.Lexeme, value)
		return nil

	case *compiler.BlockStmt:
		return in.executeBlock(s.Statements, NewEnvironment(in.environment))

	case *compiler.IfStmt:
		cond, err := in.evaluate(s.Condition)
		if err != nil {
			return err
		}
		if cond.IsTruthy() {
			return in.execute(s.ThenBranch)
		}
		if s.ElseBranch != nil {
			return in.execute(s.ElseBranch)
		}
		return nil

	case *compiler.WhileStmt:
		for {
			cond, err := in.evaluate(s.Condition)
			if err != nil {
				return err
			}
			if cond.IsFalsy() {
				return nil
			}
			if err := in.execute(s.Body); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("interpreter: unknown statement %T", stmt)
}

// executeBlock runs stmts in env and restores the previous scope on every
// exit path.
func (in *Interpreter) executeBlock(stmts []compiler.Stmt, env *Environment) error {
	previous := in.environment
	in.environment = env
	defer func() { in.environment = previous }()

	for _, stmt := range stmts {
		if err := in.execute(stmt); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (in *Interpreter) evaluate(expr compiler.Expr) (runtime.Value, error) {
	switch e := expr.(type) {
	case *compiler.Literal:
		return e.Get(), nil

	case *compiler.Grouping:
		return in.evaluate(e.Expression)

	case *compiler.Variable:
		return in.environment.Get(e.Name)

	case *compiler.Assign:
		v, err := in.evaluate(e.Value)
		if err != nil {
			return runtime.Nil, err
		}
		if err := in.environment.Assign(e.Name, v); err != nil {
			return runtime.Nil, err
		}
		return v, nil

	case *compiler.Unary:
		right, err := in.evaluate(e.Right)
		if err != nil {
			return runtime.Nil, err
		}
		return compiler.ApplyUnary(e.Operator, right)

	case *compiler.Binary:
		left, err := in.evaluate(e.Left)
		if err != nil {
			return runtime.Nil, err
		}
		right, err := in.evaluate(e.Right)
		if err != nil {
			return runtime.Nil, err
		}
		return compiler.ApplyBinary(e.Operator, left, right)

	case *compiler.Logical:
		left, err := in.evaluate(e.Left)
		if err != nil {
			return runtime.Nil, err
		}
		if e.Operator.Type == compiler.TokenOr {
			if left.IsTruthy() {
				return left, nil
			}
		} else if left.IsFalsy() {
			return left, nil
		}
		return in.evaluate(e.Right)
	}
	return runtime.Nil, fmt.Errorf("interpreter: unknown expression %T", expr)
}
