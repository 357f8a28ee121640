package interpreter

import (
	"sort"

	"github.com/dibashthapa/jsbytecode/compiler"
	"github.com/dibashthapa/jsbytecode/pkg/runtime"
)

// Environment is one lexical scope. Lookups and assignments walk outward
// through Enclosing; definitions always target the receiver.
type Environment struct {
	values    map[string]runtime.Value
	enclosing *Environment
}

// NewEnvironment creates a scope nested inside enclosing. A nil enclosing
// makes a global scope.
func NewEnvironment(enclosing *Environment) *Environment {
	return &Environment{
		values:    make(map[string]runtime.Value),
		enclosing: enclosing,
	}
}

// Enclosing returns the parent scope, or nil for the global scope.
func (e *Environment) Enclosing() *Environment {
	return e.enclosing
}

// Define binds name in this scope, replacing any previous binding here.
func (e *Environment) Define(name string, value runtime.Value) {
	e.values[name] = value
}

// Get returns the value bound to name in the nearest scope that has it.
func (e *Environment) Get(name compiler.Token) (runtime.Value, error) {
	for env := e; env != nil; env = env.enclosing {
		if v, ok := env.values[name.Lexeme]; ok {
			return v, nil
		}
	}
	return runtime.Nil, runtime.NewRuntimeError(name.Line, runtime.MsgUndefinedVar, name.Lexeme)
}

// Assign updates the nearest existing binding of name. It never creates a
// binding.
func (e *Environment) Assign(name compiler.Token, value runtime.Value) error {
	for env := e; env != nil; env = env.enclosing {
		if _, ok := env.values[name.Lexeme]; ok {
			env.values[name.Lexeme] = value
			return nil
		}
	}
	return runtime.NewRuntimeError(name.Line, runtime.MsgUndefinedVar, name.Lexeme)
}

// Names returns the names bound directly in this scope, sorted.
func (e *Environment) Names() []string {
	names := make([]string, 0, len(e.values))
	for name := range e.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
