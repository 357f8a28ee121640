// Package driver runs Lox source text end to end on either backend: the
// tree-walking interpreter or the register VM.
package driver

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dibashthapa/jsbytecode/compiler"
	"github.com/dibashthapa/jsbytecode/interpreter"
	"github.com/dibashthapa/jsbytecode/pkg/bytecode"
	"github.com/dibashthapa/jsbytecode/pkg/cache"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("lox.driver")

// Backend selects the execution path.
type Backend string

const (
	BackendInterpreter Backend = "interpreter"
	BackendVM          Backend = "vm"
)

// ParseBackend validates a backend name. The empty string selects the
// interpreter.
func ParseBackend(name string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(name))) {
	case "", BackendInterpreter:
		return BackendInterpreter, nil
	case BackendVM:
		return BackendVM, nil
	}
	return "", fmt.Errorf("unknown backend %q (want %q or %q)", name, BackendInterpreter, BackendVM)
}

// Options configures a run.
type Options struct {
	Backend Backend
	Stdout  io.Writer    // nil means os.Stdout
	Trace   bool         // log every VM instruction
	Cache   *cache.Cache // optional compile cache for the VM backend
}

func (o Options) stdout() io.Writer {
	if o.Stdout == nil {
		return os.Stdout
	}
	return o.Stdout
}

// Parse tokenizes and parses src. The error is a *compiler.ParseError.
func Parse(src string) ([]compiler.Stmt, error) {
	return compiler.ParseSource(src)
}

// Compile parses src and lowers it to a program. The error is a
// *compiler.ParseError or a *runtime.RuntimeError.
func Compile(src string) (*bytecode.Program, error) {
	stmts, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return bytecode.Compile(stmts)
}

// Run executes src on the selected backend. Parse errors are returned
// before anything runs; the first runtime error stops execution.
func Run(src string, opts Options) error {
	stmts, err := Parse(src)
	if err != nil {
		return err
	}

	switch opts.Backend {
	case "", BackendInterpreter:
		log.Debugf("running %d statements on the interpreter", len(stmts))
		return interpreter.New(opts.stdout()).Interpret(stmts)

	case BackendVM:
		compile := func() (*bytecode.Program, error) { return bytecode.Compile(stmts) }
		var prog *bytecode.Program
		if opts.Cache != nil {
			prog, err = opts.Cache.GetOrCompile(src, compile)
		} else {
			prog, err = compile()
		}
		if err != nil {
			return err
		}
		return RunProgram(prog, opts)
	}
	return fmt.Errorf("unknown backend %q", opts.Backend)
}

// RunProgram executes an already compiled program on a fresh VM.
func RunProgram(prog *bytecode.Program, opts Options) error {
	log.Debugf("running %d instructions on the vm", prog.Len())
	vm := bytecode.NewVM(opts.stdout())
	vm.SetTrace(opts.Trace)
	err := vm.Run(prog)
	log.Debugf("vm executed %d steps", vm.Steps())
	return err
}

// ---------------------------------------------------------------------------
// Sessions (REPL)
// ---------------------------------------------------------------------------

// Session runs successive snippets against shared state, so a variable
// declared by one call is visible to the next.
type Session struct {
	backend Backend
	interp  *interpreter.Interpreter
	gen     *bytecode.Generator
	vm      *bytecode.VM
}

// NewSession creates a session for opts.Backend. The cache is not used:
// a snippet's program depends on what earlier snippets declared.
func NewSession(opts Options) (*Session, error) {
	s := &Session{backend: opts.Backend}
	switch opts.Backend {
	case "", BackendInterpreter:
		s.backend = BackendInterpreter
		s.interp = interpreter.New(opts.stdout())
	case BackendVM:
		s.gen = bytecode.NewGenerator()
		s.vm = bytecode.NewVM(opts.stdout())
		s.vm.SetTrace(opts.Trace)
	default:
		return nil, fmt.Errorf("unknown backend %q", opts.Backend)
	}
	return s, nil
}

// Backend returns the session's backend.
func (s *Session) Backend() Backend {
	return s.backend
}

// Exec parses and runs one snippet.
func (s *Session) Exec(src string) error {
	stmts, err := Parse(src)
	if err != nil {
		return err
	}
	if s.interp != nil {
		return s.interp.Interpret(stmts)
	}

	// One program per statement, so the statements before a failing one
	// have run, as they would on the interpreter.
	for _, stmt := range stmts {
		one := []compiler.Stmt{stmt}
		cp := s.gen.Checkpoint()
		prog, err := s.gen.Compile(one)
		if err != nil {
			return err
		}
		if err := s.vm.Run(prog); err != nil {
			s.gen.Recover(cp, one, s.vm)
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Dumps
// ---------------------------------------------------------------------------

// DumpKind selects what Dump renders.
type DumpKind string

const (
	DumpTokens   DumpKind = "tokens"
	DumpAST      DumpKind = "ast"
	DumpBytecode DumpKind = "bytecode"
)

// Dump renders the tokens, the syntax tree or the disassembled program for
// src.
func Dump(src string, kind DumpKind) (string, error) {
	switch kind {
	case DumpTokens:
		lx := compiler.NewLexer(src)
		var sb strings.Builder
		for _, tok := range lx.ScanTokens() {
			fmt.Fprintf(&sb, "%4d %s\n", tok.Line, tok)
		}
		if errs := lx.Errors(); len(errs) > 0 {
			return sb.String(), errs[0]
		}
		return sb.String(), nil

	case DumpAST:
		stmts, err := Parse(src)
		if err != nil {
			return "", err
		}
		return compiler.PrintProgram(stmts), nil

	case DumpBytecode:
		prog, err := Compile(src)
		if err != nil {
			return "", err
		}
		return prog.Disassemble(), nil
	}
	return "", fmt.Errorf("unknown dump kind %q (want tokens, ast or bytecode)", kind)
}
