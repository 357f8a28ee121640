package bytecode

import (
	"fmt"
	"io"
	"os"

	"github.com/dibashthapa/jsbytecode/pkg/runtime"
	"github.com/tliron/commonlog"
)

var vmLog = commonlog.GetLogger("lox.vm")

// VM executes register machine programs.
//
// Registers, variables and the output writer persist across calls to Run;
// labels and the condition flag are per program.
type VM struct {
	// Register bank. An unset register reads as nil.
	registers [NumRegisters]runtime.Value

	// Named variable store
	variables map[string]runtime.Value

	// Per-run state
	prog   *Program
	pc     int
	flag   bool           // condition flag set by the TestX instructions
	labels map[string]int // label name -> instruction index, recorded on first execution

	out   io.Writer
	trace bool
	steps int
}

// NewVM creates a VM that prints to out. A nil out prints to standard
// output.
func NewVM(out io.Writer) *VM {
	if out == nil {
		out = os.Stdout
	}
	return &VM{
		variables: make(map[string]runtime.Value),
		out:       out,
	}
}

// SetTrace enables logging of every executed instruction at debug level.
func (vm *VM) SetTrace(on bool) {
	vm.trace = on
}

// Register returns the current content of register r.
func (vm *VM) Register(r Register) runtime.Value {
	return vm.registers[r]
}

// Variable returns the value of a named variable and whether it is set.
func (vm *VM) Variable(name string) (runtime.Value, bool) {
	v, ok := vm.variables[name]
	return v, ok
}

// Steps returns the number of instructions executed by the last Run.
func (vm *VM) Steps() int {
	return vm.steps
}

// Run executes prog from its first instruction until Return or until the
// program counter moves past the end. A failing instruction stops the run
// with a *runtime.RuntimeError carrying the instruction's source line.
func (vm *VM) Run(prog *Program) error {
	vm.prog = prog
	vm.pc = 0
	vm.flag = false
	vm.labels = make(map[string]int)
	vm.steps = 0

	for vm.pc < len(prog.Instructions) {
		in := prog.Instructions[vm.pc]
		if vm.trace {
			vmLog.Debugf("%04d %-40s flag=%t", vm.pc, in, vm.flag)
		}
		vm.steps++

		halt, err := vm.step(in)
		if err != nil {
			return err
		}
		if halt {
			return nil
		}
	}
	return nil
}

// step executes one instruction and advances the program counter.
func (vm *VM) step(in Instruction) (halt bool, err error) {
	next := vm.pc + 1

	switch in.Op {
	case OpLoad:
		vm.registers[in.A] = in.Value
	case OpLoadUndefined:
		vm.registers[in.A] = runtime.Nil
	case OpNewString:
		vm.registers[in.A] = runtime.FromString(in.Name)

	case OpGetVariable:
		if v, ok := vm.variables[in.Name]; ok {
			vm.registers[in.A] = v
		}
	case OpSetVariable:
		vm.variables[in.Name] = vm.registers[in.A]

	case OpAdd, OpSub, OpMul, OpDiv:
		v, err := vm.arith(in)
		if err != nil {
			return false, err
		}
		vm.registers[in.A] = v

	case OpTestLessThan, OpTestLessThanOrEqual, OpTestGreaterThan, OpTestGreaterThanOrEqual:
		ok, err := runtime.Compare(testOrdering(in.Op), vm.registers[in.B], vm.registers[in.C])
		if err != nil {
			return false, vm.errorf(runtime.MsgOperandsNumbers)
		}
		vm.flag = ok

	case OpLabel:
		if _, seen := vm.labels[in.Name]; !seen {
			vm.labels[in.Name] = vm.pc
		}
	case OpJumpIfTrue:
		if vm.flag {
			target, ok := vm.labels[in.Name]
			if !ok {
				return false, vm.errorf("Jump to unresolved label '%s'.", in.Name)
			}
			next = target
		}

	case OpPrint:
		if _, err := fmt.Fprintln(vm.out, vm.registers[in.A].String()); err != nil {
			return false, fmt.Errorf("print: %w", err)
		}

	case OpReturn:
		return true, nil

	default:
		return false, vm.errorf("Unknown opcode 0x%02X.", byte(in.Op))
	}

	vm.pc = next
	return false, nil
}

func (vm *VM) arith(in Instruction) (runtime.Value, error) {
	lhs, rhs := vm.registers[in.B], vm.registers[in.C]
	var (
		v   runtime.Value
		err error
	)
	switch in.Op {
	case OpAdd:
		if v, err = runtime.Add(lhs, rhs); err != nil {
			return runtime.Nil, vm.errorf(runtime.MsgOperandsAdd)
		}
		return v, nil
	case OpSub:
		v, err = runtime.Sub(lhs, rhs)
	case OpMul:
		v, err = runtime.Mul(lhs, rhs)
	default:
		v, err = runtime.Div(lhs, rhs)
	}
	if err != nil {
		return runtime.Nil, vm.errorf(runtime.MsgOperandsNumbers)
	}
	return v, nil
}

// errorf builds a RuntimeError on the current instruction's source line.
func (vm *VM) errorf(format string, args ...any) error {
	return runtime.NewRuntimeError(vm.prog.LineAt(vm.pc), format, args...)
}
