package runtime

import "fmt"

// LineError is implemented by errors that can be attributed to a single
// source line. Both parse and runtime errors satisfy it, which lets
// reporters render them uniformly.
type LineError interface {
	error
	SourceLine() int
}

// RuntimeError is raised while executing a program: an operand of the
// wrong type, an undefined variable, or an operator that cannot be
// applied. It aborts the current run.
type RuntimeError struct {
	Line    int
	Message string
}

// NewRuntimeError builds a RuntimeError with a formatted message.
func NewRuntimeError(line int, format string, args ...any) *RuntimeError {
	return &RuntimeError{Line: line, Message: fmt.Sprintf(format, args...)}
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("[line %d] Error: %s", e.Line, e.Message)
}

// SourceLine returns the line the error was raised on.
func (e *RuntimeError) SourceLine() int { return e.Line }

// Messages shared by the interpreter, the constant folder and the VM so
// that both execution paths report identical failures.
const (
	MsgOperandNumber   = "Operand must be a number."
	MsgOperandsNumbers = "Operands must be numbers."
	MsgOperandsAdd     = "Operands must be two numbers or two strings."
	MsgUnknownOperator = "Unknown operator '%s'."
	MsgUndefinedVar    = "Undefined variable '%s'."
)
