package compiler

import "github.com/dibashthapa/jsbytecode/pkg/runtime"

// ---------------------------------------------------------------------------
// Operator semantics shared by every evaluator
// ---------------------------------------------------------------------------

// ApplyUnary applies a prefix operator to an evaluated operand. Errors are
// *runtime.RuntimeError values on the operator's line.
func ApplyUnary(op Token, right runtime.Value) (runtime.Value, error) {
	switch op.Type {
	case TokenBang:
		return runtime.FromBool(right.IsFalsy()), nil
	case TokenMinus:
		if !right.IsNumber() {
			return runtime.Nil, runtime.NewRuntimeError(op.Line, runtime.MsgOperandNumber)
		}
		return runtime.FromFloat64(-right.Float64()), nil
	}
	return runtime.Nil, runtime.NewRuntimeError(op.Line, runtime.MsgUnknownOperator, op.Lexeme)
}

// ApplyBinary applies an arithmetic, comparison or equality operator to
// two evaluated operands.
func ApplyBinary(op Token, left, right runtime.Value) (runtime.Value, error) {
	switch op.Type {
	case TokenEqualEqual:
		return runtime.FromBool(left.Equal(right)), nil
	case TokenBangEqual:
		return runtime.FromBool(!left.Equal(right)), nil

	case TokenPlus:
		v, err := runtime.Add(left, right)
		if err != nil {
			return runtime.Nil, runtime.NewRuntimeError(op.Line, runtime.MsgOperandsAdd)
		}
		return v, nil
	case TokenMinus, TokenStar, TokenSlash:
		var (
			v   runtime.Value
			err error
		)
		switch op.Type {
		case TokenMinus:
			v, err = runtime.Sub(left, right)
		case TokenStar:
			v, err = runtime.Mul(left, right)
		default:
			v, err = runtime.Div(left, right)
		}
		if err != nil {
			return runtime.Nil, runtime.NewRuntimeError(op.Line, runtime.MsgOperandsNumbers)
		}
		return v, nil

	case TokenGreater, TokenGreaterEqual, TokenLess, TokenLessEqual:
		ok, err := runtime.Compare(OrderingOf(op.Type), left, right)
		if err != nil {
			return runtime.Nil, runtime.NewRuntimeError(op.Line, runtime.MsgOperandsNumbers)
		}
		return runtime.FromBool(ok), nil
	}
	return runtime.Nil, runtime.NewRuntimeError(op.Line, runtime.MsgUnknownOperator, op.Lexeme)
}

// IsComparison reports whether t is one of < <= > >=.
func IsComparison(t TokenType) bool {
	switch t {
	case TokenGreater, TokenGreaterEqual, TokenLess, TokenLessEqual:
		return true
	}
	return false
}

// OrderingOf maps a comparison token to its runtime ordering. It must only
// be called with a comparison token.
func OrderingOf(t TokenType) runtime.Ordering {
	switch t {
	case TokenLess:
		return runtime.Less
	case TokenLessEqual:
		return runtime.LessEqual
	case TokenGreater:
		return runtime.Greater
	default:
		return runtime.GreaterEqual
	}
}
