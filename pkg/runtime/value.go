package runtime

import (
	"errors"
	"math"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a Lox value: nil, a boolean, a 64-bit float or a string.
//
// The zero Value is nil. Values are immutable and compared structurally,
// so they can be copied freely between the interpreter, the constant
// folder and the register bank of the VM.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
}

// Nil is the nil value. A variable declared without an initializer is
// bound to it.
var Nil = Value{}

// True and False are the two boolean values.
var (
	True  = Value{kind: KindBool, b: true}
	False = Value{kind: KindBool, b: false}
)

// ErrArithmetic is returned when an arithmetic operator is applied to
// operands it is not defined for.
var ErrArithmetic = errors.New("unable to evaluate arithmetic expression")

// ErrNotComparable is returned when an ordering is requested between
// values that are not both numbers.
var ErrNotComparable = errors.New("values are not comparable")

// FromBool returns the boolean value for b.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// FromFloat64 returns a number value.
func FromFloat64(n float64) Value {
	return Value{kind: KindNumber, n: n}
}

// FromString returns a string value.
func FromString(s string) Value {
	return Value{kind: KindString, s: s}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNil() bool    { return v.kind == KindNil }
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsString() bool { return v.kind == KindString }

// Bool returns the boolean payload. It is false for non-boolean values.
func (v Value) Bool() bool { return v.kind == KindBool && v.b }

// Float64 returns the number payload, or 0 for non-numbers.
func (v Value) Float64() float64 {
	if v.kind != KindNumber {
		return 0
	}
	return v.n
}

// Str returns the string payload, or "" for non-strings.
func (v Value) Str() string {
	if v.kind != KindString {
		return ""
	}
	return v.s
}

// IsTruthy reports whether v counts as true in a condition.
// nil and false are falsy, every other value is truthy.
func (v Value) IsTruthy() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBool:
		return v.b
	default:
		return true
	}
}

// IsFalsy is the negation of IsTruthy.
func (v Value) IsFalsy() bool { return !v.IsTruthy() }

// Equal reports structural equality. There is no coercion between kinds,
// so 1 == "1" is false and nil == nil is true.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindString:
		return v.s == o.s
	}
	return false
}

// String renders v the way print does.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		return formatNumber(v.n)
	case KindString:
		return v.s
	}
	return "nil"
}

// GoString quotes strings so that %#v and AST dumps can tell "1" from 1.
func (v Value) GoString() string {
	if v.kind == KindString {
		return strconv.Quote(v.s)
	}
	return v.String()
}

func formatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "inf"
	case math.IsInf(n, -1):
		return "-inf"
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// ---------------------------------------------------------------------------
// Arithmetic
// ---------------------------------------------------------------------------

// Add returns a+b for two numbers, or the concatenation of two strings.
func Add(a, b Value) (Value, error) {
	switch {
	case a.kind == KindNumber && b.kind == KindNumber:
		return FromFloat64(a.n + b.n), nil
	case a.kind == KindString && b.kind == KindString:
		return FromString(a.s + b.s), nil
	}
	return Nil, ErrArithmetic
}

// Sub returns a-b.
func Sub(a, b Value) (Value, error) {
	if a.kind != KindNumber || b.kind != KindNumber {
		return Nil, ErrArithmetic
	}
	return FromFloat64(a.n - b.n), nil
}

// Mul returns a*b.
func Mul(a, b Value) (Value, error) {
	if a.kind != KindNumber || b.kind != KindNumber {
		return Nil, ErrArithmetic
	}
	return FromFloat64(a.n * b.n), nil
}

// Div returns a/b following IEEE 754, so division by zero yields an
// infinity or NaN rather than an error.
func Div(a, b Value) (Value, error) {
	if a.kind != KindNumber || b.kind != KindNumber {
		return Nil, ErrArithmetic
	}
	return FromFloat64(a.n / b.n), nil
}

// Ordering is the relation tested by a comparison operator.
type Ordering uint8

const (
	Less Ordering = iota
	LessEqual
	Greater
	GreaterEqual
)

// Compare applies the ordering o to two numbers. Any NaN operand makes
// every ordering false, matching IEEE 754.
func Compare(o Ordering, a, b Value) (bool, error) {
	if a.kind != KindNumber || b.kind != KindNumber {
		return false, ErrNotComparable
	}
	switch o {
	case Less:
		return a.n < b.n, nil
	case LessEqual:
		return a.n <= b.n, nil
	case Greater:
		return a.n > b.n, nil
	case GreaterEqual:
		return a.n >= b.n, nil
	}
	return false, ErrNotComparable
}
