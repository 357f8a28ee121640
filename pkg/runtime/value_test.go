package runtime

import (
	"errors"
	"math"
	"testing"
)

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Nil, "nil"},
		{True, "true"},
		{False, "false"},
		{FromFloat64(7), "7"},
		{FromFloat64(2.5), "2.5"},
		{FromFloat64(-3), "-3"},
		{FromFloat64(0.1 + 0.2), "0.30000000000000004"},
		{FromFloat64(1e21), "1000000000000000000000"},
		{FromFloat64(math.NaN()), "NaN"},
		{FromFloat64(math.Inf(1)), "inf"},
		{FromFloat64(math.Inf(-1)), "-inf"},
		{FromString("hello"), "hello"},
		{FromString(""), ""},
	}

	for _, tc := range tests {
		if got := tc.v.String(); got != tc.want {
			t.Errorf("%#v.String() = %q, want %q", tc.v, got, tc.want)
		}
	}
}

func TestValueTruthiness(t *testing.T) {
	tests := []struct {
		v    Value
		want bool
	}{
		{Nil, false},
		{False, false},
		{True, true},
		{FromFloat64(0), true},
		{FromString(""), true},
	}

	for _, tc := range tests {
		if got := tc.v.IsTruthy(); got != tc.want {
			t.Errorf("%#v.IsTruthy() = %v, want %v", tc.v, got, tc.want)
		}
		if tc.v.IsFalsy() == tc.want {
			t.Errorf("%#v.IsFalsy() disagrees with IsTruthy", tc.v)
		}
	}
}

func TestValueEqual(t *testing.T) {
	tests := []struct {
		a, b Value
		want bool
	}{
		{Nil, Nil, true},
		{True, True, true},
		{True, False, false},
		{FromFloat64(1), FromFloat64(1), true},
		{FromFloat64(1), FromString("1"), false},
		{FromString("a"), FromString("a"), true},
		{Nil, False, false},
		{FromFloat64(math.NaN()), FromFloat64(math.NaN()), false},
	}

	for _, tc := range tests {
		if got := tc.a.Equal(tc.b); got != tc.want {
			t.Errorf("%#v == %#v: got %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestArithmetic(t *testing.T) {
	n := FromFloat64
	tests := []struct {
		name string
		fn   func(a, b Value) (Value, error)
		a, b Value
		want Value
	}{
		{"add", Add, n(1), n(2), n(3)},
		{"concat", Add, FromString("a"), FromString("b"), FromString("ab")},
		{"sub", Sub, n(100), n(50), n(50)},
		{"mul", Mul, n(10), n(20), n(200)},
		{"div", Div, n(50), n(10), n(5)},
	}

	for _, tc := range tests {
		got, err := tc.fn(tc.a, tc.b)
		if err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("%s(%#v, %#v) = %#v, want %#v", tc.name, tc.a, tc.b, got, tc.want)
		}
	}
}

func TestArithmeticTypeErrors(t *testing.T) {
	n := FromFloat64
	cases := []struct {
		name string
		fn   func(a, b Value) (Value, error)
		a, b Value
	}{
		{"string plus number", Add, FromString("a"), n(1)},
		{"nil plus nil", Add, Nil, Nil},
		{"string minus string", Sub, FromString("a"), FromString("b")},
		{"bool times number", Mul, True, n(2)},
		{"number over string", Div, n(1), FromString("x")},
	}

	for _, tc := range cases {
		if _, err := tc.fn(tc.a, tc.b); !errors.Is(err, ErrArithmetic) {
			t.Errorf("%s: err = %v, want ErrArithmetic", tc.name, err)
		}
	}
}

func TestDivideByZeroIsNotAnError(t *testing.T) {
	got, err := Div(FromFloat64(1), FromFloat64(0))
	if err != nil {
		t.Fatalf("Div: %v", err)
	}
	if !math.IsInf(got.Float64(), 1) {
		t.Errorf("1/0 = %v, want +inf", got)
	}
}

func TestCompare(t *testing.T) {
	n := FromFloat64
	tests := []struct {
		o    Ordering
		a, b Value
		want bool
	}{
		{Less, n(1), n(2), true},
		{Less, n(2), n(2), false},
		{LessEqual, n(2), n(2), true},
		{Greater, n(3), n(2), true},
		{GreaterEqual, n(1), n(2), false},
		{Less, n(math.NaN()), n(1), false},
	}

	for _, tc := range tests {
		got, err := Compare(tc.o, tc.a, tc.b)
		if err != nil {
			t.Errorf("Compare(%d, %v, %v): %v", tc.o, tc.a, tc.b, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Compare(%d, %v, %v) = %v, want %v", tc.o, tc.a, tc.b, got, tc.want)
		}
	}

	if _, err := Compare(Less, FromString("a"), FromString("b")); !errors.Is(err, ErrNotComparable) {
		t.Errorf("comparing strings: err = %v, want ErrNotComparable", err)
	}
}

func TestRuntimeErrorRendering(t *testing.T) {
	err := NewRuntimeError(3, MsgUndefinedVar, "y")
	if got, want := err.Error(), "[line 3] Error: Undefined variable 'y'."; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	var le LineError = err
	if le.SourceLine() != 3 {
		t.Errorf("SourceLine() = %d, want 3", le.SourceLine())
	}
}
