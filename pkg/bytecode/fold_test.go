package bytecode

import (
	"errors"
	"testing"

	"github.com/dibashthapa/jsbytecode/compiler"
	"github.com/dibashthapa/jsbytecode/pkg/runtime"
)

func parseExpr(t *testing.T, src string) compiler.Expr {
	t.Helper()
	expr, err := compiler.NewParser(compiler.Tokenize(src)).ParseExpression()
	if err != nil {
		t.Fatalf("ParseExpression(%q): %v", src, err)
	}
	return expr
}

func foldScope() *Scope {
	s := NewScope(nil)
	s.Define("x", Binding{Value: runtime.FromFloat64(2), Known: true})
	s.Define("s", Binding{Value: runtime.FromString("hi"), Known: true})
	s.Define("y", Binding{})
	return s
}

func TestFoldKnown(t *testing.T) {
	tests := []struct {
		src  string
		want runtime.Value
	}{
		{"1 + 2 * 3", runtime.FromFloat64(7)},
		{"(1 + 2) * 3", runtime.FromFloat64(9)},
		{"x + 1", runtime.FromFloat64(3)},
		{`s + "!"`, runtime.FromString("hi!")},
		{"-x", runtime.FromFloat64(-2)},
		{"!nil", runtime.True},
		{"x == 2", runtime.True},
		{"x != 2", runtime.False},
		{"x < 3", runtime.True},
		{"1 or y", runtime.FromFloat64(1)},
		{"false and y", runtime.False},
		{"nil or x", runtime.FromFloat64(2)},
		{"x = 5", runtime.FromFloat64(5)},
	}

	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			got, known, err := Fold(parseExpr(t, tc.src), foldScope())
			if err != nil {
				t.Fatalf("Fold: %v", err)
			}
			if !known {
				t.Fatal("known = false, want true")
			}
			if !got.Equal(tc.want) {
				t.Errorf("Fold = %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestFoldUnknown(t *testing.T) {
	for _, src := range []string{"y", "y + 1", "-y", "!y", "y == 1", "nil or y", "true and y", "x < y"} {
		t.Run(src, func(t *testing.T) {
			_, known, err := Fold(parseExpr(t, src), foldScope())
			if err != nil {
				t.Fatalf("Fold: %v", err)
			}
			if known {
				t.Error("known = true, want false")
			}
		})
	}
}

func TestFoldErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"z", "Undefined variable 'z'."},
		{"z = 1", "Undefined variable 'z'."},
		{`"a" - 1`, runtime.MsgOperandsNumbers},
		{`s + 1`, runtime.MsgOperandsAdd},
		{`-s`, runtime.MsgOperandNumber},
		{`nil < 1`, runtime.MsgOperandsNumbers},
	}

	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			_, _, err := Fold(parseExpr(t, tc.src), foldScope())
			var rerr *runtime.RuntimeError
			if !errors.As(err, &rerr) {
				t.Fatalf("err = %v, want *runtime.RuntimeError", err)
			}
			if rerr.Message != tc.want {
				t.Errorf("Message = %q, want %q", rerr.Message, tc.want)
			}
			if rerr.Line != 1 {
				t.Errorf("Line = %d, want 1", rerr.Line)
			}
		})
	}
}

func TestFoldDoesNotMutateScope(t *testing.T) {
	scope := foldScope()
	if _, _, err := Fold(parseExpr(t, "x = 9"), scope); err != nil {
		t.Fatal(err)
	}
	b, _ := scope.Lookup("x")
	if !b.Value.Equal(runtime.FromFloat64(2)) {
		t.Errorf("x = %#v after fold, want 2", b.Value)
	}
}

func TestScopeLookup(t *testing.T) {
	outer := NewScope(nil)
	outer.Define("a", Binding{Reg: 1})
	inner := NewScope(outer)
	inner.Define("b", Binding{Reg: 2})
	inner.Define("a", Binding{Reg: 3})

	if b, ok := inner.Lookup("a"); !ok || b.Reg != 3 {
		t.Errorf("inner a = %v, %v; want r3", b, ok)
	}
	if b, ok := outer.Lookup("a"); !ok || b.Reg != 1 {
		t.Errorf("outer a = %v, %v; want r1", b, ok)
	}
	if _, ok := outer.Lookup("b"); ok {
		t.Error("outer scope sees inner binding")
	}
	if inner.Parent() != outer {
		t.Error("Parent() is not the enclosing scope")
	}
	names := inner.Names()
	if len(names) != 2 || names[0] != "b" || names[1] != "a" {
		t.Errorf("Names() = %v, want [b a]", names)
	}
}
