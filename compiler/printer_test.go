package compiler

import (
	"testing"

	"github.com/dibashthapa/jsbytecode/pkg/runtime"
)

func TestPrintHandBuiltTree(t *testing.T) {
	num := func(n float64) *Literal {
		v := runtime.FromFloat64(n)
		return &Literal{Value: &v}
	}
	minus := Token{Type: TokenMinus, Lexeme: "-", Line: 1}
	star := Token{Type: TokenStar, Lexeme: "*", Line: 1}

	expr := &Binary{
		Left:     &Unary{Operator: minus, Right: num(123)},
		Operator: star,
		Right:    &Grouping{Expression: num(45.67)},
	}
	want := "(* (- 123) (group 45.67))"
	if got := Print(expr); got != want {
		t.Errorf("Print = %s, want %s", got, want)
	}
}

func TestPrintLiterals(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1", "1"},
		{"2.5", "2.5"},
		{"true", "true"},
		{"false", "false"},
		{"nil", "nil"},
		{`"hi"`, `"hi"`},
		{`"1"`, `"1"`},
	}
	for _, tc := range tests {
		if got := Print(parseExpr(t, tc.input)); got != tc.want {
			t.Errorf("Print(%s) = %s, want %s", tc.input, got, tc.want)
		}
	}
}

func TestPrintAbsentLiteral(t *testing.T) {
	if got := Print(&Literal{}); got != "nil" {
		t.Errorf("Print(empty literal) = %s, want nil", got)
	}
}

func TestPrintIsStable(t *testing.T) {
	src := "var a = 1; { var b = a + 2; if (b > 2) print b; else print a; } while (a < 3) a = a + 1;"
	first := PrintProgram(mustParse(t, src))
	second := PrintProgram(mustParse(t, src))
	if first != second {
		t.Errorf("PrintProgram is not deterministic:\n%s\n%s", first, second)
	}
}
