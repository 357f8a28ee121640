package driver

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/dibashthapa/jsbytecode/compiler"
	"github.com/dibashthapa/jsbytecode/pkg/cache"
	"github.com/dibashthapa/jsbytecode/pkg/runtime"
)

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    Backend
		wantErr bool
	}{
		{"", BackendInterpreter, false},
		{"interpreter", BackendInterpreter, false},
		{"VM", BackendVM, false},
		{" vm ", BackendVM, false},
		{"jit", "", true},
	}
	for _, tc := range tests {
		got, err := ParseBackend(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseBackend(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseBackend(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRunErrorKinds(t *testing.T) {
	err := Run("print ;", Options{Stdout: &bytes.Buffer{}})
	var perr *compiler.ParseError
	if !errors.As(err, &perr) {
		t.Errorf("parse failure = %T, want *compiler.ParseError", err)
	}

	err = Run("print x;", Options{Backend: BackendVM, Stdout: &bytes.Buffer{}})
	var rerr *runtime.RuntimeError
	if !errors.As(err, &rerr) {
		t.Errorf("vm failure = %T, want *runtime.RuntimeError", err)
	}
}

func TestRunUnknownBackend(t *testing.T) {
	if err := Run("print 1;", Options{Backend: "jit"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestRunWithCache(t *testing.T) {
	c, err := cache.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	src := "var i = 0; while (i < 2) { print i; i = i + 1; }"
	for range 2 {
		var out bytes.Buffer
		if err := Run(src, Options{Backend: BackendVM, Stdout: &out, Cache: c}); err != nil {
			t.Fatal(err)
		}
		if out.String() != "0\n1\n" {
			t.Errorf("output = %q, want 0 1", out.String())
		}
	}
	if hits, misses := c.Stats(); hits != 1 || misses != 1 {
		t.Errorf("Stats() = %d hits, %d misses; want 1, 1", hits, misses)
	}
}

func TestRunCompileErrorNotCached(t *testing.T) {
	c, err := cache.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := Run("print x;", Options{Backend: BackendVM, Stdout: &bytes.Buffer{}, Cache: c}); err == nil {
		t.Fatal("expected error")
	}
	if n, _ := c.Len(); n != 0 {
		t.Errorf("Len() = %d, want 0", n)
	}
}

func TestSession(t *testing.T) {
	for _, backend := range []Backend{BackendInterpreter, BackendVM} {
		t.Run(string(backend), func(t *testing.T) {
			var out bytes.Buffer
			s, err := NewSession(Options{Backend: backend, Stdout: &out})
			if err != nil {
				t.Fatal(err)
			}
			if s.Backend() != backend {
				t.Errorf("Backend() = %q, want %q", s.Backend(), backend)
			}

			lines := []string{"var a = 1;", "print b;", "a = a + 1;", "print a;"}
			var errs int
			for _, line := range lines {
				if err := s.Exec(line); err != nil {
					errs++
				}
			}
			if errs != 1 {
				t.Errorf("got %d errors, want 1", errs)
			}
			if out.String() != "2\n" {
				t.Errorf("output = %q, want 2", out.String())
			}
		})
	}
}

// A failed line must leave both backends agreeing on what later lines see.
func TestSessionStateAfterErrors(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		want     string
		wantErrs int
	}{
		{"failed initializer", []string{`var a = "x" - 1;`, "print a;"}, "", 2},
		{"statements before a failure run", []string{"var a = 1; print b;", "print a;"}, "1\n", 1},
		{"statements after a failure do not", []string{"var a = 1;", `print -"x"; a = 5;`, `if (a == 1) print "kept";`}, "kept\n", 1},
		{"shadowed variable restored", []string{"var x = 1;", `{ var x = "a"; print -x; }`, "print x;", `if (x == 1) print "one";`}, "1\none\n", 1},
		{"assignment before failure kept", []string{"var n = 1;", `{ n = 5; print -"s"; }`, "if (n == 5) print n;"}, "5\n", 1},
	}

	for _, tc := range tests {
		for _, backend := range []Backend{BackendInterpreter, BackendVM} {
			t.Run(tc.name+"/"+string(backend), func(t *testing.T) {
				var out bytes.Buffer
				s, err := NewSession(Options{Backend: backend, Stdout: &out})
				if err != nil {
					t.Fatal(err)
				}
				var errs int
				for _, line := range tc.lines {
					if err := s.Exec(line); err != nil {
						errs++
					}
				}
				if errs != tc.wantErrs {
					t.Errorf("got %d errors, want %d", errs, tc.wantErrs)
				}
				if out.String() != tc.want {
					t.Errorf("output = %q, want %q", out.String(), tc.want)
				}
			})
		}
	}
}

func TestSessionFailedDeclarationIsUndefined(t *testing.T) {
	s, err := NewSession(Options{Backend: BackendVM, Stdout: &bytes.Buffer{}})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Exec(`var a = "x" - 1;`); err == nil {
		t.Fatal("expected a runtime error")
	}
	err = s.Exec("print a;")
	var rerr *runtime.RuntimeError
	if !errors.As(err, &rerr) || rerr.Message != "Undefined variable 'a'." {
		t.Errorf("err = %v, want undefined variable", err)
	}
}

func TestSessionManyLines(t *testing.T) {
	var out bytes.Buffer
	s, err := NewSession(Options{Backend: BackendVM, Stdout: &out})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 300; i++ {
		if err := s.Exec("print 1;"); err != nil {
			t.Fatalf("line %d: %v", i+1, err)
		}
	}
	if n := strings.Count(out.String(), "1\n"); n != 300 {
		t.Errorf("printed %d lines, want 300", n)
	}
}

func TestNewSessionUnknownBackend(t *testing.T) {
	if _, err := NewSession(Options{Backend: "jit"}); err == nil {
		t.Error("expected error")
	}
}

func TestDump(t *testing.T) {
	src := "print 1 + 2;"

	tokens, err := Dump(src, DumpTokens)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(tokens, "print") || !strings.HasSuffix(tokens, "EOF\n") {
		t.Errorf("tokens dump =\n%s", tokens)
	}

	ast, err := Dump(src, DumpAST)
	if err != nil {
		t.Fatal(err)
	}
	if ast != "(print (+ 1 2))\n" {
		t.Errorf("ast dump = %q", ast)
	}

	code, err := Dump(src, DumpBytecode)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(code, "Add") || !strings.Contains(code, "Return") {
		t.Errorf("bytecode dump =\n%s", code)
	}

	if _, err := Dump(src, "pixels"); err == nil {
		t.Error("expected error for unknown dump kind")
	}
}

func TestDumpTokensReportsLexicalError(t *testing.T) {
	out, err := Dump("print @;", DumpTokens)
	if err == nil {
		t.Fatal("expected lexical error")
	}
	if !strings.Contains(out, "EOF") {
		t.Errorf("tokens dump should still list tokens:\n%s", out)
	}
}
