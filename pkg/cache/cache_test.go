package cache

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dibashthapa/jsbytecode/compiler"
	"github.com/dibashthapa/jsbytecode/pkg/bytecode"
)

func openTemp(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "sub", "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func compileSource(t *testing.T, src string) *bytecode.Program {
	t.Helper()
	stmts, err := compiler.ParseSource(src)
	if err != nil {
		t.Fatal(err)
	}
	prog, err := bytecode.Compile(stmts)
	if err != nil {
		t.Fatal(err)
	}
	return prog
}

func TestKey(t *testing.T) {
	if Key("print 1;") == Key("print 2;") {
		t.Error("different sources share a key")
	}
	if got := len(Key("")); got != 64 {
		t.Errorf("len(Key) = %d, want 64", got)
	}
}

func TestGetMissing(t *testing.T) {
	c := openTemp(t)
	if _, err := c.Get("print 1;"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
}

func TestPutGet(t *testing.T) {
	c := openTemp(t)
	src := "var a = 1; print a + 2;"
	prog := compileSource(t, src)

	if err := c.Put(src, prog); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := c.Get(src)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Equal(prog) {
		t.Errorf("cached program differs:\n%s\nwant\n%s", got.Disassemble(), prog.Disassemble())
	}
	if n, _ := c.Len(); n != 1 {
		t.Errorf("Len() = %d, want 1", n)
	}
}

func TestGetOrCompile(t *testing.T) {
	c := openTemp(t)
	src := "print 1;"
	calls := 0
	compile := func() (*bytecode.Program, error) {
		calls++
		return compileSource(t, src), nil
	}

	first, err := c.GetOrCompile(src, compile)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.GetOrCompile(src, compile)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("compile called %d times, want 1", calls)
	}
	if !first.Equal(second) {
		t.Error("cache hit returned a different program")
	}
	if hits, misses := c.Stats(); hits != 1 || misses != 1 {
		t.Errorf("Stats() = %d hits, %d misses; want 1, 1", hits, misses)
	}
}

func TestGetOrCompileError(t *testing.T) {
	c := openTemp(t)
	want := errors.New("boom")
	_, err := c.GetOrCompile("x", func() (*bytecode.Program, error) { return nil, want })
	if !errors.Is(err, want) {
		t.Errorf("err = %v, want %v", err, want)
	}
	if n, _ := c.Len(); n != 0 {
		t.Errorf("failed compile was cached (Len = %d)", n)
	}
}

func TestCorruptEntryIsMiss(t *testing.T) {
	c := openTemp(t)
	if _, err := c.db.Exec("INSERT INTO programs (hash, program, created_at) VALUES (?, ?, 0)", Key("bad"), []byte("junk")); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get("bad"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
}

func TestPrune(t *testing.T) {
	c := openTemp(t)
	if err := c.Put("print 1;", compileSource(t, "print 1;")); err != nil {
		t.Fatal(err)
	}
	n, err := c.Prune(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Prune removed %d, want 1", n)
	}
	if n, _ := c.Len(); n != 0 {
		t.Errorf("Len() = %d after prune, want 0", n)
	}
}

func TestInMemory(t *testing.T) {
	c, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if err := c.Put("print 1;", compileSource(t, "print 1;")); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get("print 1;"); err != nil {
		t.Errorf("Get: %v", err)
	}
}
