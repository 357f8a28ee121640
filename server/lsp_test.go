package server

import (
	"strings"
	"sync"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// ---------------------------------------------------------------------------
// LSP text extraction helpers
// ---------------------------------------------------------------------------

func TestExtractPrefix_SimpleWord(t *testing.T) {
	text := "print count"
	pos := protocol.Position{Line: 0, Character: 11}
	prefix := extractPrefix(text, pos)
	if prefix != "count" {
		t.Errorf("extractPrefix = %q, want %q", prefix, "count")
	}
}

func TestExtractPrefix_MidWord(t *testing.T) {
	text := "print count;"
	pos := protocol.Position{Line: 0, Character: 9}
	prefix := extractPrefix(text, pos)
	if prefix != "cou" {
		t.Errorf("extractPrefix = %q, want %q", prefix, "cou")
	}
}

func TestExtractPrefix_EmptyLine(t *testing.T) {
	prefix := extractPrefix("", protocol.Position{Line: 0, Character: 0})
	if prefix != "" {
		t.Errorf("extractPrefix = %q, want empty string", prefix)
	}
}

func TestExtractPrefix_MultiLine(t *testing.T) {
	text := "var a = 1;\nvar b = 2;\nprint wh"
	pos := protocol.Position{Line: 2, Character: 8}
	prefix := extractPrefix(text, pos)
	if prefix != "wh" {
		t.Errorf("extractPrefix = %q, want %q", prefix, "wh")
	}
}

func TestExtractPrefix_AfterOperator(t *testing.T) {
	text := "x = y+total_2"
	pos := protocol.Position{Line: 0, Character: 13}
	prefix := extractPrefix(text, pos)
	if prefix != "total_2" {
		t.Errorf("extractPrefix = %q, want %q", prefix, "total_2")
	}
}

func TestExtractPrefix_LineBeyondDocument(t *testing.T) {
	prefix := extractPrefix("single line", protocol.Position{Line: 5, Character: 0})
	if prefix != "" {
		t.Errorf("extractPrefix beyond doc = %q, want empty string", prefix)
	}
}

func TestExtractWord(t *testing.T) {
	tests := []struct {
		text string
		pos  protocol.Position
		want string
	}{
		{"hello world", protocol.Position{Line: 0, Character: 3}, "hello"},
		{"hello world", protocol.Position{Line: 0, Character: 5}, "hello"},
		{"hello world", protocol.Position{Line: 0, Character: 6}, "world"},
		{"a = (b);", protocol.Position{Line: 0, Character: 5}, "b"},
		{"  ;", protocol.Position{Line: 0, Character: 1}, ""},
		{"x", protocol.Position{Line: 0, Character: 99}, "x"},
		{"x", protocol.Position{Line: 3, Character: 0}, ""},
	}
	for _, tc := range tests {
		if got := extractWord(tc.text, tc.pos); got != tc.want {
			t.Errorf("extractWord(%q, %v) = %q, want %q", tc.text, tc.pos, got, tc.want)
		}
	}
}

// Positions count UTF-16 code units: é is one unit, 😀 is two.
func TestExtractNonASCII(t *testing.T) {
	text := "var s = \"é😀\"; print total;"
	if got := extractWord(text, protocol.Position{Line: 0, Character: 23}); got != "total" {
		t.Errorf("extractWord = %q, want %q", got, "total")
	}
	if got := extractPrefix(text, protocol.Position{Line: 0, Character: 24}); got != "tot" {
		t.Errorf("extractPrefix = %q, want %q", got, "tot")
	}
	if got := extractWord("var é = 1;", protocol.Position{Line: 0, Character: 4}); got != "é" {
		t.Errorf("extractWord = %q, want %q", got, "é")
	}
}

// ---------------------------------------------------------------------------
// Analysis
// ---------------------------------------------------------------------------

func TestDiagnosticsParseError(t *testing.T) {
	a := Analyze("var a = 1;\nprint a\n")
	diags := a.Diagnostics()
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %+v", len(diags), diags)
	}
	d := diags[0]
	if d.Range.Start.Line != 2 {
		t.Errorf("line = %d, want 2", d.Range.Start.Line)
	}
	if *d.Severity != protocol.DiagnosticSeverityError {
		t.Errorf("severity = %v, want error", *d.Severity)
	}
	if d.Message != "at end: Expect ';' after value." {
		t.Errorf("message = %q", d.Message)
	}
}

func TestDiagnosticsLexicalError(t *testing.T) {
	diags := Analyze("print 1;\nprint #;").Diagnostics()
	if len(diags) != 1 || diags[0].Range.Start.Line != 1 || diags[0].Message != "Unexpected character." {
		t.Errorf("diagnostics = %+v", diags)
	}
}

func TestDiagnosticsWarnings(t *testing.T) {
	diags := Analyze("print missing;\n{ var unused = 1; }").Diagnostics()
	if len(diags) != 2 {
		t.Fatalf("got %d diagnostics, want 2: %+v", len(diags), diags)
	}
	if diags[0].Range.Start.Line != 0 || !strings.Contains(diags[0].Message, "may be undefined") {
		t.Errorf("first diagnostic = %+v", diags[0])
	}
	if diags[1].Range.Start.Line != 1 || !strings.Contains(diags[1].Message, "never read") {
		t.Errorf("second diagnostic = %+v", diags[1])
	}
	// The compile error for missing is on the already flagged line.
	for _, d := range diags {
		if *d.Severity != protocol.DiagnosticSeverityWarning {
			t.Errorf("severity = %v, want warning", *d.Severity)
		}
	}
}

func TestDiagnosticsCompileError(t *testing.T) {
	src := "for (var i = 0; i < 3; i = i + 1) {\n  if (i == 1) print i;\n}"
	diags := Analyze(src).Diagnostics()
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %+v", len(diags), diags)
	}
	d := diags[0]
	if d.Range.Start.Line != 1 || *d.Severity != protocol.DiagnosticSeverityInformation {
		t.Errorf("diagnostic = %+v", d)
	}
	if *d.Source != lspName+"/vm" {
		t.Errorf("source = %q", *d.Source)
	}
	if d.Range.End.Character != protocol.UInteger(len("  if (i == 1) print i;")) {
		t.Errorf("range end = %d, want end of line", d.Range.End.Character)
	}
}

func TestDiagnosticsClean(t *testing.T) {
	if diags := Analyze("var a = 1; print a;").Diagnostics(); len(diags) != 0 {
		t.Errorf("diagnostics = %+v, want none", diags)
	}
}

func TestComplete(t *testing.T) {
	a := Analyze("var value = 1; var victory = 2; print value + victory;")
	items := a.Complete("v")

	var labels []string
	for _, it := range items {
		labels = append(labels, it.Label)
	}
	got := strings.Join(labels, " ")
	if got != "value victory var" {
		t.Errorf("labels = %q, want %q", got, "value victory var")
	}
	if *items[0].Kind != protocol.CompletionItemKindVariable {
		t.Errorf("first kind = %v, want variable", *items[0].Kind)
	}
	if *items[2].Kind != protocol.CompletionItemKindKeyword {
		t.Errorf("last kind = %v, want keyword", *items[2].Kind)
	}
}

func TestHover(t *testing.T) {
	a := Analyze("var x = 1;\n{\n  var x = 2;\n  print x;\n}")

	h := a.Hover("x")
	if h == nil {
		t.Fatal("Hover(x) = nil")
	}
	value := h.Contents.(protocol.MarkupContent).Value
	if !strings.Contains(value, "line 1 (global)") || !strings.Contains(value, "line 3 (block)") {
		t.Errorf("hover = %q", value)
	}

	if h := a.Hover("while"); h == nil || !strings.Contains(h.Contents.(protocol.MarkupContent).Value, "keyword") {
		t.Errorf("Hover(while) = %+v", h)
	}
	if h := a.Hover("nothing"); h != nil {
		t.Errorf("Hover(nothing) = %+v, want nil", h)
	}
}

func TestDefinitionAndReferences(t *testing.T) {
	uri := protocol.DocumentUri("file:///demo.lox")
	a := Analyze("var total = 0;\ntotal = total + 1;\nprint \"total\";\nprint total;")

	defs := a.Definition(uri, "total")
	if len(defs) != 1 {
		t.Fatalf("Definition = %+v", defs)
	}
	if r := defs[0].Range; r.Start.Line != 0 || r.Start.Character != 4 || r.End.Character != 9 {
		t.Errorf("definition range = %+v", r)
	}

	refs := a.References(uri, "total")
	// line 1 (decl), line 2 twice, line 4 once; line 3 only has a string.
	if len(refs) != 4 {
		t.Fatalf("got %d references, want 4: %+v", len(refs), refs)
	}
	if refs[2].Range.Start.Line != 1 || refs[2].Range.Start.Character != 8 {
		t.Errorf("third reference = %+v", refs[2].Range)
	}

	if got := a.Definition(uri, "nope"); got != nil {
		t.Errorf("Definition(nope) = %+v, want nil", got)
	}
}

// ---------------------------------------------------------------------------
// Worker
// ---------------------------------------------------------------------------

func TestWorkerSerializesWorkspace(t *testing.T) {
	w := NewWorker(NewWorkspace())
	defer w.Stop()

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func(i int) {
			_, _ = w.Do(func(ws *Workspace) interface{} {
				return ws.Update("file:///"+string(rune('a'+i)), "print 1;")
			})
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	n, err := w.Do(func(ws *Workspace) interface{} { return ws.Len() })
	if err != nil {
		t.Fatal(err)
	}
	if n.(int) != 10 {
		t.Errorf("Len() = %d, want 10", n)
	}
}

func TestWorkerRecoversPanic(t *testing.T) {
	w := NewWorker(NewWorkspace())
	defer w.Stop()

	_, err := w.Do(func(ws *Workspace) interface{} { panic("boom") })
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("err = %v, want recovered panic", err)
	}

	// Still usable afterwards
	v, err := w.Do(func(ws *Workspace) interface{} { return 42 })
	if err != nil || v.(int) != 42 {
		t.Errorf("Do after panic = %v, %v", v, err)
	}
}

func TestWorkerStopped(t *testing.T) {
	w := NewWorker(NewWorkspace())
	w.Stop()
	w.Stop()
	if _, err := w.Do(func(ws *Workspace) interface{} { return nil }); err == nil {
		t.Error("Do on a stopped worker should fail")
	}
}

func TestWorkspaceRemove(t *testing.T) {
	ws := NewWorkspace()
	ws.Update("u", "print 1;")
	if _, ok := ws.Get("u"); !ok {
		t.Fatal("document not tracked")
	}
	ws.Remove("u")
	if _, ok := ws.Get("u"); ok {
		t.Error("document still tracked after Remove")
	}
}

func TestReferencesNonASCII(t *testing.T) {
	uri := protocol.DocumentUri("file:///demo.lox")
	a := Analyze("var total = 1;\nvar s = \"é😀\"; print total;")

	refs := a.References(uri, "total")
	if len(refs) != 2 {
		t.Fatalf("got %d references, want 2: %+v", len(refs), refs)
	}
	if r := refs[1].Range; r.Start.Line != 1 || r.Start.Character != 21 || r.End.Character != 26 {
		t.Errorf("second reference = %+v, want line 1 columns 21-26", r)
	}
}

func TestWorkerConcurrentStop(t *testing.T) {
	w := NewWorker(NewWorkspace())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Stop()
		}()
	}
	wg.Wait()
	if _, err := w.Do(func(ws *Workspace) interface{} { return nil }); err == nil {
		t.Error("Do on a stopped worker should fail")
	}
}
