package server

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/dibashthapa/jsbytecode/compiler"
	"github.com/dibashthapa/jsbytecode/pkg/bytecode"
	"github.com/dibashthapa/jsbytecode/pkg/runtime"
)

// Analysis is everything the server knows about one version of a
// document.
type Analysis struct {
	Text         string
	Tokens       []compiler.Token
	ParseErr     error // lexical or syntax error; nil when the document parses
	CompileErr   error // bytecode generation error; nil when it compiles
	Warnings     []compiler.Warning
	Declarations []compiler.Declaration
}

// Analyze parses, checks and compiles text. It never fails: problems are
// recorded on the result.
func Analyze(text string) *Analysis {
	a := &Analysis{Text: text, Tokens: compiler.Tokenize(text)}

	stmts, err := compiler.ParseSource(text)
	if err != nil {
		a.ParseErr = err
		return a
	}

	sem := compiler.NewSemanticAnalyzer()
	sem.AnalyzeProgram(stmts)
	a.Warnings = sem.Warnings()
	a.Declarations = sem.Declarations()

	if _, err := bytecode.Compile(stmts); err != nil {
		a.CompileErr = err
	}
	return a
}

// errorLine returns the 1-based source line carried by err, or 1.
func errorLine(err error) int {
	var le runtime.LineError
	if errors.As(err, &le) && le.SourceLine() > 0 {
		return le.SourceLine()
	}
	return 1
}

// errorMessage strips the "[line N] Error" prefix, which the editor shows
// as the diagnostic position instead.
func errorMessage(err error) string {
	var perr *compiler.ParseError
	if errors.As(err, &perr) {
		if perr.Where == "" {
			return perr.Message
		}
		return strings.TrimSpace(perr.Where) + ": " + perr.Message
	}
	var rerr *runtime.RuntimeError
	if errors.As(err, &rerr) {
		return rerr.Message
	}
	return err.Error()
}

// Diagnostics converts the analysis into LSP diagnostics. A parse error
// suppresses everything else. Compile errors are informational: the
// program still runs on the interpreter.
func (a *Analysis) Diagnostics() []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}

	if a.ParseErr != nil {
		return append(diagnostics, a.diagnostic(errorLine(a.ParseErr), protocol.DiagnosticSeverityError, lspName, errorMessage(a.ParseErr)))
	}

	flagged := make(map[int]bool)
	for _, w := range a.Warnings {
		diagnostics = append(diagnostics, a.diagnostic(w.Line, protocol.DiagnosticSeverityWarning, lspName, w.Message))
		flagged[w.Line] = true
	}

	if a.CompileErr != nil {
		line := errorLine(a.CompileErr)
		if !flagged[line] {
			diagnostics = append(diagnostics, a.diagnostic(line, protocol.DiagnosticSeverityInformation, lspName+"/vm", errorMessage(a.CompileErr)))
		}
	}
	return diagnostics
}

func (a *Analysis) diagnostic(line int, severity protocol.DiagnosticSeverity, source, message string) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range:    a.lineRange(line),
		Severity: &severity,
		Source:   &source,
		Message:  message,
	}
}

// lineRange spans the whole of a 1-based source line.
func (a *Analysis) lineRange(line int) protocol.Range {
	idx := line - 1
	if idx < 0 {
		idx = 0
	}
	lines := strings.Split(a.Text, "\n")
	width := 0
	if idx < len(lines) {
		width = utf16Len(lines[idx])
	}
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(idx), Character: 0},
		End:   protocol.Position{Line: protocol.UInteger(idx), Character: protocol.UInteger(width)},
	}
}

// Complete returns keywords and declared names starting with prefix.
func (a *Analysis) Complete(prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	seen := make(map[string]bool)

	names := make([]string, 0, len(a.Declarations))
	for _, d := range a.Declarations {
		if !seen[d.Name] && strings.HasPrefix(d.Name, prefix) {
			seen[d.Name] = true
			names = append(names, d.Name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		kind := protocol.CompletionItemKindVariable
		detail := "variable"
		nameCopy := name
		items = append(items, protocol.CompletionItem{
			Label:      name,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &nameCopy,
		})
	}

	keywords := compiler.Keywords()
	sort.Strings(keywords)
	for _, kw := range keywords {
		if seen[kw] || !strings.HasPrefix(kw, prefix) {
			continue
		}
		kind := protocol.CompletionItemKindKeyword
		detail := "keyword"
		kwCopy := kw
		items = append(items, protocol.CompletionItem{
			Label:      kw,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &kwCopy,
		})
	}

	// Limit results
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}

// Hover describes the identifier word: where it is declared, or that it
// is a reserved word.
func (a *Analysis) Hover(word string) *protocol.Hover {
	if _, ok := compiler.LookupKeyword(word); ok {
		return markdownHover("**" + word + "** (keyword)")
	}

	var lines []string
	for _, d := range a.Declarations {
		if d.Name != word {
			continue
		}
		scope := "global"
		if d.Depth > 0 {
			scope = "block"
		}
		lines = append(lines, "- line "+strconv.Itoa(d.Line)+" ("+scope+")")
	}
	if len(lines) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("**var " + word + "**\n\nDeclared at:\n")
	b.WriteString(strings.Join(lines, "\n"))
	return markdownHover(b.String())
}

// Definition returns the position of the first declaration of word.
func (a *Analysis) Definition(uri protocol.DocumentUri, word string) []protocol.Location {
	for _, d := range a.Declarations {
		if d.Name == word {
			return []protocol.Location{{URI: uri, Range: a.wordRange(d.Line, word)}}
		}
	}
	return nil
}

// References returns every identifier token spelled word.
func (a *Analysis) References(uri protocol.DocumentUri, word string) []protocol.Location {
	var locations []protocol.Location
	lines := make(map[int]bool)
	for _, tok := range a.Tokens {
		if tok.Type != compiler.TokenIdentifier || tok.Lexeme != word || lines[tok.Line] {
			continue
		}
		lines[tok.Line] = true
		for _, r := range a.wordRanges(tok.Line, word) {
			locations = append(locations, protocol.Location{URI: uri, Range: r})
		}
	}
	return locations
}

// wordRange locates the first whole-word occurrence of word on a line,
// falling back to the whole line.
func (a *Analysis) wordRange(line int, word string) protocol.Range {
	if rs := a.wordRanges(line, word); len(rs) > 0 {
		return rs[0]
	}
	return a.lineRange(line)
}

func (a *Analysis) wordRanges(line int, word string) []protocol.Range {
	lines := strings.Split(a.Text, "\n")
	idx := line - 1
	if word == "" || idx < 0 || idx >= len(lines) {
		return nil
	}
	text := lines[idx]

	var ranges []protocol.Range
	for off := 0; off <= len(text)-len(word); {
		i := strings.Index(text[off:], word)
		if i < 0 {
			break
		}
		start := off + i
		end := start + len(word)
		if identStart(text, start) == start && !identAt(text, end) {
			ranges = append(ranges, protocol.Range{
				Start: protocol.Position{Line: protocol.UInteger(idx), Character: protocol.UInteger(utf16Len(text[:start]))},
				End:   protocol.Position{Line: protocol.UInteger(idx), Character: protocol.UInteger(utf16Len(text[:end]))},
			})
		}
		off = end
	}
	return ranges
}

// identAt reports whether an identifier character starts at byte offset i.
func identAt(text string, i int) bool {
	if i >= len(text) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return isIdentRune(r)
}

func markdownHover(value string) *protocol.Hover {
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: value,
		},
	}
}
