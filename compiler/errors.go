package compiler

import "fmt"

// ParseError reports malformed source: a lexical problem or a token
// sequence that does not match the grammar. Only the first parse error of
// a run is surfaced.
type ParseError struct {
	Line    int
	Where   string // " at 'x'", " at end", or "" for lexical errors
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("[line %d] Error%s: %s", e.Line, e.Where, e.Message)
}

// SourceLine returns the line the error was raised on.
func (e *ParseError) SourceLine() int { return e.Line }

func errorAt(tok Token, message string) *ParseError {
	where := fmt.Sprintf(" at '%s'", tok.Lexeme)
	if tok.Type == TokenEOF {
		where = " at end"
	}
	return &ParseError{Line: tok.Line, Where: where, Message: message}
}
