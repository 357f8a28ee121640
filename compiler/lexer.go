package compiler

import (
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/dibashthapa/jsbytecode/pkg/runtime"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for Lox source
// ---------------------------------------------------------------------------

// Lexer tokenizes Lox source code in a single left-to-right pass.
//
// The lexer never stops early: malformed input is recorded in Errors and
// scanning resumes with the next character, so the token stream always
// ends with exactly one EOF token.
type Lexer struct {
	input   string
	start   int // offset of the first byte of the token being scanned
	current int // offset of the next unread byte
	line    int // current line (1-based)
	errors  []*ParseError
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input: input,
		line:  1,
	}
}

// Errors returns the lexical errors seen so far.
func (l *Lexer) Errors() []*ParseError {
	return l.errors
}

func (l *Lexer) errorf(message string) {
	l.errors = append(l.errors, &ParseError{Line: l.line, Message: message})
}

func (l *Lexer) isAtEnd() bool {
	return l.current >= len(l.input)
}

// advance consumes and returns the next character.
func (l *Lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(l.input[l.current:])
	l.current += size
	return r
}

// peek returns the next character without consuming it.
func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.current:])
	return r
}

// peekNext returns the character after the next one.
func (l *Lexer) peekNext() rune {
	if l.isAtEnd() {
		return 0
	}
	_, size := utf8.DecodeRuneInString(l.input[l.current:])
	if l.current+size >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.current+size:])
	return r
}

// match consumes the next character only if it is expected.
func (l *Lexer) match(expected rune) bool {
	if l.peek() != expected || l.isAtEnd() {
		return false
	}
	l.current += utf8.RuneLen(expected)
	return true
}

func (l *Lexer) token(t TokenType) Token {
	return Token{Type: t, Lexeme: l.input[l.start:l.current], Line: l.line}
}

func (l *Lexer) literalToken(t TokenType, v runtime.Value) Token {
	tok := l.token(t)
	tok.Literal = &v
	return tok
}

// NextToken returns the next token. Once the input is exhausted it keeps
// returning EOF.
func (l *Lexer) NextToken() Token {
	for {
		l.skipWhitespaceAndComments()
		l.start = l.current

		if l.isAtEnd() {
			return Token{Type: TokenEOF, Line: l.line}
		}

		if tok, ok := l.scanToken(); ok {
			return tok
		}
	}
}

// scanToken scans one token starting at l.start. It returns false when
// the characters consumed did not form a token (an error was recorded).
func (l *Lexer) scanToken() (Token, bool) {
	c := l.advance()

	switch c {
	case '(':
		return l.token(TokenLeftParen), true
	case ')':
		return l.token(TokenRightParen), true
	case '{':
		return l.token(TokenLeftBrace), true
	case '}':
		return l.token(TokenRightBrace), true
	case ',':
		return l.token(TokenComma), true
	case '.':
		return l.token(TokenDot), true
	case '-':
		return l.token(TokenMinus), true
	case '+':
		return l.token(TokenPlus), true
	case ';':
		return l.token(TokenSemicolon), true
	case '*':
		return l.token(TokenStar), true
	case '/':
		return l.token(TokenSlash), true

	case '!':
		if l.match('=') {
			return l.token(TokenBangEqual), true
		}
		return l.token(TokenBang), true
	case '=':
		if l.match('=') {
			return l.token(TokenEqualEqual), true
		}
		return l.token(TokenEqual), true
	case '<':
		if l.match('=') {
			return l.token(TokenLessEqual), true
		}
		return l.token(TokenLess), true
	case '>':
		if l.match('=') {
			return l.token(TokenGreaterEqual), true
		}
		return l.token(TokenGreater), true

	case '"':
		return l.readString()
	}

	switch {
	case isDigit(c):
		return l.readNumber(), true
	case isIdentStart(c):
		return l.readIdentifier(), true
	}

	l.errorf("Unexpected character.")
	return Token{}, false
}

// skipWhitespaceAndComments skips blanks, newlines and // comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for !l.isAtEnd() {
		switch l.peek() {
		case ' ', '\r', '\t':
			l.advance()
		case '\n':
			l.line++
			l.advance()
		case '/':
			if l.peekNext() != '/' {
				return
			}
			for l.peek() != '\n' && !l.isAtEnd() {
				l.advance()
			}
		default:
			return
		}
	}
}

// readString reads a string literal. Strings may span lines.
func (l *Lexer) readString() (Token, bool) {
	for l.peek() != '"' && !l.isAtEnd() {
		if l.peek() == '\n' {
			l.line++
		}
		l.advance()
	}

	if l.isAtEnd() {
		l.errorf("Unterminated string.")
		return Token{}, false
	}

	l.advance() // closing "

	text := l.input[l.start+1 : l.current-1]
	return l.literalToken(TokenString, runtime.FromString(text)), true
}

// readNumber reads digits with an optional fractional part. A trailing
// '.' that is not followed by a digit is left for the next token.
func (l *Lexer) readNumber() Token {
	for isDigit(l.peek()) {
		l.advance()
	}

	if l.peek() == '.' && isDigit(l.peekNext()) {
		l.advance() // consume .
		for isDigit(l.peek()) {
			l.advance()
		}
	}

	text := l.input[l.start:l.current]
	// text is always well formed; out-of-range literals become ±Inf.
	n, _ := strconv.ParseFloat(text, 64)
	return l.literalToken(TokenNumber, runtime.FromFloat64(n))
}

// readIdentifier reads an identifier or keyword.
func (l *Lexer) readIdentifier() Token {
	for isIdentPart(l.peek()) {
		l.advance()
	}

	text := l.input[l.start:l.current]
	if t, ok := keywords[text]; ok {
		return l.token(t)
	}
	return l.token(TokenIdentifier)
}

// ScanTokens scans the whole input and returns every token, ending with
// exactly one EOF token.
func (l *Lexer) ScanTokens() []Token {
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens
		}
	}
}

// Helper functions

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

// Tokenize returns all tokens from the input. Lexical errors are dropped;
// use a Lexer directly to inspect them.
func Tokenize(input string) []Token {
	return NewLexer(input).ScanTokens()
}
