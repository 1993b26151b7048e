package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	errUnterminatedString  = errors.New("unterminated string literal")
	errUnterminatedChar    = errors.New("unterminated character literal")
	errUnterminatedComment = errors.New("unterminated block comment")
	errUnknownEscape       = errors.New("unknown character escape")
	errIntTooLarge         = errors.New("integer literal is too large")
)

// SyntaxError is a malformed token or token sequence. It always aborts the
// parse that produced it.
type SyntaxError struct {
	Span Span
	Msg  string
	Err  error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s", e.Span, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

func syntaxErrorf(span Span, err error, format string, args ...any) *SyntaxError {
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		if msg == "" {
			msg = err.Error()
		} else {
			msg = err.Error() + ": " + msg
		}
	}
	return &SyntaxError{Span: span, Msg: msg, Err: err}
}

var intSuffixes = map[string]bool{
	"i8": true, "i16": true, "i32": true, "i64": true, "i128": true, "isize": true,
	"u8": true, "u16": true, "u32": true, "u64": true, "u128": true, "usize": true,
}

var floatSuffixes = map[string]bool{"f32": true, "f64": true}

// Lexer holds the mutable state of a single scan over src.
type Lexer struct {
	src    string
	offset int
	line   int
	col    int
}

func NewLexer(src string) *Lexer {
	return &Lexer{src: src, line: 1, col: 1}
}

// NewLexerAt returns a lexer over src that starts scanning at offset, with
// positions reported relative to the whole of src.
func NewLexerAt(src string, offset int) *Lexer {
	l := NewLexer(src)
	for l.offset < offset && l.offset < len(src) {
		l.advance()
	}
	return l
}

// Lex scans all of src into tokens. The returned slice always ends in EOF.
func Lex(src string) ([]Token, error) {
	l := NewLexer(src)

	var toks []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}

		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks, nil
		}
	}
}

func (l *Lexer) Pos() Pos {
	return Pos{Offset: l.offset, Line: l.line, Col: l.col}
}

func (l *Lexer) peek() rune {
	return l.peekAt(0)
}

// peekAt returns the rune n runes ahead of the current position, or 0 past
// the end of input.
func (l *Lexer) peekAt(n int) rune {
	off := l.offset
	for ; n > 0 && off < len(l.src); n-- {
		_, size := utf8.DecodeRuneInString(l.src[off:])
		off += size
	}
	if off >= len(l.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[off:])
	return r
}

func (l *Lexer) advance() rune {
	if l.offset >= len(l.src) {
		return 0
	}

	r, size := utf8.DecodeRuneInString(l.src[l.offset:])
	l.offset += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) eof() bool {
	return l.offset >= len(l.src)
}

func (l *Lexer) token(kind TokenKind, start Pos) Token {
	return Token{
		Kind: kind,
		Text: l.src[start.Offset:l.offset],
		Span: Span{Start: start, End: l.Pos()},
	}
}

func (l *Lexer) skipTrivia() error {
	for !l.eof() {
		switch r := l.peek(); {
		case unicode.IsSpace(r):
			l.advance()
		case r == '/' && l.peekAt(1) == '/':
			for !l.eof() && l.peek() != '\n' {
				l.advance()
			}
		case r == '/' && l.peekAt(1) == '*':
			start := l.Pos()
			l.advance()
			l.advance()
			for {
				if l.eof() {
					return syntaxErrorf(Span{Start: start, End: l.Pos()}, errUnterminatedComment, "")
				}
				if l.peek() == '*' && l.peekAt(1) == '/' {
					l.advance()
					l.advance()
					break
				}
				l.advance()
			}
		default:
			return nil
		}
	}
	return nil
}

// Next scans the next token. At the end of input it returns EOF, and keeps
// doing so on further calls.
func (l *Lexer) Next() (Token, error) {
	if err := l.skipTrivia(); err != nil {
		return Token{}, err
	}

	start := l.Pos()
	if l.eof() {
		return l.token(EOF, start), nil
	}

	r := l.peek()
	switch {
	case r == 'b' && l.peekAt(1) == '"':
		l.advance()
		return l.scanString(start, LitByteStr)
	case r == 'b' && l.peekAt(1) == '\'':
		l.advance()
		return l.scanChar(start, LitByte)
	case r == 'b' && l.peekAt(1) == 'r' && (l.peekAt(2) == '"' || l.peekAt(2) == '#'):
		l.advance()
		return l.scanRawString(start, LitByteStr)
	case r == 'r' && (l.peekAt(1) == '"' || l.peekAt(1) == '#' && l.rawStringAhead()):
		return l.scanRawString(start, LitStr)
	case isIdentStart(r):
		return l.scanIdent(start), nil
	case r >= '0' && r <= '9':
		return l.scanNumber(start)
	case r == '"':
		return l.scanString(start, LitStr)
	case r == '\'':
		return l.scanChar(start, LitChar)
	}

	l.advance()
	switch r {
	case '=':
		if l.peek() == '=' || l.peek() == '>' {
			l.advance()
			return l.token(PUNCT, start), nil
		}
		return l.token(EQ, start), nil
	case ',':
		return l.token(COMMA, start), nil
	case '!':
		if l.peek() == '=' {
			l.advance()
			return l.token(PUNCT, start), nil
		}
		return l.token(BANG, start), nil
	case ':':
		if l.peek() == ':' {
			l.advance()
			return l.token(PATHSEP, start), nil
		}
		return l.token(PUNCT, start), nil
	case '-':
		if l.peek() == '>' || l.peek() == '=' {
			l.advance()
			return l.token(PUNCT, start), nil
		}
		return l.token(MINUS, start), nil
	case '(':
		return l.token(LPAREN, start), nil
	case ')':
		return l.token(RPAREN, start), nil
	case '[':
		return l.token(LBRACKET, start), nil
	case ']':
		return l.token(RBRACKET, start), nil
	case '{':
		return l.token(LBRACE, start), nil
	case '}':
		return l.token(RBRACE, start), nil
	case '+', '*', '/', '%', '^', '&', '|', '<', '>', '.', ';', '#', '@', '$', '?', '~':
		return l.token(PUNCT, start), nil
	}

	return Token{}, syntaxErrorf(Span{Start: start, End: l.Pos()}, nil, "unknown start of token: %q", r)
}

// rawStringAhead reports whether the r at the current position starts a
// raw string such as r#"..."#, as opposed to a raw identifier.
func (l *Lexer) rawStringAhead() bool {
	i := 1
	for l.peekAt(i) == '#' {
		i++
	}
	return l.peekAt(i) == '"'
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentContinue(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (l *Lexer) scanIdent(start Pos) Token {
	for !l.eof() && isIdentContinue(l.peek()) {
		l.advance()
	}
	return l.token(IDENT, start)
}

func (l *Lexer) scanNumber(start Pos) (Token, error) {
	base := 10
	if l.peek() == '0' {
		switch l.peekAt(1) {
		case 'x':
			base = 16
		case 'o':
			base = 8
		case 'b':
			base = 2
		}
		if base != 10 {
			l.advance()
			l.advance()
		}
	}

	var digits strings.Builder
	isDigit := func(r rune) bool {
		switch base {
		case 16:
			return unicode.Is(unicode.ASCII_Hex_Digit, r)
		case 8:
			return r >= '0' && r <= '7'
		case 2:
			return r == '0' || r == '1'
		default:
			return r >= '0' && r <= '9'
		}
	}
	for !l.eof() && (isDigit(l.peek()) || l.peek() == '_') {
		if r := l.advance(); r != '_' {
			digits.WriteRune(r)
		}
	}

	float := false
	if base == 10 {
		// 1.5 is a float, but 1..2 and 1.foo are not
		if l.peek() == '.' && l.peekAt(1) != '.' && !isIdentStart(l.peekAt(1)) {
			float = true
			digits.WriteRune(l.advance())
			for !l.eof() && (l.peek() >= '0' && l.peek() <= '9' || l.peek() == '_') {
				if r := l.advance(); r != '_' {
					digits.WriteRune(r)
				}
			}
		}

		if e := l.peek(); e == 'e' || e == 'E' {
			next := l.peekAt(1)
			if next >= '0' && next <= '9' || (next == '+' || next == '-') && l.peekAt(2) >= '0' && l.peekAt(2) <= '9' {
				float = true
				digits.WriteRune(l.advance())
				digits.WriteRune(l.advance())
				for !l.eof() && (l.peek() >= '0' && l.peek() <= '9' || l.peek() == '_') {
					if r := l.advance(); r != '_' {
						digits.WriteRune(r)
					}
				}
			}
		}
	}

	suffixStart := l.offset
	for !l.eof() && isIdentContinue(l.peek()) {
		l.advance()
	}
	suffix := l.src[suffixStart:l.offset]

	tok := l.token(LITERAL, start)
	switch {
	case suffix == "" && !float, intSuffixes[suffix] && !float:
		if digits.Len() == 0 {
			return Token{}, syntaxErrorf(tok.Span, nil, "no valid digits found for number")
		}
		n, err := strconv.ParseUint(digits.String(), base, 64)
		if err != nil {
			return Token{}, syntaxErrorf(tok.Span, errIntTooLarge, "")
		}
		tok.Lit = Lit{Kind: LitInt, Int: n, Suffix: suffix}
	case base == 10 && (suffix == "" || floatSuffixes[suffix]):
		f, err := strconv.ParseFloat(digits.String(), 64)
		if err != nil {
			return Token{}, syntaxErrorf(tok.Span, nil, "invalid float literal %q", tok.Text)
		}
		tok.Lit = Lit{Kind: LitFloat, Float: f, Suffix: suffix}
	default:
		return Token{}, syntaxErrorf(tok.Span, nil, "invalid suffix %q for number literal", suffix)
	}

	return tok, nil
}

// scanEscape decodes the escape sequence following a backslash that has
// already been consumed. A line continuation decodes to nothing.
func (l *Lexer) scanEscape(escStart Pos, kind LitKind) (string, error) {
	span := func() Span { return Span{Start: escStart, End: l.Pos()} }

	switch r := l.advance(); r {
	case 'n':
		return "\n", nil
	case 'r':
		return "\r", nil
	case 't':
		return "\t", nil
	case '\\', '\'', '"':
		return string(r), nil
	case '0':
		return "\x00", nil
	case 'x':
		hex := l.src[l.offset:min(l.offset+2, len(l.src))]
		l.advance()
		l.advance()
		n, err := strconv.ParseUint(hex, 16, 8)
		if err != nil || len(hex) != 2 {
			return "", syntaxErrorf(span(), nil, "invalid \\x escape")
		}
		if n > 0x7f && kind != LitByte && kind != LitByteStr {
			return "", syntaxErrorf(span(), nil, "out of range hex escape")
		}
		return string([]byte{byte(n)}), nil
	case 'u':
		if kind == LitByte || kind == LitByteStr {
			return "", syntaxErrorf(span(), nil, "unicode escape in byte string")
		}
		if l.advance() != '{' {
			return "", syntaxErrorf(span(), nil, "incorrect unicode escape sequence")
		}
		var hex strings.Builder
		for !l.eof() && l.peek() != '}' {
			if r := l.advance(); r != '_' {
				hex.WriteRune(r)
			}
		}
		l.advance()
		n, err := strconv.ParseUint(hex.String(), 16, 32)
		if err != nil || hex.Len() > 6 || !utf8.ValidRune(rune(n)) {
			return "", syntaxErrorf(span(), nil, "invalid unicode character escape")
		}
		return string(rune(n)), nil
	case '\n':
		for !l.eof() && unicode.IsSpace(l.peek()) {
			l.advance()
		}
		return "", nil
	default:
		return "", syntaxErrorf(span(), errUnknownEscape, "\\%c", r)
	}
}

func (l *Lexer) scanString(start Pos, kind LitKind) (Token, error) {
	l.advance() // opening quote

	var sb strings.Builder
	for {
		if l.eof() {
			return Token{}, syntaxErrorf(Span{Start: start, End: l.Pos()}, errUnterminatedString, "")
		}

		escStart := l.Pos()
		switch r := l.advance(); r {
		case '"':
			tok := l.token(LITERAL, start)
			tok.Lit = Lit{Kind: kind, Str: sb.String()}
			return tok, nil
		case '\\':
			s, err := l.scanEscape(escStart, kind)
			if err != nil {
				return Token{}, err
			}
			sb.WriteString(s)
		default:
			sb.WriteRune(r)
		}
	}
}

func (l *Lexer) scanRawString(start Pos, kind LitKind) (Token, error) {
	l.advance() // r

	hashes := 0
	for l.peek() == '#' {
		l.advance()
		hashes++
	}
	if l.advance() != '"' {
		return Token{}, syntaxErrorf(Span{Start: start, End: l.Pos()}, nil, "expected '\"' in raw string")
	}

	closing := `"` + strings.Repeat("#", hashes)
	end := strings.Index(l.src[l.offset:], closing)
	if end < 0 {
		for !l.eof() {
			l.advance()
		}
		return Token{}, syntaxErrorf(Span{Start: start, End: l.Pos()}, errUnterminatedString, "")
	}

	body := l.src[l.offset : l.offset+end]
	for target := l.offset + end + len(closing); l.offset < target; {
		l.advance()
	}

	tok := l.token(LITERAL, start)
	tok.Lit = Lit{Kind: kind, Str: body}
	return tok, nil
}

func (l *Lexer) scanChar(start Pos, kind LitKind) (Token, error) {
	l.advance() // opening quote

	escStart := l.Pos()
	var value string
	switch r := l.advance(); r {
	case '\\':
		s, err := l.scanEscape(escStart, kind)
		if err != nil {
			return Token{}, err
		}
		value = s
	case '\'', 0, '\n':
		return Token{}, syntaxErrorf(Span{Start: start, End: l.Pos()}, errUnterminatedChar, "")
	default:
		value = string(r)
	}

	if l.peek() != '\'' {
		return Token{}, syntaxErrorf(Span{Start: start, End: l.Pos()}, errUnterminatedChar, "")
	}
	l.advance()

	tok := l.token(LITERAL, start)
	tok.Lit = Lit{Kind: kind, Str: value}
	return tok, nil
}
