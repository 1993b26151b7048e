package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenKind identifies the category of a lexed token.
type TokenKind int

const (
	EOF TokenKind = iota // end of the argument list

	IDENT   // name or keyword, including true and false
	LITERAL // string, byte string, char, byte, integer or float literal

	EQ       // =
	COMMA    // ,
	BANG     // !
	PATHSEP  // ::
	MINUS    // -
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]
	LBRACE   // {
	RBRACE   // }
	PUNCT    // any other operator or punctuation
)

var tokenNames = [...]string{
	EOF:      "end of input",
	IDENT:    "identifier",
	LITERAL:  "literal",
	EQ:       "'='",
	COMMA:    "','",
	BANG:     "'!'",
	PATHSEP:  "'::'",
	MINUS:    "'-'",
	LPAREN:   "'('",
	RPAREN:   "')'",
	LBRACKET: "'['",
	RBRACKET: "']'",
	LBRACE:   "'{'",
	RBRACE:   "'}'",
	PUNCT:    "punctuation",
}

func (k TokenKind) String() string {
	if int(k) < len(tokenNames) {
		return tokenNames[k]
	}
	return "TokenKind(" + strconv.Itoa(int(k)) + ")"
}

// closer returns the kind closing an opening delimiter.
func (k TokenKind) closer() (TokenKind, bool) {
	switch k {
	case LPAREN:
		return RPAREN, true
	case LBRACKET:
		return RBRACKET, true
	case LBRACE:
		return RBRACE, true
	}
	return EOF, false
}

func (k TokenKind) isCloser() bool {
	return k == RPAREN || k == RBRACKET || k == RBRACE
}

// Pos is a location in the source text. Line and Col are 1-based, Col counts
// runes.
type Pos struct {
	Offset int
	Line   int
	Col    int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Span covers the half open byte range [Start.Offset, End.Offset).
type Span struct {
	Start, End Pos
}

func (s Span) String() string {
	return s.Start.String()
}

func (s Span) Len() int {
	return s.End.Offset - s.Start.Offset
}

// To returns the span from the start of s to the end of other.
func (s Span) To(other Span) Span {
	return Span{Start: s.Start, End: other.End}
}

type LitKind int

const (
	LitStr LitKind = iota
	LitByteStr
	LitChar
	LitByte
	LitInt
	LitFloat
	LitBool
)

func (k LitKind) String() string {
	switch k {
	case LitStr:
		return "string"
	case LitByteStr:
		return "byte string"
	case LitChar:
		return "character"
	case LitByte:
		return "byte"
	case LitInt:
		return "integer"
	case LitFloat:
		return "float"
	case LitBool:
		return "boolean"
	default:
		return "LitKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Lit is the decoded value of a literal token.
type Lit struct {
	Kind LitKind

	// Str holds the decoded contents of string, byte string, char and byte
	// literals.
	Str   string
	Int   uint64
	Float float64
	Bool  bool

	// Suffix is the type suffix of a numeric literal, e.g. "u8" or "i64".
	Suffix string
}

// Signed reports whether an integer literal carries a signed type suffix.
// Unsuffixed integers are unsigned.
func (l Lit) Signed() bool {
	return l.Kind == LitInt && strings.HasPrefix(l.Suffix, "i")
}

// Text renders the literal the way concat! joins it.
func (l Lit) Text() string {
	switch l.Kind {
	case LitStr, LitChar:
		return l.Str
	case LitInt:
		if l.Signed() {
			return strconv.FormatInt(int64(l.Int), 10)
		}
		return strconv.FormatUint(l.Int, 10)
	case LitFloat:
		return strconv.FormatFloat(l.Float, 'f', -1, 64)
	case LitBool:
		return strconv.FormatBool(l.Bool)
	default:
		return l.Str
	}
}

type Token struct {
	Kind TokenKind
	// Text is the token exactly as written in the source.
	Text string
	Lit  Lit
	Span Span
}

func (t Token) String() string {
	if t.Kind == EOF {
		return t.Kind.String()
	}
	return fmt.Sprintf("%s %q", t.Kind, t.Text)
}

// TokenStream is a cursor over a token slice that always ends in EOF.
type TokenStream struct {
	toks []Token
	pos  int
}

// NewTokenStream wraps toks, appending an EOF token if toks does not already
// end with one.
func NewTokenStream(toks []Token) *TokenStream {
	if len(toks) == 0 || toks[len(toks)-1].Kind != EOF {
		var end Pos
		if len(toks) > 0 {
			end = toks[len(toks)-1].Span.End
		} else {
			end = Pos{Line: 1, Col: 1}
		}
		toks = append(toks[:len(toks):len(toks)], Token{Kind: EOF, Span: Span{Start: end, End: end}})
	}

	return &TokenStream{toks: toks}
}

// Peek returns the current token without consuming it.
func (ts *TokenStream) Peek() Token {
	return ts.PeekN(0)
}

// PeekN returns the token n places after the current one. Looking past the
// end yields EOF.
func (ts *TokenStream) PeekN(n int) Token {
	if i := ts.pos + n; i < len(ts.toks) {
		return ts.toks[i]
	}
	return ts.toks[len(ts.toks)-1]
}

// Next consumes and returns the current token. EOF is never consumed.
func (ts *TokenStream) Next() Token {
	tok := ts.toks[ts.pos]
	if tok.Kind != EOF {
		ts.pos++
	}
	return tok
}

// rest returns the unconsumed tokens, not including the final EOF.
func (ts *TokenStream) rest() []Token {
	return ts.toks[ts.pos : len(ts.toks)-1]
}

// skip consumes n tokens.
func (ts *TokenStream) skip(n int) {
	ts.pos = min(ts.pos+n, len(ts.toks)-1)
}

// Expr returns the tokens of the expression starting at the current token:
// everything up to, not including, the next comma, closing delimiter or EOF
// that is not nested inside a delimiter. The tokens are consumed.
func (ts *TokenStream) Expr() []Token {
	start := ts.pos
	depth := 0
	for {
		tok := ts.toks[ts.pos]
		switch {
		case tok.Kind == EOF:
			return ts.toks[start:ts.pos]
		case depth == 0 && (tok.Kind == COMMA || tok.Kind.isCloser()):
			return ts.toks[start:ts.pos]
		case tok.Kind.isCloser():
			depth--
		default:
			if _, ok := tok.Kind.closer(); ok {
				depth++
			}
		}
		ts.pos++
	}
}
