package parser

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	ErrUnknownMacro   = errors.New("cannot find macro")
	ErrExpansionDepth = errors.New("recursion limit reached while expanding")
	ErrEnvNotSet      = errors.New("environment variable not defined")

	errExpectedExpr     = errors.New("expected expression")
	errUnclosedDelim    = errors.New("unclosed delimiter")
	errMismatchedDelim  = errors.New("mismatched closing delimiter")
	errExpectedLiteral  = errors.New("expected a literal")
	errConcatByteString = errors.New("cannot concatenate a byte string literal")
)

const maxExpansionDepth = 64

type ExprKind int

const (
	// ExprLit is the only kind that carries a value.
	ExprLit ExprKind = iota
	ExprPath
	ExprUnary
	ExprGroup
	ExprOther
)

// Expr is the result of expanding an expression: either a literal or
// something that is not one.
type Expr struct {
	Kind ExprKind
	Lit  Lit
	Span Span
}

// MacroFunc expands one macro call. args holds the tokens of each
// comma-separated argument between the call's delimiters.
type MacroFunc func(e *Expander, call Span, args [][]Token) (Expr, error)

// Expander reduces expression tokens to a single expression, expanding any
// macro calls in them. Macros may call back into the Expander to expand
// their own arguments. An Expander is not safe for concurrent use.
type Expander struct {
	// LookupEnv resolves env! lookups; it defaults to os.LookupEnv.
	LookupEnv func(key string) (string, bool)

	macros map[string]MacroFunc
	depth  int
}

func NewExpander() *Expander {
	e := &Expander{
		LookupEnv: os.LookupEnv,
		macros:    make(map[string]MacroFunc),
	}
	e.Register("concat", expandConcat)
	e.Register("stringify", expandStringify)
	e.Register("env", expandEnv)
	return e
}

// Register adds or replaces the macro called name.
func (e *Expander) Register(name string, fn MacroFunc) {
	e.macros[name] = fn
}

// Expand parses toks as one expression and expands it. Tokens following a
// complete expression, such as the operators of a binary expression, make
// the result ExprOther.
func (e *Expander) Expand(toks []Token) (Expr, error) {
	if len(toks) == 0 {
		return Expr{}, &SyntaxError{Msg: errExpectedExpr.Error(), Err: errExpectedExpr}
	}

	p := &exprParser{e: e, toks: toks}
	expr, err := p.parseExpr()
	if err != nil {
		return Expr{}, err
	}

	if p.pos < len(toks) {
		if err := p.skipRest(); err != nil {
			return Expr{}, err
		}
		return Expr{Kind: ExprOther, Span: toks[0].Span.To(toks[len(toks)-1].Span)}, nil
	}

	return expr, nil
}

// expandPrefix expands the one expression at the start of toks and returns
// how many tokens it took. Binary operators, calls and indexing extend the
// expression and make it ExprOther.
func (e *Expander) expandPrefix(toks []Token) (Expr, int, error) {
	if len(toks) == 0 {
		return Expr{}, 0, &SyntaxError{Msg: errExpectedExpr.Error(), Err: errExpectedExpr}
	}

	p := &exprParser{e: e, toks: toks}
	expr, err := p.parseBinary()
	return expr, p.pos, err
}

func (e *Expander) call(name string, span Span, args [][]Token) (Expr, error) {
	fn, ok := e.macros[name]
	if !ok {
		return Expr{}, syntaxErrorf(span, ErrUnknownMacro, "`%s`", name)
	}

	if e.depth >= maxExpansionDepth {
		return Expr{}, syntaxErrorf(span, ErrExpansionDepth, "`%s!`", name)
	}
	e.depth++
	defer func() { e.depth-- }()

	expr, err := fn(e, span, args)
	if err != nil {
		var se *SyntaxError
		if errors.As(err, &se) {
			return Expr{}, err
		}
		return Expr{}, &SyntaxError{Span: span, Msg: err.Error(), Err: err}
	}

	return expr, nil
}

type exprParser struct {
	e    *Expander
	toks []Token
	pos  int
}

func (p *exprParser) peek() Token {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}

	end := p.toks[len(p.toks)-1].Span.End
	return Token{Kind: EOF, Span: Span{Start: end, End: end}}
}

func (p *exprParser) next() Token {
	tok := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return tok
}

func (p *exprParser) parseExpr() (Expr, error) {
	tok := p.next()
	switch tok.Kind {
	case LITERAL:
		return Expr{Kind: ExprLit, Lit: tok.Lit, Span: tok.Span}, nil
	case MINUS, BANG:
		inner, err := p.parseExpr()
		if err != nil {
			return Expr{}, err
		}
		return Expr{Kind: ExprUnary, Span: tok.Span.To(inner.Span)}, nil
	case PUNCT:
		if tok.Text == "*" || tok.Text == "&" {
			inner, err := p.parseExpr()
			if err != nil {
				return Expr{}, err
			}
			return Expr{Kind: ExprUnary, Span: tok.Span.To(inner.Span)}, nil
		}
	case LPAREN, LBRACKET, LBRACE:
		_, closeTok, err := p.delimited(tok)
		if err != nil {
			return Expr{}, err
		}
		return Expr{Kind: ExprGroup, Span: tok.Span.To(closeTok.Span)}, nil
	case IDENT:
		return p.parsePath(tok)
	}

	return Expr{}, syntaxErrorf(tok.Span, errExpectedExpr, "found %s", tok)
}

var binaryOps = map[string]bool{
	"+": true, "*": true, "/": true, "%": true, "^": true, "&": true, "|": true,
	"<": true, ">": true, "==": true, "!=": true, ".": true,
}

func (p *exprParser) parseBinary() (Expr, error) {
	expr, err := p.parseExpr()
	if err != nil {
		return Expr{}, err
	}

	for {
		switch tok := p.peek(); {
		case tok.Kind == MINUS || tok.Kind == PUNCT && binaryOps[tok.Text]:
			p.next()
			rhs, err := p.parseExpr()
			if err != nil {
				return Expr{}, err
			}
			expr = Expr{Kind: ExprOther, Span: expr.Span.To(rhs.Span)}
		case tok.Kind == LPAREN || tok.Kind == LBRACKET:
			p.next()
			_, closeTok, err := p.delimited(tok)
			if err != nil {
				return Expr{}, err
			}
			expr = Expr{Kind: ExprOther, Span: expr.Span.To(closeTok.Span)}
		default:
			return expr, nil
		}
	}
}

func (p *exprParser) parsePath(first Token) (Expr, error) {
	segments := []string{first.Text}
	span := first.Span
	for p.peek().Kind == PATHSEP {
		p.next()
		tok := p.next()
		if tok.Kind != IDENT {
			return Expr{}, syntaxErrorf(tok.Span, nil, "expected identifier, found %s", tok)
		}
		segments = append(segments, tok.Text)
		span = span.To(tok.Span)
	}

	if p.peek().Kind == BANG {
		p.next()
		open := p.next()
		if _, ok := open.Kind.closer(); !ok {
			return Expr{}, syntaxErrorf(open.Span, nil, "expected one of '(', '[', or '{', found %s", open)
		}

		inner, closeTok, err := p.delimited(open)
		if err != nil {
			return Expr{}, err
		}

		span = span.To(closeTok.Span)
		args, err := splitMacroArgs(inner)
		if err != nil {
			return Expr{}, err
		}

		return p.e.call(strings.Join(segments, "::"), span, args)
	}

	if len(segments) == 1 && (first.Text == "true" || first.Text == "false") {
		return Expr{Kind: ExprLit, Lit: Lit{Kind: LitBool, Bool: first.Text == "true"}, Span: span}, nil
	}

	return Expr{Kind: ExprPath, Span: span}, nil
}

// delimited consumes tokens up to the delimiter matching open, which has
// already been consumed, and returns the tokens between the two.
func (p *exprParser) delimited(open Token) ([]Token, Token, error) {
	want, _ := open.Kind.closer()
	stack := []TokenKind{want}
	start := p.pos
	for p.pos < len(p.toks) {
		tok := p.next()
		if c, ok := tok.Kind.closer(); ok {
			stack = append(stack, c)
			continue
		}

		if tok.Kind.isCloser() {
			if tok.Kind != stack[len(stack)-1] {
				return nil, Token{}, syntaxErrorf(tok.Span, errMismatchedDelim, "%s", tok.Text)
			}

			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return p.toks[start : p.pos-1], tok, nil
			}
		}
	}

	return nil, Token{}, syntaxErrorf(open.Span, errUnclosedDelim, "")
}

// skipRest checks that the tokens after a complete expression are balanced.
func (p *exprParser) skipRest() error {
	for p.pos < len(p.toks) {
		tok := p.next()
		if _, ok := tok.Kind.closer(); ok {
			if _, _, err := p.delimited(tok); err != nil {
				return err
			}
		} else if tok.Kind.isCloser() {
			return syntaxErrorf(tok.Span, nil, "unexpected closing delimiter: %s", tok.Text)
		}
	}
	return nil
}

func splitMacroArgs(inner []Token) ([][]Token, error) {
	var args [][]Token
	ts := NewTokenStream(inner)
	for ts.Peek().Kind != EOF {
		at := ts.Peek()
		arg := ts.Expr()
		if len(arg) == 0 {
			return nil, syntaxErrorf(at.Span, errExpectedExpr, "found %s", at)
		}
		args = append(args, arg)

		if ts.Peek().Kind == COMMA {
			ts.Next()
		}
	}

	return args, nil
}

func expandConcat(e *Expander, call Span, args [][]Token) (Expr, error) {
	var sb strings.Builder
	for _, arg := range args {
		expr, err := e.Expand(arg)
		if err != nil {
			return Expr{}, err
		}

		if expr.Kind != ExprLit {
			return Expr{}, syntaxErrorf(expr.Span, errExpectedLiteral, "")
		}

		if expr.Lit.Kind == LitByteStr || expr.Lit.Kind == LitByte {
			return Expr{}, syntaxErrorf(expr.Span, errConcatByteString, "")
		}

		sb.WriteString(expr.Lit.Text())
	}

	return Expr{Kind: ExprLit, Lit: Lit{Kind: LitStr, Str: sb.String()}, Span: call}, nil
}

func expandStringify(_ *Expander, call Span, args [][]Token) (Expr, error) {
	var parts []string
	for i, arg := range args {
		for _, tok := range arg {
			parts = append(parts, tok.Text)
		}
		if i < len(args)-1 {
			parts[len(parts)-1] += ","
		}
	}

	return Expr{Kind: ExprLit, Lit: Lit{Kind: LitStr, Str: strings.Join(parts, " ")}, Span: call}, nil
}

func expandEnv(e *Expander, call Span, args [][]Token) (Expr, error) {
	if len(args) != 1 && len(args) != 2 {
		return Expr{}, syntaxErrorf(call, nil, "env! takes 1 or 2 arguments")
	}

	strArg := func(toks []Token) (string, error) {
		expr, err := e.Expand(toks)
		if err != nil {
			return "", err
		}
		if expr.Kind != ExprLit || expr.Lit.Kind != LitStr {
			return "", syntaxErrorf(expr.Span, errExpectedLiteral, "expected string literal")
		}
		return expr.Lit.Str, nil
	}

	key, err := strArg(args[0])
	if err != nil {
		return Expr{}, err
	}

	val, ok := e.LookupEnv(key)
	if !ok {
		if len(args) == 2 {
			msg, err := strArg(args[1])
			if err != nil {
				return Expr{}, err
			}
			return Expr{}, &SyntaxError{Span: call, Msg: msg, Err: ErrEnvNotSet}
		}
		return Expr{}, syntaxErrorf(call, ErrEnvNotSet, "%q", key)
	}

	return Expr{Kind: ExprLit, Lit: Lit{Kind: LitStr, Str: val}, Span: call}, nil
}

// String renders the kind for diagnostics.
func (k ExprKind) String() string {
	switch k {
	case ExprLit:
		return "literal"
	case ExprPath:
		return "path"
	case ExprUnary:
		return "unary expression"
	case ExprGroup:
		return "group"
	case ExprOther:
		return "expression"
	default:
		return fmt.Sprintf("ExprKind(%d)", int(k))
	}
}
