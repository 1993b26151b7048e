package parser

import (
	"errors"

	"github.com/jmorganca/bindgen/bindgen"
)

var errInvalidFormat = errors.New("invalid argument format")

// Parse binds the argument list in ts onto opts and reports whether every
// argument was accepted. The list has the form
//
//	[name =] value (, [name =] value)* [,]
//
// where a value is an identifier or an expression that exp reduces to a
// string, boolean or integer literal.
//
// A malformed list reports one diagnostic and stops. An argument the
// options reject reports a diagnostic and parsing continues, leaving opts
// as bound by the other arguments.
func Parse(ts *TokenStream, opts *bindgen.Options, exp *Expander, diags Diagnostics) bool {
	return ParseArgs(ts, NewBinder(opts), exp, diags)
}

// ParseString lexes src and parses it with a fresh Expander.
func ParseString(src string, opts *bindgen.Options, diags Diagnostics) bool {
	toks, err := Lex(src)
	if err != nil {
		reportSyntaxError(diags, err, Span{})
		return false
	}

	return Parse(NewTokenStream(toks), opts, NewExpander(), diags)
}

// ParseArgs walks the argument list in ts, handing each argument to v.
func ParseArgs(ts *TokenStream, v Visitor, exp *Expander, diags Diagnostics) bool {
	good := true
	for ts.Peek().Kind != EOF {
		arg, err := parseArg(ts, exp)
		if err != nil {
			reportSyntaxError(diags, err, ts.Peek().Span)
			return false
		}

		if err := v.Visit(arg.Name, arg.Value); err != nil {
			diags.Error(arg.Span, err.Error())
			good = false
		}

		switch tok := ts.Peek(); tok.Kind {
		case EOF:
		case COMMA:
			ts.Next()
		default:
			diags.Error(tok.Span, errInvalidFormat.Error())
			return false
		}
	}

	return good
}

func parseArg(ts *TokenStream, exp *Expander) (Argument, error) {
	var arg Argument

	first := ts.Peek()
	if ts.PeekN(1).Kind == EQ {
		if first.Kind != IDENT {
			return arg, &SyntaxError{Span: first.Span, Msg: errInvalidFormat.Error(), Err: errInvalidFormat}
		}

		arg.Name = first.Text
		ts.Next()
		ts.Next()
	}

	value, span, err := parseValue(ts, exp)
	if err != nil {
		return arg, err
	}

	arg.Value = value
	arg.Span = first.Span.To(span)
	return arg, nil
}

// parseValue reads exactly one value. An identifier is taken on its own
// unless it starts a macro call or a path.
func parseValue(ts *TokenStream, exp *Expander) (Value, Span, error) {
	tok := ts.Peek()
	switch {
	case tok.Kind == IDENT:
		if next := ts.PeekN(1).Kind; next != BANG && next != PATHSEP {
			ts.Next()
			return identValue(tok.Text), tok.Span, nil
		}
	case tok.Kind == EOF, tok.Kind == COMMA, tok.Kind.isCloser():
		return Value{}, tok.Span, &SyntaxError{Span: tok.Span, Msg: errInvalidFormat.Error(), Err: errInvalidFormat}
	}

	toks := ts.rest()
	expr, n, err := exp.expandPrefix(toks)
	if err != nil {
		var se *SyntaxError
		if !errors.As(err, &se) {
			err = &SyntaxError{Span: tok.Span, Msg: err.Error(), Err: err}
		}
		return Value{}, tok.Span, err
	}
	ts.skip(n)

	span := tok.Span.To(toks[n-1].Span)
	if expr.Kind != ExprLit {
		return Value{}, span, &SyntaxError{Span: span, Msg: errInvalidFormat.Error(), Err: errInvalidFormat}
	}

	v, ok := litValue(expr.Lit)
	if !ok {
		return Value{}, span, &SyntaxError{Span: span, Msg: errInvalidFormat.Error(), Err: errInvalidFormat}
	}

	return v, span, nil
}

func reportSyntaxError(diags Diagnostics, err error, fallback Span) {
	var se *SyntaxError
	if errors.As(err, &se) {
		span := se.Span
		if span == (Span{}) {
			span = fallback
		}
		diags.Error(span, se.Msg)
		return
	}

	diags.Error(fallback, err.Error())
}
