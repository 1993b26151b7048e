// Package macro finds bindgen invocations in source files and drives a
// bindings generator with the options they carry.
package macro

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jmorganca/bindgen/bindgen"
	"github.com/jmorganca/bindgen/logutil"
	"github.com/jmorganca/bindgen/parser"
)

var (
	errUnclosedInvocation = errors.New("unclosed macro invocation")
	errMismatchedDelim    = errors.New("mismatched closing delimiter")
)

var closers = map[parser.TokenKind]parser.TokenKind{
	parser.LPAREN:   parser.RPAREN,
	parser.LBRACKET: parser.RBRACKET,
	parser.LBRACE:   parser.RBRACE,
}

// Invocation is one name!(...) call found in a source file.
type Invocation struct {
	Filename string
	Src      string

	// Span covers the whole call, from the macro name to the closing
	// delimiter. NameSpan covers the name and the bang only.
	Span     parser.Span
	NameSpan parser.Span

	// Tokens holds the arguments between the delimiters, terminated by an
	// EOF token placed at the closing delimiter.
	Tokens []parser.Token
}

// Find scans src for invocations of the macro called name. Comments, string
// literals and char literals are skipped. A call whose arguments do not lex,
// or that is never closed, ends the scan with a *parser.SyntaxError; the
// invocations found before it are still returned.
func Find(filename, src, name string) ([]Invocation, error) {
	needle := name + "!"

	var invs []Invocation
	for at := 0; at < len(src); {
		if end := skipNonCode(src, at); end > at {
			at = end
			continue
		}

		if !strings.HasPrefix(src[at:], needle) || !identBoundary(src, at) {
			at++
			continue
		}

		inv, end, err := readInvocation(filename, src, at, len(needle))
		if err != nil {
			return invs, err
		}
		if end < 0 {
			// name! not followed by a delimiter
			at += len(needle)
			continue
		}

		logutil.Trace("found invocation", "file", filename, "at", inv.Span, "tokens", len(inv.Tokens))
		invs = append(invs, inv)
		at = end
	}

	return invs, nil
}

// identBoundary reports whether offset does not continue an identifier.
func identBoundary(src string, offset int) bool {
	if offset == 0 {
		return true
	}

	r, _ := utf8.DecodeLastRuneInString(src[:offset])
	return r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// skipNonCode returns the offset just past the comment, string literal or
// char literal starting at i, or i if code starts there.
func skipNonCode(src string, i int) int {
	rest := src[i:]
	switch {
	case strings.HasPrefix(rest, "//"):
		if j := strings.IndexByte(rest, '\n'); j >= 0 {
			return i + j
		}
		return len(src)
	case strings.HasPrefix(rest, "/*"):
		return skipBlockComment(src, i)
	case rest[0] == '"':
		return skipString(src, i+1)
	case rest[0] == '\'':
		return skipChar(src, i)
	case (rest[0] == 'r' || rest[0] == 'b') && identBoundary(src, i):
		return skipPrefixed(src, i)
	}

	return i
}

// skipBlockComment skips a block comment. Block comments nest.
func skipBlockComment(src string, i int) int {
	depth := 0
	for i < len(src) {
		switch {
		case strings.HasPrefix(src[i:], "/*"):
			depth++
			i += 2
		case strings.HasPrefix(src[i:], "*/"):
			depth--
			i += 2
			if depth == 0 {
				return i
			}
		default:
			i++
		}
	}

	return len(src)
}

// skipString returns the offset past the closing quote of a string whose
// contents start at i.
func skipString(src string, i int) int {
	for i < len(src) {
		switch src[i] {
		case '\\':
			i += 2
		case '"':
			return i + 1
		default:
			i++
		}
	}

	return len(src)
}

// skipChar skips the char literal starting at i. A quote that starts a
// lifetime or a label is left alone.
func skipChar(src string, i int) int {
	j := i + 1
	if j >= len(src) {
		return i
	}

	if src[j] == '\\' {
		if j+2 >= len(src) {
			return len(src)
		}
		if k := strings.IndexByte(src[j+2:], '\''); k >= 0 {
			return j + 2 + k + 1
		}
		return len(src)
	}

	_, n := utf8.DecodeRuneInString(src[j:])
	if j+n < len(src) && src[j+n] == '\'' {
		return j + n + 1
	}

	return i
}

// skipPrefixed skips byte strings, byte chars and raw strings such as
// br#"..."#.
func skipPrefixed(src string, i int) int {
	j := i
	if src[j] == 'b' {
		j++
		if j < len(src) && src[j] == '"' {
			return skipString(src, j+1)
		}
		if j < len(src) && src[j] == '\'' {
			if end := skipChar(src, j); end > j {
				return end
			}
			return i
		}
	}

	if j >= len(src) || src[j] != 'r' {
		return i
	}
	j++

	hashes := 0
	for j < len(src) && src[j] == '#' {
		hashes++
		j++
	}
	if j >= len(src) || src[j] != '"' {
		return i
	}

	closing := `"` + strings.Repeat("#", hashes)
	if k := strings.Index(src[j+1:], closing); k >= 0 {
		return j + 1 + k + len(closing)
	}

	return len(src)
}

// readInvocation lexes the call whose name starts at offset. It returns the
// offset just past the closing delimiter, or -1 if the bang is not followed
// by a delimiter.
func readInvocation(filename, src string, offset, nameLen int) (Invocation, int, error) {
	lex := parser.NewLexerAt(src, offset)
	begin := lex.Pos()

	lex = parser.NewLexerAt(src, offset+nameLen)
	nameEnd := lex.Pos()

	open, err := lex.Next()
	if err != nil {
		return Invocation{}, -1, nil
	}

	closer, ok := closers[open.Kind]
	if !ok {
		return Invocation{}, -1, nil
	}

	var toks []parser.Token
	stack := []parser.TokenKind{closer}
	for {
		tok, err := lex.Next()
		if err != nil {
			return Invocation{}, -1, err
		}

		switch tok.Kind {
		case parser.EOF:
			span := parser.Span{Start: begin, End: nameEnd}
			return Invocation{}, -1, &parser.SyntaxError{Span: span, Msg: errUnclosedInvocation.Error(), Err: errUnclosedInvocation}
		case parser.LPAREN, parser.LBRACKET, parser.LBRACE:
			stack = append(stack, closers[tok.Kind])
		case parser.RPAREN, parser.RBRACKET, parser.RBRACE:
			if tok.Kind != stack[len(stack)-1] {
				return Invocation{}, -1, &parser.SyntaxError{Span: tok.Span, Msg: errMismatchedDelim.Error() + ": " + tok.Text, Err: errMismatchedDelim}
			}

			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				toks = append(toks, parser.Token{Kind: parser.EOF, Span: tok.Span})
				inv := Invocation{
					Filename: filename,
					Src:      src,
					Span:     parser.Span{Start: begin, End: tok.Span.End},
					NameSpan: parser.Span{Start: begin, End: nameEnd},
					Tokens:   toks,
				}
				return inv, tok.Span.End.Offset, nil
			}
		}

		toks = append(toks, tok)
	}
}

// Config carries the settings that are not part of the invocation itself.
type Config struct {
	// SearchPaths are passed to clang with -idirafter, in order.
	SearchPaths []string
	// ExtraClangArgs are appended after everything else.
	ExtraClangArgs []string
	// LookupEnv overrides the environment seen by env!.
	LookupEnv func(key string) (string, bool)
}

// Bind parses the arguments of inv into a fresh set of options. When every
// argument is accepted, the search paths, the directory of the invoking file
// and any extra clang arguments are appended to the clang arguments.
func Bind(inv Invocation, cfg Config, diags parser.Diagnostics) (*bindgen.Options, bool) {
	opts := bindgen.DefaultOptions()

	exp := parser.NewExpander()
	if cfg.LookupEnv != nil {
		exp.LookupEnv = cfg.LookupEnv
	}

	if !parser.Parse(parser.NewTokenStream(inv.Tokens), opts, exp, diags) {
		return opts, false
	}

	for _, dir := range cfg.SearchPaths {
		opts.ClangArgs = append(opts.ClangArgs, "-idirafter", dir)
	}

	if inv.Filename != "" {
		opts.ClangArgs = append(opts.ClangArgs, "-I", filepath.Dir(inv.Filename))
	}

	opts.ClangArgs = append(opts.ClangArgs, cfg.ExtraClangArgs...)
	return opts, true
}

// Run binds inv and hands the options to gen. Messages gen logs are
// reported at the macro name. The second result is false if the
// arguments were rejected or gen failed.
func Run(ctx context.Context, inv Invocation, gen bindgen.Generator, cfg Config, diags parser.Diagnostics) (string, bool) {
	opts, ok := Bind(inv, cfg, diags)
	if !ok {
		return "", false
	}

	slog.Debug("generating bindings", "file", inv.Filename, "at", inv.Span, "options", opts)

	out, err := gen.Generate(ctx, opts, diagLogger{diags: diags, span: inv.NameSpan})
	if err != nil {
		diags.Error(inv.NameSpan, fmt.Sprintf("failed to generate bindings: %v", err))
		return "", false
	}

	return out, true
}

type diagLogger struct {
	diags parser.Diagnostics
	span  parser.Span
}

func (l diagLogger) Error(msg string) {
	l.diags.Error(l.span, msg)
}

func (l diagLogger) Warn(msg string) {
	l.diags.Warn(l.span, msg)
}
