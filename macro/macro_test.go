package macro

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmorganca/bindgen/bindgen"
	"github.com/jmorganca/bindgen/parser"
)

const libSrc = `use foo;

// bindgen!("ignored")
bindgen!("-DA", match="a.h");
my_bindgen!(x);
fn f() {
    let s = bindgen! [ link="z" ];
}
`

func kinds(toks []parser.Token) []parser.TokenKind {
	var out []parser.TokenKind
	for _, tok := range toks {
		out = append(out, tok.Kind)
	}
	return out
}

func TestFind(t *testing.T) {
	invs, err := Find("src/lib.rs", libSrc, "bindgen")
	require.NoError(t, err)
	require.Len(t, invs, 2)

	first := invs[0]
	assert.Equal(t, "src/lib.rs", first.Filename)
	assert.Equal(t, parser.Pos{Offset: 33, Line: 4, Col: 1}, first.NameSpan.Start)
	assert.Equal(t, parser.Pos{Offset: 41, Line: 4, Col: 9}, first.NameSpan.End)
	assert.Equal(t, len("bindgen!"), first.NameSpan.Len())
	assert.Equal(t, first.NameSpan.Start, first.Span.Start)
	assert.Equal(t, `bindgen!("-DA", match="a.h")`, libSrc[first.Span.Start.Offset:first.Span.End.Offset])
	assert.Equal(t, []parser.TokenKind{
		parser.LITERAL, parser.COMMA, parser.IDENT, parser.EQ, parser.LITERAL, parser.EOF,
	}, kinds(first.Tokens))

	second := invs[1]
	assert.Equal(t, parser.Pos{Offset: 100, Line: 7, Col: 13}, second.NameSpan.Start)
	assert.Equal(t, []parser.TokenKind{parser.IDENT, parser.EQ, parser.LITERAL, parser.EOF}, kinds(second.Tokens))

	// the closing EOF sits on the delimiter
	eof := second.Tokens[len(second.Tokens)-1]
	assert.Equal(t, "]", libSrc[eof.Span.Start.Offset:eof.Span.End.Offset])
}

func TestFindOtherName(t *testing.T) {
	invs, err := Find("lib.rs", libSrc, "my_bindgen")
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Equal(t, 5, invs[0].Span.Start.Line)
}

func TestFindNone(t *testing.T) {
	for _, src := range []string{
		"",
		"fn main() {}",
		"bindgen! foo",
		"bindgen!",
		"not_bindgen!()",
		"  // bindgen!()",
	} {
		invs, err := Find("lib.rs", src, "bindgen")
		require.NoError(t, err, src)
		assert.Empty(t, invs, src)
	}
}

func TestFindSkipsCommentsAndLiterals(t *testing.T) {
	cases := map[string]string{
		"url in string":      `let u = "http://x"; bindgen!(real);`,
		"block comment":      `/* bindgen!(x) */ bindgen!(real)`,
		"nested comment":     `/* /* */ bindgen!(x) */ bindgen!(real)`,
		"string":             `let s = "bindgen!(x)"; bindgen!(real)`,
		"escaped quote":      `let s = "\"bindgen!(x)"; bindgen!(real)`,
		"raw string":         `let s = r#"say "bindgen!(x)""#; bindgen!(real)`,
		"byte string":        `let s = b"bindgen!(x)"; bindgen!(real)`,
		"char quote":         `let c = '"'; bindgen!(real); let d = '"';`,
		"escaped char quote": `let c = '\''; bindgen!(real)`,
		"lifetime":           `fn f<'a>(x: &'a str) { bindgen!(real) }`,
		"line comment":       "// bindgen!(x) \"\nbindgen!(real)",
	}

	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			invs, err := Find("lib.rs", src, "bindgen")
			require.NoError(t, err)
			require.Len(t, invs, 1)
			assert.Equal(t, "bindgen!(real)", src[invs[0].Span.Start.Offset:invs[0].Span.End.Offset])
		})
	}
}

func TestFindErrors(t *testing.T) {
	cases := []struct {
		name  string
		src   string
		found int
		err   error
		msg   string
	}{
		{name: "unclosed", src: `bindgen!(match="a"`, err: errUnclosedInvocation},
		{name: "mismatched", src: `bindgen!(match="a"]`, err: errMismatchedDelim},
		{name: "lex error", src: "bindgen!(\"a\")\nbindgen!(\"open)", found: 1, msg: "unterminated string literal"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			invs, err := Find("lib.rs", tt.src, "bindgen")
			assert.Len(t, invs, tt.found)

			var se *parser.SyntaxError
			require.True(t, errors.As(err, &se), "got %v", err)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			}
			if tt.msg != "" {
				assert.Contains(t, se.Msg, tt.msg)
			}
		})
	}
}

func find(t *testing.T, filename, src string) Invocation {
	t.Helper()

	invs, err := Find(filename, src, "bindgen")
	require.NoError(t, err)
	require.Len(t, invs, 1)
	return invs[0]
}

func TestBind(t *testing.T) {
	inv := find(t, "/src/ffi/lib.rs", `bindgen!("-DX", match="x.h", match=concat!("y", ".h"))`)

	var diags parser.DiagnosticList
	opts, ok := Bind(inv, Config{
		SearchPaths:    []string{"/usr/include", "/opt/include"},
		ExtraClangArgs: []string{"-v"},
	}, &diags)
	require.True(t, ok, "diagnostics: %v", diags.Err())

	expect := &bindgen.Options{
		Builtins:      true,
		ClangArgs:     []string{"-DX", "-idirafter", "/usr/include", "-idirafter", "/opt/include", "-I", "/src/ffi", "-v"},
		MatchPatterns: []string{"x.h", "y.h"},
	}
	if diff := cmp.Diff(expect, opts); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestBindRelativeFile(t *testing.T) {
	inv := find(t, "lib.rs", `bindgen!()`)

	var diags parser.DiagnosticList
	opts, ok := Bind(inv, Config{}, &diags)
	require.True(t, ok)
	assert.Equal(t, []string{"-I", "."}, opts.ClangArgs)
}

func TestBindEnv(t *testing.T) {
	inv := find(t, "", `bindgen!(clang_args=env!("INC"))`)

	var diags parser.DiagnosticList
	opts, ok := Bind(inv, Config{
		LookupEnv: func(key string) (string, bool) {
			return "-I /opt/inc", key == "INC"
		},
	}, &diags)
	require.True(t, ok, "diagnostics: %v", diags.Err())
	assert.Equal(t, []string{"-I", "/opt/inc"}, opts.ClangArgs)
}

func TestBindRejected(t *testing.T) {
	inv := find(t, "/src/lib.rs", `bindgen!("-DX", bogus=1)`)

	var diags parser.DiagnosticList
	opts, ok := Bind(inv, Config{SearchPaths: []string{"/usr/include"}}, &diags)
	assert.False(t, ok)
	assert.Equal(t, []string{"-DX"}, opts.ClangArgs)
	require.Len(t, diags.Diagnostics, 1)
	assert.Equal(t, 17, diags.Diagnostics[0].Span.Start.Col)
}

type fakeGenerator struct {
	opts  *bindgen.Options
	calls int
	err   error
}

func (g *fakeGenerator) Generate(_ context.Context, opts *bindgen.Options, logger bindgen.Logger) (string, error) {
	g.calls++
	g.opts = opts
	logger.Warn("unknown type")
	if g.err != nil {
		logger.Error("giving up")
		return "", g.err
	}
	return "pub fn f();", nil
}

func TestRun(t *testing.T) {
	inv := find(t, "/src/lib.rs", "\n  bindgen!(match=\"f.h\")")

	var gen fakeGenerator
	var diags parser.DiagnosticList
	out, ok := Run(context.Background(), inv, &gen, Config{}, &diags)
	require.True(t, ok)
	assert.Equal(t, "pub fn f();", out)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, []string{"f.h"}, gen.opts.MatchPatterns)
	assert.Equal(t, []string{"-I", "/src"}, gen.opts.ClangArgs)

	require.Len(t, diags.Diagnostics, 1)
	d := diags.Diagnostics[0]
	assert.Equal(t, parser.LevelWarn, d.Level)
	assert.Equal(t, "unknown type", d.Message)
	assert.Equal(t, inv.NameSpan, d.Span)
	assert.Equal(t, parser.Pos{Offset: 3, Line: 2, Col: 3}, d.Span.Start)
	assert.Equal(t, len("bindgen!"), d.Span.Len())
}

func TestRunGeneratorFails(t *testing.T) {
	inv := find(t, "/src/lib.rs", `bindgen!()`)

	gen := fakeGenerator{err: errors.New("boom")}
	var diags parser.DiagnosticList
	out, ok := Run(context.Background(), inv, &gen, Config{}, &diags)
	assert.False(t, ok)
	assert.Empty(t, out)

	var msgs []string
	for _, d := range diags.Diagnostics {
		msgs = append(msgs, d.Level.String()+": "+d.Message)
	}
	assert.Equal(t, []string{
		"warning: unknown type",
		"error: giving up",
		"error: failed to generate bindings: boom",
	}, msgs)
}

func TestRunRejectedSkipsGenerator(t *testing.T) {
	inv := find(t, "/src/lib.rs", `bindgen!(builtins=1)`)

	var gen fakeGenerator
	var diags parser.DiagnosticList
	_, ok := Run(context.Background(), inv, &gen, Config{}, &diags)
	assert.False(t, ok)
	assert.Zero(t, gen.calls)
	assert.True(t, diags.HasErrors())
}

func TestRunGeneratorFunc(t *testing.T) {
	inv := find(t, "/src/lib.rs", `bindgen!(builtins=false)`)

	gen := bindgen.GeneratorFunc(func(_ context.Context, opts *bindgen.Options, _ bindgen.Logger) (string, error) {
		return opts.String(), nil
	})

	var diags parser.DiagnosticList
	out, ok := Run(context.Background(), inv, gen, Config{}, &diags)
	require.True(t, ok)
	assert.JSONEq(t, `{"builtins":false,"fail_on_unknown_type":false,"clang_args":["-I","/src"],"match_pat":null,"links":null}`, out)
}
