package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmorganca/bindgen/bindgen"
)

func TestBinderPositionalShorthand(t *testing.T) {
	opts := bindgen.DefaultOptions()
	b := NewBinder(opts)

	require.NoError(t, b.Visit("", StrValue("-I /usr/include")))
	assert.Equal(t, []string{"-I", "/usr/include"}, opts.ClangArgs)
	assert.False(t, b.seenNamed)

	require.NoError(t, b.Visit("", StrValue("-DX")))
	assert.Equal(t, []string{"-I", "/usr/include", "-DX"}, opts.ClangArgs)
}

func TestBinderSeenNamedIsSticky(t *testing.T) {
	opts := bindgen.DefaultOptions()
	b := NewBinder(opts)

	// a rejected named argument still counts
	assert.ErrorIs(t, b.Visit("nope", UintValue(1)), ErrInvalidArgument)
	assert.True(t, b.seenNamed)

	assert.ErrorIs(t, b.Visit("", StrValue("-DX")), ErrInvalidArgument)
	require.NoError(t, b.Visit("match", StrValue("x.h")))
	assert.ErrorIs(t, b.Visit("", StrValue("-DY")), ErrInvalidArgument)
	assert.True(t, b.seenNamed)
	assert.Empty(t, opts.ClangArgs)
}

func TestBinderTable(t *testing.T) {
	cases := []struct {
		name  string
		value Value
		ok    bool
	}{
		{"link", StrValue("z"), true},
		{"match", StrValue("z.h"), true},
		{"clang_args", StrValue("-x c"), true},
		{"enum_type", StrValue("u8"), true},
		{"allow_unknown_types", BoolValue(true), true},
		{"builtins", BoolValue(false), true},
		{"", StrValue("-DX"), true},

		{"bogus", StrValue("x"), false},
		{"builtins", StrValue("x"), false},
		{"match", BoolValue(true), false},
		{"", BoolValue(true), false},
		{"builtins", IntValue(1), false},
		{"builtins", UintValue(1), false},
		{"", IntValue(-1), false},
		{"", UintValue(1), false},
		{"builtins", IdentValue("yes"), false},
		{"", IdentValue("yes"), false},
		{"link", StrValue("weak=z"), false},
		{"link", StrValue("static=z=y"), false},
	}

	for _, tt := range cases {
		t.Run(tt.name+"="+tt.value.String(), func(t *testing.T) {
			err := NewBinder(bindgen.DefaultOptions()).Visit(tt.name, tt.value)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidArgument)
			}
		})
	}
}

func TestBinderRejectionLeavesOptions(t *testing.T) {
	opts := bindgen.DefaultOptions()
	b := NewBinder(opts)

	require.NoError(t, b.Visit("link", StrValue("static=a")))
	require.Error(t, b.Visit("link", StrValue("bogus=b")))
	require.NoError(t, b.Visit("link", StrValue("framework=c")))

	assert.Equal(t, []bindgen.Link{
		{Name: "a", Kind: bindgen.LinkStatic},
		{Name: "c", Kind: bindgen.LinkFramework},
	}, opts.Links)
}

func TestParseLink(t *testing.T) {
	cases := []struct {
		val    string
		expect bindgen.Link
		ok     bool
	}{
		{"mylib", bindgen.Link{Name: "mylib", Kind: bindgen.LinkDynamic}, true},
		{"static=mylib", bindgen.Link{Name: "mylib", Kind: bindgen.LinkStatic}, true},
		{"dynamic=mylib", bindgen.Link{Name: "mylib", Kind: bindgen.LinkDynamic}, true},
		{"framework=Cocoa", bindgen.Link{Name: "Cocoa", Kind: bindgen.LinkFramework}, true},
		{"", bindgen.Link{Name: "", Kind: bindgen.LinkDynamic}, true},
		{"bogus=mylib", bindgen.Link{}, false},
		{"a=b=c", bindgen.Link{}, false},
	}

	for _, tt := range cases {
		t.Run(tt.val, func(t *testing.T) {
			link, err := parseLink(tt.val)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expect, link)
		})
	}
}
