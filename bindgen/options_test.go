package bindgen

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.True(t, opts.Builtins)
	assert.False(t, opts.FailOnUnknownType)
	assert.Empty(t, opts.OverrideEnumType)
	assert.Empty(t, opts.ClangArgs)
	assert.Empty(t, opts.MatchPatterns)
	assert.Empty(t, opts.Links)
}

func TestParseLinkKind(t *testing.T) {
	cases := map[string]struct {
		kind LinkKind
		ok   bool
	}{
		"static":    {LinkStatic, true},
		"dynamic":   {LinkDynamic, true},
		"framework": {LinkFramework, true},
		"Static":    {0, false},
		"":          {0, false},
	}

	for s, tt := range cases {
		t.Run(s, func(t *testing.T) {
			kind, ok := ParseLinkKind(s)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.kind, kind)
				assert.Equal(t, s, kind.String())
			}
		})
	}
}

func TestOptionsJSON(t *testing.T) {
	opts := DefaultOptions()
	opts.Links = append(opts.Links, Link{Name: "z", Kind: LinkStatic})

	b, err := json.Marshal(opts)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"builtins": true,
		"fail_on_unknown_type": false,
		"clang_args": null,
		"match_pat": null,
		"links": [{"name": "z", "kind": "static"}]
	}`, string(b))
	assert.Equal(t, "static=z", opts.Links[0].String())
}
