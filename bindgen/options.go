// Package bindgen holds the options consumed by an external binding
// generator and the interfaces that generator is driven through.
package bindgen

import (
	"context"
	"encoding/json"
	"fmt"
)

type LinkKind int

const (
	LinkDynamic LinkKind = iota
	LinkStatic
	LinkFramework
)

func (k LinkKind) String() string {
	switch k {
	case LinkStatic:
		return "static"
	case LinkDynamic:
		return "dynamic"
	case LinkFramework:
		return "framework"
	default:
		return fmt.Sprintf("LinkKind(%d)", int(k))
	}
}

func (k LinkKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseLinkKind maps the spelling used in a link specifier to its LinkKind.
func ParseLinkKind(s string) (LinkKind, bool) {
	switch s {
	case "static":
		return LinkStatic, true
	case "dynamic":
		return LinkDynamic, true
	case "framework":
		return LinkFramework, true
	default:
		return 0, false
	}
}

type Link struct {
	Name string   `json:"name"`
	Kind LinkKind `json:"kind"`
}

func (l Link) String() string {
	return l.Kind.String() + "=" + l.Name
}

// Options is the configuration handed to a Generator. The three lists are
// only ever appended to while arguments are bound, and their order is the
// order the arguments appeared in.
type Options struct {
	Builtins          bool     `json:"builtins"`
	FailOnUnknownType bool     `json:"fail_on_unknown_type"`
	OverrideEnumType  string   `json:"override_enum_ty,omitempty"`
	ClangArgs         []string `json:"clang_args"`
	MatchPatterns     []string `json:"match_pat"`
	Links             []Link   `json:"links"`
}

func DefaultOptions() *Options {
	return &Options{Builtins: true}
}

func (o *Options) String() string {
	b, err := json.Marshal(o)
	if err != nil {
		return fmt.Sprintf("%#v", *o)
	}

	return string(b)
}

// Logger receives the messages a Generator wants surfaced to the user.
type Logger interface {
	Error(msg string)
	Warn(msg string)
}

// Generator turns a fully bound Options into generated source text.
type Generator interface {
	Generate(ctx context.Context, opts *Options, logger Logger) (string, error)
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(ctx context.Context, opts *Options, logger Logger) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, opts *Options, logger Logger) (string, error) {
	return f(ctx, opts, logger)
}
