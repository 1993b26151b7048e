package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmorganca/bindgen/bindgen"
)

var ErrInvalidArgument = errors.New("invalid argument")

// Visitor receives each argument of a list in order. A non-nil error
// rejects the argument; parsing carries on with the next one.
type Visitor interface {
	Visit(name string, v Value) error
}

// Binder applies arguments to a bindgen.Options.
type Binder struct {
	opts *bindgen.Options

	// seenNamed is set by the first named argument and never cleared.
	// Positional strings are only allowed before it.
	seenNamed bool
}

func NewBinder(opts *bindgen.Options) *Binder {
	return &Binder{opts: opts}
}

func (b *Binder) Visit(name string, v Value) error {
	if name != "" {
		b.seenNamed = true
	}

	switch v.Kind {
	case ValueStr:
		if name == "" {
			if b.seenNamed {
				return fmt.Errorf("%w: positional string %s must come before named arguments", ErrInvalidArgument, v)
			}
			name = "clang_args"
		}
		return b.visitStr(name, v.Str)
	case ValueBool:
		switch name {
		case "allow_unknown_types":
			b.opts.FailOnUnknownType = !v.Bool
		case "builtins":
			b.opts.Builtins = v.Bool
		default:
			return unknownOption(name, v)
		}
		return nil
	case ValueInt, ValueUint, ValueIdent:
		return unknownOption(name, v)
	default:
		return fmt.Errorf("%w: unsupported value %s", ErrInvalidArgument, v)
	}
}

func (b *Binder) visitStr(name, val string) error {
	switch name {
	case "link":
		link, err := parseLink(val)
		if err != nil {
			return err
		}
		b.opts.Links = append(b.opts.Links, link)
	case "match":
		b.opts.MatchPatterns = append(b.opts.MatchPatterns, val)
	case "clang_args":
		b.opts.ClangArgs = append(b.opts.ClangArgs, SplitArgs(val)...)
	case "enum_type":
		b.opts.OverrideEnumType = val
	default:
		return unknownOption(name, StrValue(val))
	}
	return nil
}

// parseLink reads a link specifier: either a bare library name, linked
// dynamically, or kind=name.
func parseLink(val string) (bindgen.Link, error) {
	parts := strings.Split(val, "=")
	switch len(parts) {
	case 1:
		return bindgen.Link{Name: parts[0], Kind: bindgen.LinkDynamic}, nil
	case 2:
		kind, ok := bindgen.ParseLinkKind(parts[0])
		if !ok {
			return bindgen.Link{}, fmt.Errorf("%w: link kind must be one of \"static\", \"dynamic\", or \"framework\", got %q", ErrInvalidArgument, parts[0])
		}
		return bindgen.Link{Name: parts[1], Kind: kind}, nil
	default:
		return bindgen.Link{}, fmt.Errorf("%w: malformed link specifier %q", ErrInvalidArgument, val)
	}
}

func unknownOption(name string, v Value) error {
	if name == "" {
		return fmt.Errorf("%w: positional %s argument %s", ErrInvalidArgument, v.Kind, v)
	}
	return fmt.Errorf("%w: no %s option named %q", ErrInvalidArgument, v.Kind, name)
}
