// SPDX-License-Identifier: MPL-2.0

// Package format renders command templates against caller-supplied bindings
// using Python format-string semantics ({name}, {0}, and auto-numbered {}).
package format

import (
	"errors"
	"fmt"
	"strings"

	"github.com/slongfield/pyfmt"
)

// ReservedBinding is used internally by callers assembling binding maps and
// must never appear as an explicit binding name.
const ReservedBinding = "stepout"

// ErrReservedBinding is the sentinel error wrapped by ReservedBindingError.
var ErrReservedBinding = errors.New("reserved binding name")

// ReservedBindingError is returned when a template is rendered with the
// reserved binding name supplied explicitly.
type ReservedBindingError struct {
	Name string
}

// Error implements the error interface.
func (e *ReservedBindingError) Error() string {
	return fmt.Sprintf("binding %q is reserved and not allowed in shell commands", e.Name)
}

// Unwrap returns ErrReservedBinding so callers can use errors.Is.
func (e *ReservedBindingError) Unwrap() error { return ErrReservedBinding }

// Bindings is the variable context a template is rendered against.
type Bindings map[string]any

// Merge returns a new binding map containing the receiver's entries
// overlaid with the explicit entries, explicit winning on collision.
// The receiver holds the caller's ambient values; explicit entries are
// the per-invocation overrides.
func (b Bindings) Merge(explicit Bindings) Bindings {
	merged := make(Bindings, len(b)+len(explicit))
	for k, v := range b {
		merged[k] = v
	}
	for k, v := range explicit {
		merged[k] = v
	}
	return merged
}

// Render substitutes named and positional placeholders in tmpl and strips
// surrounding whitespace from the result. Positional args fill {0}, {1}, and
// auto-numbered {} references; named references resolve against bindings.
// A nil bindings map renders positional-only templates.
func Render(tmpl string, args []any, bindings Bindings) (string, error) {
	if _, ok := bindings[ReservedBinding]; ok {
		return "", &ReservedBindingError{Name: ReservedBinding}
	}

	var out string
	var err error
	switch {
	case len(args) == 0 && len(bindings) == 0:
		out, err = pyfmt.Fmt(tmpl)
	case len(args) == 0:
		out, err = pyfmt.Fmt(tmpl, map[string]any(bindings))
	case len(bindings) == 0:
		out, err = pyfmt.Fmt(tmpl, args...)
	default:
		out, err = renderMixed(tmpl, args, bindings)
	}
	if err != nil {
		return "", fmt.Errorf("formatting command template: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// renderMixed handles templates that combine positional and named fields.
// pyfmt resolves {name} against its first argument, so one pass cannot serve
// both kinds. The positional pass goes first, with named fields
// brace-escaped so they survive it verbatim; the named pass then renders
// them with the binding map as the sole argument.
func renderMixed(tmpl string, args []any, bindings Bindings) (string, error) {
	positional, err := pyfmt.Fmt(escapeNamedFields(tmpl), args...)
	if err != nil {
		return "", err
	}
	return pyfmt.Fmt(positional, map[string]any(bindings))
}

// escapeNamedFields doubles the braces of named fields, and of existing
// brace escapes, so that a positional formatting pass emits them in their
// original form for the named pass that follows.
func escapeNamedFields(tmpl string) string {
	var b strings.Builder
	b.Grow(len(tmpl) * 2)
	for i := 0; i < len(tmpl); {
		switch c := tmpl[i]; {
		case c == '{' && i+1 < len(tmpl) && tmpl[i+1] == '{':
			b.WriteString("{{{{")
			i += 2
		case c == '}' && i+1 < len(tmpl) && tmpl[i+1] == '}':
			b.WriteString("}}}}")
			i += 2
		case c == '{':
			end := strings.IndexByte(tmpl[i:], '}')
			if end < 0 {
				b.WriteString(tmpl[i:])
				return b.String()
			}
			field := tmpl[i : i+end+1]
			if isNamedField(tmpl[i+1 : i+end]) {
				b.WriteString("{" + field + "}")
			} else {
				b.WriteString(field)
			}
			i += end + 1
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// isNamedField reports whether a field's leading element is a binding name
// rather than an automatic ({}) or explicit ({0}) positional reference.
// Conversion and spec suffixes (!r, :>8) and attribute or index access
// (.attr, [0]) do not affect the classification.
func isNamedField(inner string) bool {
	name := inner
	if idx := strings.IndexAny(name, ":!.["); idx >= 0 {
		name = name[:idx]
	}
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] < '0' || name[i] > '9' {
			return true
		}
	}
	return false
}
