// SPDX-License-Identifier: MPL-2.0

// Package deploy provides the environment activation backends: wrappers
// that rewrite a command string so it runs inside a module-loaded
// toolchain, a conda environment, or a container image.
package deploy

import (
	"mvdan.cc/sh/v3/syntax"
)

// quote returns s as a single shell word, safe to interpolate into a
// command line. Strings that cannot be represented (embedded NUL) fall back
// to single-quoting with the NUL dropped by the shell.
func quote(s string) string {
	q, err := syntax.Quote(s, syntax.LangBash)
	if err != nil {
		return "'" + s + "'"
	}
	return q
}
