// Package modeval implements the pure string-transform modifiers (prefix,
// suffix, quote, cut-extension, last-extension, extension-filter, set-env,
// key-value): the part of a transformation's effect that depends only on
// its operands, evaluated by the renderer. The pre-evaluator does not fold
// pure modifiers and does not call this package.
package modeval

import (
	"path"
	"strings"
)

// Quote wraps s in double quotes so it renders as one shell argument even
// if it contains spaces.
func Quote(s string) string { return `"` + s + `"` }

// Prefix prepends pfx to every value in vs.
func Prefix(pfx string, vs []string) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = pfx + v
	}
	return out
}

// Suffix appends sfx to every value in vs.
func Suffix(sfx string, vs []string) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v + sfx
	}
	return out
}

// CutExtension removes the last "."-delimited extension from every value.
func CutExtension(vs []string) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		ext := path.Ext(v)
		out[i] = strings.TrimSuffix(v, ext)
	}
	return out
}

// LastExtension returns just the last "."-delimited extension (including
// the leading dot) of every value.
func LastExtension(vs []string) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = path.Ext(v)
	}
	return out
}

// ExtensionFilter keeps only the values whose extension equals ext
// (compared without a leading dot on either side).
func ExtensionFilter(ext string, vs []string) []string {
	ext = strings.TrimPrefix(ext, ".")
	var out []string
	for _, v := range vs {
		if strings.TrimPrefix(path.Ext(v), ".") == ext {
			out = append(out, v)
		}
	}
	return out
}

// SetEnv renders a "KEY=VALUE" environment assignment fragment.
func SetEnv(key, val string) string { return key + "=" + val }

// KeyValue renders a "key=value" fragment (distinct spelling from SetEnv in
// the original grammar, identical shape).
func KeyValue(key, val string) string { return key + "=" + val }
