// Package feature answers which optional build behaviors are enabled.
package feature

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Well-known feature names.
const (
	// Fetch enables source acquisition of the vendored tree.
	Fetch = "fetch"
	// Build enables the native build instead of trusting ./lib.
	Build = "build"
)

// EnvPrefix is the environment prefix that marks a feature as enabled.
const EnvPrefix = "UIBUILD_FEATURE_"

// Set is a read-only set of enabled features.
type Set struct {
	names map[string]struct{}
}

// FromEnviron collects every variable named prefix+NAME in environ.
// The value is ignored: presence enables the feature.
func FromEnviron(environ []string, prefix string) Set {
	s := Set{names: map[string]struct{}{}}
	for _, kv := range environ {
		k, _, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, prefix) {
			continue
		}
		if name := Normalize(strings.TrimPrefix(k, prefix)); name != "" {
			s.names[name] = struct{}{}
		}
	}
	return s
}

// Of returns a set holding names.
func Of(names ...string) Set {
	s := Set{names: map[string]struct{}{}}
	for _, n := range names {
		if n = Normalize(n); n != "" {
			s.names[n] = struct{}{}
		}
	}
	return s
}

// Parse splits a comma or space separated list of feature names.
func Parse(list string) Set {
	return Of(strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})...)
}

// Union returns a new set holding the features of s and o.
func (s Set) Union(o Set) Set {
	out := Set{names: make(map[string]struct{}, len(s.names)+len(o.names))}
	for n := range s.names {
		out.names[n] = struct{}{}
	}
	for n := range o.names {
		out.names[n] = struct{}{}
	}
	return out
}

// Enabled reports whether the named feature is present.
func (s Set) Enabled(name string) bool {
	_, ok := s.names[Normalize(name)]
	return ok
}

// Names returns the normalized feature names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s.names))
	for n := range s.names {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Normalize upper-cases name and collapses every run of '-', '.', '_'
// and whitespace into a single '_'.
func Normalize(name string) string {
	name = cases.Upper(language.Und).String(name)
	var b strings.Builder
	sep := false
	for _, r := range name {
		switch r {
		case '-', '.', '_', ' ', '\t':
			sep = true
			continue
		}
		if sep && b.Len() > 0 {
			b.WriteByte('_')
		}
		sep = false
		b.WriteRune(r)
	}
	return b.String()
}
