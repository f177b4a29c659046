// Package language provides the active-language resolver and the list of
// configured languages.
package language

import (
	"regexp"
	"slices"
)

// Resolver answers which language is active and which exist.
type Resolver interface {
	// Active returns the current language code, or "" when none is set.
	Active() string
	// Default returns the language stored in unsuffixed files.
	Default() string
	// Languages returns every configured language code.
	Languages() []string
}

var codePattern = regexp.MustCompile(`^[a-z]{2,3}(-[A-Za-z0-9]{2,8})?$`)

// IsCode reports whether s looks like a language code (en, de, pt-BR).
func IsCode(s string) bool {
	return codePattern.MatchString(s)
}

// Static is a Resolver fixed at construction.
type Static struct {
	active    string
	def       string
	languages []string
}

// NewStatic returns a Resolver. The default language falls back to the
// first configured one; the active language is added to the list when
// missing.
func NewStatic(active, def string, languages []string) *Static {
	langs := slices.Clone(languages)
	if def == "" && len(langs) > 0 {
		def = langs[0]
	}
	if active != "" && !slices.Contains(langs, active) {
		langs = append(langs, active)
	}
	return &Static{active: active, def: def, languages: langs}
}

// None is a Resolver for a site without languages.
func None() *Static { return &Static{} }

func (s *Static) Active() string      { return s.active }
func (s *Static) Default() string     { return s.def }
func (s *Static) Languages() []string { return slices.Clone(s.languages) }

// WithActive returns a copy of s with a different active language.
func (s *Static) WithActive(active string) *Static {
	return NewStatic(active, s.def, s.languages)
}

// AcceptsDefault reports whether files without a language suffix belong to
// the active language under r.
func AcceptsDefault(r Resolver) bool {
	active := r.Active()
	return active == "" || active == r.Default()
}
