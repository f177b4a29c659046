// Package locator maps logical storage paths such as user://data/contacts
// to paths relative to the data root.
package locator

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

// DefaultScheme is the stream every blueprint path may use.
const DefaultScheme = "user"

// Locator resolves scheme-prefixed paths. It is immutable after New.
type Locator struct {
	schemes map[string]string
}

// New builds a Locator from scheme → folder pairs. Folders are relative to
// the data root. The user scheme maps to the root unless overridden.
func New(locations map[string]string) *Locator {
	schemes := map[string]string{DefaultScheme: "."}
	for scheme, dir := range locations {
		schemes[strings.ToLower(scheme)] = path.Clean(strings.TrimPrefix(dir, "/"))
	}
	return &Locator{schemes: schemes}
}

// Resolve turns a logical path into a clean root-relative path. Paths
// without a scheme are taken as already relative to the root.
func (l *Locator) Resolve(uri string) (string, error) {
	scheme, rest, ok := strings.Cut(uri, "://")
	base := "."
	if ok {
		dir, known := l.schemes[strings.ToLower(scheme)]
		if !known {
			return "", fmt.Errorf("locator: unknown scheme %q in %s", scheme, uri)
		}
		base = dir
	} else {
		rest = uri
	}
	if path.IsAbs(rest) && !ok {
		return "", fmt.Errorf("locator: absolute path %s", uri)
	}
	resolved := path.Join(base, strings.TrimPrefix(rest, "/"))
	if resolved == ".." || strings.HasPrefix(resolved, "../") {
		return "", fmt.Errorf("locator: %s escapes the data root", uri)
	}
	return resolved, nil
}

// Schemes lists the registered schemes, sorted.
func (l *Locator) Schemes() []string {
	out := make([]string, 0, len(l.schemes))
	for s := range l.schemes {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
