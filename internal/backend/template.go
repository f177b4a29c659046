package backend

import (
	"path"
	"strings"

	"github.com/starford/flexdir/internal/apperr"
	"github.com/starford/flexdir/internal/codec"
)

// KeyPlaceholder marks the record key inside a storage path.
const KeyPlaceholder = "{key}"

// Template is a parsed folder storage path.
//
//	data/contacts/{key}.md          flat:      data/contacts/<key>.md
//	data/contacts/{key}/item.md     per-entry: data/contacts/<key>/item.md
//	data/contacts/{key}/{key}.md    per-entry: data/contacts/<key>/<key>.md
type Template struct {
	Raw      string
	Dir      string // static folder holding every record
	PerEntry bool
	Base     string // per-entry file name without extension; "" means the key
	Ext      string
}

// ParseTemplate splits raw at its first key placeholder. The extension
// falls back to the format's when the template has none.
func ParseTemplate(typ, raw string, format codec.Format) (Template, error) {
	idx := strings.Index(raw, KeyPlaceholder)
	if idx < 0 {
		return Template{}, apperr.Configf(typ, "storage path %q has no %s placeholder", raw, KeyPlaceholder)
	}
	prefix, suffix := raw[:idx], raw[idx+len(KeyPlaceholder):]
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		return Template{}, apperr.Configf(typ, "storage path %q: placeholder must start a path segment", raw)
	}

	t := Template{Raw: raw, Dir: path.Clean(strings.TrimSuffix(prefix, "/")), Ext: format.Ext()}
	if prefix == "" {
		t.Dir = "."
	}

	switch {
	case suffix == "":
	case !strings.Contains(suffix, "/"):
		if !strings.HasPrefix(suffix, ".") || strings.Contains(suffix[1:], ".") {
			return Template{}, apperr.Configf(typ, "storage path %q: unsupported suffix %q", raw, suffix)
		}
		t.Ext = suffix[1:]
	default:
		rest := strings.TrimPrefix(suffix, "/")
		if !strings.HasPrefix(suffix, "/") || strings.Contains(rest, "/") {
			return Template{}, apperr.Configf(typ, "storage path %q: records may nest one folder deep only", raw)
		}
		t.PerEntry = true
		if ext := path.Ext(rest); ext != "" {
			t.Ext = ext[1:]
			rest = strings.TrimSuffix(rest, ext)
		}
		if rest != KeyPlaceholder {
			t.Base = rest
		}
	}
	if t.Ext == "" {
		return Template{}, apperr.Configf(typ, "storage path %q: cannot tell the file extension", raw)
	}
	return t, nil
}

// basename returns the record file name for key without language or
// extension.
func (t Template) basename(key string) string {
	if !t.PerEntry || t.Base == "" {
		return key
	}
	return t.Base
}

// folder returns the folder holding key's files.
func (t Template) folder(key string) string {
	if t.PerEntry {
		return path.Join(t.Dir, key)
	}
	return t.Dir
}

// File returns the record file for key in lang ("" for unsuffixed).
func (t Template) File(key, lang string) string {
	name := t.basename(key)
	if lang != "" {
		name += "." + lang
	}
	return path.Join(t.folder(key), name+"."+t.Ext)
}

// splitName breaks a file name into basename, language suffix and
// extension. Only suffixes accepted by known count as a language.
func splitName(name string, known func(string) bool) (base, lang, ext string) {
	ext = path.Ext(name)
	if ext == "" {
		return name, "", ""
	}
	stem := strings.TrimSuffix(name, ext)
	ext = ext[1:]
	if l := path.Ext(stem); l != "" && known(l[1:]) {
		return strings.TrimSuffix(stem, l), l[1:], ext
	}
	return stem, "", ext
}
