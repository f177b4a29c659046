package backend

import (
	"errors"
	"io/fs"
	"path"
	"slices"
	"sort"
	"strings"

	"github.com/starford/flexdir/internal/apperr"
	"github.com/starford/flexdir/internal/codec"
	"github.com/starford/flexdir/internal/language"
	"github.com/starford/flexdir/internal/schema"
	"github.com/starford/flexdir/internal/storage"
)

// FolderOptions configures a Folder backend.
type FolderOptions struct {
	Type     string // directory type, for error messages
	Template string // root-relative storage path with a {key} placeholder
	Format   codec.Format
	// HeaderFields are written to the record file; every other field goes
	// to the frontmatter sidecar. The markdown body always counts as header.
	HeaderFields []string
	Languages    language.Resolver
}

// Folder stores one file set per record below a common folder.
type Folder struct {
	store  storage.Provider
	tpl    Template
	codec  codec.Codec
	data   codec.Codec
	langs  language.Resolver
	header map[string]bool

	loaded []Entry
}

// NewFolder builds a folder backend. An unknown format or a malformed path
// template is a ConfigError.
func NewFolder(store storage.Provider, opts FolderOptions) (*Folder, error) {
	c, err := codec.For(opts.Format)
	if err != nil {
		return nil, &apperr.ConfigError{Type: opts.Type, Msg: "storage format", Err: err}
	}
	dc, err := codec.For(opts.Format.DataFormat())
	if err != nil {
		return nil, &apperr.ConfigError{Type: opts.Type, Msg: "frontmatter format", Err: err}
	}
	tpl, err := ParseTemplate(opts.Type, opts.Template, opts.Format)
	if err != nil {
		return nil, err
	}
	langs := opts.Languages
	if langs == nil {
		langs = language.None()
	}
	header := map[string]bool{codec.BodyField: true}
	for _, f := range opts.HeaderFields {
		header[f] = true
	}
	return &Folder{store: store, tpl: tpl, codec: c, data: dc, langs: langs, header: header}, nil
}

func (f *Folder) Path() string       { return f.tpl.Raw }
func (f *Folder) Root() string       { return f.tpl.Dir }
func (f *Folder) Template() Template { return f.tpl }
func (f *Folder) frontmatterFile(key string) string {
	return path.Join(f.tpl.folder(key), FrontmatterName+"."+f.data.Format().Ext())
}

// MediaDir returns the folder that holds key's co-located files.
func (f *Folder) MediaDir(key string) (string, bool) {
	if !f.tpl.PerEntry {
		return "", false
	}
	return f.tpl.folder(key), true
}

// IsMedia reports whether name is neither a record variant nor the
// frontmatter sidecar of key.
func (f *Folder) IsMedia(key, name string) bool {
	if name == "" || strings.HasPrefix(name, ".") || path.Base(name) != name {
		return false
	}
	base, _, ext := splitName(name, f.isLanguage)
	return base != FrontmatterName && !(base == f.tpl.basename(key) && ext == f.tpl.Ext)
}

// candidate is a file that may hold a record for the active language.
type candidate struct {
	key    string
	file   string
	folder string // set when the record owns a folder
	score  int
}

// Load enumerates up to two levels below the template folder and decodes
// the variant of each record that belongs to the active language. Variants
// of other languages are skipped.
func (f *Folder) Load() ([]Entry, error) {
	if f.loaded != nil {
		return cloneEntries(f.loaded), nil
	}

	items, err := f.store.List(f.tpl.Dir)
	if err != nil {
		return nil, err
	}

	best := map[string]candidate{}
	consider := func(c candidate) {
		if cur, ok := best[c.key]; !ok || c.score > cur.score {
			best[c.key] = c
		}
	}

	for _, it := range items {
		if !it.IsDir {
			base, lang, ext := splitName(it.Name, f.isLanguage)
			if ext != f.tpl.Ext || base == FrontmatterName || !f.accepts(lang) {
				continue
			}
			consider(candidate{
				key:   base,
				file:  path.Join(f.tpl.Dir, it.Name),
				score: rank(!f.tpl.PerEntry, lang),
			})
			continue
		}

		dir := path.Join(f.tpl.Dir, it.Name)
		children, err := f.store.List(dir)
		if err != nil {
			return nil, err
		}
		want := f.tpl.basename(it.Name)
		for _, ch := range children {
			if ch.IsDir {
				continue
			}
			base, lang, ext := splitName(ch.Name, f.isLanguage)
			if ext != f.tpl.Ext || base != want || !f.accepts(lang) {
				continue
			}
			consider(candidate{
				key:    it.Name,
				file:   path.Join(dir, ch.Name),
				folder: dir,
				score:  rank(f.tpl.PerEntry, lang),
			})
		}
	}

	keys := make([]string, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		fields, err := f.read(best[k])
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{Key: k, Fields: fields})
	}
	f.loaded = out
	return cloneEntries(out), nil
}

// isLanguage reports whether s is a configured or the active language. Any
// other dot segment belongs to the key.
func (f *Folder) isLanguage(s string) bool {
	if s == "" {
		return false
	}
	return s == f.langs.Active() || slices.Contains(f.langs.Languages(), s)
}

// accepts reports whether a file with the given language suffix belongs
// to the active language.
func (f *Folder) accepts(lang string) bool {
	if lang == "" {
		return language.AcceptsDefault(f.langs)
	}
	return lang == f.langs.Active()
}

// rank orders competing files for one key: files in the configured layout
// beat the other layout, then a language-specific file beats the default.
func rank(native bool, lang string) int {
	score := 0
	if native {
		score += 2
	}
	if lang != "" {
		score++
	}
	return score
}

func (f *Folder) read(c candidate) (map[string]any, error) {
	data, err := f.store.Read(c.file)
	if err != nil {
		return nil, err
	}
	fields, err := decode(f.codec, c.file, data)
	if err != nil {
		return nil, err
	}
	if c.folder == "" {
		return fields, nil
	}

	front := path.Join(c.folder, FrontmatterName+"."+f.data.Format().Ext())
	raw, err := f.store.Read(front)
	switch {
	case err == nil:
		extra, err := decode(f.data, front, raw)
		if err != nil {
			return nil, err
		}
		fields = schema.Merge(schema.MergeOverride, extra, fields)
	case !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}

	media, err := f.media(c.folder, c.key)
	if err != nil {
		return nil, err
	}
	if len(media) > 0 {
		fields[MediaField] = media
	}
	return fields, nil
}

// media lists the files in a record folder that are neither record
// variants nor the frontmatter sidecar.
func (f *Folder) media(dir, key string) ([]any, error) {
	children, err := f.store.List(dir)
	if err != nil {
		return nil, err
	}
	var out []any
	for _, ch := range children {
		if ch.IsDir || !f.IsMedia(key, ch.Name) {
			continue
		}
		out = append(out, map[string]any{
			"name": ch.Name,
			"path": path.Join(dir, ch.Name),
		})
	}
	return out, nil
}

// SaveEntry writes one record. In the per-entry layout the fields are split
// between the record file and the frontmatter sidecar. Languages other than
// the one just written get an empty placeholder file when they have none.
func (f *Folder) SaveEntry(key string, fields map[string]any) error {
	f.loaded = nil

	header := make(map[string]any, len(fields))
	front := map[string]any{}
	for k, v := range fields {
		switch {
		case k == MediaField:
		case !f.tpl.PerEntry || f.header[k]:
			header[k] = v
		default:
			front[k] = v
		}
	}

	if f.tpl.PerEntry {
		data, err := f.data.Encode(front)
		if err != nil {
			return err
		}
		if err := f.store.Write(f.frontmatterFile(key), data); err != nil {
			return err
		}
	}

	data, err := f.codec.Encode(header)
	if err != nil {
		return err
	}
	active := f.langs.Active()
	if err := f.store.Write(f.tpl.File(key, active), data); err != nil {
		return err
	}

	for _, lang := range f.langs.Languages() {
		// With no active language the unsuffixed file already holds the
		// default language.
		if lang == active || (active == "" && lang == f.langs.Default()) {
			continue
		}
		p := f.tpl.File(key, lang)
		ok, err := f.store.Exists(p)
		if err != nil {
			return err
		}
		if !ok {
			if err := f.store.Write(p, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// DeleteEntry removes the record folder, or in the flat layout every
// language variant of the record file. Missing files are ignored.
func (f *Folder) DeleteEntry(key string) error {
	f.loaded = nil
	if f.tpl.PerEntry {
		return f.store.DeleteAll(f.tpl.folder(key))
	}
	langs := append([]string{""}, f.langs.Languages()...)
	if a := f.langs.Active(); a != "" && !slices.Contains(langs, a) {
		langs = append(langs, a)
	}
	for _, lang := range langs {
		if err := f.store.Delete(f.tpl.File(key, lang)); err != nil {
			return err
		}
	}
	return nil
}
