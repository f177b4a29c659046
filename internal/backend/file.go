package backend

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"sort"

	"github.com/starford/flexdir/internal/apperr"
	"github.com/starford/flexdir/internal/codec"
	"github.com/starford/flexdir/internal/storage"
)

// File keeps a whole collection in one JSON or YAML file whose top-level
// mapping is key → fields.
type File struct {
	store storage.Provider
	path  string
	codec codec.Codec

	loaded []Entry
}

// NewFile returns a whole-file backend for the file at p.
func NewFile(store storage.Provider, typ, p string, format codec.Format) (*File, error) {
	if format == codec.Markdown {
		return nil, apperr.Configf(typ, "format %s cannot hold a whole collection", format)
	}
	c, err := codec.For(format)
	if err != nil {
		return nil, &apperr.ConfigError{Type: typ, Msg: "storage format", Err: err}
	}
	return &File{store: store, path: p, codec: c}, nil
}

func (f *File) Path() string { return f.path }
func (f *File) Root() string { return f.path }

// Load decodes the file. A missing file is an empty collection. Entries
// come back sorted by key; the decoded state is kept until the next write.
func (f *File) Load() ([]Entry, error) {
	if f.loaded != nil {
		return cloneEntries(f.loaded), nil
	}
	data, err := f.store.Read(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		f.loaded = []Entry{}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	raw, err := decode(f.codec, f.path, data)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		var fields map[string]any
		switch v := raw[k].(type) {
		case map[string]any:
			fields = v
		case nil:
			fields = map[string]any{}
		default:
			return nil, &apperr.DecodeError{
				Format: string(f.codec.Format()),
				Path:   f.path,
				Err:    fmt.Errorf("entry %q is not a mapping", k),
			}
		}
		out = append(out, Entry{Key: k, Fields: fields})
	}
	f.loaded = out
	return cloneEntries(out), nil
}

// SaveAll writes every entry in one call.
func (f *File) SaveAll(entries map[string]map[string]any) error {
	doc := make(map[string]any, len(entries))
	for k, v := range entries {
		doc[k] = v
	}
	data, err := f.codec.Encode(doc)
	if err != nil {
		return fmt.Errorf("backend: encode %s: %w", f.path, err)
	}
	f.loaded = nil
	return f.store.Write(f.path, data)
}

func cloneEntries(in []Entry) []Entry {
	out := make([]Entry, len(in))
	for i, e := range in {
		out[i] = Entry{Key: e.Key, Fields: maps.Clone(e.Fields)}
	}
	return out
}
