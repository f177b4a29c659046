package directory

import (
	"encoding/base32"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"path"
	"slices"
	"strings"
	"unicode"

	"github.com/starford/flexdir/internal/apperr"
	"github.com/starford/flexdir/internal/backend"
	"github.com/starford/flexdir/internal/codec"
	"github.com/starford/flexdir/internal/record"
	"github.com/starford/flexdir/internal/schema"
)

// keyBytes is the amount of randomness behind a generated key.
const keyBytes = 10

var keyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Type is a named record kind bound to one storage path. It starts
// Unloaded; the first operation that needs records loads the collection
// once and keeps it for the life of the Type.
type Type struct {
	name     string
	enabled  bool
	explicit bool
	bp       *schema.Blueprint
	env      *Env

	storageType   string
	format        codec.Format
	path          string // root-relative storage path
	newObject     record.ObjectFactory
	newCollection record.CollectionFactory

	coll    *record.Collection // nil while Unloaded
	journal *Journal
	log     *slog.Logger
}

// NewType configures a type from its blueprint. Unknown formats, kinds or
// locations are a ConfigError; the storage type is checked when the
// backend is first needed.
func NewType(name string, bp *schema.Blueprint, env *Env) (*Type, error) {
	if bp == nil || len(bp.Fields) == 0 {
		return nil, apperr.Configf(name, "blueprint for %s is missing", name)
	}
	env = env.withDefaults()

	p, err := env.Locator.Resolve(bp.Storage.Path)
	if err != nil {
		return nil, &apperr.ConfigError{Type: name, Msg: "storage path", Err: err}
	}
	format, err := resolveFormat(bp.Storage.Format, p)
	if err != nil {
		return nil, &apperr.ConfigError{Type: name, Msg: "storage format", Err: err}
	}
	newObject, err := env.Kinds.Object(name, bp.Storage.Object)
	if err != nil {
		return nil, err
	}
	newCollection, err := env.Kinds.Collection(name, bp.Storage.Collection)
	if err != nil {
		return nil, err
	}

	return &Type{
		name:          name,
		enabled:       true,
		bp:            bp,
		env:           env,
		storageType:   bp.Storage.Type,
		format:        format,
		path:          p,
		newObject:     newObject,
		newCollection: newCollection,
		journal:       NewJournal(),
		log:           env.Logger.With(slog.String("type", name)),
	}, nil
}

// resolveFormat prefers the configured format and falls back to the
// storage path's extension.
func resolveFormat(configured, p string) (codec.Format, error) {
	if configured != "" {
		f, err := codec.ParseFormat(configured)
		if err != nil {
			return "", err
		}
		return f, nil
	}
	ext := path.Ext(strings.ReplaceAll(p, backend.KeyPlaceholder, "key"))
	if ext == "" {
		return "", fmt.Errorf("no format set and %s has no extension", p)
	}
	return codec.ParseFormat(ext)
}

func (t *Type) Name() string                 { return t.name }
func (t *Type) Enabled() bool                { return t.enabled }
func (t *Type) Explicit() bool               { return t.explicit }
func (t *Type) Blueprint() *schema.Blueprint { return t.bp }
func (t *Type) Description() string          { return t.bp.Description }
func (t *Type) StorageType() string          { return t.storageType }
func (t *Type) Format() codec.Format         { return t.format }
func (t *Type) StoragePath() string          { return t.path }
func (t *Type) Loaded() bool                 { return t.coll != nil }
func (t *Type) Changes() []Change            { return t.journal.Entries() }

// Title returns the blueprint title, or the capitalised type name.
func (t *Type) Title() string {
	if t.bp.Title != "" {
		return t.bp.Title
	}
	r := []rune(t.name)
	if len(r) == 0 {
		return ""
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func (t *Type) backend() (backend.Backend, error) {
	return t.env.Cache.Get(t.path, func() (backend.Backend, error) {
		switch t.storageType {
		case schema.StorageFile:
			return backend.NewFile(t.env.Store, t.name, t.path, t.format)
		case schema.StorageFolder:
			return backend.NewFolder(t.env.Store, backend.FolderOptions{
				Type:         t.name,
				Template:     t.path,
				Format:       t.format,
				HeaderFields: t.headerFields(),
				Languages:    t.env.Languages,
			})
		}
		return nil, apperr.Configf(t.name, "unknown storage type %q", t.storageType)
	})
}

func (t *Type) headerFields() []string {
	out := t.bp.MultilingualFields()
	return append(out, t.env.HeaderBlocks...)
}

// Load returns the collection, reading it through the backend on first use.
func (t *Type) Load() (*record.Collection, error) {
	if err := t.ensureLoaded(); err != nil {
		return nil, err
	}
	return t.coll, nil
}

func (t *Type) ensureLoaded() error {
	if t.coll != nil {
		return nil
	}
	b, err := t.backend()
	if err != nil {
		return err
	}
	entries, err := b.Load()
	if err != nil {
		return err
	}
	coll := t.newCollection(t.name)
	for _, e := range entries {
		coll.Set(e.Key, t.newObject(e.Key, e.Fields, t.name))
	}
	t.coll = coll
	t.log.Debug("collection loaded",
		slog.String("path", t.path),
		slog.Int("records", coll.Len()))
	return nil
}

// Get returns the record stored under key, or nil.
func (t *Type) Get(key string) (*record.Record, error) {
	if err := t.ensureLoaded(); err != nil {
		return nil, err
	}
	if err := validKey(key); err != nil {
		return nil, err
	}
	return t.coll.Get(key), nil
}

// Create stores data as a new record.
func (t *Type) Create(data map[string]any) (*record.Record, error) {
	return t.Update(data, "")
}

// Update merges data into the record stored under key, or creates a new
// record when key is empty or unknown. A natural key field whose value
// differs from key renames the record: the old key is journaled as a
// delete and dropped from the collection.
func (t *Type) Update(data map[string]any, key string) (*record.Record, error) {
	if err := t.ensureLoaded(); err != nil {
		return nil, err
	}
	data = maps.Clone(data)
	if data == nil {
		data = map[string]any{}
	}

	var existing *record.Record
	if key != "" {
		if err := validKey(key); err != nil {
			return nil, err
		}
		existing = t.coll.Get(key)
	}

	var fields map[string]any
	if existing != nil {
		if nk, ok := t.naturalKey(data); ok && nk != key {
			if err := t.checkKey(nk); err != nil {
				return nil, err
			}
			t.journal.Record(key, ActionDelete)
			t.coll.Remove(key)
			t.log.Debug("record renamed", slog.String("from", key), slog.String("to", nk))
			key = nk
		}
		fields = t.bp.MergeData(existing.Fields(), data)
	} else {
		if nk, ok := t.naturalKey(data); ok {
			key = nk
		}
		if key == "" {
			k, err := t.NextKey()
			if err != nil {
				return nil, err
			}
			key = k
		} else if err := t.checkKey(key); err != nil {
			return nil, err
		}
		fields = data
	}

	rec := t.newObject(key, fields, t.name)
	t.journal.Record(key, ActionUpdate)
	t.coll.Set(key, rec)
	return rec, nil
}

// naturalKey returns the configured key field's value when it is set and
// not blank.
func (t *Type) naturalKey(data map[string]any) (string, bool) {
	field := t.bp.Storage.KeyField
	if field == "" {
		return "", false
	}
	v, ok := data[field]
	if !ok || v == nil {
		return "", false
	}
	s := fmt.Sprint(v)
	if s == "" {
		return "", false
	}
	return s, true
}

// validKey rejects keys that cannot name a single file or folder below the
// storage path.
func validKey(key string) error {
	switch {
	case key == "", key == ".", key == "..",
		strings.HasPrefix(key, "."),
		strings.ContainsAny(key, "/\\\x00"):
		return fmt.Errorf("directory: key %q: %w", key, apperr.ErrInvalid)
	}
	return nil
}

// checkKey vets a key about to be written. A last dot segment naming a
// configured language would read back as a language variant.
func (t *Type) checkKey(key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	if i := strings.LastIndex(key, "."); i >= 0 && i < len(key)-1 {
		suffix := key[i+1:]
		if suffix == t.env.Languages.Active() || slices.Contains(t.env.Languages.Languages(), suffix) {
			return fmt.Errorf("directory: key %q ends in language suffix %q: %w", key, suffix, apperr.ErrInvalid)
		}
	}
	return nil
}

// Remove drops key from the collection and journals a delete. It returns
// the removed record, or nil when key was absent.
func (t *Type) Remove(key string) (*record.Record, error) {
	if err := t.ensureLoaded(); err != nil {
		return nil, err
	}
	if err := validKey(key); err != nil {
		return nil, err
	}
	t.journal.Record(key, ActionDelete)
	return t.coll.Remove(key), nil
}

// NextKey returns a random key that is not in the collection.
func (t *Type) NextKey() (string, error) {
	if err := t.ensureLoaded(); err != nil {
		return "", err
	}
	buf := make([]byte, keyBytes)
	for {
		if _, err := io.ReadFull(t.env.Random, buf); err != nil {
			return "", fmt.Errorf("directory: generate key: %w", err)
		}
		key := strings.ToLower(keyEncoding.EncodeToString(buf))
		if !t.coll.ContainsKey(key) {
			return key, nil
		}
	}
}

// Save persists the journal. Folder storage replays it key by key and
// stops at the first failure, leaving earlier writes in place; file storage
// rewrites the whole collection. The cached backend is released either
// way, and the journal is cleared only on success. Save returns the
// changes that were applied.
func (t *Type) Save() ([]Change, error) {
	if err := t.ensureLoaded(); err != nil {
		return nil, err
	}
	b, err := t.backend()
	if err != nil {
		return nil, err
	}
	defer t.env.Cache.Release(t.path)

	changes := t.journal.Entries()
	switch w := b.(type) {
	case backend.EntryWriter:
		applied := make([]Change, 0, len(changes))
		for _, c := range changes {
			if err := t.apply(w, c); err != nil {
				return applied, fmt.Errorf("directory: save %s/%s: %w", t.name, c.Key, err)
			}
			applied = append(applied, c)
		}
		changes = applied
	case backend.CollectionWriter:
		if err := w.SaveAll(t.coll.Serialize()); err != nil {
			return nil, fmt.Errorf("directory: save %s: %w", t.name, err)
		}
	default:
		return nil, apperr.Configf(t.name, "backend for %s cannot write", t.path)
	}

	t.journal.Clear()
	t.log.Info("directory saved", slog.Int("changes", len(changes)))
	return changes, nil
}

func (t *Type) apply(w backend.EntryWriter, c Change) error {
	if c.Action == ActionDelete {
		return w.DeleteEntry(c.Key)
	}
	rec := t.coll.Get(c.Key)
	if rec == nil {
		t.log.Warn("journaled record missing from collection", slog.String("key", c.Key))
		return nil
	}
	return w.SaveEntry(c.Key, rec.Fields())
}

// MediaDir returns the folder that holds key's co-located files. Only
// per-entry folder layouts have one.
func (t *Type) MediaDir(key string) (string, error) {
	b, err := t.backend()
	if err != nil {
		return "", err
	}
	if ml, ok := b.(backend.MediaLocator); ok {
		if dir, ok := ml.MediaDir(key); ok {
			return dir, nil
		}
	}
	return "", apperr.Configf(t.name, "storage %s keeps no folder per entry", t.path)
}

// MediaFile returns the root-relative path for a co-located file of key.
// Names that would shadow the record's own files are ErrInvalid.
func (t *Type) MediaFile(key, name string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	dir, err := t.MediaDir(key)
	if err != nil {
		return "", err
	}
	b, err := t.backend()
	if err != nil {
		return "", err
	}
	if ml, ok := b.(backend.MediaLocator); !ok || !ml.IsMedia(key, name) {
		return "", fmt.Errorf("directory: media name %q: %w", name, apperr.ErrInvalid)
	}
	return path.Join(dir, name), nil
}
