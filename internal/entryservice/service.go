// Package entryservice is the host-facing facade over the directory
// registry. It serialises every call, persists each mutation, records it in
// the change log and announces it to subscribers.
package entryservice

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/starford/flexdir/internal/apperr"
	"github.com/starford/flexdir/internal/changelog"
	"github.com/starford/flexdir/internal/checksum"
	"github.com/starford/flexdir/internal/directory"
	"github.com/starford/flexdir/internal/storage"
)

// Publisher receives one call per persisted change. kind is "update" or
// "delete".
type Publisher interface {
	PublishEntryEvent(kind, typ, key string)
}

// DirectorySummary describes one directory type.
type DirectorySummary struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Storage     string `json:"storage"`
	Format      string `json:"format"`
	Path        string `json:"path"`
	Explicit    bool   `json:"explicit"`
	Default     bool   `json:"default"`
}

// EntryDetail is one record together with its content checksum.
type EntryDetail struct {
	Type     string         `json:"type"`
	Key      string         `json:"key"`
	Checksum string         `json:"checksum"`
	Fields   map[string]any `json:"fields"`
}

// Service coordinates the registry, the change log and event publishing.
type Service struct {
	mu     sync.Mutex
	reg    *directory.Registry
	store  storage.Provider
	log    changelog.Log
	pub    Publisher
	logger *slog.Logger
}

// New creates a service. log and pub may be nil.
func New(reg *directory.Registry, log changelog.Log, pub Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		reg:    reg,
		store:  reg.Env().Store,
		log:    log,
		pub:    pub,
		logger: logger,
	}
}

// resolve maps a type name to an enabled type. An empty name selects the
// registry default.
func (s *Service) resolve(name string) (*directory.Type, error) {
	var t *directory.Type
	if name == "" {
		t = s.reg.Default()
	} else {
		t = s.reg.Get(name)
	}
	if t == nil || !t.Enabled() {
		return nil, apperr.ErrUnknownType
	}
	return t, nil
}

// ListDirectories returns every enabled type sorted by name.
func (s *Service) ListDirectories(_ context.Context) []DirectorySummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	def := s.reg.Default()
	out := []DirectorySummary{}
	for _, t := range s.reg.All() {
		if !t.Enabled() {
			continue
		}
		out = append(out, DirectorySummary{
			Name:        t.Name(),
			Title:       t.Title(),
			Description: t.Description(),
			Storage:     t.StorageType(),
			Format:      string(t.Format()),
			Path:        t.StoragePath(),
			Explicit:    t.Explicit(),
			Default:     def != nil && def.Name() == t.Name(),
		})
	}
	return out
}

// ListEntries returns a page of records in collection order and the total
// count. A limit of zero or less returns every record from offset on.
func (s *Service) ListEntries(_ context.Context, typ string, limit, offset int) ([]EntryDetail, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.resolve(typ)
	if err != nil {
		return nil, 0, err
	}
	coll, err := t.Load()
	if err != nil {
		return nil, 0, err
	}
	recs := coll.Records()
	total := len(recs)
	offset = min(max(offset, 0), total)
	limit = max(limit, 0)
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	out := make([]EntryDetail, 0, end-offset)
	for _, r := range recs[offset:end] {
		out = append(out, detail(t.Name(), r.Key(), r.Fields()))
	}
	return out, total, nil
}

// GetEntry returns one record or ErrNotFound.
func (s *Service) GetEntry(_ context.Context, typ, key string) (*EntryDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.resolve(typ)
	if err != nil {
		return nil, err
	}
	r, err := t.Get(key)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, apperr.ErrNotFound
	}
	d := detail(t.Name(), r.Key(), r.Fields())
	return &d, nil
}

// CreateOrUpdate stores data and persists the type. An empty key creates a
// record under a natural or generated key; otherwise data is merged into
// the record under key, or stored under key when it is new. A non-empty
// ifMatch must equal the current checksum of an existing record. created
// reports whether no record existed before.
func (s *Service) CreateOrUpdate(_ context.Context, typ, key string, data map[string]any, ifMatch string) (d *EntryDetail, created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.resolve(typ)
	if err != nil {
		return nil, false, err
	}

	created = true
	if key != "" {
		existing, err := t.Get(key)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			created = false
			if ifMatch != "" && ifMatch != checksum.Fields(existing.Fields()) {
				return nil, false, apperr.ErrConflict
			}
		} else if ifMatch != "" {
			return nil, false, apperr.ErrNotFound
		}
	}

	rec, err := t.Update(data, key)
	if err != nil {
		return nil, false, err
	}
	if err := s.persist(t); err != nil {
		return nil, false, err
	}
	out := detail(t.Name(), rec.Key(), rec.Fields())
	return &out, created, nil
}

// RemoveEntry deletes key and persists the type. An absent key is
// ErrNotFound and changes nothing.
func (s *Service) RemoveEntry(_ context.Context, typ, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.resolve(typ)
	if err != nil {
		return err
	}
	r, err := t.Get(key)
	if err != nil {
		return err
	}
	if r == nil {
		return apperr.ErrNotFound
	}
	if _, err := t.Remove(key); err != nil {
		return err
	}
	return s.persist(t)
}

// Persist saves any pending changes of typ.
func (s *Service) Persist(_ context.Context, typ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.resolve(typ)
	if err != nil {
		return err
	}
	return s.persist(t)
}

// persist saves t, then logs and announces whatever was written, including
// the changes applied before a failure.
func (s *Service) persist(t *directory.Type) error {
	applied, saveErr := t.Save()

	rows := make([]changelog.Row, 0, len(applied))
	for _, c := range applied {
		row := changelog.Row{Type: t.Name(), Key: c.Key, Action: string(c.Action)}
		if c.Action == directory.ActionUpdate {
			if r, err := t.Get(c.Key); err == nil && r != nil {
				row.Checksum = checksum.Fields(r.Fields())
			}
		}
		rows = append(rows, row)
	}
	if s.log != nil && len(rows) > 0 {
		if err := s.log.Append(rows); err != nil {
			s.logger.Warn("changelog append failed",
				slog.String("type", t.Name()),
				slog.String("error", err.Error()))
		}
	}
	if s.pub != nil {
		for _, c := range applied {
			s.pub.PublishEntryEvent(string(c.Action), t.Name(), c.Key)
		}
	}

	if saveErr != nil {
		s.logger.Error("save failed",
			slog.String("type", t.Name()),
			slog.Int("applied", len(applied)),
			slog.String("error", saveErr.Error()))
		return saveErr
	}
	return nil
}

// Pending returns the journaled changes of typ that are not saved yet.
func (s *Service) Pending(_ context.Context, typ string) ([]directory.Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.resolve(typ)
	if err != nil {
		return nil, err
	}
	return t.Changes(), nil
}

// Changes returns a page of the persisted change history of typ.
func (s *Service) Changes(_ context.Context, typ string, limit, offset int) ([]changelog.Row, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.resolve(typ)
	if err != nil {
		return nil, 0, err
	}
	if s.log == nil {
		return []changelog.Row{}, 0, nil
	}
	return s.log.List(t.Name(), limit, offset)
}

// Reload rebuilds typ from its blueprint and re-reads its storage. Unsaved
// changes are dropped.
func (s *Service) Reload(_ context.Context, typ string) (*DirectorySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.resolve(typ)
	if err != nil {
		return nil, err
	}
	t, err = s.reg.Reload(t.Name())
	if err != nil {
		return nil, err
	}
	return &DirectorySummary{
		Name:        t.Name(),
		Title:       t.Title(),
		Description: t.Description(),
		Storage:     t.StorageType(),
		Format:      string(t.Format()),
		Path:        t.StoragePath(),
		Explicit:    t.Explicit(),
	}, nil
}

// AddMedia stores a file next to an existing entry and returns its
// root-relative path. When nothing is pending the type is reloaded so the
// entry lists the new file.
func (s *Service) AddMedia(_ context.Context, typ, key, filename string, r io.Reader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.resolve(typ)
	if err != nil {
		return "", err
	}
	rec, err := t.Get(key)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", apperr.ErrNotFound
	}
	p, err := t.MediaFile(key, filename)
	if err != nil {
		return "", err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("entryservice: read upload: %w", err)
	}
	if err := s.store.Write(p, data); err != nil {
		return "", err
	}
	s.logger.Info("media stored",
		slog.String("type", t.Name()),
		slog.String("key", key),
		slog.String("path", p))

	if len(t.Changes()) == 0 {
		if _, err := s.reg.Reload(t.Name()); err != nil {
			return "", err
		}
	}
	return p, nil
}

func detail(typ, key string, fields map[string]any) EntryDetail {
	return EntryDetail{
		Type:     typ,
		Key:      key,
		Checksum: checksum.Fields(fields),
		Fields:   fields,
	}
}
