// Package backend persists collections either as one whole file or as a
// folder of per-record files.
package backend

import (
	"errors"

	"github.com/starford/flexdir/internal/apperr"
	"github.com/starford/flexdir/internal/codec"
)

// MediaField is the derived field listing files stored next to a record.
// It is added on load and never written.
const MediaField = "media"

// FrontmatterName is the basename of the sidecar file that holds the
// non-header fields of a per-entry record.
const FrontmatterName = "frontmatter"

// Entry is one decoded record as read from storage.
type Entry struct {
	Key    string
	Fields map[string]any
}

// Backend reads the stored entries of one storage path.
type Backend interface {
	// Path is the resolved storage path, used as the cache key.
	Path() string
	// Root is the file or folder on disk that holds every entry.
	Root() string
	Load() ([]Entry, error)
}

// EntryWriter persists and deletes single records.
type EntryWriter interface {
	SaveEntry(key string, fields map[string]any) error
	DeleteEntry(key string) error
}

// CollectionWriter replaces the whole stored collection at once.
type CollectionWriter interface {
	SaveAll(entries map[string]map[string]any) error
}

// MediaLocator is implemented by backends that keep a folder per record.
type MediaLocator interface {
	MediaDir(key string) (string, bool)
	// IsMedia reports whether name can be stored in key's folder without
	// shadowing the record's own files.
	IsMedia(key, name string) bool
}

func decode(c codec.Codec, p string, data []byte) (map[string]any, error) {
	fields, err := c.Decode(data)
	if err != nil {
		var de *apperr.DecodeError
		if errors.As(err, &de) && de.Path == "" {
			de.Path = p
		}
		return nil, err
	}
	return fields, nil
}
