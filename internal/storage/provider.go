// Package storage defines the data-root file-system abstraction.
package storage

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Entry is one item of a directory listing.
type Entry struct {
	Name  string
	IsDir bool
}

// Provider is the interface for file operations below the data root. All
// paths are slash-separated and relative to the root.
type Provider interface {
	// Read returns the raw bytes of the file at p. A missing file yields an
	// error wrapping fs.ErrNotExist.
	Read(p string) ([]byte, error)
	// Write atomically replaces the file at p, creating parent folders.
	Write(p string, content []byte) error
	// Delete removes a single file. Missing files are not an error.
	Delete(p string) error
	// DeleteAll removes p and everything below it. Missing paths are not an
	// error.
	DeleteAll(p string) error
	// Exists reports whether a file or folder is present at p.
	Exists(p string) (bool, error)
	// List returns the direct children of dir sorted by name. A missing
	// folder lists as empty.
	List(dir string) ([]Entry, error)
}

// cleanRel normalises rel and rejects absolute paths and anything that
// climbs out of the root.
func cleanRel(rel string) (string, error) {
	if rel == "" || rel == "." {
		return ".", nil
	}
	slashed := filepath.ToSlash(rel)
	if path.IsAbs(slashed) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	cleaned := path.Clean(slashed)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("storage: path escapes data root: %s", rel)
	}
	return cleaned, nil
}
