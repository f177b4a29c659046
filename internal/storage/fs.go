package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/natefinch/atomic"

	"github.com/starford/flexdir/internal/apperr"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the data root
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute data root.
func (f *FS) Root() string { return f.root }

// safePath resolves a relative path against the root and rejects any result
// that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	cleaned, err := cleanRel(rel)
	if err != nil {
		return "", err
	}
	return filepath.Join(f.root, filepath.FromSlash(cleaned)), nil
}

// Read returns the raw bytes of a file.
func (f *FS) Read(p string) ([]byte, error) {
	abs, err := f.safePath(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, apperr.Storage("read", p, err)
	}
	return data, nil
}

// Write creates missing parent folders, then swaps the new content in with
// a rename so readers never observe a partial file.
func (f *FS) Write(p string, content []byte) error {
	abs, err := f.safePath(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return apperr.Storage("mkdir", p, err)
	}
	if err := atomic.WriteFile(abs, bytes.NewReader(content)); err != nil {
		return apperr.Storage("write", p, err)
	}
	return nil
}

// Delete removes a file.
func (f *FS) Delete(p string) error {
	abs, err := f.safePath(p)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperr.Storage("delete", p, err)
	}
	return nil
}

// DeleteAll removes a file or folder tree.
func (f *FS) DeleteAll(p string) error {
	abs, err := f.safePath(p)
	if err != nil {
		return err
	}
	if abs == f.root {
		return fmt.Errorf("storage: refusing to delete data root")
	}
	if err := os.RemoveAll(abs); err != nil {
		return apperr.Storage("delete", p, err)
	}
	return nil
}

// Exists reports whether p is present.
func (f *FS) Exists(p string) (bool, error) {
	abs, err := f.safePath(p)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(abs)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, apperr.Storage("stat", p, err)
	}
}

// List returns the children of dir.
func (f *FS) List(dir string) ([]Entry, error) {
	abs, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	items, err := os.ReadDir(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, apperr.Storage("list", dir, err)
	}
	out := make([]Entry, 0, len(items))
	for _, it := range items {
		out = append(out, Entry{Name: it.Name(), IsDir: it.IsDir()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
