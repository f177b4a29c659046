package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/starford/flexdir/internal/apperr"
)

// memRoot is the folder inside the billy filesystem that holds the data
// root, so the root itself is a real directory entry.
const memRoot = "/data"

// Memory implements Provider on an in-memory billy filesystem. Nothing
// survives the process.
type Memory struct {
	bfs billy.Filesystem
}

// NewMemory returns an empty in-memory provider.
func NewMemory() *Memory {
	bfs := memfs.New()
	_ = bfs.MkdirAll(memRoot, 0o755)
	return &Memory{bfs: bfs}
}

func (m *Memory) name(rel string) (string, error) {
	cleaned, err := cleanRel(rel)
	if err != nil {
		return "", err
	}
	if cleaned == "." {
		return memRoot, nil
	}
	return memRoot + "/" + cleaned, nil
}

// Read returns the raw bytes of a file.
func (m *Memory) Read(p string) ([]byte, error) {
	name, err := m.name(p)
	if err != nil {
		return nil, err
	}
	f, err := m.bfs.Open(name)
	if err != nil {
		return nil, apperr.Storage("read", p, err)
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, apperr.Storage("read", p, err)
	}
	return data, nil
}

// Write replaces the file content, creating parent folders.
func (m *Memory) Write(p string, content []byte) error {
	name, err := m.name(p)
	if err != nil {
		return err
	}
	if err := m.bfs.MkdirAll(path.Dir(name), 0o755); err != nil {
		return apperr.Storage("mkdir", p, err)
	}
	if err := util.WriteFile(m.bfs, name, content, 0o644); err != nil {
		return apperr.Storage("write", p, err)
	}
	return nil
}

// Delete removes a file.
func (m *Memory) Delete(p string) error {
	name, err := m.name(p)
	if err != nil {
		return err
	}
	if err := m.bfs.Remove(name); err != nil && !isNotExist(err) {
		return apperr.Storage("delete", p, err)
	}
	return nil
}

// DeleteAll removes a file or folder tree.
func (m *Memory) DeleteAll(p string) error {
	name, err := m.name(p)
	if err != nil {
		return err
	}
	if name == memRoot {
		return fmt.Errorf("storage: refusing to delete data root")
	}
	if err := util.RemoveAll(m.bfs, name); err != nil && !isNotExist(err) {
		return apperr.Storage("delete", p, err)
	}
	return nil
}

// Exists reports whether p is present.
func (m *Memory) Exists(p string) (bool, error) {
	name, err := m.name(p)
	if err != nil {
		return false, err
	}
	_, err = m.bfs.Stat(name)
	switch {
	case err == nil:
		return true, nil
	case isNotExist(err):
		return false, nil
	default:
		return false, apperr.Storage("stat", p, err)
	}
}

// List returns the children of dir.
func (m *Memory) List(dir string) ([]Entry, error) {
	name, err := m.name(dir)
	if err != nil {
		return nil, err
	}
	infos, err := m.bfs.ReadDir(name)
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, apperr.Storage("list", dir, err)
	}
	out := make([]Entry, 0, len(infos))
	for _, info := range infos {
		out = append(out, Entry{Name: info.Name(), IsDir: info.IsDir()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err)
}
