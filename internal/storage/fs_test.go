package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/flexdir/internal/apperr"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	s, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return s
}

// providers returns a fresh instance of every driver.
func providers(t *testing.T) map[string]Provider {
	return map[string]Provider{
		"fs":     tempRoot(t),
		"memory": NewMemory(),
	}
}

func TestWriteAndRead(t *testing.T) {
	for name, s := range providers(t) {
		content := []byte("# Hello\nWorld\n")
		if err := s.Write("entry.md", content); err != nil {
			t.Fatalf("%s: Write: %v", name, err)
		}
		got, err := s.Read("entry.md")
		if err != nil {
			t.Fatalf("%s: Read: %v", name, err)
		}
		if string(got) != string(content) {
			t.Errorf("%s: content mismatch: got %q", name, got)
		}
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	for name, s := range providers(t) {
		if err := s.Write("a/b/c.yaml", []byte("deep")); err != nil {
			t.Fatalf("%s: Write: %v", name, err)
		}
		got, err := s.Read("a/b/c.yaml")
		if err != nil {
			t.Fatalf("%s: Read: %v", name, err)
		}
		if string(got) != "deep" {
			t.Errorf("%s: content = %q", name, got)
		}
	}
}

func TestReadMissing(t *testing.T) {
	for name, s := range providers(t) {
		_, err := s.Read("nope.json")
		if !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("%s: want ErrNotExist, got %v", name, err)
		}
		if !apperr.IsStorage(err) {
			t.Errorf("%s: want StorageError, got %T", name, err)
		}
	}
}

func TestDelete(t *testing.T) {
	for name, s := range providers(t) {
		_ = s.Write("del.md", []byte("bye"))
		if err := s.Delete("del.md"); err != nil {
			t.Fatalf("%s: Delete: %v", name, err)
		}
		if ok, _ := s.Exists("del.md"); ok {
			t.Errorf("%s: file still exists", name)
		}
		if err := s.Delete("del.md"); err != nil {
			t.Errorf("%s: deleting a missing file: %v", name, err)
		}
	}
}

func TestDeleteAll(t *testing.T) {
	for name, s := range providers(t) {
		_ = s.Write("entries/k1/item.md", []byte("x"))
		_ = s.Write("entries/k1/photo.jpg", []byte("y"))
		_ = s.Write("entries/k2/item.md", []byte("z"))
		if err := s.DeleteAll("entries/k1"); err != nil {
			t.Fatalf("%s: DeleteAll: %v", name, err)
		}
		if ok, _ := s.Exists("entries/k1"); ok {
			t.Errorf("%s: folder still exists", name)
		}
		if ok, _ := s.Exists("entries/k2/item.md"); !ok {
			t.Errorf("%s: sibling folder removed", name)
		}
		if err := s.DeleteAll("entries/missing"); err != nil {
			t.Errorf("%s: deleting a missing folder: %v", name, err)
		}
		if err := s.DeleteAll(""); err == nil {
			t.Errorf("%s: expected error deleting the root", name)
		}
	}
}

func TestList(t *testing.T) {
	for name, s := range providers(t) {
		_ = s.Write("dir/b.md", []byte("b"))
		_ = s.Write("dir/a.md", []byte("a"))
		_ = s.Write("dir/sub/c.md", []byte("c"))

		items, err := s.List("dir")
		if err != nil {
			t.Fatalf("%s: List: %v", name, err)
		}
		want := []Entry{{Name: "a.md"}, {Name: "b.md"}, {Name: "sub", IsDir: true}}
		if len(items) != len(want) {
			t.Fatalf("%s: got %v, want %v", name, items, want)
		}
		for i := range want {
			if items[i] != want[i] {
				t.Errorf("%s: item %d = %v, want %v", name, i, items[i], want[i])
			}
		}

		missing, err := s.List("does/not/exist")
		if err != nil || len(missing) != 0 {
			t.Errorf("%s: missing folder: %v, %v", name, missing, err)
		}
	}
}

func TestTraversalBlocked(t *testing.T) {
	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for name, s := range providers(t) {
		for _, p := range cases {
			if _, err := s.Read(p); err == nil {
				t.Errorf("%s: expected error for path %q", name, p)
			}
			if err := s.Write(p, []byte("x")); err == nil {
				t.Errorf("%s: expected error for write to %q", name, p)
			}
		}
	}
}

func TestAtomicWriteReplaces(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("atomic.json", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.json", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.json")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	items, _ := os.ReadDir(s.Root())
	if len(items) != 1 {
		t.Errorf("leftover files next to target: %v", items)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "flexdir-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
