// Package testutil provides shared test helpers for hosts built on the
// directory registry.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/starford/flexdir/internal/changelog"
	"github.com/starford/flexdir/internal/directory"
	"github.com/starford/flexdir/internal/storage"
)

// BlueprintDir is where TestRegistry stores blueprints.
const BlueprintDir = "blueprints"

// TestDB creates a temporary change log that is automatically closed.
func TestDB(t *testing.T) *changelog.DB {
	t.Helper()
	db, err := changelog.Open(filepath.Join(t.TempDir(), "changes.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestRoot creates a temporary data root with a storage.Provider.
func TestRoot(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestRegistry builds a registry over store from blueprint sources keyed by
// type name. Every type is discovered, none is explicit.
func TestRegistry(t *testing.T, store storage.Provider, blueprints map[string]string) *directory.Registry {
	t.Helper()
	bps := storage.NewMemory()
	for name, src := range blueprints {
		if err := bps.Write(BlueprintDir+"/"+name+".yaml", []byte(src)); err != nil {
			t.Fatal(err)
		}
	}
	reg, err := directory.NewRegistry(&directory.Env{
		Store:  store,
		Logger: QuietLogger(),
	}, directory.RegistryOptions{Blueprints: bps, Dir: BlueprintDir})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

// QuietLogger discards everything.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
