// Package directory implements directory types, the named record kinds
// that load, mutate and save a collection through a storage backend, and
// the registry that holds them.
package directory

import (
	"crypto/rand"
	"io"
	"log/slog"

	"github.com/starford/flexdir/internal/backend"
	"github.com/starford/flexdir/internal/language"
	"github.com/starford/flexdir/internal/locator"
	"github.com/starford/flexdir/internal/record"
	"github.com/starford/flexdir/internal/storage"
)

// Env holds the collaborators shared by every type of a registry.
type Env struct {
	Store     storage.Provider
	Locator   *locator.Locator
	Languages language.Resolver
	Cache     *backend.Cache
	Kinds     *record.Kinds
	// Random feeds key generation.
	Random io.Reader
	// HeaderBlocks are extra field names kept in the record file of
	// per-entry folder layouts.
	HeaderBlocks []string
	Logger       *slog.Logger
}

// withDefaults fills unset collaborators. Store is required.
func (e *Env) withDefaults() *Env {
	out := *e
	if out.Locator == nil {
		out.Locator = locator.New(nil)
	}
	if out.Languages == nil {
		out.Languages = language.None()
	}
	if out.Cache == nil {
		out.Cache = backend.NewCache()
	}
	if out.Kinds == nil {
		out.Kinds = record.NewKinds()
	}
	if out.Random == nil {
		out.Random = rand.Reader
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return &out
}
